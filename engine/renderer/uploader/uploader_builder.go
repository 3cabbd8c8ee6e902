package uploader

import "github.com/Carmen-Shannon/oxy-gfx/common"

// UploaderBuilderOption is a function that configures an uploader during construction.
type UploaderBuilderOption func(*uploader)

// WithSampler sets the sampler configuration used for every uploaded texture. Zero values fall back to
// linear filtering with repeat addressing.
//
// Parameters:
//   - data: the sampler configuration
//
// Returns:
//   - UploaderBuilderOption: a function that applies the sampler option to an uploader
func WithSampler(data common.SamplerStagingData) UploaderBuilderOption {
	return func(u *uploader) {
		u.sampler = data
	}
}
