package renderer

import (
	"errors"
	"fmt"
)

// Sentinel errors for every failure kind. Typed errors below match them through errors.Is, so callers
// can branch on either the kind or the concrete type.
var (
	// ErrNoSuitableAdapter means no backend candidate could provide an adapter and device.
	ErrNoSuitableAdapter = errors.New("no suitable graphics adapter")
	// ErrSurfaceCreationFailed means the platform surface could not be created from the target handle.
	ErrSurfaceCreationFailed = errors.New("surface creation failed")

	// ErrSurfaceOutdated means the surface configuration no longer matches the window.
	ErrSurfaceOutdated = errors.New("surface outdated")
	// ErrSurfaceLost means the surface must be recreated before the next frame.
	ErrSurfaceLost = errors.New("surface lost")
	// ErrAcquireTimeout means no presentable image became available within the bounded wait.
	ErrAcquireTimeout = errors.New("surface acquire timed out")

	// ErrSizeMismatch means a pixel buffer length does not match width*height*bytes-per-pixel.
	ErrSizeMismatch = errors.New("pixel buffer size mismatch")
	// ErrLayoutMismatch means resources do not fit the bind group layout they are bound against.
	ErrLayoutMismatch = errors.New("bind group layout mismatch")
	// ErrDuplicateMaterialName means a material set already holds a material with the same name.
	ErrDuplicateMaterialName = errors.New("duplicate material name")
	// ErrUnsupportedFormat means the texture format cannot be uploaded as a sampled texture.
	ErrUnsupportedFormat = errors.New("unsupported texture format")
	// ErrTooLarge means the texture exceeds the backend's maximum dimension.
	ErrTooLarge = errors.New("texture exceeds maximum dimension")

	// ErrDeviceLost means the device can no longer accept work.
	ErrDeviceLost = errors.New("device lost")
)

// InitErrorKind classifies an InitError.
type InitErrorKind int

const (
	// NoSuitableAdapter is reported when neither the preferred nor the fallback backend is available.
	NoSuitableAdapter InitErrorKind = iota
	// SurfaceCreationFailed is reported when the target handle cannot produce a surface.
	SurfaceCreationFailed
)

// InitError is returned by Initialize and Reinitialize. It is fatal to startup.
type InitError struct {
	Kind InitErrorKind
	Err  error
}

func (e *InitError) Error() string {
	msg := ErrNoSuitableAdapter.Error()
	if e.Kind == SurfaceCreationFailed {
		msg = ErrSurfaceCreationFailed.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *InitError) Is(target error) bool {
	switch e.Kind {
	case NoSuitableAdapter:
		return target == ErrNoSuitableAdapter
	case SurfaceCreationFailed:
		return target == ErrSurfaceCreationFailed
	}
	return false
}

// AcquireErrorKind classifies an AcquireError.
type AcquireErrorKind int

const (
	// Outdated requires a resize-and-retry.
	Outdated AcquireErrorKind = iota
	// SurfaceLost requires the surface to be recreated while keeping the device.
	SurfaceLost
	// Timeout is handled like Outdated.
	Timeout
)

// String returns the name of the kind.
func (k AcquireErrorKind) String() string {
	switch k {
	case Outdated:
		return "outdated"
	case SurfaceLost:
		return "surface lost"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("AcquireErrorKind(%d)", int(k))
	}
}

// AcquireError is returned by AcquireFrame. Every kind is recoverable.
type AcquireError struct {
	Kind AcquireErrorKind
	Err  error
}

func (e *AcquireError) Error() string {
	if e.Err != nil {
		return "acquire frame: " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "acquire frame: " + e.Kind.String()
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *AcquireError) Is(target error) bool {
	switch e.Kind {
	case Outdated:
		return target == ErrSurfaceOutdated
	case SurfaceLost:
		return target == ErrSurfaceLost
	case Timeout:
		return target == ErrAcquireTimeout
	}
	return false
}

// Retryable reports whether the frame loop may resize and retry the acquire once.
func (e *AcquireError) Retryable() bool {
	return e.Kind == Outdated || e.Kind == Timeout
}

// UploadErrorKind classifies an UploadError.
type UploadErrorKind int

const (
	// SizeMismatch means the pixel buffer length is wrong for the dimensions and format.
	SizeMismatch UploadErrorKind = iota
	// LayoutMismatch means textures or samplers do not fit the bind group layout.
	LayoutMismatch
	// DuplicateMaterialName means a material name is already taken in the target set.
	DuplicateMaterialName
	// UnsupportedFormat means the pixel format cannot be sampled.
	UnsupportedFormat
	// TooLarge means a dimension exceeds the backend limit.
	TooLarge
)

var uploadSentinels = map[UploadErrorKind]error{
	SizeMismatch:          ErrSizeMismatch,
	LayoutMismatch:        ErrLayoutMismatch,
	DuplicateMaterialName: ErrDuplicateMaterialName,
	UnsupportedFormat:     ErrUnsupportedFormat,
	TooLarge:              ErrTooLarge,
}

// UploadError is fatal to a single upload call and never to the frame loop.
type UploadError struct {
	Kind UploadErrorKind
	// Resource names the texture, mesh or material being uploaded.
	Resource string
	Err      error
}

func (e *UploadError) Error() string {
	msg := uploadSentinels[e.Kind].Error()
	if e.Resource != "" {
		msg = fmt.Sprintf("%s %q: %s", "upload", e.Resource, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *UploadError) Is(target error) bool {
	return uploadSentinels[e.Kind] == target
}

// NewUploadError builds an UploadError with a formatted detail message.
//
// Parameters:
//   - kind: the failure kind
//   - resource: the name of the resource being uploaded
//   - format: detail message format, may be empty
//   - args: format arguments
//
// Returns:
//   - *UploadError: the error
func NewUploadError(kind UploadErrorKind, resource, format string, args ...any) *UploadError {
	e := &UploadError{Kind: kind, Resource: resource}
	if format != "" {
		e.Err = fmt.Errorf(format, args...)
	}
	return e
}

// DeviceLostError is fatal to the GraphicsContext that produced it. Recovery requires tearing the
// context down and initializing a new one.
type DeviceLostError struct {
	Err error
}

func (e *DeviceLostError) Error() string {
	if e.Err != nil {
		return ErrDeviceLost.Error() + ": " + e.Err.Error()
	}
	return ErrDeviceLost.Error()
}

func (e *DeviceLostError) Unwrap() error {
	return e.Err
}

// Is matches ErrDeviceLost.
func (e *DeviceLostError) Is(target error) bool {
	return target == ErrDeviceLost
}
