package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithWorkers is an option builder that sets how many images are decoded in parallel.
//
// Parameters:
//   - n: the worker count; values below 1 are raised to 1 and values above MaxWorkers are lowered to it
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = min(max(n, 1), MaxWorkers)
	}
}

// WithBundle is an option builder that pre-populates the bundle cache.
//
// Parameters:
//   - key: the cache key for the bundle
//   - bundle: the bundle to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the bundle option to a loader
func WithBundle(key string, bundle *AssetBundle) LoaderBuilderOption {
	return func(l *loader) {
		l.bundleCache[key] = bundle
	}
}
