package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// DefaultWorkers is the number of images decoded in parallel when no worker count is configured.
const DefaultWorkers = 4

// MaxWorkers is the size of the decode pool shared by every Loader and the most images any one build
// decodes in parallel.
const MaxWorkers = 16

// decodePool is started on first use and lives for the process, so repeated builds reuse the same
// goroutines.
var decodePool = sync.OnceValue(func() worker.DynamicWorkerPool {
	return worker.NewDynamicWorkerPool(MaxWorkers, 4*MaxWorkers, time.Second)
})

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	workers     int
	bundleCache map[string]*AssetBundle
}

// Loader turns asset manifests into decoded AssetBundles and caches them. Image files are decoded on a
// worker pool; everything else is cheap and happens on the calling goroutine. A Loader never touches
// the GPU: bundles are uploaded by the engine once the frame loop owns the GraphicsContext.
type Loader interface {
	// Load reads a manifest file from disk and caches the result by path.
	// If the bundle is already cached, the cached version is returned.
	// The manifest format is selected by extension (.toml, .yaml, .yml).
	//
	// Parameters:
	//   - path: the manifest file path; image paths inside it are relative to its directory
	//
	// Returns:
	//   - *AssetBundle: the decoded bundle
	//   - error: error if the manifest or any image fails to load
	Load(path string) (*AssetBundle, error)

	// LoadFS reads a manifest from a filesystem and caches the result by name.
	//
	// Parameters:
	//   - fsys: the filesystem holding the manifest and its images
	//   - name: the manifest path inside fsys
	//
	// Returns:
	//   - *AssetBundle: the decoded bundle
	//   - error: error if the manifest or any image fails to load
	LoadFS(fsys fs.FS, name string) (*AssetBundle, error)

	// Build decodes an already parsed manifest without caching it.
	//
	// Parameters:
	//   - fsys: the filesystem image paths are resolved against
	//   - m: the manifest
	//
	// Returns:
	//   - *AssetBundle: the decoded and validated bundle
	//   - error: every texture, mesh and validation error, joined
	Build(fsys fs.FS, m Manifest) (*AssetBundle, error)

	// Get retrieves a cached bundle by key. Returns nil if not found.
	//
	// Parameters:
	//   - key: the path or name the bundle was loaded with
	//
	// Returns:
	//   - *AssetBundle: the cached bundle or nil
	Get(key string) *AssetBundle
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the given options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		workers:     DefaultWorkers,
		bundleCache: make(map[string]*AssetBundle),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*AssetBundle, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}
	b, err := l.load(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		return nil, err
	}
	l.store(path, b)
	return b, nil
}

func (l *loader) LoadFS(fsys fs.FS, name string) (*AssetBundle, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	b, err := l.load(fsys, name)
	if err != nil {
		return nil, err
	}
	l.store(name, b)
	return b, nil
}

func (l *loader) load(fsys fs.FS, name string) (*AssetBundle, error) {
	backend, err := resolveBackend(name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", name, err)
	}
	m, err := backend.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", name, err)
	}

	// Image paths are relative to the manifest.
	if dir := filepath.ToSlash(filepath.Dir(name)); dir != "." {
		if fsys, err = fs.Sub(fsys, dir); err != nil {
			return nil, err
		}
	}
	b, err := l.Build(fsys, m)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return b, nil
}

func (l *loader) store(key string, b *AssetBundle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bundleCache[key] = b
}

func (l *loader) Get(key string) *AssetBundle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bundleCache[key]
}

func (l *loader) Build(fsys fs.FS, m Manifest) (*AssetBundle, error) {
	start := time.Now()
	textures, err := l.decodeTextures(fsys, m.Textures)
	if err != nil {
		return nil, err
	}

	b := &AssetBundle{Textures: textures}
	for _, e := range m.Materials {
		b.Materials = append(b.Materials, MaterialAsset(e))
	}
	var errs []error
	for _, e := range m.Meshes {
		mesh, err := e.mesh()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.Meshes = append(b.Meshes, mesh)
	}
	for _, e := range m.Quads {
		b.Quads = append(b.Quads, e.quad())
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	slog.Info("[Loader] bundle ready",
		"textures", len(b.Textures),
		"materials", len(b.Materials),
		"meshes", len(b.Meshes),
		"quads", len(b.Quads),
		"elapsed", time.Since(start))
	return b, nil
}

// decodeTextures decodes every texture entry on the shared pool, at most l.workers at a time. Results
// keep the manifest order.
func (l *loader) decodeTextures(fsys fs.FS, entries []TextureEntry) ([]TextureAsset, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	pool := decodePool()
	slots := make(chan struct{}, min(l.workers, len(entries)))

	results := make([]TextureAsset, len(entries))
	errs := make([]error, len(entries))
	var wg sync.WaitGroup
	for i, entry := range entries {
		slots <- struct{}{}
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer func() {
					<-slots
					wg.Done()
				}()
				results[i], errs[i] = decodeTexture(fsys, entry)
				return nil, errs[i]
			},
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}
