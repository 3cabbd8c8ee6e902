package material

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
)

// Set is a named, insertion-ordered collection of materials.
type Set struct {
	mu     *sync.Mutex
	names  []string
	byName map[string]Material
}

// NewSet creates an empty Set.
//
// Returns:
//   - *Set: the set
func NewSet() *Set {
	return &Set{
		mu:     &sync.Mutex{},
		byName: make(map[string]Material),
	}
}

// Insert adds a material under its name. A name that is already present is rejected and the material
// inserted first is kept.
//
// Parameters:
//   - m: the material to add
//
// Returns:
//   - error: an *renderer.UploadError with DuplicateMaterialName if the name is taken
func (s *Set) Insert(m Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := m.Name()
	if _, exists := s.byName[name]; exists {
		return renderer.NewUploadError(renderer.DuplicateMaterialName, name, "material set already holds %q", name)
	}
	s.byName[name] = m
	s.names = append(s.names, name)
	return nil
}

// Get looks a material up by name.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - Material: the material
//   - bool: false if no material has that name
func (s *Set) Get(name string) (Material, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byName[name]
	return m, ok
}

// Has reports whether a name is taken.
func (s *Set) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names returns the material names in insertion order.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

// Len returns the number of materials.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

// Release releases every material in insertion order and empties the set.
func (s *Set) Release() {
	s.mu.Lock()
	names, byName := s.names, s.byName
	s.names = nil
	s.byName = make(map[string]Material)
	s.mu.Unlock()

	for _, name := range names {
		byName[name].Release()
	}
}
