package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// loaderBackend decodes a manifest file of one format.
type loaderBackend interface {
	// Decode parses a manifest. Unknown keys are rejected so typos do not silently drop assets.
	//
	// Parameters:
	//   - data: the raw file contents
	//
	// Returns:
	//   - Manifest: the decoded manifest
	//   - error: error if the data is not a valid manifest
	Decode(data []byte) (Manifest, error)
}

// tomlLoaderBackend decodes .toml manifests.
type tomlLoaderBackend struct{}

func (tomlLoaderBackend) Decode(data []byte) (Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// yamlLoaderBackend decodes .yaml and .yml manifests.
type yamlLoaderBackend struct{}

func (yamlLoaderBackend) Decode(data []byte) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Manifest{}, err
	}
	return m, nil
}

// resolveBackend selects the manifest backend from the file extension.
func resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		return tomlLoaderBackend{}, nil
	case ".yaml", ".yml":
		return yamlLoaderBackend{}, nil
	default:
		return nil, fmt.Errorf("unsupported manifest format: %q", ext)
	}
}
