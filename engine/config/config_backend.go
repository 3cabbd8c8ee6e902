package config

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

// decoder decodes config data into a Config holding the defaults. Unknown keys are rejected.
type decoder func(data []byte, c *Config) error

func decodeTOML(data []byte, c *Config) error {
	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	return d.Decode(c)
}

func decodeYAML(data []byte, c *Config) error {
	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// resolveDecoder selects a decoder by file extension.
func resolveDecoder(name string) (decoder, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".toml":
		return decodeTOML, nil
	case ".yaml", ".yml":
		return decodeYAML, nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
}
