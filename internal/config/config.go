package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/dnswlt/dirsearch/internal/store"
	"github.com/dnswlt/dirsearch/internal/xmlpatch"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "dirsearch.yml"

// CatalogConfig configures access to the add-on directory.
type CatalogConfig struct {
	// URL of the listing endpoint.
	// [optional]
	URL string `yaml:"url"`
	// Framework major version the listing is filtered by, e.g. "7".
	// [optional]
	FrameworkVersion string `yaml:"frameworkVersion"`
	// Request timeout, e.g. "30s".
	// [optional]
	Timeout Duration `yaml:"timeout"`
	// Directory for cached listings. Empty keeps the default.
	// [optional]
	CacheDir string `yaml:"cacheDir"`
	// Maximum age of a cached listing, e.g. "1h".
	// [optional]
	CacheTTL Duration `yaml:"cacheTTL"`
	// Number of listings kept in the cache directory.
	// [optional]
	CacheSize int `yaml:"cacheSize"`
}

// DescriptorConfig locates the build descriptor and its dependencies container.
type DescriptorConfig struct {
	// Path of the descriptor, relative to the store root.
	// [optional]
	Path string `yaml:"path"`
	// Element path of the container new dependencies are appended to.
	// [optional]
	Container string `yaml:"container"`
}

type OutputConfig struct {
	// One of "text", "cyclonedx".
	// [optional]
	Format string `yaml:"format"`
	// [optional]
	Color *bool `yaml:"color"`
}

// Bundle is the umbrella struct for the serialized application configuration YAML.
type Bundle struct {
	Catalog    CatalogConfig    `yaml:"catalog"`
	Descriptor DescriptorConfig `yaml:"descriptor"`
	Output     OutputConfig     `yaml:"output"`
}

// Duration is a time.Duration that is written as "30s" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %v", value.Line, s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Validate checks values that cannot be expressed in YAML types.
func (b *Bundle) Validate() error {
	if b.Descriptor.Container != "" {
		if _, err := xmlpatch.ParseLocator(b.Descriptor.Container); err != nil {
			return fmt.Errorf("descriptor.container: %v", err)
		}
	}
	switch b.Output.Format {
	case "", "text", "cyclonedx":
	default:
		return fmt.Errorf("output.format: unsupported format %q", b.Output.Format)
	}
	if b.Catalog.CacheSize < 0 {
		return fmt.Errorf("catalog.cacheSize: must not be negative")
	}
	if b.Catalog.Timeout < 0 {
		return fmt.Errorf("catalog.timeout: must not be negative")
	}
	if b.Catalog.CacheTTL < 0 {
		return fmt.Errorf("catalog.cacheTTL: must not be negative")
	}
	return nil
}

// Load reads the configuration at configPath from st.
func Load(st store.Store, configPath string) (*Bundle, error) {
	bs, err := st.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read config %q: %w", configPath, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(bs))
	dec.KnownFields(true)
	var bundle Bundle
	if err := dec.Decode(&bundle); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid configuration YAML in %q: %v", configPath, err)
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %q: %v", configPath, err)
	}
	return &bundle, nil
}

// LoadOptional is like Load, but returns an empty Bundle if configPath
// does not exist.
func LoadOptional(st store.Store, configPath string) (*Bundle, error) {
	b, err := Load(st, configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &Bundle{}, nil
	}
	return b, err
}
