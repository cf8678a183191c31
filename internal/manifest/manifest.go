package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Optional capability groups. adb is always installed.
const (
	CapabilityCrypto = "jscrypto"
	CapabilityHost   = "host"
)

// KindDemo injects the demo application object.
const KindDemo = "demo"

var (
	ErrUnsupportedFormat = errors.New("unsupported manifest format")
	ErrInvalid           = errors.New("invalid manifest")
)

// Manifest describes what a host installs and runs at startup.
type Manifest struct {
	Name         string   `yaml:"name" toml:"name" json:"name" validate:"omitempty,max=64"`
	Capabilities []string `yaml:"capabilities" toml:"capabilities" json:"capabilities" validate:"unique,dive,oneof=jscrypto host"`
	Crypto       Crypto   `yaml:"crypto" toml:"crypto" json:"crypto"`
	Objects      []Object `yaml:"objects" toml:"objects" json:"objects" validate:"unique=Name,dive"`
	Startup      []string `yaml:"startup" toml:"startup" json:"startup" validate:"dive,required"`
}

// Crypto selects the sealing scheme behind JSCrypto.
type Crypto struct {
	Scheme string `yaml:"scheme" toml:"scheme" json:"scheme" validate:"omitempty,oneof=aes-128-ctr-hmac-sha256 xchacha20-poly1305"`
}

// Object is a host object injected under a global name.
type Object struct {
	Name string `yaml:"name" toml:"name" json:"name" validate:"required,jsident"`
	Kind string `yaml:"kind" toml:"kind" json:"kind" validate:"required,oneof=demo"`
}

var (
	validate  = newValidator()
	identExpr = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("jsident", func(fl validator.FieldLevel) bool {
		return identExpr.MatchString(fl.Field().String())
	})
	return v
}

// Default returns the manifest used when none is configured: every
// capability, the default crypto scheme and the demo object as "myobject".
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Has reports whether the optional capability group is enabled.
func (m *Manifest) Has(capability string) bool {
	return slices.Contains(m.Capabilities, capability)
}

// Validate checks the manifest against its struct tags.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (m *Manifest) applyDefaults() {
	if m.Capabilities == nil {
		m.Capabilities = []string{CapabilityCrypto, CapabilityHost}
	}
	if m.Objects == nil {
		m.Objects = []Object{{Name: "myobject", Kind: KindDemo}}
	}
}

// Load reads a manifest, choosing the decoder from the file extension.
// An empty path yields Default().
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ParseYAML decodes and validates a YAML manifest.
func ParseYAML(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalWithOptions(data, &m, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return finish(&m)
}

// ParseTOML decodes and validates a TOML manifest.
func ParseTOML(data []byte) (*Manifest, error) {
	var m Manifest
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return finish(&m)
}

func finish(m *Manifest) (*Manifest, error) {
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
