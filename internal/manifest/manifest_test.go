package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlManifest = `
name: demo
capabilities: [jscrypto]
crypto:
  scheme: xchacha20-poly1305
objects:
  - name: app
    kind: demo
startup:
  - startup/**/*.js
`

const tomlManifest = `
name = "demo"
capabilities = ["jscrypto"]
startup = ["startup/**/*.js"]

[crypto]
scheme = "xchacha20-poly1305"

[[objects]]
name = "app"
kind = "demo"
`

func expected() *Manifest {
	return &Manifest{
		Name:         "demo",
		Capabilities: []string{CapabilityCrypto},
		Crypto:       Crypto{Scheme: "xchacha20-poly1305"},
		Objects:      []Object{{Name: "app", Kind: KindDemo}},
		Startup:      []string{"startup/**/*.js"},
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	assert.True(t, m.Has(CapabilityCrypto))
	assert.True(t, m.Has(CapabilityHost))
	assert.Equal(t, []Object{{Name: "myobject", Kind: KindDemo}}, m.Objects)
	assert.Empty(t, m.Crypto.Scheme)
	assert.Empty(t, m.Startup)
	assert.NoError(t, m.Validate())
}

func TestParseYAML(t *testing.T) {
	m, err := ParseYAML([]byte(yamlManifest))
	require.NoError(t, err)
	assert.Equal(t, expected(), m)
	assert.False(t, m.Has(CapabilityHost))
}

func TestParseTOML(t *testing.T) {
	m, err := ParseTOML([]byte(tomlManifest))
	require.NoError(t, err)
	assert.Equal(t, expected(), m)
}

func TestParseAppliesDefaults(t *testing.T) {
	m, err := ParseYAML([]byte("name: minimal\n"))
	require.NoError(t, err)
	assert.Equal(t, "minimal", m.Name)
	assert.Equal(t, Default().Capabilities, m.Capabilities)
	assert.Equal(t, Default().Objects, m.Objects)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown capability", "capabilities: [fs]\n"},
		{"duplicate capability", "capabilities: [host, host]\n"},
		{"unknown scheme", "crypto:\n  scheme: rot13\n"},
		{"bad object name", "objects:\n  - name: 1st\n    kind: demo\n"},
		{"missing object kind", "objects:\n  - name: app\n"},
		{"unknown object kind", "objects:\n  - name: app\n    kind: window\n"},
		{"duplicate object", "objects:\n  - {name: app, kind: demo}\n  - {name: app, kind: demo}\n"},
		{"empty startup entry", "startup: ['']\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseUnknownField(t *testing.T) {
	_, err := ParseYAML([]byte("plugins: [x]\n"))
	assert.Error(t, err)

	_, err = ParseTOML([]byte("plugins = [\"x\"]\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "andjs.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlManifest), 0o644))
	m, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, expected(), m)

	tomlPath := filepath.Join(dir, "andjs.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(tomlManifest), 0o644))
	m, err = Load(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, expected(), m)

	m, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), m)

	jsonPath := filepath.Join(dir, "andjs.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{}"), 0o644))
	_, err = Load(jsonPath)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
