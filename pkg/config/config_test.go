package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.conformance/pkg/env"
	"digital.vasic.conformance/pkg/resource"
)

// emptyEnv returns a loader whose prefix matches nothing in the
// process environment.
func emptyEnv(t *testing.T) *env.DefaultLoader {
	t.Helper()
	return env.NewLoaderWithPrefix("CONFORMANCE_TEST_" + t.Name() + "_")
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, []string{"."}, cfg.Roots)
	assert.Equal(t, DefaultBuiltin, cfg.Builtin)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 1, cfg.Parallel)
	assert.Equal(t, resource.DefaultMaxFileSize, cfg.MaxFileSize)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.False(t, cfg.Strict)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	content := `
roots: [ext-a, ext-b]
rules: [rules/]
format: markdown
parallel: 4
strict: true
debounce: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path, emptyEnv(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"ext-a", "ext-b"}, cfg.Roots)
	assert.Equal(t, []string{"rules/"}, cfg.Rules)
	assert.Equal(t, "markdown", cfg.Format)
	assert.Equal(t, 4, cfg.Parallel)
	assert.True(t, cfg.Strict)
	assert.Equal(t, time.Second, cfg.Debounce)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultBuiltin, cfg.Builtin)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), emptyEnv(t))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoad_DefaultFileMayBeAbsent(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", emptyEnv(t))
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roots: [unterminated"), 0644))

	_, err := Load(path, emptyEnv(t))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestApplyEnv_Overrides(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := `CONFORMANCE_FORMAT=json
CONFORMANCE_ROOTS=one, two
CONFORMANCE_PARALLEL=6
CONFORMANCE_STRICT=true
CONFORMANCE_DEBOUNCE=50ms
CONFORMANCE_SERVE=:9090
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	l := env.NewLoader()
	require.NoError(t, l.Load(envFile))
	t.Setenv("CONFORMANCE_FORMAT", "html")

	cfg := NewConfig()
	require.NoError(t, cfg.ApplyEnv(l))
	assert.Equal(t, "html", cfg.Format, "process env wins over .env")
	assert.Equal(t, []string{"one", "two"}, cfg.Roots)
	assert.Equal(t, 6, cfg.Parallel)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 50*time.Millisecond, cfg.Debounce)
	assert.Equal(t, ":9090", cfg.Serve)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	l := env.NewLoaderWithPrefix("CFGTEST_")
	t.Setenv("CFGTEST_PARALLEL", "many")
	t.Setenv("CFGTEST_DEBOUNCE", "soon")

	err := NewConfig().ApplyEnv(l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CFGTEST_PARALLEL")
	assert.Contains(t, err.Error(), "CFGTEST_DEBOUNCE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no roots", func(c *Config) { c.Roots = nil }, "at least one root"},
		{"no rules", func(c *Config) { c.Builtin = "" }, "rules or builtin"},
		{"format", func(c *Config) { c.Format = "pdf" }, "pdf"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "unknown log level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "unknown log format"},
		{"parallel", func(c *Config) { c.Parallel = -1 }, "parallel"},
		{"file size", func(c *Config) { c.MaxFileSize = 0 }, "max_file_size"},
		{"debounce", func(c *Config) { c.Debounce = 0 }, "debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFile)
	cfg := NewConfig()
	cfg.Rules = []string{"a.yaml"}
	cfg.Strict = true
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path, emptyEnv(t))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLogger(t *testing.T) {
	cfg := NewConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "run.log")
	logger, err := cfg.Logger()
	require.NoError(t, err)
	logger.Warn("hello")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")

	cfg.LogLevel = "shout"
	_, err = cfg.Logger()
	assert.Error(t, err)
}
