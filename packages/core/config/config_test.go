package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, runtime.NumCPU(), cfg.MaxParallel)
	assert.Equal(t, 0, cfg.GetRetry())
	assert.Equal(t, "spec", cfg.Reporter)
	assert.True(t, cfg.GetTimeouts())
	assert.False(t, cfg.GetRecursive())
	assert.Equal(t, 2*time.Second, cfg.TimeoutDuration())
	assert.True(t, cfg.IsDefault())
	assert.NoError(t, cfg.Validate())
}

func TestGetters_NilPointers(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 0, cfg.GetRetry())
	assert.True(t, cfg.GetTimeouts())
	assert.False(t, cfg.GetRecursive())
	assert.False(t, cfg.GetNoColor())
	assert.False(t, cfg.GetVerbose())
}

func TestFindAndLoadConfig(t *testing.T) {
	t.Run("no file returns defaults", func(t *testing.T) {
		cfg, err := FindAndLoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.True(t, cfg.IsDefault())
	})

	t.Run("json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".paraspec.json"),
			[]byte(`{"maxParallel": 3, "retry": 2, "reporter": "tap", "timeouts": false, "spec": ["e2e"]}`), 0o644))

		cfg, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.MaxParallel)
		assert.Equal(t, 2, cfg.GetRetry())
		assert.Equal(t, "tap", cfg.Reporter)
		assert.False(t, cfg.GetTimeouts())
		assert.Equal(t, []string{"e2e"}, cfg.Spec)
		assert.Equal(t, DefaultTimeout, cfg.Timeout, "unset fields keep their defaults")
	})

	t.Run("yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".paraspec.yaml"),
			[]byte("compilers: [\"hcl:hcl\"]\nrequire: [./.env]\nrecursive: true\ndispatchRate: 5\n"), 0o644))

		cfg, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"hcl:hcl"}, cfg.Compilers)
		assert.Equal(t, []string{"./.env"}, cfg.Require)
		assert.True(t, cfg.GetRecursive())
		assert.Equal(t, 5.0, cfg.DispatchRate)
	})

	t.Run("rc file in yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".paraspecrc"), []byte("reporter: json\n"), 0o644))

		cfg, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.Reporter)
	})

	t.Run("json wins over yaml", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".paraspec.yaml"), []byte("reporter: tap\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "paraspec.config.json"), []byte(`{"reporter": "junit"}`), 0o644))

		cfg, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "junit", cfg.Reporter)
	})

	t.Run("malformed", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".paraspec.json"), []byte(`{"maxParallel": `), 0o644))

		_, err := FindAndLoadConfig(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing config")
	})
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Retry = IntPtr(3)
	base.ReporterOptions = map[string]any{"suiteName": "api"}
	base.Compilers = []string{"hcl:hcl"}

	merged := base.Merge(&Config{
		MaxParallel:     8,
		Retry:           IntPtr(0),
		Timeouts:        BoolPtr(false),
		ReporterOptions: map[string]any{"output": "out.xml"},
	})

	assert.Equal(t, 8, merged.MaxParallel)
	assert.Equal(t, 0, merged.GetRetry(), "an explicit zero overrides")
	assert.False(t, merged.GetTimeouts())
	assert.Equal(t, "spec", merged.Reporter)
	assert.Equal(t, []string{"hcl:hcl"}, merged.Compilers)
	assert.Equal(t, map[string]any{"suiteName": "api", "output": "out.xml"}, merged.ReporterOptions)

	assert.Equal(t, 3, base.GetRetry(), "merge does not mutate the receiver")
	assert.Same(t, base, base.Merge(nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero parallelism", func(c *Config) { c.MaxParallel = 0 }, "maxParallel"},
		{"negative retry", func(c *Config) { c.Retry = IntPtr(-1) }, "retry"},
		{"negative timeout", func(c *Config) { c.Timeout = -1 }, "timeout"},
		{"negative rate", func(c *Config) { c.DispatchRate = -2 }, "dispatchRate"},
		{"empty reporter", func(c *Config) { c.Reporter = " " }, "reporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, paraerrors.Is(err, paraerrors.KindConfiguration))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Reporter = "tap"
	cfg.Compilers = []string{"hcl:hcl"}

	for _, name := range []string{".paraspec.json", ".paraspec.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveConfig(path))
		loaded, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded, name)
	}
}
