package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "abort", cfg.Generate.ErrorPolicy)
	assert.True(t, cfg.Generate.Diagnostics)
	assert.False(t, cfg.Generate.PropagateErrors)
	assert.Equal(t, ".gen.go", cfg.Generate.OutputSuffix)
	assert.Equal(t, 300, cfg.Watch.DebounceMS)
	assert.Equal(t, 60, cfg.Watch.MaxRunsPerMinute)
	assert.Empty(t, cfg.Runtime.Module)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown policy", func(c *Config) { c.Generate.ErrorPolicy = "ignore" }, "generate.error_policy"},
		{"negative concurrency", func(c *Config) { c.Generate.Concurrency = -1 }, "generate.concurrency"},
		{"suffix", func(c *Config) { c.Generate.OutputSuffix = ".txt" }, "output_suffix"},
		{"constraint without module", func(c *Config) { c.Runtime.Constraint = ">= 1.0" }, "runtime.module"},
		{"bad constraint", func(c *Config) {
			c.Runtime.Module = "example.com/rt"
			c.Runtime.Constraint = "not-a-version"
		}, "runtime.constraint"},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMS = -5 }, "watch.debounce_ms"},
		{"negative run limit", func(c *Config) { c.Watch.MaxRunsPerMinute = -1 }, "watch.max_runs_per_minute"},
		{"negative verbosity", func(c *Config) { c.Log.Verbosity = -1 }, "log.verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectFile)
	require.NoError(t, os.WriteFile(path, []byte(`
[generate]
error_policy = "continue"
concurrency = 4

[runtime]
module = "example.com/rt"
constraint = ">= 1.2"
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "continue", cfg.Generate.ErrorPolicy)
	assert.Equal(t, 4, cfg.Generate.Concurrency)
	assert.Equal(t, "example.com/rt", cfg.Runtime.Module)
	assert.Equal(t, ".gen.go", cfg.Generate.OutputSuffix, "unset keys keep defaults")

	require.NoError(t, os.WriteFile(path, []byte("[generate]\nerror_policy = \"maybe\"\n"), 0o644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_ProjectFileAndEnv(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFile), []byte("[generate]\nconcurrency = 3\noutput_suffix = \"_gen.go\"\n"), 0o644))

	t.Chdir(nested)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STAGEGEN_GENERATE_CONCURRENCY", "7")
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Generate.Concurrency, "env vars win over files")
	assert.Equal(t, "_gen.go", cfg.Generate.OutputSuffix, "project file found by walking up")

	again, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg, again, "Load caches")
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "x", "y")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	assert.Empty(t, FindProjectConfig(nested))

	want := filepath.Join(root, "x", ProjectFile)
	require.NoError(t, os.WriteFile(want, nil, 0o644))
	assert.Equal(t, want, FindProjectConfig(nested))
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", ProjectFile)

	require.NoError(t, WriteDefault(path, false))
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	def, _ := Default()
	cfg.Generate.BuildFlags, def.Generate.BuildFlags = nil, nil
	assert.Equal(t, def, cfg, "written defaults read back unchanged")

	assert.Error(t, WriteDefault(path, false), "existing files are not overwritten without force")

	cfg.Generate.ErrorPolicy = "continue"
	require.NoError(t, Write(path, cfg, true))
	assert.FileExists(t, path+".back1")

	reread, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "continue", reread.Generate.ErrorPolicy)

	require.NoError(t, Write(path, cfg, true))
	assert.FileExists(t, path+".back2")

	cfg.Generate.Concurrency = -2
	assert.Error(t, Write(path, cfg, true), "invalid configs are not written")
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(20*time.Millisecond, dir)
	require.NoError(t, err)
	defer w.Close()

	var mu sync.Mutex
	var batches [][]string
	w.SetFilter(func(path string) bool { return filepath.Ext(path) == ".go" })
	w.OnChange(func(changed []string) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, changed)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	own := filepath.Join(dir, "own.gen.go")
	w.MarkOwnWrite(own)
	require.NoError(t, os.WriteFile(own, []byte("package x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package x\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) > 0
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	var all []string
	for _, b := range batches {
		all = append(all, b...)
	}
	assert.Contains(t, all, filepath.Join(dir, "a.go"))
	assert.NotContains(t, all, own)
	assert.NotContains(t, all, filepath.Join(dir, "notes.txt"))
}

func TestWatchFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ProjectFile)
	require.NoError(t, os.WriteFile(path, []byte("[generate]\nconcurrency = 2\n"), 0o644))

	t.Chdir(root)
	t.Setenv("HOME", t.TempDir())
	Reset()
	t.Cleanup(Reset)

	reloaded := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := WatchFiles(ctx, 20*time.Millisecond, func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[generate]\nconcurrency = 5\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 5, cfg.Generate.Concurrency)
	case <-time.After(3 * time.Second):
		t.Fatal("configuration was not reloaded")
	}
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile("/x/stagegen.toml.back1"))
	assert.True(t, isBackupFile("config.toml.back3"))
	assert.False(t, isBackupFile("stagegen.toml"))
}
