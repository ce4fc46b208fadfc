package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Defaults.SplitMode != "parts" {
		t.Errorf("expected default split mode parts, got %s", cfg.Defaults.SplitMode)
	}
	if cfg.Defaults.SplitValue != 2 {
		t.Errorf("expected default split value 2, got %d", cfg.Defaults.SplitValue)
	}
	if cfg.Download.MaxSizeMB != 500 {
		t.Errorf("expected 500 MB download cap, got %d", cfg.Download.MaxSizeMB)
	}
	if cfg.Ghostscript.Binary != "gs" {
		t.Errorf("expected gs binary default, got %s", cfg.Ghostscript.Binary)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("rejects unknown split mode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Defaults.SplitMode = "chapters"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown split mode")
		}
	})

	t.Run("rejects unknown compression preset", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Defaults.Compression = "extreme"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown compression preset")
		}
	})

	t.Run("accepts empty compression", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Defaults.Compression = ""
		if err := cfg.Validate(); err != nil {
			t.Errorf("empty compression must be valid: %v", err)
		}
	})

	t.Run("rejects negative workers", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Defaults.Workers = -1
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for negative workers")
		}
	})
}

func TestMaxDownloadBytes(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.MaxDownloadBytes(); got != 500*1024*1024 {
		t.Errorf("expected 500 MB in bytes, got %d", got)
	}
	cfg.Download.MaxSizeMB = 0
	if got := cfg.MaxDownloadBytes(); got != 500*1024*1024 {
		t.Errorf("zero cap must fall back to the default, got %d", got)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.ListenAddr(); got != "localhost:8675" {
		t.Errorf("expected localhost:8675, got %s", got)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
defaults:
  split_mode: "pages"
  split_value: 25
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Defaults.SplitMode != "pages" {
			t.Errorf("expected pages, got %s", cfg.Defaults.SplitMode)
		}
		if cfg.Defaults.SplitValue != 25 {
			t.Errorf("expected 25, got %d", cfg.Defaults.SplitValue)
		}
	})

	t.Run("rejects invalid config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
defaults:
  split_mode: "chapters"
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		if _, err := NewManager(configFile); err == nil {
			t.Error("expected error for invalid split mode")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
defaults:
  workers: 2
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Register multiple callbacks
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
defaults:
  workers: 2
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Call Get concurrently to verify no race conditions
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Defaults.Workers
			}
			done <- struct{}{}
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
defaults:
  split_value: 4
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Defaults.SplitValue != 4 {
		t.Errorf("initial value mismatch: expected 4, got %d", cfg.Defaults.SplitValue)
	}

	// Track callback invocations
	var callbackCount atomic.Int32
	var lastValue atomic.Int64

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Defaults.SplitValue)
	})

	// Start watching
	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	newContent := `
defaults:
  split_value: 8
`
	if err := os.WriteFile(configFile, []byte(newContent), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}

	newCfg := mgr.Get()
	if newCfg.Defaults.SplitValue != 8 {
		t.Errorf("config not updated: expected 8, got %d", newCfg.Defaults.SplitValue)
	}
	if v := lastValue.Load(); v != 8 {
		t.Errorf("callback received wrong value: expected 8, got %d", v)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("written config is empty")
	}
	if data[0] != '#' {
		t.Error("expected commented header at top of config file")
	}

	// The written file must round-trip through the manager.
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to load written default config: %v", err)
	}
	if mgr.Get().Defaults.SplitMode != "parts" {
		t.Errorf("round-tripped split mode mismatch: %s", mgr.Get().Defaults.SplitMode)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("PDFSPLIT_TEST_DIR", "/mnt/output")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"no reference", "/var/data", "/var/data"},
		{"single reference", "${PDFSPLIT_TEST_DIR}/parts", "/mnt/output/parts"},
		{"unset variable", "${PDFSPLIT_TEST_UNSET}/parts", "/parts"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveEnvVars(tc.input); got != tc.want {
				t.Errorf("ResolveEnvVars(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
