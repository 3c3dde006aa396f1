/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestReloadableConfig(t *testing.T) {
	clearPGEnv(t)
	path := writeConfig(t, "database:\n  schema: sales\n")

	cfg, err := LoadConfig(path, CLIFlags{})
	if err != nil {
		t.Fatal(err)
	}
	rc := NewReloadableConfig(cfg, path, CLIFlags{})

	var got *Config
	rc.OnReload(func(c *Config) { got = c })

	if err := os.WriteFile(path, []byte("database:\n  schema: analytics\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := rc.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if rc.Get().Database.Schema != "analytics" {
		t.Errorf("Schema = %q, want analytics", rc.Get().Database.Schema)
	}
	if got == nil || got.Database.Schema != "analytics" {
		t.Error("OnReload callback not invoked with new config")
	}
	if rc.GetPath() != path {
		t.Errorf("GetPath() = %q", rc.GetPath())
	}
}

func TestReloadKeepsOldConfigOnError(t *testing.T) {
	clearPGEnv(t)
	path := writeConfig(t, "database:\n  schema: sales\n")
	cfg, _ := LoadConfig(path, CLIFlags{})
	rc := NewReloadableConfig(cfg, path, CLIFlags{})

	if err := os.WriteFile(path, []byte("database:\n  query_timeout: never\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := rc.Reload(); err == nil {
		t.Fatal("Reload() should fail for invalid config")
	}
	if rc.Get().Database.Schema != "sales" {
		t.Error("failed reload replaced the config")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := rc.Reload(); err == nil {
		t.Error("Reload() should fail when the file disappears")
	}

	empty := NewReloadableConfig(cfg, "", CLIFlags{})
	if err := empty.Reload(); err == nil {
		t.Error("Reload() without a path should fail")
	}
}

func TestNewFileWatcherInvalidDirectory(t *testing.T) {
	_, err := NewFileWatcher("/nonexistent/directory/file.yaml", func() error { return nil })
	if err == nil {
		t.Fatal("Expected error for invalid directory, got nil")
	}
}

func TestWatcherReloadOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	testFile := filepath.Join(t.TempDir(), "watched.yaml")
	if err := os.WriteFile(testFile, []byte("initial"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	var mu sync.Mutex
	reloadCount := 0
	watcher, err := NewFileWatcher(testFile, func() error {
		mu.Lock()
		defer mu.Unlock()
		reloadCount++
		return nil
	})
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	watcher.Start()

	// a burst of writes collapses into one reload
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(testFile, []byte("updated"), 0600); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		count := reloadCount
		mu.Unlock()
		if count > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	// other files in the directory are ignored
	if err := os.WriteFile(filepath.Join(filepath.Dir(testFile), "other.yaml"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * DefaultDebounce)

	watcher.Stop()
	watcher.Stop()

	mu.Lock()
	defer mu.Unlock()
	if reloadCount != 1 {
		t.Errorf("reloadCount = %d, want 1", reloadCount)
	}
}
