package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the user config dir at an empty temp dir.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load(New(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":8080" {
		t.Errorf("Addr = %q", c.Addr)
	}
	if c.StorageBackend != "file" {
		t.Errorf("StorageBackend = %q", c.StorageBackend)
	}
	if c.StorageKey != "chrome-dash-storage" {
		t.Errorf("StorageKey = %q", c.StorageKey)
	}
	if c.IconTimeout != 10*time.Second {
		t.Errorf("IconTimeout = %v", c.IconTimeout)
	}
	if c.IconSources.Discover {
		t.Error("discovery should be off by default")
	}
	if c.IconSources.FaviconSize != 128 {
		t.Errorf("FaviconSize = %d", c.IconSources.FaviconSize)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "startpage.yaml")
	body := "addr: \":9999\"\nstorage:\n  backend: sqlite\n  path: /tmp/x.db\nicons:\n  timeout: 0s\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STARTPAGE_ADDR", ":7000")

	c, err := Load(New(path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":7000" {
		t.Errorf("env should override file, Addr = %q", c.Addr)
	}
	if c.StorageBackend != "sqlite" || c.StoragePath != "/tmp/x.db" {
		t.Errorf("storage = %q %q", c.StorageBackend, c.StoragePath)
	}
	if c.IconTimeout != 0 {
		t.Errorf("IconTimeout = %v, want 0", c.IconTimeout)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	isolate(t)
	t.Setenv("STARTPAGE_STORAGE_BACKEND", "redis")
	if _, err := Load(New("")); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandHome("~/sp"); got != filepath.Join(home, "sp") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs"); got != "/abs" {
		t.Errorf("expandHome changed absolute path: %q", got)
	}
}
