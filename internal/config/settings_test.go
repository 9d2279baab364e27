package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if settings.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5", settings.Concurrency)
	}
	if settings.Page != "1" {
		t.Errorf("Page = %q, want %q", settings.Page, "1")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")

	settings := DefaultSettings()
	settings.Limit = 50
	settings.SFW = true
	settings.Groups = []string{"pool", "rating"}

	if err := settings.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Limit != 50 {
		t.Errorf("Limit = %d, want 50", loaded.Limit)
	}
	if !loaded.SFW {
		t.Error("SFW = false, want true")
	}
	if len(loaded.Groups) != 2 || loaded.Groups[0] != "pool" {
		t.Errorf("Groups = %v, want [pool rating]", loaded.Groups)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"limit": 100}`), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Limit != 100 {
		t.Errorf("Limit = %d, want 100", loaded.Limit)
	}
	if loaded.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want default 5", loaded.Concurrency)
	}
}
