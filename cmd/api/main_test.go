package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AaronLay10/SentientStage/internal/events"
)

func TestRunReleasesStoreOnAuthError(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "events.db")
	cfgPath := filepath.Join(dir, "experience.yaml")
	body := "version: 1\nexperience:\n  id: test-room\nstorage:\n  driver: sqlite\n  path: " + dbPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTIENT_STORAGE_DRIVER", "")
	t.Setenv("SENTIENT_STORAGE_PATH", "")
	t.Setenv("SENTIENT_ADMIN_USER", "admin")
	t.Setenv("SENTIENT_ADMIN_PASS", "")

	err := run([]string{"--config", cfgPath})
	if err == nil || !strings.Contains(err.Error(), "API credentials") {
		t.Fatalf("expected credential error, got %v", err)
	}
	if events.GetStore() != nil {
		t.Error("expected the emitter to be detached from the closed store")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("expected the store to have been opened: %v", err)
	}
}
