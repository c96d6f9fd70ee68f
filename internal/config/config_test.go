package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experience.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadExperienceConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
version: 1
experience:
  id: office
  name: Office Party
`)

	cfg, err := LoadExperienceConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Experience.ID != "office" {
		t.Errorf("expected id office, got %s", cfg.Experience.ID)
	}
	if cfg.UIPort() != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.UIPort())
	}
	if cfg.TransitionDelay() != 5*time.Second {
		t.Errorf("expected 5s transition delay, got %v", cfg.TransitionDelay())
	}
	if cfg.GracePeriod() != 500*time.Millisecond {
		t.Errorf("expected 500ms grace, got %v", cfg.GracePeriod())
	}
	if cfg.NotificationDuration() != 10*time.Second {
		t.Errorf("expected 10s notification, got %v", cfg.NotificationDuration())
	}
	if cfg.TickInterval() != time.Second/60 {
		t.Errorf("expected 60Hz tick, got %v", cfg.TickInterval())
	}
	low, mid := cfg.Thresholds()
	if low != 5 || mid != 8 {
		t.Errorf("expected thresholds 5/8, got %d/%d", low, mid)
	}
	if cfg.StorageDriver() != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.StorageDriver())
	}
	if _, ok := cfg.PlayerFallback(); ok {
		t.Error("expected no fallback position")
	}

	topics := cfg.Topics.WithDefaults()
	if topics.RigCamera != "stage/rig/camera_offset" || topics.HUD != "stage/hud" {
		t.Errorf("unexpected default topics: %+v", topics)
	}
}

func TestLoadExperienceConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
version: 1
network:
  ui_port: 9090
timing:
  tick_hz: 30
  transition_delay: 2s
  grace_period: 250ms
endings:
  low_threshold: 3
  mid_threshold: 6
player:
  fallback: [0, 1.6, 0]
storage:
  driver: postgres
`)

	cfg, err := LoadExperienceConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.UIPort() != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.UIPort())
	}
	if cfg.TickInterval() != time.Second/30 {
		t.Errorf("expected 30Hz tick, got %v", cfg.TickInterval())
	}
	if cfg.TransitionDelay() != 2*time.Second {
		t.Errorf("expected 2s transition delay, got %v", cfg.TransitionDelay())
	}
	if cfg.GracePeriod() != 250*time.Millisecond {
		t.Errorf("expected 250ms grace, got %v", cfg.GracePeriod())
	}
	low, mid := cfg.Thresholds()
	if low != 3 || mid != 6 {
		t.Errorf("expected thresholds 3/6, got %d/%d", low, mid)
	}
	pos, ok := cfg.PlayerFallback()
	if !ok || pos[1] != 1.6 {
		t.Errorf("expected fallback [0 1.6 0], got %v (ok=%v)", pos, ok)
	}
	if cfg.StorageDriver() != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.StorageDriver())
	}
}

func TestLoadExperienceConfig_RejectsVersion(t *testing.T) {
	path := writeConfig(t, "version: 2\n")
	if _, err := LoadExperienceConfig(path); err == nil {
		t.Error("expected error for version 2")
	}
}

func TestLoadExperienceConfig_RejectsInvertedThresholds(t *testing.T) {
	path := writeConfig(t, `
version: 1
endings:
  low_threshold: 9
  mid_threshold: 4
`)
	if _, err := LoadExperienceConfig(path); err == nil {
		t.Error("expected error when low threshold is above mid threshold")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	path := writeConfig(t, "version: 1\n")
	cfg, err := LoadExperienceConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("SENTIENT_UI_PORT", "7070")
	t.Setenv("SENTIENT_MQTT_URL", "tcp://broker:1883")
	t.Setenv("SENTIENT_STORAGE_DRIVER", "none")
	t.Setenv("SENTIENT_STORAGE_DSN", "postgres://stage@db/sentient")
	t.Setenv("SENTIENT_TICK_HZ", "90")

	ApplyEnvOverrides(cfg)

	if cfg.UIPort() != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.UIPort())
	}
	if cfg.MQTTURL() != "tcp://broker:1883" {
		t.Errorf("expected broker override, got %s", cfg.MQTTURL())
	}
	if cfg.StorageDriver() != "none" {
		t.Errorf("expected storage none, got %s", cfg.StorageDriver())
	}
	if cfg.Storage.DSN != "postgres://stage@db/sentient" {
		t.Errorf("expected dsn override, got %s", cfg.Storage.DSN)
	}
	if cfg.TickInterval() != time.Second/90 {
		t.Errorf("expected 90Hz tick, got %v", cfg.TickInterval())
	}
}
