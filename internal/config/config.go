package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ExperienceConfig is the runtime configuration loaded from experience.yaml.
type ExperienceConfig struct {
	Version    int `yaml:"version"`
	Experience struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		SceneGraph  string `yaml:"scene_graph"`
	} `yaml:"experience"`
	Network struct {
		UIPort  int    `yaml:"ui_port"`
		MQTTURL string `yaml:"mqtt_url"`
	} `yaml:"network"`
	Timing struct {
		TickHz               int           `yaml:"tick_hz"`
		TransitionDelay      time.Duration `yaml:"transition_delay"`
		GracePeriod          time.Duration `yaml:"grace_period"`
		PreSceneSettle       time.Duration `yaml:"pre_scene_settle"`
		NotificationDuration time.Duration `yaml:"notification_duration"`
	} `yaml:"timing"`
	Endings  EndingsConfig  `yaml:"endings"`
	Movement MovementConfig `yaml:"movement"`
	Player   struct {
		Fallback []float64     `yaml:"fallback"`
		MaxAge   time.Duration `yaml:"max_age"`
	} `yaml:"player"`
	Storage struct {
		Driver string `yaml:"driver"` // postgres, sqlite or none
		Path   string `yaml:"path"`
		DSN    string `yaml:"dsn"` // postgres; PG* variables when empty
	} `yaml:"storage"`
	Topics TopicsConfig `yaml:"topics"`
}

// EndingsConfig maps the cumulative score to one of three endings.
type EndingsConfig struct {
	LowThreshold  *int   `yaml:"low_threshold"`
	MidThreshold  *int   `yaml:"mid_threshold"`
	WorstMessage  string `yaml:"worst_message"`
	MiddleMessage string `yaml:"middle_message"`
	BestMessage   string `yaml:"best_message"`
}

// MovementConfig holds executor defaults.
type MovementConfig struct {
	RotationSpeed float64 `yaml:"rotation_speed"`
	MovingCue     string  `yaml:"moving_cue"`
	IdleCue       string  `yaml:"idle_cue"`
}

// TopicsConfig names the MQTT topics used by the stage collaborators.
type TopicsConfig struct {
	Registration string `yaml:"registration"`
	RigCamera    string `yaml:"rig_camera"`
	RigOrigin    string `yaml:"rig_origin"`
	HUD          string `yaml:"hud"`
}

// UIPort returns the configured UI port, defaulting to 8080 if not set.
func (c *ExperienceConfig) UIPort() int {
	if c.Network.UIPort == 0 {
		return 8080
	}
	return c.Network.UIPort
}

// MQTTURL returns the broker URL, defaulting to a local broker.
func (c *ExperienceConfig) MQTTURL() string {
	if c.Network.MQTTURL == "" {
		return "tcp://localhost:1883"
	}
	return c.Network.MQTTURL
}

// TickInterval returns the tick period, 60Hz unless configured.
func (c *ExperienceConfig) TickInterval() time.Duration {
	hz := c.Timing.TickHz
	if hz <= 0 {
		hz = 60
	}
	return time.Second / time.Duration(hz)
}

func (c *ExperienceConfig) TransitionDelay() time.Duration {
	return durationOr(c.Timing.TransitionDelay, 5*time.Second)
}

func (c *ExperienceConfig) GracePeriod() time.Duration {
	return durationOr(c.Timing.GracePeriod, 500*time.Millisecond)
}

func (c *ExperienceConfig) PreSceneSettle() time.Duration {
	return durationOr(c.Timing.PreSceneSettle, 500*time.Millisecond)
}

func (c *ExperienceConfig) NotificationDuration() time.Duration {
	return durationOr(c.Timing.NotificationDuration, 10*time.Second)
}

// PlayerMaxAge is how long a rig position stays usable without an update.
func (c *ExperienceConfig) PlayerMaxAge() time.Duration {
	return durationOr(c.Player.MaxAge, time.Second)
}

// PlayerFallback returns the static fallback position, if one is configured.
func (c *ExperienceConfig) PlayerFallback() ([3]float64, bool) {
	if len(c.Player.Fallback) != 3 {
		return [3]float64{}, false
	}
	return [3]float64{c.Player.Fallback[0], c.Player.Fallback[1], c.Player.Fallback[2]}, true
}

// Thresholds returns the low and mid ending thresholds (default 5 and 8).
func (c *ExperienceConfig) Thresholds() (low, mid int) {
	low, mid = 5, 8
	if c.Endings.LowThreshold != nil {
		low = *c.Endings.LowThreshold
	}
	if c.Endings.MidThreshold != nil {
		mid = *c.Endings.MidThreshold
	}
	return low, mid
}

// StorageDriver returns the event store backend, defaulting to sqlite.
func (c *ExperienceConfig) StorageDriver() string {
	if c.Storage.Driver == "" {
		return "sqlite"
	}
	return c.Storage.Driver
}

// StoragePath returns the sqlite database path.
func (c *ExperienceConfig) StoragePath() string {
	if c.Storage.Path == "" {
		return "sentient-stage.db"
	}
	return c.Storage.Path
}

// WithDefaults returns the topic set with unset topics filled in.
func (t TopicsConfig) WithDefaults() TopicsConfig {
	if t.Registration == "" {
		t.Registration = "stage/register"
	}
	if t.RigCamera == "" {
		t.RigCamera = "stage/rig/camera_offset"
	}
	if t.RigOrigin == "" {
		t.RigOrigin = "stage/rig/origin"
	}
	if t.HUD == "" {
		t.HUD = "stage/hud"
	}
	return t
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func LoadExperienceConfig(path string) (*ExperienceConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ExperienceConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported experience.yaml version: %d", cfg.Version)
	}

	low, mid := cfg.Thresholds()
	if low > mid {
		return nil, fmt.Errorf("endings: low_threshold %d is above mid_threshold %d", low, mid)
	}

	return &cfg, nil
}

// ApplyEnvOverrides overrides deployment settings from SENTIENT_* environment
// variables (SENTIENT_UI_PORT, SENTIENT_MQTT_URL, SENTIENT_STORAGE_DRIVER,
// SENTIENT_STORAGE_PATH, SENTIENT_STORAGE_DSN, SENTIENT_TICK_HZ).
func ApplyEnvOverrides(cfg *ExperienceConfig) {
	v := viper.New()
	v.SetEnvPrefix("SENTIENT")
	for _, key := range []string{"ui_port", "mqtt_url", "storage_driver", "storage_path", "storage_dsn", "tick_hz"} {
		_ = v.BindEnv(key)
	}

	if v.IsSet("ui_port") {
		cfg.Network.UIPort = v.GetInt("ui_port")
	}
	if v.IsSet("mqtt_url") {
		cfg.Network.MQTTURL = v.GetString("mqtt_url")
	}
	if v.IsSet("storage_driver") {
		cfg.Storage.Driver = v.GetString("storage_driver")
	}
	if v.IsSet("storage_path") {
		cfg.Storage.Path = v.GetString("storage_path")
	}
	if v.IsSet("storage_dsn") {
		cfg.Storage.DSN = v.GetString("storage_dsn")
	}
	if v.IsSet("tick_hz") {
		cfg.Timing.TickHz = v.GetInt("tick_hz")
	}
}
