package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panic-alarm.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if cfg != Default() {
			t.Errorf("Load(%q) = %+v, want defaults", path, cfg)
		}
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
variant: independent
policy: window
window: 1500ms
logout_delay: 5s
motion:
  source: nats
  url: nats://10.0.0.2:4222
gpio:
  flash_pin: 22
broker: tcp://192.168.1.200:1883
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Variant != "independent" || cfg.Policy != "window" {
		t.Errorf("variant=%q policy=%q", cfg.Variant, cfg.Policy)
	}
	if cfg.Window != 1500*time.Millisecond {
		t.Errorf("window = %s", cfg.Window)
	}
	if cfg.LogoutDelay != 5*time.Second {
		t.Errorf("logout_delay = %s", cfg.LogoutDelay)
	}
	if cfg.Motion.Source != MotionNATS || cfg.Motion.URL != "nats://10.0.0.2:4222" {
		t.Errorf("motion = %+v", cfg.Motion)
	}
	if cfg.GPIO.FlashPin != 22 {
		t.Errorf("flash_pin = %d", cfg.GPIO.FlashPin)
	}

	// Untouched fields keep their defaults.
	def := Default()
	if cfg.Motion.Subject != def.Motion.Subject {
		t.Errorf("subject = %q, want default %q", cfg.Motion.Subject, def.Motion.Subject)
	}
	if cfg.GPIO.VibrationPin != def.GPIO.VibrationPin || cfg.Threshold != def.Threshold {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "window: [not a duration\n")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"variant", func(c *Config) { c.Variant = "both" }, "variant"},
		{"policy", func(c *Config) { c.Policy = "forever" }, "policy"},
		{"window", func(c *Config) { c.Window = 0 }, "window"},
		{"threshold", func(c *Config) { c.Threshold = -1 }, "threshold"},
		{"logout delay", func(c *Config) { c.LogoutDelay = 0 }, "logout_delay"},
		{"tick", func(c *Config) { c.Tick = 0 }, "tick"},
		{"heartbeat", func(c *Config) { c.Heartbeat = -time.Second }, "heartbeat"},
		{"motion source", func(c *Config) { c.Motion.Source = "camera" }, "motion.source"},
		{"iio interval", func(c *Config) { c.Motion.Interval = 0 }, "motion.interval"},
		{"nats url", func(c *Config) { c.Motion.Source = MotionNATS; c.Motion.URL = "" }, "motion.url"},
		{"gpio chip", func(c *Config) { c.GPIO.Chip = "" }, "gpio.chip"},
		{"negative pin", func(c *Config) { c.GPIO.FlashPin = -1 }, "gpio pins"},
		{"shared pin", func(c *Config) { c.GPIO.VibrationPin = c.GPIO.FlashPin }, "must differ"},
		{"db path", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"clips dir", func(c *Config) { c.ClipsDir = "" }, "clips_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Window = 0
	cfg.DBPath = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"window", "db_path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("err = %v, missing %q", err, want)
		}
	}
}
