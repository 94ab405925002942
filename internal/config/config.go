// Package config loads the panic alarm daemon configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/panic-alarm/internal/logic"
	"github.com/sweeney/panic-alarm/internal/motion"
)

// Motion source kinds.
const (
	MotionIIO  = "iio"
	MotionNATS = "nats"
)

// Config is the daemon configuration.
type Config struct {
	Variant     string        `yaml:"variant"`
	Policy      string        `yaml:"policy"`
	Window      time.Duration `yaml:"window"`
	Threshold   float64       `yaml:"threshold"`
	LogoutDelay time.Duration `yaml:"logout_delay"`
	Tick        time.Duration `yaml:"tick"`
	Heartbeat   time.Duration `yaml:"heartbeat"`

	Motion Motion `yaml:"motion"`
	GPIO   GPIO   `yaml:"gpio"`

	ClipsDir string `yaml:"clips_dir"`
	DBPath   string `yaml:"db_path"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	HTTPAddr string `yaml:"http_addr"`
}

// Motion selects and configures the accelerometer source.
type Motion struct {
	Source string `yaml:"source"`

	// IIO
	Device   string        `yaml:"device"`
	Interval time.Duration `yaml:"interval"`

	// NATS
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// GPIO names the lines driving the flashlight LED and the vibration motor.
type GPIO struct {
	Chip         string `yaml:"chip"`
	FlashPin     int    `yaml:"flash_pin"`
	VibrationPin int    `yaml:"vibration_pin"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Variant:     string(logic.VariantExclusive),
		Policy:      string(logic.PolicyLatch),
		Window:      logic.DefaultWindow,
		Threshold:   logic.Threshold,
		LogoutDelay: 3 * time.Second,
		Tick:        50 * time.Millisecond,
		Heartbeat:   15 * time.Minute,
		Motion: Motion{
			Source:   MotionIIO,
			Interval: 50 * time.Millisecond,
			URL:      "nats://127.0.0.1:4222",
			Subject:  motion.DefaultSubject,
		},
		GPIO: GPIO{
			Chip:         "gpiochip0",
			FlashPin:     17,
			VibrationPin: 27,
		},
		ClipsDir: "assets/audios",
		DBPath:   "panic-alarm.db",
		Broker:   "tcp://127.0.0.1:1883",
		ClientID: "panic-alarm",
		HTTPAddr: ":80",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns ~/.config/panic-alarm.yaml, or "" if HOME is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "panic-alarm.yaml")
}

// Validate checks every field and reports all problems together.
func (c Config) Validate() error {
	var errs []error
	if _, err := logic.ParseVariant(c.Variant); err != nil {
		errs = append(errs, err)
	}
	if _, err := logic.ParsePolicy(c.Policy); err != nil {
		errs = append(errs, err)
	}
	if c.Window <= 0 {
		errs = append(errs, fmt.Errorf("window must be positive, got %s", c.Window))
	}
	if c.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("threshold must be positive, got %g", c.Threshold))
	}
	if c.LogoutDelay <= 0 {
		errs = append(errs, fmt.Errorf("logout_delay must be positive, got %s", c.LogoutDelay))
	}
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive, got %s", c.Tick))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat must not be negative, got %s", c.Heartbeat))
	}

	switch c.Motion.Source {
	case MotionIIO:
		if c.Motion.Interval <= 0 {
			errs = append(errs, fmt.Errorf("motion.interval must be positive, got %s", c.Motion.Interval))
		}
	case MotionNATS:
		if c.Motion.URL == "" {
			errs = append(errs, errors.New("motion.url is required for the nats source"))
		}
		if c.Motion.Subject == "" {
			errs = append(errs, errors.New("motion.subject is required for the nats source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown motion.source %q (want iio or nats)", c.Motion.Source))
	}

	if c.GPIO.Chip == "" {
		errs = append(errs, errors.New("gpio.chip is required"))
	}
	if c.GPIO.FlashPin < 0 || c.GPIO.VibrationPin < 0 {
		errs = append(errs, fmt.Errorf("gpio pins must not be negative, got flash_pin=%d vibration_pin=%d",
			c.GPIO.FlashPin, c.GPIO.VibrationPin))
	}
	if c.GPIO.FlashPin == c.GPIO.VibrationPin {
		errs = append(errs, fmt.Errorf("gpio flash_pin and vibration_pin must differ, both %d", c.GPIO.FlashPin))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.ClipsDir == "" {
		errs = append(errs, errors.New("clips_dir is required"))
	}
	return errors.Join(errs...)
}
