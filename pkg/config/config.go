package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate when a configuration value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Session SessionConfig `yaml:"session"`
	Display DisplayConfig `yaml:"display"`
	Logging LoggingConfig `yaml:"logging"`
	Mock    MockConfig    `yaml:"mock"`
}

// SerialConfig describes the connection to the rig. It is copied into the
// transport when the transport is created and is not consulted afterwards.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// SessionConfig contains timing of the monitoring session.
type SessionConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"` // Nominal spacing between position samples
	PollInterval   time.Duration `yaml:"poll_interval"`   // Transport poll period
}

// DisplayConfig contains plot parameters.
type DisplayConfig struct {
	YMin         float64       `yaml:"y_min"`
	YMax         float64       `yaml:"y_max"`
	DefaultXSpan time.Duration `yaml:"default_x_span"` // X span shown while the buffer is empty
	MaxPoints    int           `yaml:"max_points"`     // Points drawn before decimation kicks in
}

// LoggingConfig contains logger parameters.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // console or json
	Output     string `yaml:"output"`      // stdout, stderr or a file path
	MaxSize    int    `yaml:"max_size"`    // MB
	MaxBackups int    `yaml:"max_backups"` // Rotated files kept
	MaxAge     int    `yaml:"max_age"`     // Days
	Compress   bool   `yaml:"compress"`    // Gzip rotated files
}

// MockConfig contains simulated rig parameters.
type MockConfig struct {
	SampleRate       time.Duration `yaml:"sample_rate"`       // Position report period
	InitialReference float64       `yaml:"initial_reference"` // Setpoint at start (mm)
	BeamLength       float64       `yaml:"beam_length"`       // Travel limit (mm)
	NoiseLevel       float64       `yaml:"noise_level"`       // Sensor noise amplitude (mm)
	AutotuneDuration time.Duration `yaml:"autotune_duration"` // Time before gains are reported
	Kp               float64       `yaml:"kp"`
	Ki               float64       `yaml:"ki"`
	Kd               float64       `yaml:"kd"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "COM3", // Default for Windows, "/dev/ttyACM0" or "/dev/ttyUSB0" elsewhere
			BaudRate:    115200,
			ReadTimeout: time.Second,
		},
		Session: SessionConfig{
			SampleInterval: 60 * time.Millisecond,
			PollInterval:   10 * time.Millisecond,
		},
		Display: DisplayConfig{
			YMin:         0,
			YMax:         500,
			DefaultXSpan: 10 * time.Second,
			MaxPoints:    1000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
		Mock: MockConfig{
			SampleRate:       60 * time.Millisecond,
			InitialReference: 250,
			BeamLength:       500,
			NoiseLevel:       1.5,
			AutotuneDuration: 3 * time.Second,
			Kp:               2.5,
			Ki:               0.1,
			Kd:               0.05,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that ensureDefaults cannot repair.
func (c *Config) Validate() error {
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("%w: baud rate %d", ErrInvalid, c.Serial.BaudRate)
	}
	if c.Serial.ReadTimeout < 0 {
		return fmt.Errorf("%w: read timeout %s", ErrInvalid, c.Serial.ReadTimeout)
	}
	if c.Session.SampleInterval <= 0 {
		return fmt.Errorf("%w: sample interval %s", ErrInvalid, c.Session.SampleInterval)
	}
	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval %s", ErrInvalid, c.Session.PollInterval)
	}
	if c.Display.YMax <= c.Display.YMin {
		return fmt.Errorf("%w: y range [%g, %g]", ErrInvalid, c.Display.YMin, c.Display.YMax)
	}
	if c.Mock.SampleRate <= 0 {
		return fmt.Errorf("%w: mock sample rate %s", ErrInvalid, c.Mock.SampleRate)
	}
	if c.Mock.AutotuneDuration <= 0 {
		return fmt.Errorf("%w: mock autotune duration %s", ErrInvalid, c.Mock.AutotuneDuration)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Session.SampleInterval == 0 {
		c.Session.SampleInterval = def.Session.SampleInterval
	}
	if c.Session.PollInterval == 0 {
		c.Session.PollInterval = def.Session.PollInterval
	}

	// A zero-height plot is never wanted, restore the default range.
	if c.Display.YMin == 0 && c.Display.YMax == 0 {
		c.Display.YMin = def.Display.YMin
		c.Display.YMax = def.Display.YMax
	}
	if c.Display.DefaultXSpan == 0 {
		c.Display.DefaultXSpan = def.Display.DefaultXSpan
	}
	if c.Display.MaxPoints == 0 {
		c.Display.MaxPoints = def.Display.MaxPoints
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = def.Logging.Output
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.BeamLength == 0 {
		c.Mock.BeamLength = def.Mock.BeamLength
	}
	if c.Mock.AutotuneDuration == 0 {
		c.Mock.AutotuneDuration = def.Mock.AutotuneDuration
	}
}
