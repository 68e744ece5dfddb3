package controller

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	// SerialPortNone runs without a device connection
	SerialPortNone = "none"

	DefaultBaudRate = 115200
)

// Config holds the host-side settings for talking to a winder
type Config struct {
	SerialPort  string
	BaudRate    int
	StorePath   string
	Keepalive   time.Duration
	PatternFile string
	Realtime    bool
	LogLevel    string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		BaudRate:  DefaultBaudRate,
		StorePath: defaultStorePath(),
		LogLevel:  "info",
	}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}
	if c.Keepalive < 0 {
		return fmt.Errorf("keepalive must not be negative")
	}
	return nil
}

// FileConfig mirrors Config with TOML friendly types
type FileConfig struct {
	Port        string `toml:"port"`
	BaudRate    int    `toml:"baud_rate"`
	StorePath   string `toml:"store_path"`
	Keepalive   string `toml:"keepalive"`
	PatternFile string `toml:"pattern_file"`
	Realtime    *bool  `toml:"realtime"`
	LogLevel    string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.coilwinder/config.toml, or "" when there is no home directory
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".coilwinder", "config.toml")
	}
	return ""
}

func defaultStorePath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".coilwinder", "params.bin")
	}
	return "params.bin"
}

// ApplyFileConfig applies values from the file that were not set by flags
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", fc.Port, &cfg.SerialPort)
	s.setString("store-path", fc.StorePath, &cfg.StorePath)
	s.setString("pattern-file", fc.PatternFile, &cfg.PatternFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setInt("baud-rate", fc.BaudRate, &cfg.BaudRate)
	s.setBool("realtime", fc.Realtime, &cfg.Realtime)

	return s.setDuration("keepalive", fc.Keepalive, &cfg.Keepalive)
}

// ApplyEnvConfig applies COILWINDER_* environment variables that were not set by flags
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("port", os.Getenv("COILWINDER_PORT"), &cfg.SerialPort)
	s.setString("store-path", os.Getenv("COILWINDER_STORE_PATH"), &cfg.StorePath)
	s.setString("pattern-file", os.Getenv("COILWINDER_PATTERN_FILE"), &cfg.PatternFile)
	s.setString("log-level", os.Getenv("COILWINDER_LOG_LEVEL"), &cfg.LogLevel)
	s.setBoolFromString("realtime", os.Getenv("COILWINDER_REALTIME"), &cfg.Realtime)

	if err := s.setIntFromString("baud-rate", os.Getenv("COILWINDER_BAUD_RATE"), &cfg.BaudRate); err != nil {
		return err
	}
	return s.setDuration("keepalive", os.Getenv("COILWINDER_KEEPALIVE"), &cfg.Keepalive)
}

// LoadConfig layers the config file at path (when it exists) and the environment over cfg.
// Flags named in changed keep their values.
func LoadConfig(cfg *Config, path string, changed map[string]bool) error {
	if path != "" {
		fc, err := LoadFileConfig(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("load config: %w", err)
		default:
			if err := ApplyFileConfig(cfg, fc, changed); err != nil {
				return err
			}
		}
	}

	if err := ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

// configSetter only applies a value when the matching flag was not set explicitly
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" or "1" as true
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
