package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server      string  `yaml:"server"`
	Team        string  `yaml:"team"`
	Environment string  `yaml:"environment"`
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	FPS         int     `yaml:"fps"`
	Buildings   int     `yaml:"buildings"`
	Seed        int64   `yaml:"seed"` // 0 picks a fresh layout every run
	Speed       float64 `yaml:"speed"`
	Sensitivity float64 `yaml:"sensitivity"`
	Offline     bool    `yaml:"offline"`
	LogFPS      bool    `yaml:"log_fps"`
}

func NewConfig() *Config {
	return &Config{
		Server:      "localhost:3001",
		Environment: "assets/environment.png",
		Width:       1280,
		Height:      720,
		FPS:         60,
		Buildings:   20,
		Speed:       5.0,
		Sensitivity: 0.002,
	}
}

// LoadConfig overlays the YAML file at path on the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := NewConfig()
	if path == "" {
		return config, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(raw, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive")
	}
	if c.Buildings < 0 {
		return fmt.Errorf("buildings must not be negative")
	}
	return nil
}
