package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// ordering phase
	Events int `yaml:"events"`

	// correlation phase
	Peripherals int           `yaml:"peripherals"`
	Callers     int           `yaml:"callers"` // concurrent callers per peripheral
	Reads       int           `yaml:"reads"`   // reads per caller
	FailEvery   int           `yaml:"fail_every"`
	Latency     time.Duration `yaml:"latency"`

	Timeout     time.Duration `yaml:"timeout"`
	Metrics     string        `yaml:"metrics"` // prometheus or otel
	MetricsAddr string        `yaml:"metrics_addr"`
	LogLevel    string        `yaml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Events:      100_000,
		Peripherals: 16,
		Callers:     8,
		Reads:       500,
		FailEvery:   0,
		Latency:     0,
		Timeout:     120 * time.Second,
		Metrics:     "prometheus",
		LogLevel:    "info",
	}
}

// loadConfig applies, in order: defaults, the YAML file at path (if any) and
// environment overrides.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse yaml: %w", err)
		}
	}

	cfg.Events = getEnvInt("N", cfg.Events)
	cfg.Peripherals = getEnvInt("PERIPHERALS", cfg.Peripherals)
	cfg.Callers = getEnvInt("CALLERS", cfg.Callers)
	cfg.Reads = getEnvInt("READS", cfg.Reads)
	cfg.FailEvery = getEnvInt("FAIL_EVERY", cfg.FailEvery)
	cfg.Latency = getEnvDuration("LATENCY", cfg.Latency)
	cfg.Timeout = getEnvDuration("TIMEOUT", cfg.Timeout)
	cfg.Metrics = getEnv("METRICS", cfg.Metrics)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.Events < 0:
		return fmt.Errorf("events must not be negative")
	case c.Peripherals < 1, c.Callers < 1, c.Reads < 1:
		return fmt.Errorf("peripherals, callers and reads must be positive")
	case c.FailEvery < 0:
		return fmt.Errorf("fail_every must not be negative")
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive")
	case c.Metrics != "prometheus" && c.Metrics != "otel":
		return fmt.Errorf("metrics must be prometheus or otel, got %q", c.Metrics)
	}
	return nil
}

func (c Config) level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func getEnv(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.ReplaceAll(getEnv(key, ""), "_", ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
