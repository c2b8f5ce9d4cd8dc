// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config provides configuration loading for the gateway service.
//
// Configuration is layered: compiled-in defaults, then an optional YAML
// file, then environment variables. Environment variables win so container
// deployments can override a baked-in config file without rebuilding.
//
// Thread Safety:
//
//	Load returns a value; callers must not mutate a shared Config after
//	handing it to the server.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MaxYAMLFileSize is the maximum allowed config file size (1MB).
const MaxYAMLFileSize = 1024 * 1024

// AuthConfig carries the single-tenant credential pair and token secret.
//
// All three values are required before the login endpoint can issue
// tokens; the auth package reports ErrNotConfigured otherwise.
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Secret   string `yaml:"secret"`
}

// RateLimitConfig bounds the assistant endpoint.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate allowed per process.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Burst is the instantaneous burst allowance.
	Burst int `yaml:"burst"`
}

// Config is the gateway service configuration.
type Config struct {
	Port      int             `yaml:"port"`
	Model     string          `yaml:"model"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the compiled-in defaults.
func Default() Config {
	return Config{
		Port:  8787,
		Model: "gpt-4o-mini",
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
	}
}

// Load builds the effective configuration.
//
// # Description
//
// Starts from Default, merges the YAML file at path if path is non-empty,
// then applies environment overrides: PORT, OPENAI_MODEL, AUTH_USERNAME,
// AUTH_PASSWORD, AUTH_SECRET, RATE_LIMIT_RPS, RATE_LIMIT_BURST.
//
// # Inputs
//
//   - path: Optional YAML file path. Empty string skips the file layer.
//
// # Outputs
//
//   - Config: The merged configuration.
//   - error: File read, size, or parse failures. Env parse failures for
//     numeric variables are also reported rather than silently ignored.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
		if info.Size() > MaxYAMLFileSize {
			return cfg, fmt.Errorf("config file %s exceeds %d bytes", path, MaxYAMLFileSize)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("AUTH_USERNAME"); v != "" {
		cfg.Auth.Username = v
	}
	if v := os.Getenv("AUTH_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RequestsPerSecond = rps
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimit.Burst = burst
	}
	return nil
}
