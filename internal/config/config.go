// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/aristath/frontier/internal/export"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	LogLevel      string
	LogPretty     bool
	UniversePath  string // YAML universe file; empty selects the built-in universe
	Points        int    // Target returns per sweep (0 = optimization.DefaultSweepPoints)
	Workers       int    // Solver goroutines (0 = CPU count)
	RiskFreeRate  float64
	MaxIterations int // Active-set iteration cap (0 = solver default)
	Tolerance     float64
	Format        string // table, json, csv or msgpack
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvAsBool("LOG_PRETTY", true),
		UniversePath:  getEnv("FRONTIER_UNIVERSE", ""),
		Points:        getEnvAsInt("FRONTIER_POINTS", optimization.DefaultSweepPoints),
		Workers:       getEnvAsInt("FRONTIER_WORKERS", 0),
		RiskFreeRate:  getEnvAsFloat("FRONTIER_RISK_FREE_RATE", 0.02),
		MaxIterations: getEnvAsInt("FRONTIER_MAX_ITERATIONS", 0),
		Tolerance:     getEnvAsFloat("FRONTIER_TOLERANCE", optimization.DefaultTolerance),
		Format:        getEnv("FRONTIER_FORMAT", string(export.FormatTable)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	if c.Points < 0 {
		return fmt.Errorf("FRONTIER_POINTS must not be negative, got %d", c.Points)
	}
	if c.Workers < 0 {
		return fmt.Errorf("FRONTIER_WORKERS must not be negative, got %d", c.Workers)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("FRONTIER_MAX_ITERATIONS must not be negative, got %d", c.MaxIterations)
	}
	if !(c.Tolerance > 0) {
		return fmt.Errorf("FRONTIER_TOLERANCE must be positive, got %g", c.Tolerance)
	}
	if _, err := export.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("FRONTIER_FORMAT: %w", err)
	}
	return nil
}

// SolverSettings returns the minimizer settings described by the config.
func (c *Config) SolverSettings() optimization.SolverSettings {
	return optimization.SolverSettings{
		MaxIterations: c.MaxIterations,
		Tolerance:     c.Tolerance,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
