package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"assaykit/adapters/curve"
	"assaykit/internal"
	"assaykit/internal/errors"
	"assaykit/internal/report"
)

// Config represents the complete application configuration
type Config struct {
	Log    LogConfig
	Fit    FitConfig
	Report ReportConfig
}

// LogConfig holds logging settings
type LogConfig struct {
	Level internal.LogLevel
}

// FitConfig holds curve optimizer settings
type FitConfig struct {
	MaxIterations int
	Tolerance     float64
	Workers       int
	CurvePoints   int
}

// ReportConfig holds report rendering settings
type ReportConfig struct {
	Format string // report.FormatMarkdown or report.FormatHTML
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win. A file
// that exists but cannot be parsed is a CONFIG_INVALID error.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			internal.DefaultLogger.Debug("no %s file, using process environment", f)
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parse %s: %w", f, err))
		}
	}
	return nil
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	logConfig, err := loadLogConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load log configuration")
	}
	config.Log = *logConfig

	fitConfig, err := loadFitConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load fit configuration")
	}
	config.Fit = *fitConfig

	config.Report = ReportConfig{
		Format: strings.ToLower(getEnvOrDefault("REPORT_FORMAT", report.FormatMarkdown)),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// FitOptions converts the fit settings into optimizer options.
func (c *Config) FitOptions(logger *internal.Logger) curve.Options {
	return curve.Options{
		MaxIterations: c.Fit.MaxIterations,
		Tolerance:     c.Fit.Tolerance,
		Logger:        logger,
	}
}

// Logger builds a logger at the configured level.
func (c *Config) Logger() *internal.Logger {
	return internal.NewLogger(c.Log.Level)
}

func loadLogConfig() (*LogConfig, error) {
	raw := getEnvOrDefault("LOG_LEVEL", "INFO")
	level, ok := internal.ParseLogLevel(raw)
	if !ok {
		return nil, errors.ConfigInvalid("LOG_LEVEL must be one of ERROR, WARN, INFO, DEBUG, TRACE; got " + raw)
	}
	return &LogConfig{Level: level}, nil
}

func loadFitConfig() (*FitConfig, error) {
	maxIter, err := getEnvInt("FIT_MAX_ITERATIONS", curve.DefaultMaxIterations)
	if err != nil {
		return nil, err
	}
	tolerance, err := getEnvFloat("FIT_TOLERANCE", curve.DefaultTolerance)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("FIT_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	points, err := getEnvInt("CURVE_POINTS", 100)
	if err != nil {
		return nil, err
	}
	return &FitConfig{
		MaxIterations: maxIter,
		Tolerance:     tolerance,
		Workers:       workers,
		CurvePoints:   points,
	}, nil
}

func validateConfig(config *Config) error {
	if config.Fit.MaxIterations <= 0 {
		return errors.ConfigInvalid("FIT_MAX_ITERATIONS must be positive")
	}
	if !(config.Fit.Tolerance > 0) {
		return errors.ConfigInvalid("FIT_TOLERANCE must be positive")
	}
	if config.Fit.Workers <= 0 {
		return errors.ConfigInvalid("FIT_WORKERS must be positive")
	}
	if config.Fit.CurvePoints < 2 {
		return errors.ConfigInvalid("CURVE_POINTS must be at least 2")
	}
	switch config.Report.Format {
	case report.FormatMarkdown, report.FormatHTML:
	default:
		return errors.ConfigInvalid("REPORT_FORMAT must be markdown or html")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be an integer")
	}
	return intValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be a number")
	}
	return floatValue, nil
}
