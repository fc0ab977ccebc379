package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string
	CORSOrigins string
	TablePrefix string

	// Platforms is the registry of imported referral platforms, loaded from
	// PLATFORMS_FILE when set, otherwise the built-in defaults.
	Platforms []Platform

	// Debug enables verbose logging
	Debug bool
}

// Platform describes one imported referral system and the CSV sheet names
// its exports use.
type Platform struct {
	Name         string `yaml:"name"`
	UsersCSV     string `yaml:"users_csv"`
	PurchasesCSV string `yaml:"purchases_csv"`
	EarningsCSV  string `yaml:"earnings_csv"`
}

func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWKSURL:     getEnv("JWKS_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),
		Debug:       getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}

	platforms, err := loadPlatforms(os.Getenv("PLATFORMS_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Platforms = platforms

	return cfg, nil
}

// PlatformByName resolves a platform path parameter against the registry.
func (c *Config) PlatformByName(name string) (Platform, bool) {
	for _, p := range c.Platforms {
		if p.Name == name {
			return p, true
		}
	}
	return Platform{}, false
}

// defaultPlatforms mirrors the two referral systems the source sheets cover.
func defaultPlatforms() []Platform {
	return []Platform{
		{
			Name:         "limitless",
			UsersCSV:     "limitless_users.csv",
			PurchasesCSV: "limitless_purchases.csv",
			EarningsCSV:  "limitless_referral_earnings.csv",
		},
		{
			Name:         "boostyfi",
			UsersCSV:     "boostyfi_users.csv",
			PurchasesCSV: "boostyfi_purchases.csv",
			EarningsCSV:  "boostyfi_referral_earnings.csv",
		},
	}
}

func loadPlatforms(path string) ([]Platform, error) {
	if path == "" {
		return defaultPlatforms(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read platforms file: %w", err)
	}

	var doc struct {
		Platforms []Platform `yaml:"platforms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse platforms file: %w", err)
	}
	if len(doc.Platforms) == 0 {
		return nil, fmt.Errorf("platforms file %s declares no platforms", path)
	}
	for i, p := range doc.Platforms {
		if p.Name == "" {
			return nil, fmt.Errorf("platforms file %s: entry %d has no name", path, i)
		}
	}
	return doc.Platforms, nil
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
