package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for all databases (defaults to "../data" or "./data")
	Port           int
	LogLevel       string
	DevMode        bool
	BaseCurrency   string  // Default reporting currency for portfolios
	RiskFreeUID    string  // Rate series used as the risk-free leg (CAL model)
	Iterations     int     // Solver restarts per optimization strategy
	Gamma          float64 // L2 regularization weight for the variance objective
	FrontierPoints int     // Target-return grid size for the efficient frontier
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic
	dataDir := getEnv("DATA_DIR", "")
	if dataDir == "" {
		// Check ../data first (when running from a checkout subdir), then ./data
		if _, err := os.Stat("../data"); err == nil {
			dataDir = "../data"
		} else {
			dataDir = "./data"
		}
	}

	cfg := &Config{
		DataDir:        dataDir,
		Port:           getEnvAsInt("GO_PORT", 8001),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		BaseCurrency:   getEnv("BASE_CURRENCY", "EUR"),
		RiskFreeUID:    getEnv("RISK_FREE_UID", ""),
		Iterations:     getEnvAsInt("OPT_ITERATIONS", 50),
		Gamma:          getEnvAsFloat("OPT_GAMMA", 0.0),
		FrontierPoints: getEnvAsInt("OPT_FRONTIER_POINTS", 20),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.BaseCurrency == "" {
		return fmt.Errorf("BASE_CURRENCY must not be empty")
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("OPT_ITERATIONS must be positive, got %d", c.Iterations)
	}
	if c.FrontierPoints <= 0 {
		return fmt.Errorf("OPT_FRONTIER_POINTS must be positive, got %d", c.FrontierPoints)
	}
	return nil
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
