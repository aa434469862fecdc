package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig configures the terminal client.
type ClientConfig struct {
	APIURL      string
	StateDB     string
	HTTPTimeout time.Duration
	LogLevel    string
}

func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("VYAYAM_HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("VYAYAM_HTTP_TIMEOUT: %w", err)
	}

	stateDB := os.Getenv("VYAYAM_STATE_DB")
	if stateDB == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		stateDB = filepath.Join(dir, "vyayam", "state.db")
	}

	return &ClientConfig{
		APIURL:      getEnv("VYAYAM_API_URL", "http://localhost:8080/api/v1"),
		StateDB:     stateDB,
		HTTPTimeout: timeout,
		LogLevel:    getEnv("LOG_LEVEL", "warn"),
	}, nil
}
