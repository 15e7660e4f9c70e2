package coord

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ServerConfig is the daemon's environment configuration.
type ServerConfig struct {
	Port string
}

// LoadServerConfig reads the daemon configuration from the environment,
// loading a .env file first when one is present.
func LoadServerConfig() (*ServerConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("Skipping .env ...", "error", err)
	}

	port := os.Getenv("COORDD_PORT")
	if port == "" {
		port = "8700"
	}
	if err := validatePort(port); err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	return &ServerConfig{Port: port}, nil
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New("port must be a number")
	}
	if n < 1 || n > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}
