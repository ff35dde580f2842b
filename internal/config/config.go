package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string `validate:"required"`
	Env            string `validate:"oneof=development production staging"`
	DatabaseType   string `validate:"omitempty,oneof=sqlite sqlite3 postgres postgresql mysql"`
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string `validate:"required"`

	// Speech provider
	SpeechBaseURL string `validate:"required,url"`

	// Encrypted credential store. The secret is only needed by the server,
	// so it is validated there rather than here.
	CredentialsPath   string `validate:"required"`
	CredentialsSecret string

	// Parent gate
	JWTSigningKey    string
	ParentSessionTTL time.Duration `validate:"min=1m"`
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:        getEnv("PORT", "8080"),
		Env:               getEnv("APP_ENV", "development"),
		DatabaseType:      getEnv("DB_TYPE", "sqlite"),
		DatabasePath:      getEnv("DB_PATH", "./flashkids.db"),
		DatabaseURL:       getEnv("DB_URL", ""),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "./migrations"),
		SpeechBaseURL:     getEnv("SPEECH_BASE_URL", "https://api.elevenlabs.io/v1"),
		CredentialsPath:   getEnv("CREDENTIALS_PATH", "./flashkids.keystore"),
		CredentialsSecret: getEnv("CREDENTIALS_SECRET", ""),
		JWTSigningKey:     getEnv("JWT_SIGNING_KEY", ""),
		ParentSessionTTL:  15 * time.Minute,
	}

	if ttl := os.Getenv("PARENT_SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid PARENT_SESSION_TTL: %w", err)
		}
		cfg.ParentSessionTTL = d
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
