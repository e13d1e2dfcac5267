package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the CLI's runtime configuration, read from LODESTAR_*
// environment variables.
type Config struct {
	APIURL string `envconfig:"API_URL" validate:"required,url"`

	// Store selects the credential backend. The file store keeps the pair
	// in an encrypted document under the user config dir by default.
	Store           string `envconfig:"STORE" default:"file" validate:"oneof=memory file sqlite redis"`
	StorePath       string `envconfig:"STORE_PATH"`
	StorePassphrase string `envconfig:"STORE_PASSPHRASE" validate:"required_if=Store file"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB"`

	InitTimeout time.Duration `envconfig:"INIT_TIMEOUT" default:"5s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"warn"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadConfig reads and validates the environment configuration.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("lodestar", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return Config{}, fmt.Errorf("config: %s", describeFieldError(errs[0]))
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// describeFieldError turns a validator error into a message naming the
// environment variable instead of the struct field.
func describeFieldError(fe validator.FieldError) string {
	name := "LODESTAR_" + envName(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " must be set"
	case "required_if":
		return name + " must be set for this store"
	case "url":
		return name + " must be a URL"
	case "oneof":
		return name + " must be one of: " + fe.Param()
	default:
		return name + " is invalid"
	}
}

func envName(field string) string {
	switch field {
	case "APIURL":
		return "API_URL"
	case "StorePath":
		return "STORE_PATH"
	case "StorePassphrase":
		return "STORE_PASSPHRASE"
	case "RedisAddr":
		return "REDIS_ADDR"
	case "RedisPassword":
		return "REDIS_PASSWORD"
	case "RedisDB":
		return "REDIS_DB"
	case "InitTimeout":
		return "INIT_TIMEOUT"
	case "LogLevel":
		return "LOG_LEVEL"
	case "LogFormat":
		return "LOG_FORMAT"
	default:
		return "STORE"
	}
}

// defaultStorePath places the credential file under the user config dir,
// falling back to the working directory when none is known.
func defaultStorePath(ext string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "lodestar-credentials" + ext
	}
	return filepath.Join(dir, "lodestar", "credentials"+ext)
}
