package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Addr      string        `envconfig:"ADDR" default:":8080"`
	DBDSN     string        `envconfig:"DB_DSN" required:"true"`
	RedisAddr string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is a dev convenience; in prod the vars come from the runtime.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
