package app

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the issuer service configuration, loaded from environment
// variables. The shared secret must match the resource app's or nothing
// the issuer signs will verify there.
type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT" envDefault:"3000"`

	// SharedSecret signs every token. Distributed out-of-band, never
	// logged.
	SharedSecret string `env:"GEOMAP_JWT_SECRET,required"`

	Issuer   string `env:"AUTH_ISSUER" envDefault:"onboarding-app"`
	Audience string `env:"AUTH_AUDIENCE" envDefault:"geomap-app"`

	IssuerBaseURL   string `env:"ONBOARDING_APP_URL" envDefault:"http://localhost:3000"`
	ResourceBaseURL string `env:"GEOMAP_APP_URL" envDefault:"http://localhost:3001"`

	DatabaseFile string `env:"AUTH_DATABASE_FILE" envDefault:"identities.db"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// LoadConfig parses configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
