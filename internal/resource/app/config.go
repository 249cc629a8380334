package app

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the map app's runtime configuration, loaded from the
// environment.
type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Port int `env:"PORT" envDefault:"3001"`

	// SharedSecret signs and verifies the cross-app tokens. Both apps
	// must be configured with the same value.
	SharedSecret string `env:"GEOMAP_JWT_SECRET,required"`

	Issuer   string `env:"AUTH_ISSUER" envDefault:"onboarding-app"`
	Audience string `env:"AUTH_AUDIENCE" envDefault:"geomap-app"`

	IssuerBaseURL   string `env:"ONBOARDING_APP_URL" envDefault:"http://localhost:3000"`
	ResourceBaseURL string `env:"GEOMAP_APP_URL" envDefault:"http://localhost:3001"`

	// UpstreamTimeout bounds each proxied call to the issuer's refresh
	// endpoint.
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

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
