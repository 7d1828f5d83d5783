package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:5000"

// Config holds the complete application configuration, loadable from
// environment variables (VIBE_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:5000" usage:"API server listen address"`
	CatalogFile string `default:"" usage:"Product seed file (.json or .json.gz); empty uses the embedded catalog" flag:"catalog-file"`
	Banner      string `default:"Vibe Commerce Backend" usage:"Plain-text body served on GET /"`
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	// TrustProxy keys clients by X-Forwarded-For / X-Real-IP instead of the
	// connection address. Enable only behind a proxy that sets them.
	TrustProxy bool `default:"false" usage:"Trust X-Forwarded-For and X-Real-IP for rate limiting" flag:"trust-proxy"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from flags, environment variables and YAML
// config files, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "VIBE",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/vibe/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the PORT variable set by hosting platforms
// unless VIBE_ADDR was given explicitly.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return errors.New("listen address is required")
	case c.RateLimit.Max <= 0:
		return errors.Errorf("rate limit max must be positive, got %d", c.RateLimit.Max)
	case c.RateLimit.Window <= 0:
		return errors.Errorf("rate limit window must be positive, got %s", c.RateLimit.Window)
	case c.Graceful.ShutdownTimeout <= 0:
		return errors.Errorf("shutdown timeout must be positive, got %s", c.Graceful.ShutdownTimeout)
	}
	return nil
}
