package app

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config contains all runtime configuration, loaded from environment
// variables (an optional .env file is applied first by Run).
type Config struct {
	HTTPAddr  string `envconfig:"RELAY_HTTP_ADDR" default:"0.0.0.0:3030"`
	LogLevel  string `envconfig:"RELAY_LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"RELAY_LOG_PRETTY" default:"false"`

	ReadHeaderTimeout time.Duration `envconfig:"RELAY_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	IdleTimeout       time.Duration `envconfig:"RELAY_HTTP_IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes    int           `envconfig:"RELAY_HTTP_MAX_HEADER_BYTES" default:"1048576"`

	// Directory served at "/" (chat page and assets).
	StaticDir string `envconfig:"RELAY_STATIC_DIR" default:"./static"`

	DatabaseURL string `envconfig:"RELAY_DATABASE_URL"`
	DBSchema    string `envconfig:"RELAY_DB_SCHEMA" default:"relay"`
	DBMaxConns  int32  `envconfig:"RELAY_DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"RELAY_DB_MIN_CONNS" default:"0"`

	// If true, /readyz returns 503 unless a database is configured and
	// reachable.
	ReadinessRequireDB bool `envconfig:"RELAY_READINESS_REQUIRE_DB" default:"false"`

	// Realtime knobs.
	BusQueueSize   int           `envconfig:"RELAY_BUS_QUEUE" default:"128"`
	WSWriteTimeout time.Duration `envconfig:"RELAY_WS_WRITE_TIMEOUT" default:"5s"`
	// Host patterns authorized for cross-origin websocket upgrades.
	WSOriginPatterns []string `envconfig:"RELAY_WS_ORIGIN_PATTERNS"`
	// Dev-only: skip origin verification entirely.
	WSDevInsecure bool `envconfig:"RELAY_WS_DEV_INSECURE" default:"false"`
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
