package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBDSN      string `env:"DB_DSN"`
	DBPassword string `env:"DB_PASSWORD"`

	// RedisURL enables the redis-backed lock, cache and rate limiter.
	RedisURL        string `env:"REDIS_URL"`
	RedisClusterURL string `env:"CLUSTER_REDIS_URL"`

	ArchiveRoot string `env:"ARCHIVE_ROOT" envDefault:"./data"`

	DispatchInterval time.Duration `env:"DISPATCH_INTERVAL" envDefault:"1m"`
	DispatchWorkers  int           `env:"DISPATCH_WORKERS" envDefault:"8"`
	StoreTimeout     time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	ClaimsPerMinute  int           `env:"CLAIMS_PER_MINUTE" envDefault:"20"`

	BotToken string  `env:"BOT_TOKEN"`
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// InitDataTTL bounds the age of Mini App init data; zero disables the check.
	InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
	// TrustGatewayHeader accepts X-User-ID as the caller identity. Only for
	// deployments behind a gateway that authenticates users and strips the
	// header from client requests.
	TrustGatewayHeader bool `env:"TRUST_GATEWAY_HEADER" envDefault:"false"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`
}

// Load reads the environment, filling unset variables from a .env file first.
// Variables already present in the environment win.
func Load() (*Config, error) {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsAdmin builds the privilege predicate from the configured admin ids.
func (c *Config) IsAdmin() func(callerID int64) bool {
	admins := make(map[int64]struct{}, len(c.AdminIDs))
	for _, id := range c.AdminIDs {
		admins[id] = struct{}{}
	}
	return func(callerID int64) bool {
		_, ok := admins[callerID]
		return ok
	}
}
