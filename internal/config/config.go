package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Seats    SeatsConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdleConns   int
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type SeatsConfig struct {
	// GracePeriod is how long after a disconnect the same user may reclaim
	// their slot without a fresh quota check.
	GracePeriod time.Duration
	// HeartbeatTimeout is how long a session may go silent before the
	// sweep reclaims its seat.
	HeartbeatTimeout time.Duration
	SweepInterval    time.Duration

	// Admit-route throttling; disabled when AdmitRatePerMin is zero.
	AdmitRatePerMin int
	AdmitBurst      int
}

type MetricsConfig struct {
	RemoteWriteURL string
	TenantHeader   string
	BatchSize      int
	FlushInterval  time.Duration
	AuthToken      string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("SEATGUARD")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.maxidleconns", 5)
	viper.SetDefault("auth.accesstokenttl", "15m")
	viper.SetDefault("auth.refreshtokenttl", "168h")
	viper.SetDefault("seats.graceperiod", "5m")
	viper.SetDefault("seats.heartbeattimeout", "2m")
	viper.SetDefault("seats.sweepinterval", "30s")
	viper.SetDefault("seats.admitratepermin", 0)
	viper.SetDefault("seats.admitburst", 5)
	viper.SetDefault("metrics.tenantheader", "X-Scope-OrgID")
	viper.SetDefault("metrics.batchsize", 1000)
	viper.SetDefault("metrics.flushinterval", "10s")

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if url := os.Getenv("REMOTE_WRITE_URL"); url != "" {
		cfg.Metrics.RemoteWriteURL = url
	}
	if token := os.Getenv("REMOTE_WRITE_AUTH_TOKEN"); token != "" {
		cfg.Metrics.AuthToken = token
	}

	return &cfg, nil
}
