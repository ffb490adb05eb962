package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. DISPATCH_HTTP_PORT.
const EnvPrefix = "DISPATCH"

type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSslMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	KafkaBrokers          []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaClientID         string   `envconfig:"KAFKA_CLIENT_ID" default:"dispatch"`
	KafkaOffersTopic      string   `envconfig:"KAFKA_OFFERS_TOPIC" default:"dispatch.partner-offers"`
	KafkaStoreStatusTopic string   `envconfig:"KAFKA_STORE_STATUS_TOPIC" default:"dispatch.store-order-status"`

	PartnerGeoKey        string  `envconfig:"PARTNER_GEO_KEY" default:"dispatch:partners:available"`
	StoreRadiusKey       string  `envconfig:"STORE_RADIUS_KEY" default:"dispatch:stores:search_radius_km"`
	SearchRadiusKm       float64 `envconfig:"SEARCH_RADIUS_KM" default:"5"`
	FallbackSearchRadius float64 `envconfig:"FALLBACK_SEARCH_RADIUS_KM" default:"10"`

	PriorityCandidates int           `envconfig:"PRIORITY_CANDIDATES" default:"5"`
	FallbackPoolSize   int           `envconfig:"FALLBACK_POOL_SIZE" default:"50"`
	ExpandedPoolSize   int           `envconfig:"EXPANDED_POOL_SIZE" default:"50"`
	ExpansionDelay     time.Duration `envconfig:"EXPANSION_DELAY" default:"30s"`
	BroadcastTimeout   time.Duration `envconfig:"BROADCAST_TIMEOUT" default:"20s"`

	PromotionSchedule  string        `envconfig:"PROMOTION_SCHEDULE" default:"0 * * * * *"`
	ModificationWindow time.Duration `envconfig:"MODIFICATION_WINDOW" default:"2m"`
	SweepLockKey       string        `envconfig:"SWEEP_LOCK_KEY" default:"dispatch:locks:scheduled_order_promotion"`
	SweepLockTTL       time.Duration `envconfig:"SWEEP_LOCK_TTL" default:"55s"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoadConfig reads the DISPATCH_* environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// DSN builds the postgres connection string.
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSslMode}}.Encode(),
	}
	return u.String()
}
