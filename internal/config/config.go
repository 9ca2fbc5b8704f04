package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultMongoURI  = "mongodb://localhost:27017/ecocart-db"
	defaultJWTSecret = "ecocart-secret-key"
)

type Config struct {
	Env          string
	Port         string
	MongoURI     string
	JWTSecret    string
	StripeKey    string
	Currency     string
	PublicOrigin string
	// AllowedOrigins are client origins trusted as payment return targets,
	// in addition to PublicOrigin.
	AllowedOrigins []string
	KafkaBrokers   []string
	OTelEnabled    bool
	OTelEndpoint   string
}

// InsecureSecret reports whether the token secret is the built-in development default.
func (c Config) InsecureSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment, after merging an optional
// .env file from the working directory.
func Load(defaultPort string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:          getenv("APP_ENV", "development"),
		Port:         getenv("PORT", defaultPort),
		MongoURI:     getenv("MONGODB_URI", defaultMongoURI),
		JWTSecret:    getenv("JWT_SECRET", defaultJWTSecret),
		StripeKey:    os.Getenv("STRIPE_SECRET_KEY"),
		Currency:     strings.ToLower(getenv("PAYMENT_CURRENCY", "usd")),
		PublicOrigin: getenv("PUBLIC_ORIGIN", "http://localhost:8080"),
		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if cfg.Production() {
		if cfg.InsecureSecret() {
			return Config{}, errors.New("JWT_SECRET must be set in production")
		}
		if cfg.StripeKey == "" {
			return Config{}, errors.New("STRIPE_SECRET_KEY must be set in production")
		}
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
