package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "PORT", "MONGODB_URI", "JWT_SECRET", "STRIPE_SECRET_KEY", "PAYMENT_CURRENCY", "KAFKA_BROKERS", "OTEL_ENABLED", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load("5000")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("expected port 5000, got %s", cfg.Port)
	}
	if cfg.MongoURI != defaultMongoURI {
		t.Errorf("expected default mongo uri, got %s", cfg.MongoURI)
	}
	if !cfg.InsecureSecret() {
		t.Error("expected default secret to be flagged insecure")
	}
	if cfg.Currency != "usd" {
		t.Errorf("expected usd, got %s", cfg.Currency)
	}
	if cfg.KafkaBrokers != nil {
		t.Errorf("expected no brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.AllowedOrigins != nil {
		t.Errorf("expected no extra origins, got %v", cfg.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PAYMENT_CURRENCY", "EUR")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example/, http://localhost:5173,")

	cfg, err := Load("5000")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.Currency != "eur" {
		t.Errorf("expected eur, got %s", cfg.Currency)
	}
	if cfg.InsecureSecret() {
		t.Error("custom secret flagged insecure")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://shop.example" || cfg.AllowedOrigins[1] != "http://localhost:5173" {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_x")

	if _, err := Load("5000"); err == nil {
		t.Fatal("expected error for default secret in production")
	}

	t.Setenv("JWT_SECRET", "real")
	t.Setenv("STRIPE_SECRET_KEY", "")
	if _, err := Load("5000"); err == nil {
		t.Fatal("expected error for missing stripe key in production")
	}

	t.Setenv("STRIPE_SECRET_KEY", "sk_test_x")
	if _, err := Load("5000"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
