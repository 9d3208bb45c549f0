package config

import (
	"testing"
	"time"

	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DB.Host != "localhost" || cfg.DB.Port != "5432" {
		t.Errorf("unexpected DB defaults: %s:%s", cfg.DB.Host, cfg.DB.Port)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("unexpected server port default %q", cfg.Server.Port)
	}
	if cfg.JWT.ExpirationHours != 24 {
		t.Errorf("unexpected JWT expiration default %d", cfg.JWT.ExpirationHours)
	}
	if cfg.Stripe.WebhookTolerance != 5*time.Minute {
		t.Errorf("unexpected webhook tolerance default %v", cfg.Stripe.WebhookTolerance)
	}
	if cfg.Notify.MaxRetries != 3 {
		t.Errorf("unexpected notify retries default %d", cfg.Notify.MaxRetries)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_MAX_IDLE_CONNS", "5")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_env")
	t.Setenv("STRIPE_WEBHOOK_TOLERANCE", "90s")
	t.Setenv("NOTIFY_RETRY_DELAY", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DB.Host != "db.internal" {
		t.Errorf("expected DB host override, got %q", cfg.DB.Host)
	}
	if cfg.DB.MaxIdleConns != 5 {
		t.Errorf("expected 5 idle conns, got %d", cfg.DB.MaxIdleConns)
	}
	if cfg.DB.LogLevel != logger.Silent {
		t.Errorf("expected silent gorm log level, got %v", cfg.DB.LogLevel)
	}
	if cfg.Stripe.WebhookSecret != "whsec_env" {
		t.Errorf("expected webhook secret override, got %q", cfg.Stripe.WebhookSecret)
	}
	if cfg.Stripe.WebhookTolerance != 90*time.Second {
		t.Errorf("expected 90s tolerance, got %v", cfg.Stripe.WebhookTolerance)
	}
	if cfg.Notify.RetryDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms retry delay, got %v", cfg.Notify.RetryDelay)
	}
}

func TestGetDSN(t *testing.T) {
	c := &DBConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	want := "host=h port=5432 user=u password=p dbname=d sslmode=disable"
	if got := c.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DB.MaxOpenConns != 100 {
		t.Errorf("expected fallback to default 100, got %d", cfg.DB.MaxOpenConns)
	}
}
