package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port == "" {
		t.Fatal("expected a default server port")
	}
	if cfg.MongoDB.Database != "projecto" {
		t.Fatalf("unexpected default database: %s", cfg.MongoDB.Database)
	}
	if cfg.MongoDB.Timeout != 10*time.Second {
		t.Fatalf("unexpected mongo timeout: %v", cfg.MongoDB.Timeout)
	}
	if cfg.Redis.TagCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected tag cache ttl: %v", cfg.Redis.TagCacheTTL)
	}
	if cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst <= 0 {
		t.Fatalf("rate limit defaults missing: %+v", cfg.RateLimit)
	}
}
