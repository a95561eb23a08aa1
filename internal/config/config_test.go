package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if cfg.App.Name != "flipcheck" {
		t.Fatalf("app name = %q", cfg.App.Name)
	}
	if cfg.Pricing.CacheTTL != 24*time.Hour {
		t.Fatalf("cache ttl = %s", cfg.Pricing.CacheTTL)
	}
	if cfg.Pricing.EstimateFeeMultiplier != 0.87 {
		t.Fatalf("estimate fee multiplier = %v", cfg.Pricing.EstimateFeeMultiplier)
	}
	if cfg.Pricing.ActualNetMultiplier != 0.84 {
		t.Fatalf("actual net multiplier = %v", cfg.Pricing.ActualNetMultiplier)
	}
	if cfg.Ebay.MarketplaceID != "EBAY_US" {
		t.Fatalf("marketplace = %q", cfg.Ebay.MarketplaceID)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
app:
  name: flipcheck-test
pricing:
  cache_ttl: 1h
  estimate_fee_multiplier: 0.9
maintenance:
  interval: 10m
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Name != "flipcheck-test" {
		t.Fatalf("app name = %q", cfg.App.Name)
	}
	if cfg.Pricing.CacheTTL != time.Hour {
		t.Fatalf("cache ttl = %s", cfg.Pricing.CacheTTL)
	}
	if cfg.Pricing.EstimateFeeMultiplier != 0.9 {
		t.Fatalf("estimate fee multiplier = %v", cfg.Pricing.EstimateFeeMultiplier)
	}
	if cfg.Maintenance.Interval != 10*time.Minute {
		t.Fatalf("maintenance interval = %s", cfg.Maintenance.Interval)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	cfg := base()
	cfg.Pricing.CacheTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero cache ttl should fail validation")
	}

	cfg = base()
	cfg.Pricing.EstimateFeeMultiplier = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("fee multiplier above 1 should fail validation")
	}

	cfg = base()
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("telegram without token should fail validation")
	}
}
