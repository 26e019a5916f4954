package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppPort != "8080" {
		t.Fatalf("AppPort = %q; want 8080", cfg.AppPort)
	}
	if cfg.ConflictRetries != 3 {
		t.Fatalf("ConflictRetries = %d; want 3", cfg.ConflictRetries)
	}
	if cfg.APIRateWindow != time.Minute {
		t.Fatalf("APIRateWindow = %v; want 1m", cfg.APIRateWindow)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORSAllowedOrigins = %v; want [*]", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://tasks@localhost/tasks")
	t.Setenv("API_RATE_WINDOW", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DEFAULT_PAGE_SIZE", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIRateWindow != 30*time.Second {
		t.Fatalf("APIRateWindow = %v; want 30s", cfg.APIRateWindow)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("CORSAllowedOrigins = %v; want 2 origins", cfg.CORSAllowedOrigins)
	}
	if cfg.DefaultPageSize != 25 {
		t.Fatalf("DefaultPageSize = %d; want 25", cfg.DefaultPageSize)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mysql")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestLoadWrapsParseErrors(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("CONFLICT_RETRIES", "three")

	_, err := Load()
	if err == nil || !strings.HasPrefix(err.Error(), "parse config: ") {
		t.Fatalf("err = %v; want wrapped parse error", err)
	}
}

func TestValidateRejectsNegativeLimits(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("REBALANCE_RATE_LIMIT", "-1")

	if _, err := Load(); err == nil || err.Error() != "REBALANCE_RATE_LIMIT must not be negative" {
		t.Fatalf("err = %v", err)
	}
}
