package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("HTTP_TIMEOUT", "")
	t.Setenv("SEARCH_CACHE_SIZE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Providers.HTTPTimeout != 10*time.Second {
		t.Errorf("Expected 10s HTTP timeout, got %v", cfg.Providers.HTTPTimeout)
	}
	if cfg.Providers.ListingTimeout != 60*time.Second {
		t.Errorf("Expected 60s listing timeout, got %v", cfg.Providers.ListingTimeout)
	}
	if cfg.Cache.SearchTTL != 600*time.Second {
		t.Errorf("Expected 600s search TTL, got %v", cfg.Cache.SearchTTL)
	}
	if cfg.Cache.SearchSize != 1000 {
		t.Errorf("Expected search cache size 1000, got %d", cfg.Cache.SearchSize)
	}
	if cfg.Server.Addr != cfg.Server.Host+":"+cfg.Server.Port {
		t.Errorf("Addr not combined from host and port: %s", cfg.Server.Addr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "5")
	t.Setenv("LISTING_TIMEOUT", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Providers.HTTPTimeout != 5*time.Second {
		t.Errorf("Expected bare number to be read as seconds, got %v", cfg.Providers.HTTPTimeout)
	}
	if cfg.Providers.ListingTimeout != 2*time.Minute {
		t.Errorf("Expected 2m listing timeout, got %v", cfg.Providers.ListingTimeout)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("Expected 2 origins, got %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("HTTP_TIMEOUT", "soon")
		if _, err := Load(); err == nil {
			t.Error("Expected error for invalid HTTP_TIMEOUT")
		}
	})

	t.Run("invalid integer", func(t *testing.T) {
		t.Setenv("SEARCH_CACHE_SIZE", "many")
		if _, err := Load(); err == nil {
			t.Error("Expected error for invalid SEARCH_CACHE_SIZE")
		}
	})
}
