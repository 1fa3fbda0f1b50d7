package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "PORT", "TABLE_PREFIX", "REWRITE_TIMEOUT", "INTERNAL_API_URL", "OPENROUTER_API_KEY", "AUTH_DISABLED", "SUPABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Environment != "dev" || cfg.Port != "8080" {
		t.Errorf("got env=%q port=%q", cfg.Environment, cfg.Port)
	}
	if cfg.TablePrefix != "dev_" {
		t.Errorf("TablePrefix = %q, want dev_", cfg.TablePrefix)
	}
	if cfg.RewriteTimeout != DefaultRewriteTimeout {
		t.Errorf("RewriteTimeout = %v, want %v", cfg.RewriteTimeout, DefaultRewriteTimeout)
	}
	if cfg.InternalAPIURL != "http://localhost:8080" {
		t.Errorf("InternalAPIURL = %q", cfg.InternalAPIURL)
	}
	if cfg.HasRewriteCredential() {
		t.Error("HasRewriteCredential() = true without a key")
	}
	if cfg.SupabaseJWKSURL != "" {
		t.Errorf("SupabaseJWKSURL = %q, want empty", cfg.SupabaseJWKSURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("PORT", "9000")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("INTERNAL_API_URL", "")
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg := Load()
	if cfg.TablePrefix != "prod_" {
		t.Errorf("TablePrefix = %q, want prod_", cfg.TablePrefix)
	}
	if cfg.AuthDisabled {
		t.Error("AuthDisabled must stay off outside dev")
	}
	if cfg.SupabaseJWKSURL != "https://example.supabase.co/auth/v1/.well-known/jwks.json" {
		t.Errorf("SupabaseJWKSURL = %q", cfg.SupabaseJWKSURL)
	}
	if cfg.InternalAPIURL != "http://localhost:9000" {
		t.Errorf("InternalAPIURL = %q", cfg.InternalAPIURL)
	}
	if !cfg.HasRewriteCredential() {
		t.Error("HasRewriteCredential() = false with a key")
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", DefaultRewriteTimeout},
		{"30s", 30 * time.Second},
		{"20", 20 * time.Second},
		{"-5s", DefaultRewriteTimeout},
		{"soon", DefaultRewriteTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("REWRITE_TIMEOUT", tt.value)
			if got := getEnvDuration("REWRITE_TIMEOUT", DefaultRewriteTimeout); got != tt.want {
				t.Errorf("getEnvDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
