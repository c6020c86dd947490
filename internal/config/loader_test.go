package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}
	}
}

func requiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ROOMBOOKING_JWT_SECRET", "jwt-secret")
	t.Setenv("ROOMBOOKING_CONFIRM_SECRET", "confirm-secret")
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)
		requiredEnv(t)

		cfg, err := Load(nil)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.Store != StoreSQLite || cfg.SQLiteDSN != "room-booking.db" {
			t.Fatalf("unexpected default store: %q %q", cfg.Store, cfg.SQLiteDSN)
		}
		if cfg.RequestPollInterval != 5*time.Second || cfg.SchedulePollInterval != 15*time.Second {
			t.Fatalf("unexpected poll intervals: %s %s", cfg.RequestPollInterval, cfg.SchedulePollInterval)
		}
		if cfg.RevertPolicy != "best_effort" || cfg.MaxWeeks != 52 || cfg.LeaseTTL != 30*time.Second {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
		if cfg.JWTSecret != "jwt-secret" || cfg.ConfirmSecret != "confirm-secret" {
			t.Fatalf("expected secrets from the environment, got %+v", cfg)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)

		_, err := Load(nil)
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "必須の設定値が指定されていません: jwt_secret, confirm_secret"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnv(t)
		requiredEnv(t)
		t.Setenv("ROOMBOOKING_HTTP_PORT", "abc")
		t.Setenv("ROOMBOOKING_LEASE_TTL", "-1s")
		t.Setenv("ROOMBOOKING_STORE", "mongo")

		_, err := Load(nil)
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "設定値が不正です: http_port, lease_ttl, store"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		clearEnv(t)
		requiredEnv(t)
		t.Setenv("ROOMBOOKING_HTTP_PORT", "9090")
		t.Setenv("ROOMBOOKING_REQUEST_POLL_INTERVAL", "2s")
		t.Setenv("ROOMBOOKING_RATE_LIMIT_PER_MINUTE", "30")
		t.Setenv("ROOMBOOKING_STORE", "postgres")
		t.Setenv("ROOMBOOKING_POSTGRES_URL", "postgres://localhost/rooms")

		cfg, err := Load(nil)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.RequestPollInterval != 2*time.Second {
			t.Fatalf("expected request poll interval 2s, got %s", cfg.RequestPollInterval)
		}
		if cfg.RateLimitPerMinute != 30 {
			t.Fatalf("expected rate limit 30, got %d", cfg.RateLimitPerMinute)
		}
		if cfg.Store != StorePostgres || cfg.PostgresURL != "postgres://localhost/rooms" {
			t.Fatalf("unexpected store config: %q %q", cfg.Store, cfg.PostgresURL)
		}
	})

	t.Run("postgres requires a url", func(t *testing.T) {
		clearEnv(t)
		requiredEnv(t)
		t.Setenv("ROOMBOOKING_STORE", "postgres")

		_, err := Load(nil)
		if err == nil || !strings.Contains(err.Error(), "postgres_url") {
			t.Fatalf("expected missing postgres_url, got %v", err)
		}
	})
}

func TestLoader_FlagsAndFile(t *testing.T) {
	clearEnv(t)
	requiredEnv(t)
	t.Setenv("ROOMBOOKING_HTTP_PORT", "7000")

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "store: memory\nrevert_policy: strict\nschedule_poll_interval: 30s\nhttp_port: 6000\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load([]string{"--config", path, "--http-port", "9999", "--timezone", "UTC"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 9999 {
		t.Fatalf("expected flag to win, got %d", cfg.HTTPPort)
	}
	if cfg.Store != StoreMemory || cfg.RevertPolicy != "strict" || cfg.SchedulePollInterval != 30*time.Second {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC location, got %v (%v)", loc, err)
	}

	cfg, err = Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 7000 {
		t.Fatalf("expected environment to win over file, got %d", cfg.HTTPPort)
	}

	if _, err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
	if _, err := Load([]string{"--no-such-flag"}); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}
