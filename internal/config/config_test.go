package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")
}

func TestParseDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Parse()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, ":8080", cfg.Addr())
	require.Equal(t, DriverMemory, cfg.StoreDriver)
	require.Equal(t, "crm", cfg.DBName)
	require.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 10, cfg.BcryptCost)
	require.Equal(t, 5*time.Minute, cfg.RosterCacheTTL)
	require.Equal(t, 60, cfg.RateLimitRPM)
	require.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	require.Equal(t, []string{"Authorization", "Content-Type"}, cfg.CORSAllowedHeaders)
	require.True(t, cfg.IsDevelopment())
	require.Empty(t, cfg.TrustedProxies)
	require.False(t, cfg.TelemetryInsecure)
	require.Equal(t, 1.0, cfg.TelemetrySampling)
}

func TestParseOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ADMIN_EMAIL", "  Root@Example.com ")
	t.Setenv("ADMIN_PASSWORD", "secret")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 172.16.0.0/12")

	cfg, err := Parse()
	require.NoError(t, err)

	require.False(t, cfg.IsDevelopment())
	require.Equal(t, ":9090", cfg.Addr())
	require.Equal(t, 2*time.Hour, cfg.TokenTTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, "root@example.com", cfg.AdminEmail)
	require.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.TrustedProxies)
}

func TestParseRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}, want: "JWT_SECRET is required"},
		{name: "mongo without uri", env: map[string]string{"STORE_DRIVER": "mongo"}, want: "MONGO_URI is required"},
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "sqlite"}, want: "STORE_DRIVER must be"},
		{name: "bcrypt cost", env: map[string]string{"BCRYPT_COST": "40"}, want: "BCRYPT_COST must be between"},
		{name: "bad proxy", env: map[string]string{"TRUSTED_PROXIES": "proxy.internal"}, want: "TRUSTED_PROXIES entry"},
		{name: "bad proxy cidr", env: map[string]string{"TRUSTED_PROXIES": "10.0.0.0/99"}, want: "TRUSTED_PROXIES entry"},
		{name: "sample ratio", env: map[string]string{"OTEL_SAMPLE_RATIO": "1.5"}, want: "OTEL_SAMPLE_RATIO"},
		{name: "half admin", env: map[string]string{"ADMIN_EMAIL": "a@b.c"}, want: "must be set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Parse()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	// godotenv never overrides variables that are already set.
	for _, key := range []string{"JWT_SECRET", "PORT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("STORE_DRIVER", "memory")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nPORT=7070\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.JWTSecret)
	require.Equal(t, "7070", cfg.Port)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
}
