package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 5*time.Minute, cfg.AdapterCacheTTL)
	assert.InDelta(t, 0.2, cfg.SourceEMAAlpha, 1e-9)
	assert.Equal(t, []string{"nba"}, cfg.SupportedSports)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CorsOrigins)
	assert.Equal(t, 10, cfg.ModelMaxVersions)
	assert.Equal(t, -119, cfg.DefaultPickPrice)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "s3cr3t-from-vault")
	t.Setenv("SYNC_INTERVAL", "90s")
	t.Setenv("SUPPORTED_SPORTS", "nba, nfl ,mlb")
	t.Setenv("RATE_LIMIT_HEAVY", "5/10s")
	t.Setenv("ALERT_PHONE_NUMBERS", "+15551234567")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 90*time.Second, cfg.SyncInterval)
	assert.Equal(t, []string{"nba", "nfl", "mlb"}, cfg.SupportedSports)
	assert.Equal(t, []string{"+15551234567"}, cfg.AlertPhoneNumbers)

	rule, err := cfg.RateLimitRule("heavy")
	require.NoError(t, err)
	assert.Equal(t, RateLimitRule{Requests: 5, Window: 10 * time.Second}, rule)
}

func TestLoadConfig_InvalidAlpha(t *testing.T) {
	t.Setenv("SOURCE_EMA_ALPHA", "1.5")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_ProductionJWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		secret  string
		wantErr bool
	}{
		{name: "production with default secret", env: "production", wantErr: true},
		{name: "production with explicit default", env: "production", secret: "your-secret-key", wantErr: true},
		{name: "production with real secret", env: "production", secret: "s3cr3t-from-vault"},
		{name: "development keeps default", env: "development"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV", tt.env)
			if tt.secret != "" {
				t.Setenv("JWT_SECRET", tt.secret)
			}

			cfg, err := LoadConfig()
			if tt.wantErr {
				assert.ErrorContains(t, err, "JWT_SECRET")
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.JWTSecret)
		})
	}
}

func TestParseRateLimit(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    RateLimitRule
		wantErr bool
	}{
		{name: "minutes", raw: "100/15m", want: RateLimitRule{Requests: 100, Window: 15 * time.Minute}},
		{name: "spaces", raw: " 10 / 1h ", want: RateLimitRule{Requests: 10, Window: time.Hour}},
		{name: "missing window", raw: "100", wantErr: true},
		{name: "zero requests", raw: "0/1m", wantErr: true},
		{name: "bad window", raw: "10/forever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRateLimit(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimitRule_UnknownClass(t *testing.T) {
	cfg := &Config{}
	_, err := cfg.RateLimitRule("burst")
	assert.Error(t, err)
}
