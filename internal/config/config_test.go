package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func devEnv(extra map[string]string) func(string) string {
	vars := map[string]string{
		"APP_ENV":    "development",
		"BOT_TOKEN":  "123:abc",
		"JWT_SECRET": "jwt-secret",
	}
	for k, v := range extra {
		vars[k] = v
	}
	return envOf(vars)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(devEnv(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.InitDataMaxAge)
	assert.False(t, cfg.Auth.MockEnabled)
	assert.Equal(t, 60, cfg.RateLimit.APILimit)
	assert.Equal(t, 5, cfg.RateLimit.AuthLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.AuthWindow)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.TrustedProxies)
}

func TestParse_TrustedProxies(t *testing.T) {
	cfg, err := Parse(devEnv(map[string]string{"TRUSTED_PROXIES": " 10.0.0.0/8, 127.0.0.1 ,"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse(devEnv(map[string]string{
		"SESSION_TTL":              "2h",
		"INIT_DATA_MAX_AGE":        "90s",
		"AUTH_RATE_LIMIT":          "10",
		"AUTH_RATE_WINDOW_SECONDS": "30",
		"EVENTS_ENABLED":           "false",
		"AUTH_MOCK_ENABLED":        "true",
		"AUTH_MOCK_TELEGRAM_ID":    "42",
	}))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 90*time.Second, cfg.Auth.InitDataMaxAge)
	assert.Equal(t, 10, cfg.RateLimit.AuthLimit)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.AuthWindow)
	assert.False(t, cfg.Events.Enabled)
	assert.True(t, cfg.Auth.MockEnabled)
	assert.Equal(t, int64(42), cfg.Auth.MockTelegramID)
}

func TestParse_DefaultsToProduction(t *testing.T) {
	_, err := Parse(envOf(map[string]string{
		"BOT_TOKEN":  "123:abc",
		"JWT_SECRET": "jwt-secret",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	cfg, err := Parse(envOf(map[string]string{
		"BOT_TOKEN":    "123:abc",
		"JWT_SECRET":   "jwt-secret",
		"DATABASE_URL": "postgres://localhost/tma",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]struct {
		env  func(string) string
		want string
	}{
		"missing bot token": {
			env:  devEnv(map[string]string{"BOT_TOKEN": ""}),
			want: "BOT_TOKEN",
		},
		"missing jwt secret": {
			env:  devEnv(map[string]string{"JWT_SECRET": ""}),
			want: "JWT_SECRET",
		},
		"jwt secret reuses bot token": {
			env:  devEnv(map[string]string{"JWT_SECRET": "123:abc"}),
			want: "must differ",
		},
		"mock in production": {
			env: envOf(map[string]string{
				"BOT_TOKEN":         "123:abc",
				"JWT_SECRET":        "jwt-secret",
				"DATABASE_URL":      "postgres://localhost/tma",
				"AUTH_MOCK_ENABLED": "true",
			}),
			want: "AUTH_MOCK_ENABLED",
		},
		"unknown env": {
			env:  devEnv(map[string]string{"APP_ENV": "staging"}),
			want: "APP_ENV",
		},
		"bad trusted proxy": {
			env:  devEnv(map[string]string{"TRUSTED_PROXIES": "10.0.0.0/8, not-an-ip"}),
			want: "TRUSTED_PROXIES",
		},
		"non-positive ttl": {
			env:  devEnv(map[string]string{"SESSION_TTL": "-1h"}),
			want: "SESSION_TTL",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tc.env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
