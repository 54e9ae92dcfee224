package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "DB_PATH", "JWT_SECRET", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET",
	"GITHUB_CALLBACK_URL", "SESSION_TTL", "BACKEND_TIMEOUT", "FETCH_RETRIES",
	"PERSIST_STATE", "LOG_LEVEL", "BCRYPT_COST", "ADMIN_EMAILS",
}

// clearEnv blanks every variable Load reads; blank values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "socialboard.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, defaultDBPath, cfg.DBPath)
	assert.Equal(t, defaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, defaultBackendTimeout, cfg.BackendTimeout)
	assert.Equal(t, defaultFetchRetries, cfg.FetchRetries)
	assert.True(t, cfg.PersistState)
	assert.False(t, cfg.GitHub.Enabled())
	assert.Equal(t, "http://localhost:8080/auth/github/callback", cfg.GitHub.CallbackURL)
	assert.Zero(t, cfg.BcryptCost)
	assert.Empty(t, cfg.AdminEmails)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.Port)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port = 9090
db_path = "  /var/lib/socialboard.db  "
jwt_secret = "file-secret-that-is-long-enough"
session_ttl = "1h"
backend_timeout = "3s"
fetch_retries = 0
persist_state = false
log_level = "debug"
bcrypt_cost = 10
admin_emails = [" Root@Example.com ", ""]

[github]
client_id = "id"
client_secret = "secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/var/lib/socialboard.db", cfg.DBPath)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 0, cfg.FetchRetries)
	assert.False(t, cfg.PersistState)
	assert.True(t, cfg.GitHub.Enabled())
	assert.Equal(t, "http://localhost:9090/auth/github/callback", cfg.GitHub.CallbackURL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, []string{"root@example.com"}, cfg.AdminEmails)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port = 9090
log_level = "debug"
`)
	t.Setenv("PORT", "7000")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PERSIST_STATE", "false")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("GITHUB_CALLBACK_URL", "https://board.example/auth/github/callback")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("ADMIN_EMAILS", "a@example.com, B@example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.PersistState)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "https://board.example/auth/github/callback", cfg.GitHub.CallbackURL)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AdminEmails)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{name: "bad toml", file: `port = `, want: "parse config"},
		{name: "bad duration in file", file: `session_ttl = "a week"`, want: "session_ttl"},
		{name: "bad port env", env: map[string]string{"PORT": "eighty"}, want: "PORT"},
		{name: "port out of range", env: map[string]string{"PORT": "70000"}, want: "out of range"},
		{name: "short secret", env: map[string]string{"JWT_SECRET": "short"}, want: "at least 16"},
		{name: "bad retries", env: map[string]string{"FETCH_RETRIES": "-1"}, want: "negative"},
		{name: "bad bool", env: map[string]string{"PERSIST_STATE": "sometimes"}, want: "PERSIST_STATE"},
		{name: "bad level", env: map[string]string{"LOG_LEVEL": "chatty"}, want: "log level"},
		{name: "bad bcrypt env", env: map[string]string{"BCRYPT_COST": "fast"}, want: "BCRYPT_COST"},
		{name: "bcrypt too cheap", file: `bcrypt_cost = 2`, want: "bcrypt cost"},
		{name: "bcrypt too dear", env: map[string]string{"BCRYPT_COST": "32"}, want: "bcrypt cost"},
		{name: "half github", env: map[string]string{"GITHUB_CLIENT_ID": "id"}, want: "client secret"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.file != "" {
				path = writeConfig(t, tc.file)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.want), "error %q should mention %q", err, tc.want)
		})
	}
}
