// Package config loads the server settings: an optional TOML file first,
// then environment variables, then defaults for anything still unset.
//
//	port = 8080
//	db_path = "data/socialboard.db"
//	jwt_secret = "..."
//	session_ttl = "168h"
//	backend_timeout = "10s"
//	fetch_retries = 2
//	persist_state = true
//	log_level = "info"
//	bcrypt_cost = 12
//	admin_emails = ["root@example.com"]
//
//	[github]
//	client_id = "..."
//	client_secret = "..."
//	callback_url = "http://localhost:8080/auth/github/callback"
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPort           = 8080
	defaultDBPath         = "data/socialboard.db"
	defaultSessionTTL     = 7 * 24 * time.Hour
	defaultBackendTimeout = 10 * time.Second
	defaultFetchRetries   = 2
	defaultLogLevel       = "info"
	minSecretLength       = 16
)

// Config holds everything the server needs to start.
type Config struct {
	Port           int
	DBPath         string
	JWTSecret      string // empty: sessions do not survive a restart
	SessionTTL     time.Duration
	BackendTimeout time.Duration
	FetchRetries   int
	PersistState   bool
	LogLevel       string
	GitHub         GitHub

	// BcryptCost is the password hashing work factor. Zero uses the
	// password service's default.
	BcryptCost int

	// AdminEmails are promoted to admin when they sign in.
	AdminEmails []string
}

// GitHub holds the OAuth App credentials. Sign-in with GitHub is enabled
// only when both the client id and secret are set.
type GitHub struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

func (g GitHub) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type fileConfig struct {
	Port           int    `toml:"port"`
	DBPath         string `toml:"db_path"`
	JWTSecret      string `toml:"jwt_secret"`
	SessionTTL     string `toml:"session_ttl"`
	BackendTimeout string `toml:"backend_timeout"`
	FetchRetries   *int   `toml:"fetch_retries"`
	PersistState   *bool  `toml:"persist_state"`
	LogLevel       string   `toml:"log_level"`
	BcryptCost     int      `toml:"bcrypt_cost"`
	AdminEmails    []string `toml:"admin_emails"`
	GitHub         struct {
		ClientID     string `toml:"client_id"`
		ClientSecret string `toml:"client_secret"`
		CallbackURL  string `toml:"callback_url"`
	} `toml:"github"`
}

// Load reads path (if non-empty and present), applies environment overrides
// and fills in defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{PersistState: true, FetchRetries: defaultFetchRetries}

	if strings.TrimSpace(path) != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	c.Port = raw.Port
	c.DBPath = strings.TrimSpace(raw.DBPath)
	c.JWTSecret = strings.TrimSpace(raw.JWTSecret)
	c.LogLevel = strings.TrimSpace(raw.LogLevel)
	c.BcryptCost = raw.BcryptCost
	c.AdminEmails = cleanEmails(raw.AdminEmails)
	c.GitHub = GitHub{
		ClientID:     strings.TrimSpace(raw.GitHub.ClientID),
		ClientSecret: strings.TrimSpace(raw.GitHub.ClientSecret),
		CallbackURL:  strings.TrimSpace(raw.GitHub.CallbackURL),
	}
	if raw.FetchRetries != nil {
		c.FetchRetries = *raw.FetchRetries
	}
	if raw.PersistState != nil {
		c.PersistState = *raw.PersistState
	}
	if c.SessionTTL, err = parseDuration("session_ttl", raw.SessionTTL); err != nil {
		return err
	}
	if c.BackendTimeout, err = parseDuration("backend_timeout", raw.BackendTimeout); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	if v, ok := lookup("PORT"); ok {
		if c.Port, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid PORT %q", v)
		}
	}
	if v, ok := lookup("DB_PATH"); ok {
		c.DBPath = v
	}
	if v, ok := lookup("JWT_SECRET"); ok {
		c.JWTSecret = v
	}
	if v, ok := lookup("GITHUB_CLIENT_ID"); ok {
		c.GitHub.ClientID = v
	}
	if v, ok := lookup("GITHUB_CLIENT_SECRET"); ok {
		c.GitHub.ClientSecret = v
	}
	if v, ok := lookup("GITHUB_CALLBACK_URL"); ok {
		c.GitHub.CallbackURL = v
	}
	if v, ok := lookup("SESSION_TTL"); ok {
		if c.SessionTTL, err = parseDuration("SESSION_TTL", v); err != nil {
			return err
		}
	}
	if v, ok := lookup("BACKEND_TIMEOUT"); ok {
		if c.BackendTimeout, err = parseDuration("BACKEND_TIMEOUT", v); err != nil {
			return err
		}
	}
	if v, ok := lookup("FETCH_RETRIES"); ok {
		if c.FetchRetries, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid FETCH_RETRIES %q", v)
		}
	}
	if v, ok := lookup("PERSIST_STATE"); ok {
		if c.PersistState, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("invalid PERSIST_STATE %q", v)
		}
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("BCRYPT_COST"); ok {
		if c.BcryptCost, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid BCRYPT_COST %q", v)
		}
	}
	if v, ok := lookup("ADMIN_EMAILS"); ok {
		c.AdminEmails = cleanEmails(strings.Split(v, ","))
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.BackendTimeout == 0 {
		c.BackendTimeout = defaultBackendTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.GitHub.CallbackURL == "" {
		c.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", c.Port)
	}
}

// Validate reports the first setting the server cannot start with.
func (c Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("port %d is out of range", c.Port)
	case c.JWTSecret != "" && len(c.JWTSecret) < minSecretLength:
		return fmt.Errorf("JWT secret must be at least %d characters", minSecretLength)
	case c.SessionTTL < 0:
		return errors.New("session TTL must be positive")
	case c.BackendTimeout < 0:
		return errors.New("backend timeout must be positive")
	case c.FetchRetries < 0:
		return errors.New("fetch retries must not be negative")
	case c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost):
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	case (c.GitHub.ClientID == "") != (c.GitHub.ClientSecret == ""):
		return errors.New("GitHub sign-in needs both a client id and a client secret")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// cleanEmails trims and lowercases emails, dropping blanks.
func cleanEmails(raw []string) []string {
	var out []string
	for _, e := range raw {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func parseDuration(name, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return d, nil
}
