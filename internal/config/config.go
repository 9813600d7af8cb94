// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the bot credentials,
// database location, administrator identities, notification policy, and the
// external workflow endpoint used for answer delivery.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for the webhook server.
type CORSConfig struct {
	AllowedOrigins []string
}

// WorkflowConfig defines the external workflow engine integration. When
// BaseURL is empty the outbound answer callback is disabled entirely. APIKey
// doubles as the bearer secret checked on the inbound webhook; when empty the
// inbound check is bypassed.
type WorkflowConfig struct {
	BaseURL string // WORKFLOW_BASE_URL
	APIKey  string // WORKFLOW_API_KEY
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Bots
	ClientBotToken  string // CLIENT_BOT_TOKEN; empty disables the client bot loop
	ManagerBotToken string // MANAGER_BOT_TOKEN; empty disables the console and alerts

	// App
	DatabaseURL  string        // sqlite path or postgres:// URL
	AdminChatIDs []int64       // statically configured administrator identities
	NotifyNew    bool          // fan out alerts on new tickets
	Cooldown     time.Duration // per-manager notification cooldown
	MaxTicketLen int           // maximum question length in runes
	Timezone     string        // IANA name used for display formatting
	StatsHour    int           // wall-clock hour for the daily digest, -1 disables

	// Workflow integration
	Workflow WorkflowConfig

	// Rate limiting (webhook)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS CORSConfig
}

// Location resolves the configured display timezone. Load has already
// validated the name, so failure here is not expected; UTC is the fallback.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdmin reports whether chatID belongs to the configured administrator set.
func (c Config) IsAdmin(chatID int64) bool {
	for _, id := range c.AdminChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// Bots
		ClientBotToken:  getenv("CLIENT_BOT_TOKEN", ""),
		ManagerBotToken: getenv("MANAGER_BOT_TOKEN", ""),

		// App
		DatabaseURL:  getenv("DATABASE_URL", "tickets.db"),
		NotifyNew:    getbool("NOTIFY_MANAGERS_NEW_TICKETS", true),
		Cooldown:     time.Duration(getint("NOTIFICATION_COOLDOWN", 30)) * time.Second,
		MaxTicketLen: getint("MAX_TICKET_LENGTH", 1000),
		Timezone:     getenv("TIMEZONE", "Europe/Moscow"),
		StatsHour:    getint("DAILY_STATS_HOUR", 9),

		// Workflow integration
		Workflow: WorkflowConfig{
			BaseURL: strings.TrimRight(getenv("WORKFLOW_BASE_URL", ""), "/"),
			APIKey:  getenv("WORKFLOW_API_KEY", ""),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
	}

	ids, err := parseChatIDs(getenv("ADMIN_CHAT_IDS", ""))
	if err != nil {
		return cfg, err
	}
	cfg.AdminChatIDs = ids

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return cfg, errors.New("DATABASE_URL must not be empty")
	}
	if cfg.Cooldown < 0 {
		return cfg, errors.New("NOTIFICATION_COOLDOWN must be >= 0")
	}
	if cfg.MaxTicketLen <= 0 {
		return cfg, errors.New("MAX_TICKET_LENGTH must be > 0")
	}
	if cfg.StatsHour < -1 || cfg.StatsHour > 23 {
		return cfg, errors.New("DAILY_STATS_HOUR must be in [0,23], or -1 to disable")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return cfg, fmt.Errorf("TIMEZONE is not a valid IANA name: %w", err)
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseChatIDs parses a comma-separated list of numeric chat identifiers.
// Empty input yields an empty set; a malformed entry fails loading, since a
// silently dropped admin would lock everyone out of manager management.
func parseChatIDs(s string) ([]int64, error) {
	var out []int64
	for _, p := range strings.Split(s, ",") {
		t := strings.TrimSpace(p)
		if t == "" {
			continue
		}
		id, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_CHAT_IDS contains a non-numeric entry %q", t)
		}
		out = append(out, id)
	}
	return out, nil
}
