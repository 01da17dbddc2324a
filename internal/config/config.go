// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the upstream card API, the outbound
// politeness gate, and the inbound duplicate-suppression guard.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// ScryfallConfig defines settings for the upstream card-data API client.
type ScryfallConfig struct {
	BaseURL      string        // SCRYFALL_BASE_URL
	UserAgent    string        // SCRYFALL_USER_AGENT
	Timeout      time.Duration // SCRYFALL_TIMEOUT (per-request)
	GateInterval time.Duration // SCRYFALL_GATE_INTERVAL (min spacing between calls)
}

// GuardConfig defines the inbound duplicate-suppression windows.
type GuardConfig struct {
	UserCooldown    time.Duration // GUARD_USER_COOLDOWN (min interval per user)
	DuplicateWindow time.Duration // GUARD_DUPLICATE_WINDOW (same text, same user)
	SweepInterval   time.Duration // GUARD_SWEEP_INTERVAL
	Retention       time.Duration // GUARD_RETENTION (entry max age)
	ProcessedIDCap  int           // GUARD_PROCESSED_ID_CAP (sweep trigger)
	ProcessedIDKeep int           // GUARD_PROCESSED_ID_KEEP (kept after truncation)
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-card-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
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

	// App
	APIBasePath   string // base path for API routes
	DBPath        string // SQLite path for the lookup audit trail
	CommandPrefix string // chat command prefix, e.g. "!"

	// Upstream card API
	Scryfall ScryfallConfig

	// Inbound guard
	Guard GuardConfig

	// Web protection
	CORS CORSConfig

	// Observability
	OTEL OTELConfig
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

		// App
		APIBasePath:   normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),
		DBPath:        getenv("DB_PATH", "cardbot.db"),
		CommandPrefix: getenv("COMMAND_PREFIX", "!"),

		// Upstream card API
		Scryfall: ScryfallConfig{
			BaseURL:      strings.TrimRight(getenv("SCRYFALL_BASE_URL", "https://api.scryfall.com"), "/"),
			UserAgent:    getenv("SCRYFALL_USER_AGENT", "go-card-bot/1.0"),
			Timeout:      getdur("SCRYFALL_TIMEOUT", 30*time.Second),
			GateInterval: getdur("SCRYFALL_GATE_INTERVAL", 100*time.Millisecond),
		},

		// Inbound guard
		Guard: GuardConfig{
			UserCooldown:    getdur("GUARD_USER_COOLDOWN", 3*time.Second),
			DuplicateWindow: getdur("GUARD_DUPLICATE_WINDOW", 2500*time.Millisecond),
			SweepInterval:   getdur("GUARD_SWEEP_INTERVAL", time.Minute),
			Retention:       getdur("GUARD_RETENTION", 5*time.Minute),
			ProcessedIDCap:  getint("GUARD_PROCESSED_ID_CAP", 1000),
			ProcessedIDKeep: getint("GUARD_PROCESSED_ID_KEEP", 500),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-card-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

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
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.CommandPrefix == "" {
		return cfg, errors.New("COMMAND_PREFIX must not be empty")
	}
	if strings.TrimSpace(cfg.Scryfall.BaseURL) == "" {
		return cfg, errors.New("SCRYFALL_BASE_URL must not be empty")
	}
	if cfg.Scryfall.Timeout <= 0 {
		return cfg, errors.New("SCRYFALL_TIMEOUT must be > 0")
	}
	if cfg.Scryfall.GateInterval <= 0 {
		return cfg, errors.New("SCRYFALL_GATE_INTERVAL must be > 0")
	}
	if cfg.Guard.UserCooldown <= 0 || cfg.Guard.DuplicateWindow <= 0 {
		return cfg, errors.New("guard windows must be positive durations")
	}
	if cfg.Guard.SweepInterval <= 0 || cfg.Guard.Retention <= 0 {
		return cfg, errors.New("guard sweep settings must be positive durations")
	}
	if cfg.Guard.ProcessedIDKeep <= 0 || cfg.Guard.ProcessedIDCap < cfg.Guard.ProcessedIDKeep {
		return cfg, errors.New("GUARD_PROCESSED_ID_CAP must be >= GUARD_PROCESSED_ID_KEEP (> 0)")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
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

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
