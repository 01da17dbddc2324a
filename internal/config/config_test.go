package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("APIBasePath = %q", cfg.APIBasePath)
	}
	if cfg.CommandPrefix != "!" {
		t.Fatalf("CommandPrefix = %q", cfg.CommandPrefix)
	}
	if cfg.Scryfall.BaseURL != "https://api.scryfall.com" {
		t.Fatalf("BaseURL = %q", cfg.Scryfall.BaseURL)
	}
	if cfg.Scryfall.GateInterval != 100*time.Millisecond {
		t.Fatalf("GateInterval = %v", cfg.Scryfall.GateInterval)
	}
	if cfg.Guard.UserCooldown != 3*time.Second {
		t.Fatalf("UserCooldown = %v", cfg.Guard.UserCooldown)
	}
	if cfg.Guard.DuplicateWindow != 2500*time.Millisecond {
		t.Fatalf("DuplicateWindow = %v", cfg.Guard.DuplicateWindow)
	}
	if cfg.Guard.ProcessedIDCap != 1000 || cfg.Guard.ProcessedIDKeep != 500 {
		t.Fatalf("cap/keep = %d/%d", cfg.Guard.ProcessedIDCap, cfg.Guard.ProcessedIDKeep)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("GinMode = %q", cfg.GinMode)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("SCRYFALL_BASE_URL", "https://cards.example.com/")
	t.Setenv("SCRYFALL_GATE_INTERVAL", "250ms")
	t.Setenv("GUARD_USER_COOLDOWN", "5s")
	t.Setenv("COMMAND_PREFIX", "?!")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.Scryfall.BaseURL != "https://cards.example.com" {
		t.Fatalf("trailing slash must be stripped: %q", cfg.Scryfall.BaseURL)
	}
	if cfg.Scryfall.GateInterval != 250*time.Millisecond {
		t.Fatalf("GateInterval = %v", cfg.Scryfall.GateInterval)
	}
	if cfg.Guard.UserCooldown != 5*time.Second {
		t.Fatalf("UserCooldown = %v", cfg.Guard.UserCooldown)
	}
	if cfg.CommandPrefix != "?!" {
		t.Fatalf("CommandPrefix = %q", cfg.CommandPrefix)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_NormalizesValues(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "bogus")
	t.Setenv("API_BASE_PATH", "api/v2/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("GinMode = %q", cfg.GinMode)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Fatalf("APIBasePath = %q", cfg.APIBasePath)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		key, val string
	}{
		{"LOG_LEVEL", "verbose"},
		{"SCRYFALL_GATE_INTERVAL", "-1s"},
		{"GUARD_USER_COOLDOWN", "-3s"},
		{"GUARD_PROCESSED_ID_KEEP", "2000"},
		{"READ_TIMEOUT", "-5s"},
		{"OTEL_TRACES_SAMPLER_ARG", "1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s must fail validation", tc.key, tc.val)
			}
		})
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad must panic on invalid configuration")
		}
	}()
	MustLoad()
}
