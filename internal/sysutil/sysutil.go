// Package sysutil holds small cross-cutting helpers: global log level setup
// and string utilities shared by the command and presentation layers.
package sysutil

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// IsTruthy reports whether an environment variable string should be
// considered true. Accepted values (case-insensitive): "1", "true", "yes",
// "y", "on".
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// FirstNonEmpty returns the first non-empty string from a variadic list, or
// "" when all values are empty.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// unsafeFilenameRE matches runs of characters not allowed in attachment
// filenames.
var unsafeFilenameRE = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeFilename derives a filesystem- and attachment-safe name from a card
// name: unsafe character runs become hyphens, surrounding punctuation is
// stripped, and the result is capped at 64 bytes. An empty result falls back
// to "card".
func SafeFilename(name string) string {
	safe := unsafeFilenameRE.ReplaceAllString(strings.ToLower(name), "-")
	safe = strings.Trim(safe, "-._")
	if safe == "" {
		return "card"
	}
	if len(safe) > 64 {
		safe = safe[:64]
	}
	return safe
}
