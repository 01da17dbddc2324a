package sysutil

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Errorf("SetLogLevel(%q): level = %v, want %v", tc.in, got, tc.want)
		}
	}
	SetLogLevel("info")
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on ", "y"} {
		if !IsTruthy(v) {
			t.Errorf("IsTruthy(%q) = false", v)
		}
	}
	for _, v := range []string{"", "0", "false", "off", "maybe"} {
		if IsTruthy(v) {
			t.Errorf("IsTruthy(%q) = true", v)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "x", "y"); got != "x" {
		t.Fatalf("got %q", got)
	}
	if got := FirstNonEmpty("", " "); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestSafeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Lightning Bolt", "lightning-bolt"},
		{"Fire // Ice", "fire-ice"},
		{"...", "card"},
		{"", "card"},
		{"Jace, the Mind Sculptor!", "jace-the-mind-sculptor"},
	}
	for _, tc := range cases {
		if got := SafeFilename(tc.in); got != tc.want {
			t.Errorf("SafeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := SafeFilename(strings.Repeat("a", 100))
	if len(long) != 64 {
		t.Fatalf("len = %d, want 64", len(long))
	}
}
