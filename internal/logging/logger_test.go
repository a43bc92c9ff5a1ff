package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("ESSENCE_TEST_VALUE", "")
	if got := EnvOrDefault("ESSENCE_TEST_VALUE", "fallback"); got != "fallback" {
		t.Errorf("EnvOrDefault() = %q, want fallback", got)
	}
	t.Setenv("ESSENCE_TEST_VALUE", "set")
	if got := EnvOrDefault("ESSENCE_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("EnvOrDefault() = %q, want set", got)
	}
}
