package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kirubel/essence-mirror/internal/style"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{65 * time.Second, "1:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.in); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrompter_Line(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("\n  travel \nlast"), &out)

	if got, err := p.Line("Focus", "wardrobe"); err != nil || got != "wardrobe" {
		t.Errorf("default: got %q, %v", got, err)
	}
	if got, err := p.Line("Focus", ""); err != nil || got != "travel" {
		t.Errorf("answer: got %q, %v", got, err)
	}
	if got, err := p.Line("Focus", ""); err != nil || got != "last" {
		t.Errorf("unterminated: got %q, %v", got, err)
	}
	if _, err := p.Line("Focus", ""); !errors.Is(err, io.EOF) {
		t.Errorf("eof: err = %v", err)
	}
	if !strings.HasPrefix(out.String(), "Focus [wardrobe]: ") {
		t.Errorf("prompt output = %q", out.String())
	}
}

func TestPrompter_Choice(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("gandalf\nAMY\n"), &out)
	got, err := p.Choice("Voice", []string{"Joanna", "Amy"}, "Joanna")
	if err != nil || got != "Amy" {
		t.Errorf("got %q, %v", got, err)
	}
	if !strings.Contains(out.String(), "Please choose one of: Joanna, Amy") {
		t.Errorf("output = %q", out.String())
	}
}

func TestResolveImagePath(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "me.jpg")
	if err := os.WriteFile(img, []byte{0xff, 0xd8}, 0o600); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if got, err := ResolveImagePath(img); err != nil || got != img {
		t.Errorf("ResolveImagePath = %q, %v", got, err)
	}
	for _, bad := range []string{dir, empty, filepath.Join(dir, "missing.jpg")} {
		if _, err := ResolveImagePath(bad); err == nil {
			t.Errorf("ResolveImagePath(%q) succeeded", bad)
		}
	}
}

func TestFormatRecommendations(t *testing.T) {
	set := style.RecommendationSet{Items: []style.Recommendation{
		{Label: "Navy blazer"},
		{Category: "Shoes", Rationale: "Grounds the look", Budget: &style.PricedOption{Brand: "Clarks", Product: "Desert boot", Price: "$90"}},
	}}
	got := FormatRecommendations(set)
	for _, want := range []string{" 1. Navy blazer", " 2. Shoes", "Grounds the look", "budget:   Clarks Desert boot ($90)"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestFormatProfile(t *testing.T) {
	got := FormatProfile(style.Profile{Archetype: "The Sage", VisualStyle: []string{"Minimal", "Neutral"}})
	if !strings.Contains(got, "The Sage") || !strings.Contains(got, "Minimal, Neutral") || strings.Contains(got, "Energetic") {
		t.Errorf("FormatProfile = %q", got)
	}
}
