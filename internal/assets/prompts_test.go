package assets

import (
	"strings"
	"testing"
)

func TestRenderReelPrompt(t *testing.T) {
	got := RenderReelPrompt(ReelData{Look: "travel-ready outfits", Recommendations: []string{"linen shirt", "white sneakers"}})
	want := "Transform this person into travel-ready outfits, linen shirt, white sneakers, maintain their facial features and body type, show them wearing the recommended styles, professional styling, high-quality fashion transformation"
	if got != want {
		t.Errorf("prompt =\n%q\nwant\n%q", got, want)
	}
}

func TestRenderVoiceSystemPrompt(t *testing.T) {
	bare := RenderVoiceSystemPrompt(ProfileData{})
	if strings.Contains(bare, "Archetype") {
		t.Errorf("profile block rendered without archetype:\n%s", bare)
	}

	withProfile := RenderVoiceSystemPrompt(ProfileData{Archetype: "The Explorer", VisualStyle: []string{"Rugged", "Earthy"}})
	for _, want := range []string{"Archetype: The Explorer", "Visual style: Rugged, Earthy"} {
		if !strings.Contains(withProfile, want) {
			t.Errorf("prompt missing %q:\n%s", want, withProfile)
		}
	}
	if strings.Contains(withProfile, "Energetic essence") {
		t.Errorf("empty essence rendered:\n%s", withProfile)
	}
}

func TestRenderNarration_AllSections(t *testing.T) {
	data := NarrationData{
		ProfileData:     ProfileData{Archetype: "Urban Professional", VisualStyle: []string{"Polished"}, EnergeticEssence: []string{"Focused"}},
		Recommendations: []string{"Navy blazer", "Leather loafers"},
		Focus:           "wardrobe",
	}
	for _, section := range NarrationSections {
		t.Run(section, func(t *testing.T) {
			got, err := RenderNarration(section, data)
			if err != nil {
				t.Fatalf("RenderNarration: %v", err)
			}
			if got == "" || strings.Contains(got, "\n") || strings.Contains(got, "  ") {
				t.Errorf("script not normalised: %q", got)
			}
		})
	}
}

func TestRenderNarration_Details(t *testing.T) {
	got, _ := RenderNarration("style_analysis", NarrationData{ProfileData: ProfileData{Archetype: "Urban Professional"}})
	if !strings.Contains(got, "an Urban Professional") {
		t.Errorf("article not applied: %q", got)
	}
	got, _ = RenderNarration("recommendations", NarrationData{Recommendations: []string{"Navy blazer", "Loafers"}})
	if !strings.Contains(got, "1. Navy blazer. 2. Loafers.") {
		t.Errorf("numbered list = %q", got)
	}
}

func TestRenderNarration_UnknownSection(t *testing.T) {
	if _, err := RenderNarration("weather", NarrationData{}); err == nil {
		t.Error("expected error for unknown section")
	}
}

func TestWithArticle(t *testing.T) {
	tests := map[string]string{
		"Urban Professional": "an Urban Professional",
		"Style Enthusiast":   "a Style Enthusiast",
		"The Explorer":       "The Explorer",
		"":                   "",
	}
	for in, want := range tests {
		if got := withArticle(in); got != want {
			t.Errorf("withArticle(%q) = %q, want %q", in, got, want)
		}
	}
}
