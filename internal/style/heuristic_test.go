package style

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProfileFromNarrative_YoungAthleticBoy(t *testing.T) {
	narrative := "This young boy loves soccer and wears sporty sneakers"
	got := ProfileFromNarrative(narrative)

	want := Profile{
		Archetype:        "Young Athletic Boy",
		VisualStyle:      []string{"Sporty Casual", "Athletic Wear", "Bold Colors"},
		EnergeticEssence: []string{"Energetic", "Competitive", "Playful"},
		AgeGroup:         AgeYouth,
		Gender:           GenderMale,
		StyleCategory:    CategoryAthletic,
		Narrative:        narrative,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProfileFromNarrative mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileFromNarrative_Gender(t *testing.T) {
	tests := []struct {
		name      string
		narrative string
		want      string
	}{
		{"male only", "He wears a crisp jacket", GenderMale},
		{"female only", "She prefers flowing dresses", GenderFemale},
		{"tie", "He and she share a wardrobe", GenderUnspecified},
		{"none", "A bright outfit with layered textures", GenderUnspecified},
		{"case insensitive", "THE MAN in the photo", GenderMale},
		{"word boundary", "The theme is manhattan chic", GenderUnspecified},
		{"majority", "The woman and her daughter stand beside a man", GenderFemale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProfileFromNarrative(tt.narrative).Gender; got != tt.want {
				t.Errorf("gender = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProfileFromNarrative_AgeTieIsAdult(t *testing.T) {
	// "young" (youth) and "adult" (adult) counts are equal.
	if got := ProfileFromNarrative("A young adult in denim").AgeGroup; got != AgeAdult {
		t.Errorf("age group = %q, want adult", got)
	}
	if got := ProfileFromNarrative("A young kid in denim").AgeGroup; got != AgeYouth {
		t.Errorf("age group = %q, want youth", got)
	}
}

func TestProfileFromNarrative_CategoryPriority(t *testing.T) {
	// Athletic outranks professional even when professional words come first.
	got := ProfileFromNarrative("A business suit worn with running sneakers")
	if got.StyleCategory != CategoryAthletic {
		t.Errorf("category = %q, want athletic", got.StyleCategory)
	}
	if got := ProfileFromNarrative("Muted tones and clean lines").StyleCategory; got != CategoryGeneral {
		t.Errorf("category = %q, want general", got)
	}
}

func TestProfileFromNarrative_DecisionTable(t *testing.T) {
	tests := []struct {
		narrative string
		archetype string
	}{
		{"She is pregnant and glowing in maternity wear", "Radiant Mother-to-Be"},
		{"He is expecting nothing; a pregnant pause at the gym", "Radiant Mother-to-Be"},
		{"A young girl at tennis practice", "Young Athletic Girl"},
		{"A little boy in a casual hoodie", "Playful Young Explorer"},
		{"A young girl in a vintage dress", "Creative Young Spirit"},
		{"The man wears a tailored suit to the office", "Polished Professional Man"},
		{"The woman wears a blazer to her corporate job", "Polished Professional Woman"},
		{"An adult who hits the gym daily", "Active Lifestyle Enthusiast"},
		{"An artistic adult with eclectic taste", "Creative Free Spirit"},
		{"He likes jeans", "Modern Gentleman"},
		{"She likes jeans", "Modern Woman"},
		{"Someone who likes jeans", "Versatile Style Explorer"},
	}
	for _, tt := range tests {
		t.Run(tt.archetype, func(t *testing.T) {
			if got := ProfileFromNarrative(tt.narrative).Archetype; got != tt.archetype {
				t.Errorf("ProfileFromNarrative(%q).Archetype = %q, want %q", tt.narrative, got, tt.archetype)
			}
		})
	}
}

func TestProfileFromNarrative_Deterministic(t *testing.T) {
	narrative := "A creative woman with a bohemian, colorful wardrobe"
	a, _ := json.Marshal(ProfileFromNarrative(narrative))
	b, _ := json.Marshal(ProfileFromNarrative(narrative))
	if string(a) != string(b) {
		t.Errorf("non-deterministic output:\n%s\n%s", a, b)
	}

	// Mutating a result must not leak into later results.
	p := ProfileFromNarrative(narrative)
	p.VisualStyle[0] = "changed"
	if ProfileFromNarrative(narrative).VisualStyle[0] == "changed" {
		t.Error("rule tag slices are shared between results")
	}
}

func TestFallbackProfile(t *testing.T) {
	p := FallbackProfile("raw text")
	if p.Archetype != "Style Enthusiast" || p.Narrative != "raw text" || len(p.VisualStyle) == 0 {
		t.Errorf("FallbackProfile = %+v", p)
	}
}

func TestProfile_Usable(t *testing.T) {
	tests := []struct {
		name string
		p    Profile
		want bool
	}{
		{"empty", Profile{}, false},
		{"unknown", Profile{Archetype: "Unknown", VisualStyle: []string{"x"}}, false},
		{"tags only", Profile{VisualStyle: []string{"Minimal"}}, true},
		{"archetype", Profile{Archetype: "Urban Minimalist"}, true},
	}
	for _, tt := range tests {
		if got := tt.p.Usable(); got != tt.want {
			t.Errorf("%s: Usable() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
