// Package style holds the product's value types (style profile,
// recommendations, collage) and the keyword heuristic that turns a free-text
// analysis narrative into a profile.
package style

import "strings"

const (
	GenderMale        = "male"
	GenderFemale      = "female"
	GenderUnspecified = "unspecified"

	AgeYouth = "youth"
	AgeAdult = "adult"

	CategoryAthletic     = "athletic"
	CategoryCasual       = "casual"
	CategoryProfessional = "professional"
	CategoryCreative     = "creative"
	CategoryGeneral      = "general"
)

// Profile describes a detected style persona. Profiles are replaced whole,
// never patched.
type Profile struct {
	Archetype        string   `json:"archetype"`
	VisualStyle      []string `json:"visual_style"`
	EnergeticEssence []string `json:"energetic_essence"`
	AgeGroup         string   `json:"age_group,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	StyleCategory    string   `json:"style_category,omitempty"`
	Narrative        string   `json:"narrative,omitempty"`
}

// IsEmpty reports a profile carrying no persona data.
func (p Profile) IsEmpty() bool {
	return strings.TrimSpace(p.Archetype) == "" && len(p.VisualStyle) == 0 && len(p.EnergeticEssence) == 0
}

// IsUnknown reports the remote analyzer's "unknown" archetype sentinel.
func (p Profile) IsUnknown() bool {
	return strings.EqualFold(strings.TrimSpace(p.Archetype), "unknown")
}

// Usable reports whether the profile can be shown without falling back to
// the narrative heuristic.
func (p Profile) Usable() bool {
	return !p.IsEmpty() && !p.IsUnknown()
}

// GenderContext returns the gender as a prompt hint, or "" when unspecified.
func (p Profile) GenderContext() string {
	switch p.Gender {
	case GenderMale, GenderFemale:
		return p.Gender
	}
	return ""
}
