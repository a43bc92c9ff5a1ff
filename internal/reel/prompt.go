package reel

import (
	"strings"

	"github.com/kirubel/essence-mirror/internal/assets"
)

const defaultFocus = "wardrobe"

// focusLooks maps a style focus to the look the video model is asked for.
var focusLooks = map[string]string{
	"wardrobe":  "elegant modern clothing, sophisticated business attire, stylish casual wear, fashionable accessories",
	"interior":  "beautiful home settings, modern interior design, stylish living spaces, elegant room decor",
	"travel":    "travel-ready outfits, adventure clothing, vacation styles, destination-appropriate attire",
	"lifestyle": "complete lifestyle transformation, modern aesthetic, sophisticated daily looks, elevated personal style",
}

// NormalizeFocus lowercases focus and maps unknown values to wardrobe.
func NormalizeFocus(focus string) string {
	focus = strings.ToLower(strings.TrimSpace(focus))
	if _, ok := focusLooks[focus]; ok {
		return focus
	}
	return defaultFocus
}

// ComposePrompt builds the video prompt for a focus and optional
// recommendation summaries.
func ComposePrompt(focus string, recommendations []string) string {
	recs := make([]string, 0, len(recommendations))
	for _, r := range recommendations {
		if r = strings.TrimSpace(r); r != "" {
			recs = append(recs, r)
		}
	}
	return assets.RenderReelPrompt(assets.ReelData{
		Look:            focusLooks[NormalizeFocus(focus)],
		Recommendations: recs,
	})
}
