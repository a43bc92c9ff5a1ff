// Package cli holds terminal helpers shared by the command-line binaries.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirubel/essence-mirror/internal/style"
)

// FormatDurationShort formats a duration as M:SS, or H:MM:SS past an hour.
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatProfile renders a profile as indented terminal lines.
func FormatProfile(p style.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Archetype:         %s\n", p.Archetype)
	if len(p.VisualStyle) > 0 {
		fmt.Fprintf(&b, "Visual style:      %s\n", strings.Join(p.VisualStyle, ", "))
	}
	if len(p.EnergeticEssence) > 0 {
		fmt.Fprintf(&b, "Energetic essence: %s\n", strings.Join(p.EnergeticEssence, ", "))
	}
	if p.StyleCategory != "" {
		fmt.Fprintf(&b, "Category:          %s\n", p.StyleCategory)
	}
	return b.String()
}

// FormatRecommendations renders a numbered list with price tiers beneath
// structured items.
func FormatRecommendations(set style.RecommendationSet) string {
	var b strings.Builder
	for i, r := range set.Items {
		fmt.Fprintf(&b, "%2d. %s\n", i+1, r.Summary())
		if r.Rationale != "" {
			fmt.Fprintf(&b, "    %s\n", r.Rationale)
		}
		for _, tier := range []struct {
			name string
			opt  *style.PricedOption
		}{{"budget", r.Budget}, {"mid-range", r.MidRange}, {"premium", r.Premium}} {
			if tier.opt == nil {
				continue
			}
			line := strings.TrimSpace(tier.opt.Brand + " " + tier.opt.Product)
			if tier.opt.Price != "" {
				line += " (" + tier.opt.Price + ")"
			}
			fmt.Fprintf(&b, "    %-9s %s\n", tier.name+":", line)
		}
	}
	return b.String()
}
