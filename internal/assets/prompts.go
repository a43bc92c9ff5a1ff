// Package assets holds the prompt templates embedded at compile time.
//
// Templates live as text files under prompts/ and are rendered with
// text/template.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"unicode"
)

//go:embed prompts/*.txt
var promptFS embed.FS

var funcs = template.FuncMap{
	"join":  strings.Join,
	"lower": strings.ToLower,
	"inc":   func(i int) int { return i + 1 },
	"withArticle": withArticle,
}

var (
	voiceSystemTmpl = mustParse("voice-system.txt")
	reelTmpl        = mustParse("reel.txt")
	narrationTmpl   = mustParse("narration.txt")
)

func mustParse(name string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).ParseFS(promptFS, "prompts/"+name))
}

// withArticle prefixes a or an unless the phrase already starts with "the".
func withArticle(phrase string) string {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || strings.HasPrefix(strings.ToLower(phrase), "the ") {
		return phrase
	}
	for _, r := range phrase {
		if !unicode.IsLetter(r) {
			continue
		}
		if strings.ContainsRune("aeiouAEIOU", r) {
			return "an " + phrase
		}
		break
	}
	return "a " + phrase
}

// ProfileData is the style profile subset the templates read.
type ProfileData struct {
	Archetype        string
	VisualStyle      []string
	EnergeticEssence []string
}

// RenderVoiceSystemPrompt renders the speech-to-speech system prompt. An
// empty archetype omits the profile block.
func RenderVoiceSystemPrompt(p ProfileData) string {
	return strings.TrimSpace(render(voiceSystemTmpl, p))
}

// ReelData feeds the video prompt.
type ReelData struct {
	// Look describes the target style, e.g. a focus description.
	Look            string
	Recommendations []string
}

func RenderReelPrompt(d ReelData) string {
	return strings.TrimSpace(render(reelTmpl, d))
}

// Narration sections, in playback order.
var NarrationSections = []string{
	"style_analysis",
	"recommendations",
	"color_analysis",
	"confidence_boost",
	"shopping_guide",
}

// NarrationData feeds every narration section.
type NarrationData struct {
	ProfileData
	Recommendations []string
	Focus           string
}

// RenderNarration renders one narration section script.
func RenderNarration(section string, d NarrationData) (string, error) {
	t := narrationTmpl.Lookup(section)
	if t == nil {
		return "", fmt.Errorf("unknown narration section %q", section)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render %s: %w", section, err)
	}
	return strings.Join(strings.Fields(buf.String()), " "), nil
}

// render executes a pre-parsed template. Execution errors are not expected
// with these templates; whatever was rendered is returned.
func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}
