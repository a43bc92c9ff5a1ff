// Package narration turns a style profile into spoken audio sections with
// Amazon Polly.
package narration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/assets"
	"github.com/kirubel/essence-mirror/internal/metrics"
	"github.com/kirubel/essence-mirror/internal/style"
)

var (
	ErrUnavailable = errors.New("narration: speech client is not configured")
	ErrSynthesis   = errors.New("narration: no section could be synthesized")
)

// voices maps accepted names to Polly voice IDs.
var voices = map[string]pollytypes.VoiceId{
	"joanna":  pollytypes.VoiceIdJoanna,
	"matthew": pollytypes.VoiceIdMatthew,
	"amy":     pollytypes.VoiceIdAmy,
	"brian":   pollytypes.VoiceIdBrian,
	"emma":    pollytypes.VoiceIdEmma,
	"olivia":  pollytypes.VoiceIdOlivia,
}

const DefaultVoice = "joanna"

// wordsPerSecond drives the duration estimate.
const wordsPerSecond = 2.5

// NormalizeVoice lowercases name and maps unknown voices to joanna.
func NormalizeVoice(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := voices[name]; ok {
		return name
	}
	return DefaultVoice
}

// PollyAPI is satisfied by *polly.Client.
type PollyAPI interface {
	SynthesizeSpeech(ctx context.Context, in *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Section is one narrated segment. Audio is MP3.
type Section struct {
	Name            string  `json:"name"`
	Script          string  `json:"script"`
	Voice           string  `json:"voice"`
	Audio           []byte  `json:"-"`
	Bytes           int     `json:"bytes"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Request selects what to narrate.
type Request struct {
	Profile         style.Profile
	Recommendations *style.RecommendationSet
	Voice           string
	// Sections limits output to these names; empty means all.
	Sections []string
}

type Narrator struct {
	client PollyAPI
}

func NewNarrator(client PollyAPI) *Narrator {
	return &Narrator{client: client}
}

// Narrate synthesizes each section in order. A section that fails is
// logged and skipped; ErrSynthesis is returned only when none succeed.
func (n *Narrator) Narrate(ctx context.Context, req Request) ([]Section, error) {
	if n.client == nil {
		return nil, ErrUnavailable
	}
	voice := NormalizeVoice(req.Voice)
	data := scriptData(req.Profile, req.Recommendations)

	names := req.Sections
	if len(names) == 0 {
		names = assets.NarrationSections
	}

	start := time.Now()
	var (
		out     []Section
		lastErr error
	)
	for _, name := range names {
		script, err := assets.RenderNarration(name, data)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("section", name).Msg("Narration script failed")
			continue
		}
		audio, err := n.synthesize(ctx, script, voices[voice])
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("section", name).Str("voice", voice).Msg("Narration synthesis failed")
			continue
		}
		out = append(out, Section{
			Name:            name,
			Script:          script,
			Voice:           voice,
			Audio:           audio,
			Bytes:           len(audio),
			DurationSeconds: EstimateDuration(script),
		})
	}

	metrics.New(metrics.Namespace).
		Metric("NarrationSections", float64(len(out)), metrics.UnitCount).
		Latency("NarrationLatencyMs", start).
		Property("voice", voice).
		Flush()

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, lastErr)
	}
	log.Info().Str("voice", voice).Int("sections", len(out)).Dur("elapsed", time.Since(start)).Msg("Narration ready")
	return out, nil
}

func (n *Narrator) synthesize(ctx context.Context, text string, voice pollytypes.VoiceId) ([]byte, error) {
	out, err := n.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: pollytypes.OutputFormatMp3,
		VoiceId:      voice,
		Engine:       pollytypes.EngineNeural,
	})
	if err != nil {
		return nil, fmt.Errorf("polly SynthesizeSpeech: %w", err)
	}
	defer out.AudioStream.Close()
	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("read polly audio: %w", err)
	}
	return audio, nil
}

// EstimateDuration is the spoken length of text in seconds at 2.5 words
// per second.
func EstimateDuration(text string) float64 {
	return float64(len(strings.Fields(text))) / wordsPerSecond
}

func scriptData(p style.Profile, recs *style.RecommendationSet) assets.NarrationData {
	d := assets.NarrationData{
		ProfileData: assets.ProfileData{
			Archetype:        p.Archetype,
			VisualStyle:      p.VisualStyle,
			EnergeticEssence: p.EnergeticEssence,
		},
	}
	if recs != nil {
		d.Recommendations = recs.Summaries()
		d.Focus = recs.Focus
	}
	return d
}
