package reel

import (
	"fmt"

	"github.com/kirubel/essence-mirror/internal/media"
)

// Nova Reel TEXT_VIDEO request body.
type modelInput struct {
	TaskType              string                `json:"taskType"`
	TextToVideoParams     textToVideoParams     `json:"textToVideoParams"`
	VideoGenerationConfig videoGenerationConfig `json:"videoGenerationConfig"`
}

type textToVideoParams struct {
	Text   string       `json:"text"`
	Images []inputImage `json:"images,omitempty"`
}

type inputImage struct {
	Format string      `json:"format"`
	Source imageSource `json:"source"`
}

type imageSource struct {
	Bytes string `json:"bytes"`
}

type videoGenerationConfig struct {
	FPS             int    `json:"fps"`
	DurationSeconds int    `json:"durationSeconds"`
	Dimension       string `json:"dimension"`
	Seed            int64  `json:"seed"`
}

const (
	taskTextVideo = "TEXT_VIDEO"
	videoFPS      = 24
	// DefaultDurationSeconds is the single-shot clip length.
	DefaultDurationSeconds = 6
	maxSeed                = 2147483647
)

var videoDimension = fmt.Sprintf("%dx%d", media.FrameWidth, media.FrameHeight)

func buildModelInput(prompt, frameBase64 string, duration int, seed int64) modelInput {
	in := modelInput{
		TaskType:          taskTextVideo,
		TextToVideoParams: textToVideoParams{Text: prompt},
		VideoGenerationConfig: videoGenerationConfig{
			FPS:             videoFPS,
			DurationSeconds: duration,
			Dimension:       videoDimension,
			Seed:            seed,
		},
	}
	if frameBase64 != "" {
		in.TextToVideoParams.Images = []inputImage{{Format: "jpeg", Source: imageSource{Bytes: frameBase64}}}
	}
	return in
}
