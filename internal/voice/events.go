package voice

import (
	"encoding/json"
	"fmt"
)

// Wire formats. Audio is always base64 on the wire.
const (
	OutputSampleRate = 24000
	InputSampleRate  = 16000
	SampleSizeBits   = 16
	Channels         = 1

	mediaTypeText   = "text/plain"
	mediaTypeAudio  = "audio/lpcm"
	encodingBase64  = "base64"
	audioTypeSpeech = "SPEECH"

	RoleSystem    = "SYSTEM"
	RoleUser      = "USER"
	RoleAssistant = "ASSISTANT"
)

// Inference settings sent with sessionStart.
const (
	maxTokens   = 1024
	topP        = 0.9
	temperature = 0.7
)

type envelope struct {
	Event map[string]any `json:"event"`
}

func encodeEvent(name string, body any) ([]byte, error) {
	data, err := json.Marshal(envelope{Event: map[string]any{name: body}})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return data, nil
}

type inferenceConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	TopP        float64 `json:"topP"`
	Temperature float64 `json:"temperature"`
}

type audioConfig struct {
	MediaType       string `json:"mediaType"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	SampleSizeBits  int    `json:"sampleSizeBits"`
	ChannelCount    int    `json:"channelCount"`
	VoiceID         string `json:"voiceId,omitempty"`
	Encoding        string `json:"encoding"`
	AudioType       string `json:"audioType"`
}

type mediaConfig struct {
	MediaType string `json:"mediaType"`
}

func sessionStartEvent() ([]byte, error) {
	return encodeEvent("sessionStart", map[string]any{
		"inferenceConfiguration": inferenceConfig{MaxTokens: maxTokens, TopP: topP, Temperature: temperature},
	})
}

func promptStartEvent(promptName, voiceID string) ([]byte, error) {
	return encodeEvent("promptStart", map[string]any{
		"promptName":              promptName,
		"textOutputConfiguration": mediaConfig{MediaType: mediaTypeText},
		"audioOutputConfiguration": audioConfig{
			MediaType:       mediaTypeAudio,
			SampleRateHertz: OutputSampleRate,
			SampleSizeBits:  SampleSizeBits,
			ChannelCount:    Channels,
			VoiceID:         voiceID,
			Encoding:        encodingBase64,
			AudioType:       audioTypeSpeech,
		},
	})
}

func textContentStartEvent(promptName, contentName, role string) ([]byte, error) {
	return encodeEvent("contentStart", map[string]any{
		"promptName":             promptName,
		"contentName":            contentName,
		"type":                   "TEXT",
		"interactive":            true,
		"role":                   role,
		"textInputConfiguration": mediaConfig{MediaType: mediaTypeText},
	})
}

func audioContentStartEvent(promptName, contentName string) ([]byte, error) {
	return encodeEvent("contentStart", map[string]any{
		"promptName":  promptName,
		"contentName": contentName,
		"type":        "AUDIO",
		"interactive": true,
		"role":        RoleUser,
		"audioInputConfiguration": audioConfig{
			MediaType:       mediaTypeAudio,
			SampleRateHertz: InputSampleRate,
			SampleSizeBits:  SampleSizeBits,
			ChannelCount:    Channels,
			Encoding:        encodingBase64,
			AudioType:       audioTypeSpeech,
		},
	})
}

func textInputEvent(promptName, contentName, text string) ([]byte, error) {
	return encodeEvent("textInput", map[string]any{
		"promptName":  promptName,
		"contentName": contentName,
		"content":     text,
	})
}

func audioInputEvent(promptName, contentName, b64 string) ([]byte, error) {
	return encodeEvent("audioInput", map[string]any{
		"promptName":  promptName,
		"contentName": contentName,
		"content":     b64,
	})
}

func contentEndEvent(promptName, contentName string) ([]byte, error) {
	return encodeEvent("contentEnd", map[string]any{
		"promptName":  promptName,
		"contentName": contentName,
	})
}

func promptEndEvent(promptName string) ([]byte, error) {
	return encodeEvent("promptEnd", map[string]any{"promptName": promptName})
}

func sessionEndEvent() ([]byte, error) {
	return encodeEvent("sessionEnd", map[string]any{})
}

// outputEvent is the subset of model output events the session consumes.
type outputEvent struct {
	Event struct {
		ContentStart *struct {
			Role string `json:"role"`
		} `json:"contentStart"`
		TextOutput *struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"textOutput"`
		AudioOutput *struct {
			Content string `json:"content"`
		} `json:"audioOutput"`
	} `json:"event"`
}
