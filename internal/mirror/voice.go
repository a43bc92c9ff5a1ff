package mirror

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/assets"
	"github.com/kirubel/essence-mirror/internal/voice"
)

// StartVoice opens a speech session primed with the current profile.
func (s *Studio) StartVoice(ctx context.Context, sess *Session, voiceID string) (string, error) {
	if s.dialer == nil {
		return "", ErrVoiceUnavailable
	}

	sess.mu.Lock()
	vs := sess.voice
	data := assets.ProfileData{}
	if sess.profile != nil {
		data = assets.ProfileData{
			Archetype:        sess.profile.Archetype,
			VisualStyle:      sess.profile.VisualStyle,
			EnergeticEssence: sess.profile.EnergeticEssence,
		}
	}
	if vs == nil {
		vs = voice.NewSession(s.dialer, voice.Options{
			SystemPrompt: assets.RenderVoiceSystemPrompt(data),
			QueueSize:    s.voiceQueue,
		})
		sess.voice = vs
	}
	sid := sess.id
	sess.mu.Unlock()

	if err := vs.Start(ctx, voiceID); err != nil {
		return "", err
	}
	log.Info().Str("sessionId", sid).Str("voice", vs.Voice()).Msg("Voice conversation started")
	return vs.Voice(), nil
}

func (s *Studio) voiceOf(sess *Session) (*voice.Session, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.voice == nil {
		return nil, voice.ErrSessionClosed
	}
	return sess.voice, nil
}

// SendVoiceText sends a typed message and records it as a user turn.
func (s *Studio) SendVoiceText(ctx context.Context, sess *Session, text string) error {
	vs, err := s.voiceOf(sess)
	if err != nil {
		return err
	}
	if err := vs.SendText(ctx, text); err != nil {
		return err
	}
	sess.mu.Lock()
	sess.conversation.Append(voice.TurnUser, text)
	sess.lastSent = text
	sess.mu.Unlock()
	return nil
}

// VoiceOutput is what one drain collected.
type VoiceOutput struct {
	Text  []voice.TextItem `json:"text"`
	Audio []byte           `json:"audio,omitempty"`
}

// DrainVoice waits up to timeout for the first text item, then collects
// whatever else is already queued. Output lands in the conversation.
func (s *Studio) DrainVoice(sess *Session, timeout time.Duration) (VoiceOutput, error) {
	vs, err := s.voiceOf(sess)
	if err != nil {
		return VoiceOutput{}, err
	}
	return sess.recordDrain(vs, timeout)
}

type drainer interface {
	DrainText(timeout time.Duration) (voice.TextItem, bool, error)
	DrainAudio(timeout time.Duration) ([]byte, bool, error)
}

// recordDrain drains vs into the conversation. Output read before a
// failure is recorded and returned with the error.
func (s *Session) recordDrain(vs drainer, timeout time.Duration) (VoiceOutput, error) {
	out, drainErr := drainOutput(vs, timeout)

	s.mu.Lock()
	for _, item := range out.Text {
		if item.Role == voice.RoleUser {
			// Typed input comes back as a transcript; it is already recorded.
			if item.Text == s.lastSent {
				continue
			}
			s.conversation.Append(voice.TurnUser, item.Text)
			continue
		}
		s.conversation.Append(voice.TurnAssistant, item.Text)
	}
	if len(out.Audio) > 0 {
		s.conversation.AppendAudio(out.Audio)
	}
	s.mu.Unlock()
	return out, drainErr
}

func drainOutput(vs drainer, timeout time.Duration) (VoiceOutput, error) {
	var out VoiceOutput
	wait := timeout
	for {
		item, ok, err := vs.DrainText(wait)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out.Text = append(out.Text, item)
		wait = 0
	}
	for {
		pcm, ok, err := vs.DrainAudio(0)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out.Audio = append(out.Audio, pcm...)
	}
	return out, nil
}

// EndVoice closes the speech session. The conversation is kept.
func (s *Studio) EndVoice(ctx context.Context, sess *Session) error {
	sess.mu.Lock()
	vs := sess.voice
	sess.voice = nil
	sess.mu.Unlock()
	if vs == nil {
		return nil
	}
	return vs.End(ctx)
}

// ExportConversation writes the session's conversation as a zip.
func (s *Studio) ExportConversation(sess *Session, w io.Writer) error {
	sess.mu.Lock()
	conv := sess.conversation
	sess.mu.Unlock()
	return conv.Export(w)
}
