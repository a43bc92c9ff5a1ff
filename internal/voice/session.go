// Package voice runs speech-to-speech sessions against Nova Sonic and keeps
// the resulting conversation.
//
// A Session owns one background receive loop per open stream. Output is
// delivered through two bounded FIFO queues, one for text and one for audio;
// callers pull from them with DrainText and DrainAudio.
package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/metrics"
)

var (
	ErrSessionClosed = errors.New("voice: session closed")
	ErrSessionActive = errors.New("voice: session already open")
)

// Voices accepted by Start. Anything else falls back to DefaultVoice.
var Voices = []string{"Joanna", "Matthew", "Amy", "Brian"}

const DefaultVoice = "Joanna"

const defaultQueueSize = 256

// NormalizeVoice returns the canonical voice name, or DefaultVoice.
func NormalizeVoice(id string) string {
	for _, v := range Voices {
		if strings.EqualFold(strings.TrimSpace(id), v) {
			return v
		}
	}
	return DefaultVoice
}

// TextItem is one text fragment from the model. Role is USER for speech
// transcriptions and ASSISTANT for replies.
type TextItem struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Options configures a Session.
type Options struct {
	SystemPrompt string
	// QueueSize bounds each output queue. A full queue holds the receive
	// loop until the caller drains.
	QueueSize int
}

type Session struct {
	dialer Dialer
	opts   Options
	newID  func() string

	mu    sync.Mutex
	run   *run
	voice string
}

// run is the state of one open stream.
type run struct {
	stream     Stream
	cancel     context.CancelFunc
	promptName string
	// audioContent names the open audio input block, if any.
	audioContent string

	text  chan TextItem
	audio chan []byte

	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	err       error
}

func (r *run) markClosed(err error) {
	r.closeOnce.Do(func() {
		r.err = err
		close(r.closed)
	})
}

func (r *run) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

func NewSession(d Dialer, opts Options) *Session {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &Session{dialer: d, opts: opts, newID: uuid.NewString}
}

// Voice reports the voice of the current or last stream.
func (s *Session) Voice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

// Open reports whether the session can send and drain.
func (s *Session) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil && !s.run.isClosed()
}

// Start dials the stream, sends the session and prompt preamble plus the
// system prompt, and starts the receive loop. The stream outlives ctx; it
// ends with End or a transport error.
func (s *Session) Start(ctx context.Context, voiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run != nil {
		if !s.run.isClosed() {
			return ErrSessionActive
		}
		// The previous stream died on its own; release it first.
		s.teardown(s.run)
	}

	voice := NormalizeVoice(voiceID)
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := s.dialer.Dial(streamCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("voice dial: %w", err)
	}

	r := &run{
		stream:     stream,
		cancel:     cancel,
		promptName: s.newID(),
		text:       make(chan TextItem, s.opts.QueueSize),
		audio:      make(chan []byte, s.opts.QueueSize),
		closed:     make(chan struct{}),
		done:       make(chan struct{}),
	}

	systemContent := s.newID()
	preamble := []func() ([]byte, error){
		sessionStartEvent,
		func() ([]byte, error) { return promptStartEvent(r.promptName, strings.ToLower(voice)) },
		func() ([]byte, error) { return textContentStartEvent(r.promptName, systemContent, RoleSystem) },
		func() ([]byte, error) { return textInputEvent(r.promptName, systemContent, s.opts.SystemPrompt) },
		func() ([]byte, error) { return contentEndEvent(r.promptName, systemContent) },
	}
	for _, build := range preamble {
		if err := send(ctx, stream, build); err != nil {
			_ = stream.Close()
			cancel()
			return fmt.Errorf("voice preamble: %w", err)
		}
	}

	s.run = r
	s.voice = voice
	go s.receive(r)

	metrics.ActiveVoiceSessions.Inc()
	log.Info().Str("voice", voice).Str("promptName", r.promptName).Msg("Voice session started")
	return nil
}

// SendText sends one user text block and returns without waiting for a reply.
func (s *Session) SendText(ctx context.Context, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.active()
	if err != nil {
		return err
	}
	contentName := s.newID()
	for _, build := range []func() ([]byte, error){
		func() ([]byte, error) { return textContentStartEvent(r.promptName, contentName, RoleUser) },
		func() ([]byte, error) { return textInputEvent(r.promptName, contentName, msg) },
		func() ([]byte, error) { return contentEndEvent(r.promptName, contentName) },
	} {
		if err := send(ctx, r.stream, build); err != nil {
			return fmt.Errorf("voice send text: %w", err)
		}
	}
	log.Debug().Int("chars", len(msg)).Msg("Voice text sent")
	return nil
}

// SendAudio streams 16 kHz 16-bit mono PCM, opening the audio block on
// first use.
func (s *Session) SendAudio(ctx context.Context, pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.active()
	if err != nil {
		return err
	}
	if r.audioContent == "" {
		name := s.newID()
		if err := send(ctx, r.stream, func() ([]byte, error) { return audioContentStartEvent(r.promptName, name) }); err != nil {
			return fmt.Errorf("voice open audio: %w", err)
		}
		r.audioContent = name
	}
	b64 := base64.StdEncoding.EncodeToString(pcm)
	if err := send(ctx, r.stream, func() ([]byte, error) { return audioInputEvent(r.promptName, r.audioContent, b64) }); err != nil {
		return fmt.Errorf("voice send audio: %w", err)
	}
	return nil
}

// EndAudioInput closes the open audio block. It is a no-op when none is open.
func (s *Session) EndAudioInput(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.active()
	if err != nil {
		return err
	}
	return s.closeAudio(ctx, r)
}

func (s *Session) closeAudio(ctx context.Context, r *run) error {
	if r.audioContent == "" {
		return nil
	}
	name := r.audioContent
	r.audioContent = ""
	if err := send(ctx, r.stream, func() ([]byte, error) { return contentEndEvent(r.promptName, name) }); err != nil {
		return fmt.Errorf("voice close audio: %w", err)
	}
	return nil
}

// DrainText pops the next text item, waiting up to timeout. A timeout is
// reported as ok=false with a nil error.
func (s *Session) DrainText(timeout time.Duration) (TextItem, bool, error) {
	r, err := s.current()
	if err != nil {
		return TextItem{}, false, err
	}
	return drain(r, r.text, timeout)
}

// DrainAudio pops the next decoded 24 kHz PCM chunk, waiting up to timeout.
func (s *Session) DrainAudio(timeout time.Duration) ([]byte, bool, error) {
	r, err := s.current()
	if err != nil {
		return nil, false, err
	}
	return drain(r, r.audio, timeout)
}

func drain[T any](r *run, q <-chan T, timeout time.Duration) (T, bool, error) {
	var zero T
	if timeout <= 0 {
		select {
		case item := <-q:
			return item, true, nil
		case <-r.closed:
			return zero, false, ErrSessionClosed
		default:
			return zero, false, nil
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case item := <-q:
		return item, true, nil
	case <-r.closed:
		return zero, false, ErrSessionClosed
	case <-timer.C:
		return zero, false, nil
	}
}

// End closes the session: it flushes an open audio block, sends promptEnd
// and sessionEnd, closes the transport and waits for the receive loop. End
// on a session that is not open is a no-op.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.run
	if r == nil {
		return nil
	}
	failed := r.isClosed()
	r.markClosed(nil)

	var errs []error
	if !failed {
		if err := s.closeAudio(ctx, r); err != nil {
			errs = append(errs, err)
		}
		if err := send(ctx, r.stream, func() ([]byte, error) { return promptEndEvent(r.promptName) }); err != nil {
			errs = append(errs, fmt.Errorf("voice promptEnd: %w", err))
		}
		if err := send(ctx, r.stream, sessionEndEvent); err != nil {
			errs = append(errs, fmt.Errorf("voice sessionEnd: %w", err))
		}
	}
	s.teardown(r)

	log.Info().Str("promptName", r.promptName).Bool("afterFailure", failed).Msg("Voice session ended")
	return errors.Join(errs...)
}

// teardown closes the transport and waits for the receive loop. s.mu is held.
func (s *Session) teardown(r *run) {
	r.markClosed(nil)
	if err := r.stream.Close(); err != nil {
		log.Debug().Err(err).Msg("Voice stream close")
	}
	r.cancel()
	<-r.done
	if s.run == r {
		s.run = nil
		metrics.ActiveVoiceSessions.Dec()
	}
}

// Err reports why the receive loop stopped, if it stopped on its own.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run == nil || !s.run.isClosed() {
		return nil
	}
	return s.run.err
}

func (s *Session) active() (*run, error) {
	if s.run == nil || s.run.isClosed() {
		return nil, ErrSessionClosed
	}
	return s.run, nil
}

func (s *Session) current() (*run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active()
}

func send(ctx context.Context, stream Stream, build func() ([]byte, error)) error {
	payload, err := build()
	if err != nil {
		return err
	}
	return stream.Send(ctx, payload)
}

// receive reads output events until the stream ends. Items are pushed in
// arrival order; a full queue blocks until drained or closed.
func (s *Session) receive(r *run) {
	defer close(r.done)

	role := RoleAssistant
	for {
		payload, err := r.stream.Recv()
		if err != nil {
			if !r.isClosed() {
				if !errors.Is(err, io.EOF) {
					log.Error().Err(err).Str("promptName", r.promptName).Msg("Voice receive failed")
				}
				r.markClosed(err)
			}
			return
		}

		var ev outputEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Warn().Err(err).Int("bytes", len(payload)).Msg("Skipping undecodable voice event")
			continue
		}
		switch {
		case ev.Event.ContentStart != nil:
			if ev.Event.ContentStart.Role != "" {
				role = ev.Event.ContentStart.Role
			}
		case ev.Event.TextOutput != nil:
			item := TextItem{Role: ev.Event.TextOutput.Role, Text: ev.Event.TextOutput.Content}
			if item.Role == "" {
				item.Role = role
			}
			if !push(r, r.text, item) {
				return
			}
		case ev.Event.AudioOutput != nil:
			pcm, err := base64.StdEncoding.DecodeString(ev.Event.AudioOutput.Content)
			if err != nil {
				log.Warn().Err(err).Msg("Skipping undecodable audio chunk")
				continue
			}
			if !push(r, r.audio, pcm) {
				return
			}
		}
	}
}

func push[T any](r *run, q chan<- T, item T) bool {
	select {
	case q <- item:
		return true
	case <-r.closed:
		return false
	}
}
