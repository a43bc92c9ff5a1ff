// Package mirror composes the upload gateway, agent, action invoker, reel
// tracker, narrator and voice sessions into the per-session operations the
// HTTP API and CLI expose.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/action"
	"github.com/kirubel/essence-mirror/internal/jsonutil"
	"github.com/kirubel/essence-mirror/internal/media"
	"github.com/kirubel/essence-mirror/internal/narration"
	"github.com/kirubel/essence-mirror/internal/reel"
	"github.com/kirubel/essence-mirror/internal/store"
	"github.com/kirubel/essence-mirror/internal/style"
	"github.com/kirubel/essence-mirror/internal/voice"
)

var (
	ErrNoImage          = errors.New("mirror: no image analyzed yet")
	ErrNarrationOff     = errors.New("mirror: narration is not configured")
	ErrVoiceUnavailable = errors.New("mirror: voice is not configured")
)

// Profile sources reported by Analyze.
const (
	SourceAction    = "action"
	SourceAgent     = "agent"
	SourceHeuristic = "heuristic"
)

type Uploader interface {
	Upload(ctx context.Context, u media.Upload) (media.Ref, error)
	ObjectURL(ref media.Ref) string
}

type Agent interface {
	Invoke(ctx context.Context, message, sessionID string) (string, error)
}

type Actions interface {
	AnalyzeImage(ctx context.Context, sessionID string, ref media.Ref) (style.Profile, error)
	GenerateRecommendations(ctx context.Context, sessionID string, profile *style.Profile, focus string) (style.RecommendationSet, error)
	GenerateStyleCollage(ctx context.Context, sessionID string, req action.CollageRequest) (style.Collage, error)
	GenerateStyleReel(ctx context.Context, sessionID string, req action.ReelRequest) (action.ReelResult, error)
}

type Reels interface {
	Start(ctx context.Context, sessionID string, req reel.Request) (*reel.Job, error)
	Poll(ctx context.Context, sessionID, jobID string) (*reel.Job, error)
	Forget(ctx context.Context, sessionID string) error
}

type Narrator interface {
	Narrate(ctx context.Context, req narration.Request) ([]narration.Section, error)
}

// Deps wires a Studio. Reels, Narrator and VoiceDialer are optional.
type Deps struct {
	Media       Uploader
	Agent       Agent
	Actions     Actions
	Reels       Reels
	Narrator    Narrator
	VoiceDialer voice.Dialer

	VoiceQueueSize int
	SessionSize    int
	SessionTTL     time.Duration
}

type Studio struct {
	media      Uploader
	agent      Agent
	actions    Actions
	reels      Reels
	narrator   Narrator
	dialer     voice.Dialer
	voiceQueue int

	sessions *Registry
}

func NewStudio(d Deps) *Studio {
	s := &Studio{
		media:      d.Media,
		agent:      d.Agent,
		actions:    d.Actions,
		reels:      d.Reels,
		narrator:   d.Narrator,
		dialer:     d.VoiceDialer,
		voiceQueue: d.VoiceQueueSize,
	}
	size, ttl := d.SessionSize, d.SessionTTL
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	s.sessions = NewRegistry(size, ttl, s.discard)
	return s
}

func (s *Studio) Sessions() *Registry { return s.sessions }

// discard releases what a reset or evicted session held.
func (s *Studio) discard(d Discarded) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if d.Voice != nil {
		if err := d.Voice.End(ctx); err != nil {
			log.Warn().Err(err).Str("sessionId", d.ID).Msg("Voice end on discard failed")
		}
	}
	if s.reels != nil {
		if err := s.reels.Forget(ctx, d.ID); err != nil {
			log.Warn().Err(err).Str("sessionId", d.ID).Msg("Reel cleanup failed")
		}
	}
}

// AnalysisResult is the outcome of Analyze.
type AnalysisResult struct {
	Image   media.Ref     `json:"image"`
	Profile style.Profile `json:"profile"`
	Source  string        `json:"source"`
}

// Analyze uploads the image and derives a profile: from the action first,
// then from the agent's reply, then from the narrative heuristic. Success
// replaces the profile and clears every downstream result.
func (s *Studio) Analyze(ctx context.Context, sess *Session, u media.Upload) (AnalysisResult, error) {
	sid := sess.ID()
	ref, err := s.media.Upload(ctx, u)
	if err != nil {
		return AnalysisResult{}, err
	}

	profile, source, err := s.profileFor(ctx, sid, ref)
	if err != nil {
		return AnalysisResult{}, err
	}

	sess.mu.Lock()
	current := sess.id == sid
	if current {
		sess.image = ref
		sess.profile = &profile
		sess.profileSource = source
		sess.recommendations = nil
		sess.collage = nil
		sess.reels = nil
		sess.narration = nil
	}
	sess.mu.Unlock()
	if !current {
		return AnalysisResult{}, ErrSessionNotFound
	}

	if s.reels != nil {
		if err := s.reels.Forget(ctx, sid); err != nil {
			log.Warn().Err(err).Str("sessionId", sid).Msg("Clearing previous reels failed")
		}
	}

	log.Info().Str("sessionId", sid).Str("key", ref.Key).Str("archetype", profile.Archetype).Str("source", source).Msg("Image analyzed")
	return AnalysisResult{Image: ref, Profile: profile, Source: source}, nil
}

func (s *Studio) profileFor(ctx context.Context, sid string, ref media.Ref) (style.Profile, string, error) {
	profile, actionErr := s.actions.AnalyzeImage(ctx, sid, ref)
	if actionErr == nil && profile.Usable() {
		return profile, SourceAction, nil
	}
	if actionErr == nil && profile.Narrative != "" {
		log.Info().Str("sessionId", sid).Str("archetype", profile.Archetype).Msg("Analyze action returned no usable profile, reading its narrative")
		return style.ProfileFromNarrative(profile.Narrative), SourceHeuristic, nil
	}
	if actionErr != nil {
		log.Warn().Err(actionErr).Str("sessionId", sid).Msg("Analyze action failed, asking the agent")
	} else {
		log.Info().Str("sessionId", sid).Str("archetype", profile.Archetype).Msg("Analyze action returned no usable profile, asking the agent")
	}

	reply, agentErr := s.agent.Invoke(ctx, "I want to analyze "+s.media.ObjectURL(ref), sid)
	if agentErr != nil {
		if actionErr != nil {
			return style.Profile{}, "", errors.Join(actionErr, agentErr)
		}
		return style.Profile{}, "", agentErr
	}

	if parsed, err := jsonutil.ParseJSON[style.Profile](reply); err == nil && parsed.Usable() {
		if parsed.Narrative == "" {
			parsed.Narrative = reply
		}
		return parsed, SourceAgent, nil
	}
	return style.ProfileFromNarrative(reply), SourceHeuristic, nil
}

// Recommend regenerates the recommendation set from the current profile,
// or from focus alone when no image was analyzed.
func (s *Studio) Recommend(ctx context.Context, sess *Session, focus string) (style.RecommendationSet, error) {
	sess.mu.Lock()
	sid := sess.id
	var profile *style.Profile
	if sess.profile != nil {
		p := *sess.profile
		profile = &p
	}
	sess.mu.Unlock()

	set, err := s.actions.GenerateRecommendations(ctx, sid, profile, focus)
	if err != nil {
		return style.RecommendationSet{}, err
	}
	if set.Focus == "" {
		set.Focus = focus
	}

	sess.mu.Lock()
	if sess.id == sid {
		sess.recommendations = &set
	}
	sess.mu.Unlock()
	return set, nil
}

// CollageOptions tunes a collage request.
type CollageOptions struct {
	StyleFocus      string `json:"style_focus"`
	ColorPreference string `json:"color_preference"`
}

func (s *Studio) Collage(ctx context.Context, sess *Session, opts CollageOptions) (style.Collage, error) {
	sess.mu.Lock()
	sid := sess.id
	req := action.CollageRequest{StyleFocus: opts.StyleFocus, ColorPreference: opts.ColorPreference}
	if sess.profile != nil {
		p := *sess.profile
		req.Profile = &p
		req.GenderContext = p.GenderContext()
	}
	if sess.recommendations != nil {
		r := *sess.recommendations
		req.Recommendations = &r
	}
	sess.mu.Unlock()

	c, err := s.actions.GenerateStyleCollage(ctx, sid, req)
	if err != nil {
		return style.Collage{}, err
	}

	sess.mu.Lock()
	if sess.id == sid {
		sess.collage = &c
	}
	sess.mu.Unlock()
	return c, nil
}

// ReelOptions tunes a reel request. Empty Recommendations uses the session's.
type ReelOptions struct {
	StyleFocus      string   `json:"style_focus"`
	Recommendations []string `json:"recommendations"`
	DurationSeconds int      `json:"duration_seconds"`
}

// StartReel submits a video generation from the analyzed image. Without a
// tracker the action group generates it instead.
func (s *Studio) StartReel(ctx context.Context, sess *Session, opts ReelOptions) (*reel.Job, error) {
	sess.mu.Lock()
	sid := sess.id
	image := sess.image
	recs := opts.Recommendations
	if len(recs) == 0 && sess.recommendations != nil {
		recs = sess.recommendations.Summaries()
	}
	sess.mu.Unlock()

	if image.IsZero() {
		return nil, ErrNoImage
	}

	var (
		job *reel.Job
		err error
	)
	if s.reels != nil {
		job, err = s.reels.Start(ctx, sid, reel.Request{
			Image:           image,
			StyleFocus:      opts.StyleFocus,
			Recommendations: recs,
			DurationSeconds: opts.DurationSeconds,
		})
	} else {
		job, err = s.remoteReel(ctx, sid, opts)
	}
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.id == sid {
		sess.putReel(job)
	}
	sess.mu.Unlock()
	return job, nil
}

func (s *Studio) remoteReel(ctx context.Context, sid string, opts ReelOptions) (*reel.Job, error) {
	res, err := s.actions.GenerateStyleReel(ctx, sid, action.ReelRequest{
		StyleFocus:       opts.StyleFocus,
		UseOriginalImage: true,
		DurationSeconds:  opts.DurationSeconds,
	})
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	job := &reel.Job{
		ID:              res.JobID,
		SessionID:       sid,
		Status:          res.Status,
		Prompt:          res.Prompt,
		StyleFocus:      reel.NormalizeFocus(opts.StyleFocus),
		DurationSeconds: opts.DurationSeconds,
		ResultURL:       res.VideoURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if res.VideoURL != "" || res.VideoBase64 != "" {
		job.Status = store.ReelCompleted
	}
	if job.Status == "" {
		job.Status = store.ReelInProgress
	}
	if job.ID == "" {
		job.ID = fmt.Sprintf("inline-%d", now)
	}
	return job, nil
}

// PollReel checks one job of the session.
func (s *Studio) PollReel(ctx context.Context, sess *Session, jobID string) (*reel.Job, error) {
	sess.mu.Lock()
	sid := sess.id
	known := sess.findReel(jobID)
	sess.mu.Unlock()

	if s.reels == nil {
		if known == nil {
			return nil, reel.ErrJobNotFound
		}
		return known, nil
	}

	job, err := s.reels.Poll(ctx, sid, jobID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	if sess.id == sid {
		sess.putReel(job)
	}
	sess.mu.Unlock()
	return job, nil
}

// Narrate voices the current profile and recommendations.
func (s *Studio) Narrate(ctx context.Context, sess *Session, voiceName string) ([]narration.Section, error) {
	if s.narrator == nil {
		return nil, ErrNarrationOff
	}
	sess.mu.Lock()
	sid := sess.id
	req := narration.Request{Voice: voiceName}
	if sess.profile != nil {
		req.Profile = *sess.profile
	}
	if sess.recommendations != nil {
		r := *sess.recommendations
		req.Recommendations = &r
	}
	hasProfile := sess.profile != nil
	sess.mu.Unlock()

	if !hasProfile {
		return nil, ErrNoImage
	}
	sections, err := s.narrator.Narrate(ctx, req)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.id == sid {
		sess.narration = sections
	}
	sess.mu.Unlock()
	return sections, nil
}
