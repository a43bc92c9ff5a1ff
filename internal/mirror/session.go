package mirror

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirubel/essence-mirror/internal/media"
	"github.com/kirubel/essence-mirror/internal/narration"
	"github.com/kirubel/essence-mirror/internal/reel"
	"github.com/kirubel/essence-mirror/internal/style"
	"github.com/kirubel/essence-mirror/internal/voice"
)

// Session is one user visit. Every remote call of the visit carries its ID.
// Results are replaced whole on success and left alone on failure.
type Session struct {
	mu sync.Mutex

	id        string
	createdAt time.Time

	image           media.Ref
	profile         *style.Profile
	profileSource   string
	recommendations *style.RecommendationSet
	collage         *style.Collage
	reels           []*reel.Job
	narration       []narration.Section

	voice        *voice.Session
	conversation *voice.Conversation
	lastSent     string
}

func newSession() *Session {
	return &Session{
		id:           uuid.NewString(),
		createdAt:    time.Now(),
		conversation: voice.NewConversation(),
	}
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// View is a read-only copy of a session's state.
type View struct {
	ID              string                   `json:"sessionId"`
	CreatedAt       time.Time                `json:"createdAt"`
	Image           *media.Ref               `json:"image,omitempty"`
	Profile         *style.Profile           `json:"profile,omitempty"`
	ProfileSource   string                   `json:"profileSource,omitempty"`
	Recommendations *style.RecommendationSet `json:"recommendations,omitempty"`
	Collage         *style.Collage           `json:"collage,omitempty"`
	Reels           []reel.Job               `json:"reels"`
	Narration       []narration.Section      `json:"narration,omitempty"`
	VoiceOpen       bool                     `json:"voiceOpen"`
	Turns           int                      `json:"turns"`
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:            s.id,
		CreatedAt:     s.createdAt,
		ProfileSource: s.profileSource,
		Reels:         make([]reel.Job, 0, len(s.reels)),
		Narration:     s.narration,
		VoiceOpen:     s.voice != nil && s.voice.Open(),
		Turns:         len(s.conversation.Turns()),
	}
	if !s.image.IsZero() {
		img := s.image
		v.Image = &img
	}
	if s.profile != nil {
		p := *s.profile
		v.Profile = &p
	}
	if s.recommendations != nil {
		r := *s.recommendations
		v.Recommendations = &r
	}
	if s.collage != nil {
		c := *s.collage
		v.Collage = &c
	}
	for _, j := range s.reels {
		v.Reels = append(v.Reels, *j)
	}
	return v
}

// Discarded is the state a reset or eviction leaves behind for cleanup.
type Discarded struct {
	ID    string
	Voice *voice.Session
}

// reset mints a new ID and drops every result. The caller cleans up what
// it returns.
func (s *Session) reset() Discarded {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := Discarded{ID: s.id, Voice: s.voice}
	s.id = uuid.NewString()
	s.image = media.Ref{}
	s.profile = nil
	s.profileSource = ""
	s.recommendations = nil
	s.collage = nil
	s.reels = nil
	s.narration = nil
	s.voice = nil
	s.lastSent = ""
	s.conversation.Reset()
	return old
}

func (s *Session) discarded() Discarded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Discarded{ID: s.id, Voice: s.voice}
}

// putReel inserts or replaces a job by ID, keeping start order.
func (s *Session) putReel(job *reel.Job) {
	cp := *job
	for i, j := range s.reels {
		if j.ID == job.ID {
			s.reels[i] = &cp
			return
		}
	}
	s.reels = append(s.reels, &cp)
}

func (s *Session) findReel(id string) *reel.Job {
	for _, j := range s.reels {
		if j.ID == id {
			cp := *j
			return &cp
		}
	}
	return nil
}
