package voice

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Turn roles in a Conversation.
const (
	TurnUser      = "user"
	TurnAssistant = "assistant"
)

// Turn is one exchange. Audio holds 24 kHz 16-bit mono PCM.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Audio     []byte    `json:"-"`
}

// Conversation is an append-only turn history. Only Reset removes turns.
type Conversation struct {
	mu    sync.Mutex
	turns []Turn
	now   func() time.Time
}

func NewConversation() *Conversation {
	return &Conversation{now: time.Now}
}

// Append adds a turn. Consecutive text for the same role extends the last
// turn instead, since the model streams replies in fragments.
func (c *Conversation) Append(role, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.turns); n > 0 && c.turns[n-1].Role == role && len(c.turns[n-1].Audio) == 0 {
		c.turns[n-1].Text += text
		return
	}
	c.turns = append(c.turns, Turn{Role: role, Text: text, Timestamp: c.now()})
}

// AppendAudio attaches PCM to the latest assistant turn, starting one if
// the last turn is not the assistant's.
func (c *Conversation) AppendAudio(pcm []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.turns)
	if n == 0 || c.turns[n-1].Role != TurnAssistant {
		c.turns = append(c.turns, Turn{Role: TurnAssistant, Timestamp: c.now()})
		n++
	}
	c.turns[n-1].Audio = append(c.turns[n-1].Audio, pcm...)
}

// Turns returns a copy of the history.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

type transcriptTurn struct {
	Turn
	AudioFile string `json:"audioFile,omitempty"`
}

// Export writes a zip holding transcript.json and one turn-NNN.wav per
// assistant turn with audio. Entries are zstd-compressed (zip method 93).
func (c *Conversation) Export(w io.Writer) error {
	turns := c.Turns()

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBetterCompression)))

	transcript := make([]transcriptTurn, len(turns))
	for i, t := range turns {
		transcript[i] = transcriptTurn{Turn: t}
		if t.Role != TurnAssistant || len(t.Audio) == 0 {
			continue
		}
		name := fmt.Sprintf("turn-%03d.wav", i+1)
		transcript[i].AudioFile = name
		if err := writeEntry(zw, name, t.Timestamp, func(f io.Writer) error {
			return writeWAV(f, t.Audio, OutputSampleRate)
		}); err != nil {
			return err
		}
	}

	if err := writeEntry(zw, "transcript.json", time.Now(), func(f io.Writer) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(transcript)
	}); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish export zip: %w", err)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, fill func(io.Writer) error) error {
	f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zstd.ZipMethodWinZip, Modified: modified})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := fill(f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
