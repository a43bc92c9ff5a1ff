package voice

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"
)

func fixedConversation() *Conversation {
	c := NewConversation()
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestConversation_AppendMergesFragments(t *testing.T) {
	c := fixedConversation()
	c.Append(TurnUser, "What should I wear ")
	c.Append(TurnUser, "to a wedding?")
	c.Append(TurnAssistant, "A navy suit ")
	c.Append(TurnAssistant, "works well.")
	c.AppendAudio([]byte{1, 2})
	c.AppendAudio([]byte{3, 4})
	c.Append(TurnAssistant, "Anything else?")

	got := c.Turns()
	if len(got) != 3 {
		t.Fatalf("got %d turns: %+v", len(got), got)
	}
	if got[0].Text != "What should I wear to a wedding?" || got[1].Text != "A navy suit works well." {
		t.Errorf("turns = %+v", got)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, got[1].Audio); diff != "" {
		t.Errorf("audio (-want +got):\n%s", diff)
	}
	if got[2].Role != TurnAssistant || got[2].Text != "Anything else?" {
		t.Errorf("third turn = %+v", got[2])
	}
}

func TestConversation_AudioWithoutText(t *testing.T) {
	c := fixedConversation()
	c.Append(TurnUser, "hi")
	c.AppendAudio([]byte{7})
	got := c.Turns()
	if len(got) != 2 || got[1].Role != TurnAssistant || len(got[1].Audio) != 1 {
		t.Errorf("turns = %+v", got)
	}
}

func TestConversation_Reset(t *testing.T) {
	c := fixedConversation()
	c.Append(TurnUser, "hi")
	c.Reset()
	if n := len(c.Turns()); n != 0 {
		t.Errorf("%d turns after Reset", n)
	}
}

func TestConversation_Export(t *testing.T) {
	c := fixedConversation()
	c.Append(TurnUser, "hello")
	c.Append(TurnAssistant, "Hi there.")
	c.AppendAudio([]byte{1, 0, 2, 0})
	c.Append(TurnUser, "thanks")

	var buf bytes.Buffer
	if err := c.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("not a zip: %v", err)
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	files := map[string][]byte{}
	for _, f := range zr.File {
		if f.Method != zstd.ZipMethodWinZip {
			t.Errorf("%s method = %d", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		files[f.Name] = data
	}

	wav, ok := files["turn-002.wav"]
	if !ok || len(files) != 2 {
		t.Fatalf("entries = %v", keys(files))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Errorf("bad wav header % x", wav[:12])
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 24000 {
		t.Errorf("sample rate = %d", rate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != 4 || len(wav) != 48 {
		t.Errorf("data size = %d, file %d bytes", size, len(wav))
	}

	var transcript []struct {
		Role      string `json:"role"`
		Text      string `json:"text"`
		AudioFile string `json:"audioFile"`
	}
	if err := json.Unmarshal(files["transcript.json"], &transcript); err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if len(transcript) != 3 || transcript[1].AudioFile != "turn-002.wav" || transcript[0].AudioFile != "" {
		t.Errorf("transcript = %+v", transcript)
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
