package reel

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kirubel/essence-mirror/internal/media"
	"github.com/kirubel/essence-mirror/internal/metrics"
	"github.com/kirubel/essence-mirror/internal/store"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

const testArn = "arn:aws:bedrock:us-east-1:123456789012:async-invoke/k1k2k3"

type fakeBedrock struct {
	startIn  *bedrockruntime.StartAsyncInvokeInput
	startErr error

	getCalls int
	getOut   *bedrockruntime.GetAsyncInvokeOutput
	getErr   error
}

func (f *fakeBedrock) StartAsyncInvoke(_ context.Context, in *bedrockruntime.StartAsyncInvokeInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.StartAsyncInvokeOutput, error) {
	f.startIn = in
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &bedrockruntime.StartAsyncInvokeOutput{InvocationArn: aws.String(testArn)}, nil
}

func (f *fakeBedrock) GetAsyncInvoke(_ context.Context, _ *bedrockruntime.GetAsyncInvokeInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.GetAsyncInvokeOutput, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeImages struct {
	data []byte
	err  error
}

func (f fakeImages) Fetch(context.Context, media.Ref) ([]byte, error) { return f.data, f.err }

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://signed/" + aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestTracker(t *testing.T, bedrock *fakeBedrock, opts Options) (*Tracker, *store.MemoryStore) {
	t.Helper()
	jobs := store.NewMemoryStore()
	if opts.OutputURI == "" {
		opts.OutputURI = "s3://essencemirror-user-uploads/"
	}
	if opts.ModelID == "" {
		opts.ModelID = "amazon.nova-reel-v1:1"
	}
	tr := NewTracker(bedrock, fakeImages{data: pngBytes(t)}, jobs, opts)
	tr.now = func() time.Time { return time.Unix(1700000000, 0) }
	tr.token = func() string { return "token-1" }
	return tr, jobs
}

var testImage = media.Ref{Bucket: "essencemirror-user-uploads", Key: "uploads/web_20240101_000000_abcd1234.png"}

func TestStart_SubmitsAndPersists(t *testing.T) {
	bedrock := &fakeBedrock{}
	tr, jobs := newTestTracker(t, bedrock, Options{})

	job, err := tr.Start(context.Background(), "sess-1", Request{Image: testImage, StyleFocus: "Travel", Recommendations: []string{"linen shirt"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if job.ID != testArn || job.Status != store.ReelInProgress || job.StyleFocus != "travel" || job.DurationSeconds != DefaultDurationSeconds {
		t.Errorf("job = %+v", job)
	}
	if !strings.HasPrefix(job.Prompt, "Transform this person into travel-ready outfits") || !strings.Contains(job.Prompt, ", linen shirt, maintain") {
		t.Errorf("prompt = %q", job.Prompt)
	}

	in := bedrock.startIn
	if aws.ToString(in.ModelId) != "amazon.nova-reel-v1:1" || aws.ToString(in.ClientRequestToken) != "token-1" {
		t.Errorf("input = %+v", in)
	}
	cfg, ok := in.OutputDataConfig.(*types.AsyncInvokeOutputDataConfigMemberS3OutputDataConfig)
	if !ok || aws.ToString(cfg.Value.S3Uri) != "s3://essencemirror-user-uploads" {
		t.Errorf("output config = %#v", in.OutputDataConfig)
	}
	if in.ModelInput == nil {
		t.Error("model input missing")
	}

	stored, _ := jobs.GetReelJob(context.Background(), "sess-1", testArn)
	if stored == nil || stored.Status != store.ReelInProgress {
		t.Errorf("stored = %+v", stored)
	}
}

func TestStart_Failures(t *testing.T) {
	ctx := context.Background()

	tr, _ := newTestTracker(t, &fakeBedrock{}, Options{})
	if _, err := tr.Start(ctx, "s", Request{}); !errors.Is(err, ErrNoImage) {
		t.Errorf("no image: err = %v", err)
	}

	tr.images = fakeImages{data: []byte("not an image")}
	if _, err := tr.Start(ctx, "s", Request{Image: testImage}); !errors.Is(err, media.ErrInvalidImage) {
		t.Errorf("bad image: err = %v", err)
	}

	tr, jobs := newTestTracker(t, &fakeBedrock{startErr: errors.New("ValidationException")}, Options{})
	if _, err := tr.Start(ctx, "s", Request{Image: testImage}); !errors.Is(err, ErrGeneration) {
		t.Errorf("start error: err = %v", err)
	}
	if list, _ := jobs.ListReelJobs(ctx, "s"); len(list) != 0 {
		t.Errorf("failed start persisted %d jobs", len(list))
	}
}

func TestBuildModelInput(t *testing.T) {
	in := buildModelInput("a prompt", "QUJD", 6, 42)
	if in.TaskType != "TEXT_VIDEO" || in.TextToVideoParams.Text != "a prompt" {
		t.Errorf("input = %+v", in)
	}
	if len(in.TextToVideoParams.Images) != 1 || in.TextToVideoParams.Images[0].Format != "jpeg" || in.TextToVideoParams.Images[0].Source.Bytes != "QUJD" {
		t.Errorf("images = %+v", in.TextToVideoParams.Images)
	}
	want := videoGenerationConfig{FPS: 24, DurationSeconds: 6, Dimension: "1280x720", Seed: 42}
	if in.VideoGenerationConfig != want {
		t.Errorf("config = %+v, want %+v", in.VideoGenerationConfig, want)
	}
}

func TestPoll_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		out        *bedrockruntime.GetAsyncInvokeOutput
		err        error
		wantStatus string
		wantURL    string
		wantError  string
	}{
		{
			name:       "completed uses configured output",
			out:        &bedrockruntime.GetAsyncInvokeOutput{Status: types.AsyncInvokeStatusCompleted},
			wantStatus: store.ReelCompleted,
			wantURL:    "s3://essencemirror-user-uploads/k1k2k3/output.mp4",
		},
		{
			name: "completed prefers explicit output",
			out: &bedrockruntime.GetAsyncInvokeOutput{
				Status: types.AsyncInvokeStatusCompleted,
				OutputDataConfig: &types.AsyncInvokeOutputDataConfigMemberS3OutputDataConfig{
					Value: types.AsyncInvokeS3OutputDataConfig{S3Uri: aws.String("s3://other-bucket/reels")},
				},
			},
			wantStatus: store.ReelCompleted,
			wantURL:    "s3://other-bucket/reels/k1k2k3/output.mp4",
		},
		{
			name:       "failed",
			out:        &bedrockruntime.GetAsyncInvokeOutput{Status: types.AsyncInvokeStatusFailed, FailureMessage: aws.String("content filtered")},
			wantStatus: store.ReelFailed,
			wantError:  "content filtered",
		},
		{
			name:       "still running",
			out:        &bedrockruntime.GetAsyncInvokeOutput{Status: types.AsyncInvokeStatusInProgress},
			wantStatus: store.ReelInProgress,
		},
		{
			name:       "status call fails",
			err:        errors.New("throttled"),
			wantStatus: store.ReelError,
			wantError:  "throttled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bedrock := &fakeBedrock{}
			tr, _ := newTestTracker(t, bedrock, Options{})
			ctx := context.Background()
			if _, err := tr.Start(ctx, "sess-1", Request{Image: testImage}); err != nil {
				t.Fatal(err)
			}

			bedrock.getOut, bedrock.getErr = tt.out, tt.err
			job, err := tr.Poll(ctx, "sess-1", testArn)
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if job.Status != tt.wantStatus || job.ResultURL != tt.wantURL || job.Error != tt.wantError {
				t.Errorf("job = {status %q url %q error %q}, want {%q %q %q}", job.Status, job.ResultURL, job.Error, tt.wantStatus, tt.wantURL, tt.wantError)
			}
		})
	}
}

func TestPoll_TerminalIsIdempotent(t *testing.T) {
	bedrock := &fakeBedrock{getOut: &bedrockruntime.GetAsyncInvokeOutput{Status: types.AsyncInvokeStatusCompleted}}
	tr, _ := newTestTracker(t, bedrock, Options{Presigner: fakePresigner{}})
	ctx := context.Background()
	if _, err := tr.Start(ctx, "sess-1", Request{Image: testImage}); err != nil {
		t.Fatal(err)
	}

	first, err := tr.Poll(ctx, "sess-1", testArn)
	if err != nil {
		t.Fatal(err)
	}
	second, err := tr.Poll(ctx, "sess-1", testArn)
	if err != nil {
		t.Fatal(err)
	}
	if bedrock.getCalls != 1 {
		t.Errorf("GetAsyncInvoke called %d times, want 1", bedrock.getCalls)
	}
	if first.ResultURL != second.ResultURL || second.Status != store.ReelCompleted {
		t.Errorf("first %+v, second %+v", first, second)
	}
	if second.PlaybackURL != "https://signed/essencemirror-user-uploads/k1k2k3/output.mp4" {
		t.Errorf("PlaybackURL = %q", second.PlaybackURL)
	}
}

func TestPoll_ErrorIsTerminal(t *testing.T) {
	bedrock := &fakeBedrock{getErr: errors.New("boom")}
	tr, _ := newTestTracker(t, bedrock, Options{})
	ctx := context.Background()
	if _, err := tr.Start(ctx, "s", Request{Image: testImage}); err != nil {
		t.Fatal(err)
	}
	_, _ = tr.Poll(ctx, "s", testArn)
	job, _ := tr.Poll(ctx, "s", testArn)
	if job.Status != store.ReelError || bedrock.getCalls != 1 {
		t.Errorf("status %q after %d calls", job.Status, bedrock.getCalls)
	}
}

func TestPoll_UnknownJob(t *testing.T) {
	tr, _ := newTestTracker(t, &fakeBedrock{}, Options{})
	if _, err := tr.Poll(context.Background(), "s", "arn:missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestForget(t *testing.T) {
	tr, jobs := newTestTracker(t, &fakeBedrock{}, Options{})
	ctx := context.Background()
	if _, err := tr.Start(ctx, "s", Request{Image: testImage}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Forget(ctx, "s"); err != nil {
		t.Fatal(err)
	}
	if list, _ := jobs.ListReelJobs(ctx, "s"); len(list) != 0 {
		t.Errorf("%d jobs left", len(list))
	}
}

func TestComposePrompt_UnknownFocus(t *testing.T) {
	got := ComposePrompt("underwater", nil)
	if !strings.HasPrefix(got, "Transform this person into elegant modern clothing") {
		t.Errorf("prompt = %q", got)
	}
	if strings.Contains(got, ", ,") {
		t.Errorf("empty recommendation leaked: %q", got)
	}
}
