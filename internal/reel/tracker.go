// Package reel starts Nova Reel video generations and tracks them to
// completion by polling.
//
// Start returns as soon as the async invocation is accepted. Callers poll;
// the tracker never waits, retries or sleeps.
package reel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/media"
	"github.com/kirubel/essence-mirror/internal/metrics"
	"github.com/kirubel/essence-mirror/internal/s3util"
	"github.com/kirubel/essence-mirror/internal/store"
)

var (
	ErrJobNotFound = errors.New("reel: job not found")
	ErrNoImage     = errors.New("reel: no uploaded image")
	ErrGeneration  = errors.New("reel: video generation request failed")
)

// Job is a tracked video generation.
type Job = store.ReelJob

// BedrockAPI is the async subset of *bedrockruntime.Client.
type BedrockAPI interface {
	StartAsyncInvoke(ctx context.Context, in *bedrockruntime.StartAsyncInvokeInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.StartAsyncInvokeOutput, error)
	GetAsyncInvoke(ctx context.Context, in *bedrockruntime.GetAsyncInvokeInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.GetAsyncInvokeOutput, error)
}

// ImageSource reads a stored upload; *media.Gateway implements it.
type ImageSource interface {
	Fetch(ctx context.Context, ref media.Ref) ([]byte, error)
}

// Request describes one reel generation.
type Request struct {
	Image           media.Ref
	StyleFocus      string
	Recommendations []string
	DurationSeconds int
	// Seed 0 derives one from the clock.
	Seed int64
}

// Options configures a Tracker.
type Options struct {
	ModelID string
	// OutputURI is the s3:// prefix generations are written under.
	OutputURI string
	// Presigner, when set, attaches a playback URL to completed jobs.
	Presigner      s3util.Presigner
	PlaybackExpiry time.Duration
}

type Tracker struct {
	client    BedrockAPI
	images    ImageSource
	jobs      store.JobStore
	modelID   string
	outputURI string
	presigner s3util.Presigner
	expiry    time.Duration

	now   func() time.Time
	token func() string
}

func NewTracker(client BedrockAPI, images ImageSource, jobs store.JobStore, opts Options) *Tracker {
	expiry := opts.PlaybackExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Tracker{
		client:    client,
		images:    images,
		jobs:      jobs,
		modelID:   opts.ModelID,
		outputURI: strings.TrimRight(opts.OutputURI, "/"),
		presigner: opts.Presigner,
		expiry:    expiry,
		now:       time.Now,
		token:     uuid.NewString,
	}
}

// Start submits the generation and records the job as in progress.
func (t *Tracker) Start(ctx context.Context, sessionID string, req Request) (*Job, error) {
	if req.Image.IsZero() {
		return nil, ErrNoImage
	}
	start := t.now()

	data, err := t.images.Fetch(ctx, req.Image)
	if err != nil {
		return nil, fmt.Errorf("reel source image: %w", err)
	}
	frame, err := media.PrepareReelFrame(data)
	if err != nil {
		return nil, fmt.Errorf("reel source image: %w", err)
	}

	focus := NormalizeFocus(req.StyleFocus)
	prompt := ComposePrompt(focus, req.Recommendations)
	duration := req.DurationSeconds
	if duration <= 0 {
		duration = DefaultDurationSeconds
	}
	seed := req.Seed
	if seed == 0 {
		seed = start.Unix() % maxSeed
	}

	out, err := t.client.StartAsyncInvoke(ctx, &bedrockruntime.StartAsyncInvokeInput{
		ModelId:            aws.String(t.modelID),
		ClientRequestToken: aws.String(t.token()),
		ModelInput:         document.NewLazyDocument(buildModelInput(prompt, frame, duration, seed)),
		OutputDataConfig: &types.AsyncInvokeOutputDataConfigMemberS3OutputDataConfig{
			Value: types.AsyncInvokeS3OutputDataConfig{S3Uri: aws.String(t.outputURI)},
		},
	})
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Str("model", t.modelID).Msg("Reel start failed")
		t.record("start", store.ReelError, start)
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	ts := t.now().Unix()
	job := &Job{
		ID:              aws.ToString(out.InvocationArn),
		SessionID:       sessionID,
		Status:          store.ReelInProgress,
		Prompt:          prompt,
		StyleFocus:      focus,
		DurationSeconds: duration,
		OutputURI:       t.outputURI,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if err := t.jobs.PutReelJob(ctx, job); err != nil {
		log.Error().Err(err).Str("jobId", job.ID).Msg("Reel job started but not persisted")
		return nil, fmt.Errorf("persist reel job: %w", err)
	}

	t.record("start", store.ReelStarted, start)
	log.Info().
		Str("sessionId", sessionID).
		Str("jobId", job.ID).
		Str("styleFocus", focus).
		Int("durationSeconds", duration).
		Int64("seed", seed).
		Msg("Reel generation started")
	return job, nil
}

// Poll checks the job once. Terminal jobs are returned as stored without a
// remote call. A failed status call marks the job as error, which is terminal.
func (t *Tracker) Poll(ctx context.Context, sessionID, jobID string) (*Job, error) {
	job, err := t.jobs.GetReelJob(ctx, sessionID, jobID)
	if err != nil {
		return nil, fmt.Errorf("load reel job: %w", err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if job.Terminal() {
		t.attachPlayback(ctx, job)
		return job, nil
	}

	start := t.now()
	out, err := t.client.GetAsyncInvoke(ctx, &bedrockruntime.GetAsyncInvokeInput{InvocationArn: aws.String(job.ID)})
	if err != nil {
		log.Warn().Err(err).Str("jobId", job.ID).Msg("Reel status check failed")
		job.Status = store.ReelError
		job.Error = err.Error()
	} else {
		t.apply(job, out)
	}
	job.UpdatedAt = t.now().Unix()

	if err := t.jobs.PutReelJob(ctx, job); err != nil {
		return nil, fmt.Errorf("persist reel job: %w", err)
	}
	t.record("poll", job.Status, start)
	t.attachPlayback(ctx, job)

	log.Debug().Str("sessionId", sessionID).Str("jobId", job.ID).Str("status", job.Status).Msg("Reel polled")
	return job, nil
}

// Jobs lists the session's reel jobs.
func (t *Tracker) Jobs(ctx context.Context, sessionID string) ([]*Job, error) {
	return t.jobs.ListReelJobs(ctx, sessionID)
}

// Forget drops every job of the session.
func (t *Tracker) Forget(ctx context.Context, sessionID string) error {
	n, err := t.jobs.DeleteReelJobs(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("delete reel jobs: %w", err)
	}
	if n > 0 {
		log.Debug().Str("sessionId", sessionID).Int("deleted", n).Msg("Reel jobs forgotten")
	}
	return nil
}

func (t *Tracker) apply(job *Job, out *bedrockruntime.GetAsyncInvokeOutput) {
	switch out.Status {
	case types.AsyncInvokeStatusCompleted:
		job.Status = store.ReelCompleted
		job.ResultURL = resultLocator(job.ID, explicitOutputURI(out), job.OutputURI, t.outputURI)
		job.Error = ""
	case types.AsyncInvokeStatusFailed:
		job.Status = store.ReelFailed
		job.Error = aws.ToString(out.FailureMessage)
	default:
		job.Status = store.ReelInProgress
	}
}

func explicitOutputURI(out *bedrockruntime.GetAsyncInvokeOutput) string {
	if cfg, ok := out.OutputDataConfig.(*types.AsyncInvokeOutputDataConfigMemberS3OutputDataConfig); ok {
		return aws.ToString(cfg.Value.S3Uri)
	}
	return ""
}

// resultLocator joins the first non-empty base URI with the ARN's trailing
// segment and output.mp4.
func resultLocator(arn string, bases ...string) string {
	for _, base := range bases {
		if base = strings.TrimRight(base, "/"); base != "" {
			return base + "/" + arn[strings.LastIndex(arn, "/")+1:] + "/output.mp4"
		}
	}
	return ""
}

func (t *Tracker) attachPlayback(ctx context.Context, job *Job) {
	if t.presigner == nil || job.Status != store.ReelCompleted || job.ResultURL == "" {
		return
	}
	bucket, key, err := s3util.ParseURI(job.ResultURL)
	if err != nil {
		return
	}
	url, err := s3util.GeneratePresignedURL(ctx, t.presigner, bucket, key, t.expiry)
	if err != nil {
		log.Warn().Err(err).Str("jobId", job.ID).Msg("Reel playback URL unavailable")
		return
	}
	job.PlaybackURL = url
}

func (t *Tracker) record(op, status string, start time.Time) {
	metrics.ReelJobsTotal.WithLabelValues(status).Inc()
	metrics.New(metrics.Namespace).
		Dimension("Operation", op).
		Count("ReelCalls").
		Latency("ReelCallLatencyMs", start).
		Property("status", status).
		Flush()
}
