// Package store persists reel job records so a poll can be served by any
// process, including a recycled Lambda container.
//
// DynamoStore uses a single-table design: every record for a session shares
// the partition key SESSION#{sessionId} and reel jobs sort under
// REEL#{jobArn}. A TTL attribute (expiresAt) removes records after JobTTL.
package store

import (
	"context"
	"time"
)

// JobTTL is the lifetime of a persisted reel job record.
const JobTTL = 24 * time.Hour

// Reel job statuses. Completed, Failed and Error are terminal.
const (
	ReelStarted    = "started"
	ReelInProgress = "in_progress"
	ReelCompleted  = "completed"
	ReelFailed     = "failed"
	// ReelError means the status check itself failed, as opposed to the
	// remote job reporting failure.
	ReelError = "error"
)

// JobStore persists reel jobs.
//
// Get methods return (nil, nil) when the record does not exist.
// Put methods perform full-item replacement.
type JobStore interface {
	PutReelJob(ctx context.Context, job *ReelJob) error
	GetReelJob(ctx context.Context, sessionID, jobID string) (*ReelJob, error)
	ListReelJobs(ctx context.Context, sessionID string) ([]*ReelJob, error)
	// DeleteReelJobs removes every reel job of the session and returns how many were deleted.
	DeleteReelJobs(ctx context.Context, sessionID string) (int, error)
}

// ReelJob is one async video generation request. ID is the vendor
// invocation ARN.
type ReelJob struct {
	ID              string `json:"jobId" dynamodbav:"-"`
	SessionID       string `json:"sessionId" dynamodbav:"-"`
	Status          string `json:"status" dynamodbav:"status"`
	Prompt          string `json:"prompt" dynamodbav:"prompt"`
	StyleFocus      string `json:"styleFocus" dynamodbav:"styleFocus"`
	DurationSeconds int    `json:"durationSeconds" dynamodbav:"durationSeconds"`
	OutputURI       string `json:"outputUri,omitempty" dynamodbav:"outputUri,omitempty"`
	ResultURL       string `json:"resultUrl,omitempty" dynamodbav:"resultUrl,omitempty"`
	PlaybackURL     string `json:"playbackUrl,omitempty" dynamodbav:"-"`
	Error           string `json:"error,omitempty" dynamodbav:"error,omitempty"`
	CreatedAt       int64  `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt" dynamodbav:"updatedAt"`
}

// Terminal reports whether no further polling can change the job.
func (j *ReelJob) Terminal() bool {
	switch j.Status {
	case ReelCompleted, ReelFailed, ReelError:
		return true
	}
	return false
}
