package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a process-local JobStore used by the CLI and tests.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]map[string]ReelJob
}

var _ JobStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]map[string]ReelJob)}
}

func (m *MemoryStore) PutReelJob(_ context.Context, job *ReelJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().Unix()
	if job.CreatedAt == 0 {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	byID, ok := m.jobs[job.SessionID]
	if !ok {
		byID = make(map[string]ReelJob)
		m.jobs[job.SessionID] = byID
	}
	byID[job.ID] = *job
	return nil
}

func (m *MemoryStore) GetReelJob(_ context.Context, sessionID, jobID string) (*ReelJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[sessionID][jobID]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

// ListReelJobs returns the session's jobs oldest first.
func (m *MemoryStore) ListReelJobs(_ context.Context, sessionID string) ([]*ReelJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]*ReelJob, 0, len(m.jobs[sessionID]))
	for _, j := range m.jobs[sessionID] {
		j := j
		jobs = append(jobs, &j)
	}
	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].CreatedAt != jobs[b].CreatedAt {
			return jobs[a].CreatedAt < jobs[b].CreatedAt
		}
		return jobs[a].ID < jobs[b].ID
	})
	return jobs, nil
}

func (m *MemoryStore) DeleteReelJobs(_ context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.jobs[sessionID])
	delete(m.jobs, sessionID)
	return n, nil
}
