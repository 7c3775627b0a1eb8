package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// TrainJob represents an async gallery training job.
type TrainJob struct {
	EventBroadcaster

	ID          string
	Status      JobStatus
	Push        bool
	Total       int
	Processed   int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	Result      *TrainJobResult
}

// TrainJobResult summarizes a finished training job.
type TrainJobResult struct {
	Students        int               `json:"students"`
	Descriptors     int               `json:"descriptors"`
	Samples         int               `json:"samples"`
	Encoded         int               `json:"encoded"`
	NoFace          int               `json:"no_face"`
	MultiFace       int               `json:"multi_face"`
	Unreadable      int               `json:"unreadable"`
	Failed          int               `json:"failed"`
	Unusable        []roster.Identity `json:"unusable,omitempty"`
	DuplicateRegNos []string          `json:"duplicate_reg_nos,omitempty"`
	Pushed          bool              `json:"pushed"`
}

// GetStatus returns the current job status.
func (j *TrainJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel cancels the training job.
func (j *TrainJob) Cancel() {
	j.mu.Lock()
	j.Status = JobStatusCancelled
	j.mu.Unlock()
	j.EventBroadcaster.Cancel()
}

// TrainJobInfo is a point-in-time view of a training job.
type TrainJobInfo struct {
	ID          string          `json:"id"`
	Status      JobStatus       `json:"status"`
	Push        bool            `json:"push"`
	Total       int             `json:"total_samples"`
	Processed   int             `json:"processed_samples"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      *TrainJobResult `json:"result,omitempty"`
}

// Snapshot returns a copy of the job state safe to encode.
func (j *TrainJob) Snapshot() *TrainJobInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return &TrainJobInfo{
		ID:          j.ID,
		Status:      j.Status,
		Push:        j.Push,
		Total:       j.Total,
		Processed:   j.Processed,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Result:      j.Result,
	}
}

func (j *TrainJob) setProgress(done, total int) {
	j.mu.Lock()
	j.Processed = done
	j.Total = total
	j.mu.Unlock()
}

// finish moves the job into a terminal state unless it was cancelled.
func (j *TrainJob) finish(status JobStatus, result *TrainJobResult, errMsg string) {
	now := time.Now()
	j.mu.Lock()
	if j.Status != JobStatusCancelled {
		j.Status = status
	}
	j.Result = result
	j.Error = errMsg
	j.CompletedAt = &now
	j.mu.Unlock()
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	if b.cancel != nil {
		b.cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// JobManager manages async training jobs. At most one job runs at a time
// because every job rewrites the same gallery.
type JobManager struct {
	jobs   map[string]*TrainJob
	order  []string
	active string
	mu     sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*TrainJob),
	}
}

// CreateJob registers a new pending job. cancel stops the job's work. It
// returns nil when another job is still pending or running. Finished jobs
// beyond constants.TrainJobHistory are forgotten, oldest first.
func (m *JobManager) CreateJob(id string, push bool, cancel context.CancelFunc) *TrainJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.jobs[m.active]; ok && !isJobTerminal(cur.GetStatus()) {
		return nil
	}

	job := &TrainJob{
		EventBroadcaster: EventBroadcaster{cancel: cancel},
		ID:               id,
		Status:           JobStatusPending,
		Push:             push,
		StartedAt:        time.Now(),
	}
	m.jobs[id] = job
	m.order = append(m.order, id)
	m.active = id

	for len(m.order) > constants.TrainJobHistory {
		delete(m.jobs, m.order[0])
		m.order = m.order[1:]
	}
	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *TrainJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns the remembered jobs, newest first.
func (m *JobManager) ListJobs() []*TrainJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*TrainJob, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		jobs = append(jobs, m.jobs[m.order[i]])
	}
	return jobs
}
