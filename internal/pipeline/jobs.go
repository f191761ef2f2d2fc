package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/doconv/internal/convert"
	"github.com/google/uuid"
)

// JobStatus represents the state of a batch conversion job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusDownloading JobStatus = "downloading"
	StatusConverting  JobStatus = "converting"
	StatusUploading   JobStatus = "uploading"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusPartial     JobStatus = "partial"
)

// Source names one input object.
type Source struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// ItemResult is the outcome for one source object.
type ItemResult struct {
	Source      Source `json:"source"`
	OutputKey   string `json:"output_key,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Job tracks the conversion of a batch of objects to one target format.
type Job struct {
	mu sync.Mutex

	ID           string
	Target       convert.Format
	OutputBucket string
	Sources      []Source

	Status JobStatus
	Phase  string

	Progress Progress
	results  []ItemResult

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Progress tracks processing progress.
type Progress struct {
	Total     int      `json:"total"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// NewJob creates a queued job with a fresh ID.
func NewJob(target convert.Format, outputBucket string, sources []Source) *Job {
	now := time.Now()
	return &Job{
		ID:           uuid.NewString(),
		Target:       target,
		OutputBucket: outputBucket,
		Sources:      sources,
		Status:       StatusQueued,
		Phase:        "queued",
		Progress:     Progress{Total: len(sources)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddResult records the outcome for one source.
func (j *Job) AddResult(r ItemResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, r)
	if r.Error != "" {
		j.Progress.Failed++
		j.Progress.Errors = append(j.Progress.Errors, r.Source.Bucket+"/"+r.Source.Key+": "+r.Error)
	} else {
		j.Progress.Completed++
	}
	j.UpdatedAt = time.Now()
}

// Finish sets the final status from the recorded results.
func (j *Job) Finish() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch {
	case j.Progress.Failed == 0:
		j.Status = StatusCompleted
	case j.Progress.Completed == 0:
		j.Status = StatusFailed
	default:
		j.Status = StatusPartial
	}
	j.Phase = "done"
	j.UpdatedAt = time.Now()
	return j.Status
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string       `json:"job_id"`
	Target       string       `json:"target"`
	OutputBucket string       `json:"output_bucket"`
	Status       JobStatus    `json:"status"`
	Phase        string       `json:"phase"`
	Progress     Progress     `json:"progress"`
	Results      []ItemResult `json:"results"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	results := append([]ItemResult{}, j.results...)
	return JobSnapshot{
		ID:           j.ID,
		Target:       string(j.Target),
		OutputBucket: j.OutputBucket,
		Status:       j.Status,
		Phase:        j.Phase,
		Progress: Progress{
			Total:     j.Progress.Total,
			Completed: j.Progress.Completed,
			Failed:    j.Progress.Failed,
			Errors:    errs,
		},
		Results:   results,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
