package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shivaacodes/clipcraft-hackgen/internal/models"
)

// Registry holds job records in process memory. Records live until
// explicitly deleted; a restart loses them, which is the accepted tradeoff
// for a service whose only durable state is the files it writes.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*models.Job),
	}
}

// Create registers a new running job and returns its id.
func (r *Registry) Create(kind models.JobKind) string {
	now := time.Now()
	job := &models.Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    models.JobStatusRunning,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return job.ID
}

// Get returns a snapshot of the job, safe for the caller to hold.
func (r *Registry) Get(id string) (models.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

// List returns snapshots of all jobs.
func (r *Registry) List() []models.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	return out
}

// Delete removes a job record. Reports whether the id existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return false
	}
	delete(r.jobs, id)
	return true
}

// SetProgress advances a running job. Progress never moves backwards and
// terminal jobs are left untouched.
func (r *Registry) SetProgress(id string, percent int, step string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || isTerminal(job.Status) {
		return
	}

	if percent > job.Progress {
		job.Progress = percent
	}
	job.CurrentStep = step
	job.UpdatedAt = time.Now()
}

// Complete marks a job finished with its result.
func (r *Registry) Complete(id string, result interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || isTerminal(job.Status) {
		return
	}

	job.Status = models.JobStatusCompleted
	job.Progress = 100
	job.CurrentStep = "completed"
	job.Result = result
	job.UpdatedAt = time.Now()
}

// Fail marks a job failed, freezing its progress where it stopped.
func (r *Registry) Fail(id string, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || isTerminal(job.Status) {
		return
	}

	job.Status = models.JobStatusFailed
	job.CurrentStep = "failed"
	job.Error = &errMsg
	job.UpdatedAt = time.Now()
}

func isTerminal(status models.JobStatus) bool {
	return status == models.JobStatusCompleted || status == models.JobStatusFailed
}
