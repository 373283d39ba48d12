package scheduler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// JobStatus represents the status of a job.
type JobStatus string

const (
	JobStatusScheduled JobStatus = "scheduled"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobInfo is a snapshot of a scheduled job.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	Status      JobStatus `json:"status"`
	LastRun     time.Time `json:"lastRun"`
	NextRun     time.Time `json:"nextRun"`
	RunCount    int       `json:"runCount"`
	ErrorCount  int       `json:"errorCount"`
	LastError   string    `json:"lastError,omitempty"`
}

// JobFunc is the function executed by a job.
type JobFunc func(ctx context.Context) error

type job struct {
	info   JobInfo
	gocron gocron.Job
}

// Scheduler runs jobs and tracks their status.
type Scheduler struct {
	gocron gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*job
}

// New creates a new scheduler.
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLogger(newLogger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron: s,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*job),
	}, nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.gocron.Start()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		if nextRun, err := j.gocron.NextRun(); err == nil {
			j.info.NextRun = nextRun
		} else {
			log.Warn("Failed to get next run time for job", "id", id, "error", err)
		}
	}
	log.Info("Job scheduler started", "jobs", len(s.jobs))
}

// Stop cancels running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	log.Info("Stopping job scheduler")
	s.cancel()
	return s.gocron.Shutdown()
}

// AddCronJob adds a singleton job running on a 5 field cron schedule.
func (s *Scheduler) AddCronJob(id, name, description, schedule string, fn JobFunc) error {
	return s.addJob(id, name, description, schedule, gocron.CronJob(schedule, false), fn)
}

// addJob adds a singleton job with an arbitrary gocron definition.
// A run that is due while the previous one is still running is rescheduled.
func (s *Scheduler) addJob(id, name, description, schedule string, def gocron.JobDefinition, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job %s already exists", id)
	}

	gj, err := s.gocron.NewJob(def,
		gocron.NewTask(s.wrap(id, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}

	s.jobs[id] = &job{
		info: JobInfo{
			ID:          id,
			Name:        name,
			Description: description,
			Schedule:    schedule,
			Status:      JobStatusScheduled,
		},
		gocron: gj,
	}
	log.Info("Added job to scheduler", "id", id, "name", name, "schedule", schedule)
	return nil
}

// RunJobNow triggers a job immediately.
func (s *Scheduler) RunJobNow(id string) error {
	s.mu.RLock()
	j, exists := s.jobs[id]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not found", id)
	}

	log.Info("Manually triggering job", "id", id)
	if err := j.gocron.RunNow(); err != nil {
		return fmt.Errorf("failed to trigger job %s: %w", id, err)
	}
	return nil
}

// GetJob returns a snapshot of a job.
func (s *Scheduler) GetJob(id string) (JobInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, exists := s.jobs[id]
	if !exists {
		return JobInfo{}, false
	}
	return j.info, true
}

// GetJobs returns snapshots of all jobs ordered by id.
func (s *Scheduler) GetJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		infos = append(infos, j.info)
	}
	slices.SortFunc(infos, func(a, b JobInfo) int { return strings.Compare(a.ID, b.ID) })
	return infos
}

func (s *Scheduler) wrap(id string, fn JobFunc) func() {
	return func() {
		s.update(id, func(j *job) {
			j.info.Status = JobStatusRunning
			j.info.LastRun = time.Now()
			j.info.RunCount++
		})

		log.Info("Starting job", "id", id)
		err := fn(s.ctx)

		s.update(id, func(j *job) {
			if nextRun, nerr := j.gocron.NextRun(); nerr == nil {
				j.info.NextRun = nextRun
			}
			if err != nil {
				j.info.Status = JobStatusFailed
				j.info.ErrorCount++
				j.info.LastError = err.Error()
				return
			}
			j.info.Status = JobStatusCompleted
			j.info.LastError = ""
		})

		if err != nil {
			log.Error("Job failed", "id", id, "error", err)
			return
		}
		log.Info("Job completed successfully", "id", id)
	}
}

func (s *Scheduler) update(id string, fn func(j *job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
	}
}
