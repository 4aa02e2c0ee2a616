// Package scheduler holds the in-memory job table and fires callbacks at
// wall-clock time. It is deliberately empty at process start; the durable
// task ledger re-arms it during startup recovery.
package scheduler

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appErrors "github.com/craftcrm/campaign-engine/internal/errors"
)

// ErrNotStarted is a process-level configuration fault: something tried to
// schedule work before Start (or after Stop).
var ErrNotStarted = appErrors.NewValidation("scheduler is not running")

// JobInfo is the externally visible description of a registered job.
type JobInfo struct {
	ID        string     `json:"job_id"`
	Recurring bool       `json:"recurring"`
	CronExpr  string     `json:"cron_expression,omitempty"`
	NextRun   *time.Time `json:"next_run_time,omitempty"`
}

type job struct {
	info     JobInfo
	fn       func()
	timer    *time.Timer
	schedule cron.Schedule // nil for one-shot jobs
	running  bool
	removed  bool
}

// Scheduler owns the job table behind a single mutex. Callbacks run on their
// own goroutine; a per-job running flag guarantees the same job id never
// overlaps itself, while different ids run concurrently.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*job
	parser  cron.Parser
	started bool
}

func New() *Scheduler {
	return &Scheduler{
		jobs: make(map[string]*job),
		// five fields: minute hour day-of-month month day-of-week
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	log.Println("✅ Scheduler started")
}

// Stop disarms every timer and empties the job table. In-flight callbacks run
// to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		j.removed = true
		if j.timer != nil {
			j.timer.Stop()
		}
	}
	s.jobs = make(map[string]*job)
	s.started = false
	log.Println("Scheduler stopped")
}

// ValidateCron checks a five-field cron expression without registering anything.
func (s *Scheduler) ValidateCron(expr string) error {
	if _, err := s.parser.Parse(expr); err != nil {
		return appErrors.NewValidation("invalid cron expression %q: %v", expr, err)
	}
	return nil
}

// ScheduleOnce registers a one-shot job. Re-scheduling an existing id replaces
// the prior job. The run time must be strictly in the future.
func (s *Scheduler) ScheduleOnce(jobID string, runAt time.Time, fn func()) error {
	if !runAt.After(time.Now()) {
		return appErrors.NewValidation("scheduled time must be in the future")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}

	s.removeLocked(jobID)

	next := runAt
	j := &job{
		info: JobInfo{ID: jobID, NextRun: &next},
		fn:   fn,
	}
	j.timer = time.AfterFunc(time.Until(runAt), func() { s.fire(j) })
	s.jobs[jobID] = j
	return nil
}

// ScheduleRecurring registers a cron-recurring job. Re-scheduling an existing
// id replaces the prior job.
func (s *Scheduler) ScheduleRecurring(jobID, cronExpr string, fn func()) error {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return appErrors.NewValidation("invalid cron expression %q: %v", cronExpr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}

	s.removeLocked(jobID)

	j := &job{
		info:     JobInfo{ID: jobID, Recurring: true, CronExpr: cronExpr},
		fn:       fn,
		schedule: schedule,
	}
	s.jobs[jobID] = j
	s.armLocked(j)
	return nil
}

// Cancel removes a job from the table. Cancelling an unknown id is a no-op
// returning false, to tolerate races with natural completion.
func (s *Scheduler) Cancel(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobID]
	if !ok {
		return false
	}
	s.removeLocked(jobID)
	return true
}

func (s *Scheduler) Get(jobID string) (JobInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return JobInfo{}, false
	}
	return j.info, true
}

func (s *Scheduler) ListAll() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		infos = append(infos, j.info)
	}
	sort.Slice(infos, func(i, k int) bool { return infos[i].ID < infos[k].ID })
	return infos
}

// NextRun reports the next firing time for a job id, nil when unknown.
func (s *Scheduler) NextRun(jobID string) *time.Time {
	info, ok := s.Get(jobID)
	if !ok {
		return nil
	}
	return info.NextRun
}

func (s *Scheduler) removeLocked(jobID string) {
	if old, ok := s.jobs[jobID]; ok {
		old.removed = true
		if old.timer != nil {
			old.timer.Stop()
		}
		delete(s.jobs, jobID)
	}
}

func (s *Scheduler) armLocked(j *job) {
	next := j.schedule.Next(time.Now())
	j.info.NextRun = &next
	j.timer = time.AfterFunc(time.Until(next), func() { s.fire(j) })
}

// fire runs one job instance. A stopped timer may already have fired and be
// waiting on the mutex while the same id is re-scheduled; the instance check
// ensures only the job still in the table runs, so a replacement is never
// executed at the old trigger time.
func (s *Scheduler) fire(j *job) {
	s.mu.Lock()
	jobID := j.info.ID
	if cur, ok := s.jobs[jobID]; !ok || cur != j || j.removed {
		s.mu.Unlock()
		return
	}
	if j.running {
		// previous occurrence still in flight: skip this one entirely
		if j.info.Recurring {
			s.armLocked(j)
		}
		s.mu.Unlock()
		return
	}
	j.running = true
	j.info.NextRun = nil
	s.mu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("⚠️ job %s panicked: %v", jobID, r)
			}
		}()
		j.fn()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	j.running = false
	if cur, ok := s.jobs[jobID]; !ok || cur != j || j.removed {
		return
	}
	if j.info.Recurring {
		s.armLocked(j)
	} else {
		delete(s.jobs, jobID)
	}
}
