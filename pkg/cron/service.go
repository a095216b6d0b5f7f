// Package cron runs scheduled jobs against the agent: either a prompt
// injected as an agent turn or a fixed message pushed to a channel.
package cron

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/clawgate/clawgate/pkg/config"
	"github.com/clawgate/clawgate/pkg/logger"
)

const defaultTickInterval = 30 * time.Second

// Job kinds. An agentTurn job runs its prompt through the agent; a
// message job delivers fixed text to a channel.
const (
	KindAgentTurn = "agentTurn"
	KindMessage   = "message"
)

type Job struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	Enabled  bool       `json:"enabled"`
	Kind     string     `json:"kind"`
	Prompt   string     `json:"prompt,omitempty"`
	Message  string     `json:"message,omitempty"`
	Channel  string     `json:"channel,omitempty"`
	To       string     `json:"to,omitempty"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	RunCount uint64     `json:"run_count"`
}

func JobFromConfig(cfg config.CronJobConfig) Job {
	kind := cfg.Kind
	if kind == "" {
		kind = KindAgentTurn
	}
	job := Job{
		ID:       uuid.NewString(),
		Name:     cfg.Name,
		Schedule: cfg.Schedule,
		Enabled:  cfg.Enabled == nil || *cfg.Enabled,
		Kind:     kind,
		Prompt:   cfg.Prompt,
		Message:  cfg.Message,
		Channel:  cfg.Channel,
		To:       cfg.To,
	}
	if next, ok := nextRun(cfg.Schedule, time.Now()); ok {
		job.NextRun = &next
	}
	return job
}

func (j *Job) shouldRun(now time.Time) bool {
	return j.Enabled && j.NextRun != nil && !now.Before(*j.NextRun)
}

func (j *Job) advance(now time.Time) {
	j.LastRun = &now
	j.RunCount++
	if next, ok := nextRun(j.Schedule, now); ok {
		j.NextRun = &next
	} else {
		j.NextRun = nil
	}
}

// nextRun computes the next fire time from either a simple interval
// ("30m", "2h") or a standard cron expression.
func nextRun(schedule string, now time.Time) (time.Time, bool) {
	if schedule == "" {
		return time.Time{}, false
	}

	if d, ok := parseInterval(schedule); ok {
		return now.Add(d), true
	}

	next, err := gronx.NextTickAfter(schedule, now, false)
	if err != nil {
		logger.WarnCF("cron", "invalid schedule", map[string]any{
			"schedule": schedule,
			"error":    err.Error(),
		})
		return time.Time{}, false
	}
	return next, true
}

// parseInterval handles "60s", "30m", "2h", "1d".
func parseInterval(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, false
	}

	var unit time.Duration
	switch s[len(s)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	default:
		return 0, false
	}

	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

// FireFunc receives each due job. Dispatch by Kind is the caller's
// concern; the service only tracks schedules.
type FireFunc func(ctx context.Context, job Job)

type Service struct {
	mu     sync.RWMutex
	jobs   []Job
	fire   FireFunc
	tick   time.Duration
	cancel context.CancelFunc
}

func NewService(fire FireFunc) *Service {
	return &Service{fire: fire, tick: defaultTickInterval}
}

func (s *Service) LoadFromConfig(jobs []config.CronJobConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = s.jobs[:0]
	for _, cfg := range jobs {
		s.jobs = append(s.jobs, JobFromConfig(cfg))
	}
	logger.InfoCF("cron", "loaded cron jobs", map[string]any{
		"count": len(s.jobs),
	})
}

func (s *Service) AddJob(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

func (s *Service) ListJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

func (s *Service) SetEnabled(id string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			s.jobs[i].Enabled = enabled
			return true
		}
	}
	return false
}

func (s *Service) RemoveJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// checkDue advances every due job and returns copies of them.
func (s *Service) checkDue(now time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Job
	for i := range s.jobs {
		if s.jobs[i].shouldRun(now) {
			s.jobs[i].advance(now)
			due = append(due, s.jobs[i])
		}
	}
	return due
}

// Start launches the tick loop. Stop or context cancellation ends it.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	tick := s.tick
	s.mu.Unlock()

	logger.InfoC("cron", "cron service started")
	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.InfoC("cron", "cron service stopped")
				return
			case now := <-ticker.C:
				for _, job := range s.checkDue(now) {
					logger.InfoCF("cron", "cron job due", map[string]any{
						"name": job.Name,
						"id":   job.ID,
					})
					if s.fire != nil {
						s.fire(ctx, job)
					}
				}
			}
		}
	}()
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
