package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobFunc is a maintenance task. The context is cancelled after the job timeout.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	spec     string
	fn       JobFunc
	id       cron.EntryID
	lastRun  time.Time
	lastErr  error
	runCount int
}

type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
	mu      sync.Mutex
	jobs    map[string]*job
	order   []string
	running bool
}

func NewScheduler(timeout time.Duration, logger *zap.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		logger:  logger,
		timeout: timeout,
		jobs:    make(map[string]*job),
	}
}

// AddJob registers fn under a cron spec such as "@every 1m" or "*/5 * * * *".
func (s *Scheduler) AddJob(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	j := &job{name: name, spec: spec, fn: fn}
	id, err := s.cron.AddFunc(spec, func() { s.run(j) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", spec, name, err)
	}
	j.id = id
	s.jobs[name] = j
	s.order = append(s.order, name)

	s.logger.Info("Scheduled job registered",
		zap.String("job", name),
		zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.cron.Start()

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
}

func (s *Scheduler) run(j *job) error {
	startTime := time.Now()
	s.logger.Debug("Running scheduled job", zap.String("job", j.name))

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := j.fn(ctx)

	s.mu.Lock()
	j.lastRun = startTime
	j.lastErr = err
	j.runCount++
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled job failed",
			zap.String("job", j.name),
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)))
		return err
	}
	s.logger.Debug("Scheduled job completed",
		zap.String("job", j.name),
		zap.Duration("duration", time.Since(startTime)))
	return nil
}

// Stop halts the schedule and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}
}

// ForceRun runs a registered job immediately on the calling goroutine.
func (s *Scheduler) ForceRun(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}

	s.logger.Info("Manually triggering job", zap.String("job", name))
	return s.run(j)
}

func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]map[string]interface{}, 0, len(s.order))
	for _, name := range s.order {
		j := s.jobs[name]
		status := map[string]interface{}{
			"name":      j.name,
			"schedule":  j.spec,
			"last_run":  j.lastRun,
			"next_run":  s.cron.Entry(j.id).Next,
			"run_count": j.runCount,
		}
		if j.lastErr != nil {
			status["last_error"] = j.lastErr.Error()
		}
		jobs = append(jobs, status)
	}

	return map[string]interface{}{
		"running": s.running,
		"jobs":    jobs,
	}
}

// cronLogger routes cron's internal logging through zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
