package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"go.uber.org/zap"
)

const JobNotification = "notification"

// ErrPermanent marks a job failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent job failure")

func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

type Options struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) error
}

// Service runs side-effect jobs off the request path on a bounded queue.
// Each job is retried with exponential backoff; failures are logged only.
type Service struct {
	logger  *zap.Logger
	queue   chan job
	retrier retry.Retry[struct{}]
	opts    Options

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func New(opts Options, logger *zap.Logger) *Service {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 128
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Service{
		logger: logger,
		queue:  make(chan job, opts.QueueSize),
		opts:   opts,
		retrier: retry.New[struct{}](retry.Config{
			MaxAttempts:        opts.MaxAttempts,
			InitialDelay:       opts.RetryDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         2.0,
			NonRetryableErrors: []error{ErrPermanent},
		}),
	}
}

func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Enqueue never blocks. It reports false when the queue is full or stopped.
func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) error) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		s.logger.Warn("job dropped after shutdown", zap.String("jobType", jobType), zap.String("tenantId", tenantID))
		return false
	}
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
		return true
	default:
		s.logger.Warn("job queue full", zap.String("jobType", jobType), zap.String("tenantId", tenantID))
		return false
	}
}

// RunNow executes a job synchronously with the same retry policy.
func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) error) error {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-s.queue:
			if !ok {
				return
			}
			if err := s.runJob(context.WithoutCancel(ctx), j); err != nil {
				s.logger.Warn("job run failed",
					zap.String("jobType", j.Type),
					zap.String("tenantId", j.TenantID),
					zap.Error(err),
				)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	_, err := s.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, j.Run(ctx)
	})
	return err
}
