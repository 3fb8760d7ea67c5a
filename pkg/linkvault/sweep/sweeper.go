// Package sweep provides background reaping of expired content.
//
// Expired records are normally removed lazily, when an access attempt finds
// them past their deadline. The sweeper covers the rest: records nobody ever
// comes back for would otherwise sit in the repository and their blobs on
// disk indefinitely.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkvault/linkvault/pkg/linkvault"
)

// Config contains configuration for the expiry sweeper.
type Config struct {
	// Enabled controls whether background sweeping is active (default: true)
	Enabled bool

	// Interval is how often to run a sweep (default: 5m)
	Interval time.Duration
}

// Sweeper periodically scans for expired records and purges them through the
// content service, so blob cleanup and metadata deletion follow the same
// path as an explicit delete.
//
// Thread Safety: Safe for concurrent use.
type Sweeper struct {
	svc    linkvault.Service
	repo   linkvault.Repository
	config Config
	logger *slog.Logger
	now    func() time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

// New creates a new sweeper. The sweeper is initialized but not started;
// call Start() to begin background sweeping.
func New(svc linkvault.Service, repo linkvault.Repository, config Config, opts ...Option) *Sweeper {
	if config.Interval == 0 {
		config.Interval = 5 * time.Minute
	}

	s := &Sweeper{
		svc:    svc,
		repo:   repo,
		config: config,
		logger: slog.Default(),
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins background sweeping. No-op when disabled.
func (s *Sweeper) Start() {
	if !s.config.Enabled {
		s.logger.Info("expiry sweeper disabled")
		return
	}

	s.logger.Info("starting expiry sweeper", "interval", s.config.Interval)

	go s.worker()
}

// Stop stops the sweeper and waits for the worker to finish any in-progress
// sweep. Returns the context error if it expires first.
func (s *Sweeper) Stop(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	close(s.stopCh)

	select {
	case <-s.doneCh:
		s.logger.Info("expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("expiry sweeper shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate sweep and blocks until it completes. Useful
// for tests and initial cleanup on startup.
func (s *Sweeper) RunNow(ctx context.Context) (*Stats, error) {
	return s.sweep(ctx)
}

func (s *Sweeper) worker() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			stats, err := s.sweep(ctx)
			cancel()

			if err != nil {
				s.logger.Error("expiry sweep failed", "error", err)
			} else if stats.Scanned > 0 {
				s.logger.Info("expiry sweep completed", "summary", stats.Summary())
			}

		case <-s.stopCh:
			return
		}
	}
}

// sweep performs a single pass: list every record past its deadline and
// purge it with system credentials.
func (s *Sweeper) sweep(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: s.now()}

	expired, err := s.repo.ListExpired(ctx, s.now())
	if err != nil {
		stats.EndTime = s.now()
		return stats, fmt.Errorf("failed to list expired records: %w", err)
	}
	stats.Scanned = uint64(len(expired))

	for _, rec := range expired {
		if err := ctx.Err(); err != nil {
			stats.EndTime = s.now()
			return stats, err
		}

		err := s.svc.Delete(ctx, rec.ID, linkvault.SystemCredential())
		switch {
		case err == nil:
			stats.Deleted++
		case errors.Is(err, linkvault.ErrNotFound):
			// Already gone: a consumer or a concurrent sweep beat us to it.
			stats.Missing++
		default:
			stats.Failed++
			s.logger.Warn("failed to purge expired record", "content_id", rec.ID, "error", err)
		}
	}

	stats.EndTime = s.now()
	return stats, nil
}

// Stats contains statistics from a single sweep.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Scanned   uint64 // expired records found
	Deleted   uint64 // records purged
	Missing   uint64 // records already gone when we tried
	Failed    uint64 // records that could not be purged
}

// Duration returns the total sweep duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the sweep.
func (s *Stats) Summary() string {
	return fmt.Sprintf("scanned=%d deleted=%d missing=%d failed=%d duration=%s",
		s.Scanned, s.Deleted, s.Missing, s.Failed, s.Duration())
}
