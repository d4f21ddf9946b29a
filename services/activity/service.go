// Package activity records the dashboard's append-only activity log. Writes
// go through a buffered worker pool so a slow or failing store never blocks
// or fails the operation being recorded.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/glassline/admin-dashboard/internal/observability"
	"github.com/glassline/admin-dashboard/internal/realtime"
	"github.com/glassline/admin-dashboard/models"
	"github.com/glassline/admin-dashboard/repositories"
	"github.com/glassline/admin-dashboard/services"
	"go.uber.org/zap"
)

// insertTimeout bounds a single store write
const insertTimeout = 5 * time.Second

// Service handles asynchronous activity logging
type Service struct {
	repo        repositories.ActivityLogRepository
	publisher   realtime.Publisher
	logger      *zap.Logger
	entries     chan *models.ActivityLog
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	mu          sync.Mutex
	started     bool
	stopped     bool

	written uint64
	dropped uint64
	failed  uint64
}

// Config holds configuration for the Service
type Config struct {
	BufferSize  int // Size of the entry buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewService creates a new activity service. publisher may be nil.
func NewService(repo repositories.ActivityLogRepository, publisher realtime.Publisher, logger *zap.Logger, config Config) *Service {
	if config.BufferSize <= 0 || config.WorkerCount <= 0 {
		config = DefaultConfig()
	}
	return &Service{
		repo:        repo,
		publisher:   publisher,
		logger:      logger,
		entries:     make(chan *models.ActivityLog, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background workers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("activity service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started activity service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting entries and waits for pending ones to be written
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("activity service not running")
	}
	s.stopped = true
	pending := len(s.entries)
	close(s.entries)
	s.mu.Unlock()

	s.logger.Info("stopping activity service", zap.Int("pending_entries", pending))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("activity service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("activity service stop timeout after %v", timeout)
	}
}

// Record queues an entry without blocking. Entries are dropped with a
// warning when the buffer is full or the service is not running.
func (s *Service) Record(entry *models.ActivityLog) {
	if entry == nil {
		return
	}
	if !entry.Action.IsValid() {
		s.logger.Warn("dropping activity entry with unknown action",
			zap.String("action", string(entry.Action)))
		s.drop()
		return
	}
	if err := entry.Metadata.Validate(); err != nil {
		s.logger.Warn("discarding invalid activity metadata",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.Error(err))
		entry.Metadata = models.Metadata{"metadata_error": err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		s.logger.Warn("activity service not running, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType))
		s.dropLocked()
		return
	}

	select {
	case s.entries <- entry:
	default:
		s.logger.Warn("activity buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.String("admin_name", entry.AdminName))
		s.dropLocked()
	}
}

func (s *Service) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
}

func (s *Service) dropLocked() {
	s.dropped++
	observability.ActivityEntries.WithLabelValues("dropped").Inc()
}

// worker processes entries from the channel
func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("activity worker started", zap.Int("worker_id", id))

	for entry := range s.entries {
		if err := s.process(entry); err != nil {
			s.mu.Lock()
			s.failed++
			s.mu.Unlock()
			observability.ActivityEntries.WithLabelValues("failed").Inc()
			s.logger.Error("failed to write activity entry",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(entry.Action)),
				zap.String("entity_type", entry.EntityType))
			continue
		}

		s.mu.Lock()
		s.written++
		s.mu.Unlock()
		observability.ActivityEntries.WithLabelValues("written").Inc()
	}

	s.logger.Debug("activity worker stopped", zap.Int("worker_id", id))
}

// process writes one entry and announces it on the activity channel
func (s *Service) process(entry *models.ActivityLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, realtime.ChannelActivity, entry); err != nil {
			s.logger.Warn("failed to publish activity entry", zap.Error(err))
		}
	}
	return nil
}

// List returns entries newest first
func (s *Service) List(ctx context.Context, filter repositories.ActivityLogFilter) ([]*models.ActivityLog, error) {
	if filter.Action != "" && !filter.Action.IsValid() {
		return nil, services.ErrInvalidInput.WithMessage("unknown action %q", filter.Action)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, services.ErrInvalidInput.WithMessage("limit and offset must not be negative")
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, services.ErrStoreUnavailable.Wrap(err)
	}
	return entries, nil
}

// Stats represents activity service statistics
type Stats struct {
	BufferSize     int    `json:"buffer_size"`
	PendingEntries int    `json:"pending_entries"`
	WorkerCount    int    `json:"worker_count"`
	Started        bool   `json:"started"`
	Written        uint64 `json:"written"`
	Dropped        uint64 `json:"dropped"`
	Failed         uint64 `json:"failed"`
}

// Stats returns statistics about the activity service
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:     s.bufferSize,
		PendingEntries: len(s.entries),
		WorkerCount:    s.workerCount,
		Started:        s.started && !s.stopped,
		Written:        s.written,
		Dropped:        s.dropped,
		Failed:         s.failed,
	}
}
