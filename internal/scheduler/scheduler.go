package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/huanlingzx/gemini-key/internal/db"
	"github.com/huanlingzx/gemini-key/internal/model"
	"github.com/huanlingzx/gemini-key/internal/validator"

	"github.com/robfig/cron/v3"
)

// BatchValidator validates a chunk of keys and persists the outcome.
type BatchValidator interface {
	ValidateBatch(ctx context.Context, keys []string) []model.Result
}

// Scheduler periodically re-validates every stored key.
type Scheduler struct {
	db        db.Service
	validator BatchValidator
	batchSize int
	spec      string
	logger    *slog.Logger
	c         *cron.Cron

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(dbService db.Service, v BatchValidator, batchSize int, spec string, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		db:        dbService,
		validator: v,
		batchSize: batchSize,
		spec:      spec,
		logger:    logger.With("component", "scheduler"),
		c:         cron.New(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the re-validation job. An empty spec leaves the scheduler idle.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("Scheduled re-validation disabled")
		return nil
	}
	_, err := s.c.AddFunc(s.spec, func() {
		if _, err := s.RevalidateAll(s.ctx); err != nil {
			s.logger.Error("Scheduled re-validation failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("error scheduling re-validation job %q: %w", s.spec, err)
	}
	s.c.Start()
	s.logger.Info("Scheduled re-validation enabled", "spec", s.spec)
	return nil
}

// Stop cancels a run in progress and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.c.Stop().Done()
}

// RevalidateAll runs every stored key back through the validator, one chunk
// at a time. It returns the number of keys processed. A run that is already
// in progress makes this call return immediately with zero.
func (s *Scheduler) RevalidateAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Re-validation already running, skipping")
		return 0, nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	records, err := s.db.ListKeyRecords(0)
	if err != nil {
		return 0, fmt.Errorf("failed to list key records: %w", err)
	}
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.KeyString
	}

	s.logger.Info("Re-validating stored keys", "count", len(keys))
	processed := 0
	counts := map[model.Status]int{}
	for _, chunk := range validator.Chunk(keys, s.batchSize) {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		for _, r := range s.validator.ValidateBatch(ctx, chunk) {
			counts[r.Status]++
			processed++
		}
	}
	s.logger.Info("Re-validation finished",
		"processed", processed,
		"valid", counts[model.StatusValid],
		"invalid", counts[model.StatusInvalid],
		"error", counts[model.StatusError],
	)
	return processed, nil
}
