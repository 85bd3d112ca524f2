// Package validator checks Gemini API keys against the remote API and
// records each outcome in the key store.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/huanlingzx/gemini-key/internal/db"
	"github.com/huanlingzx/gemini-key/internal/logger"
	"github.com/huanlingzx/gemini-key/internal/metrics"
	"github.com/huanlingzx/gemini-key/internal/model"

	"github.com/google/uuid"
)

// BatchValidator validates keys one at a time and upserts a record per key.
type BatchValidator struct {
	checker Checker
	db      db.Service
	logger  *slog.Logger
}

// NewBatchValidator creates a BatchValidator.
func NewBatchValidator(checker Checker, dbService db.Service, log *slog.Logger) *BatchValidator {
	return &BatchValidator{
		checker: checker,
		db:      dbService,
		logger:  log.With("component", "validator"),
	}
}

// ValidateBatch checks and stores every key in order. Failures for a single
// key are reported in its Result and never stop the batch. If ctx is
// cancelled the remaining keys are skipped and the results so far returned;
// a check cut short by the cancellation is not stored.
func (v *BatchValidator) ValidateBatch(ctx context.Context, keys []string) []model.Result {
	batchID := uuid.NewString()
	log := v.logger.With("batch_id", batchID)
	log.Info("Validating batch", "count", len(keys))
	metrics.BatchesTotal.Inc()

	results := make([]model.Result, 0, len(keys))
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			log.Warn("Batch interrupted", "processed", i, "remaining", len(keys)-i, "error", err)
			break
		}
		result, ok := v.validateOne(ctx, log, key)
		if !ok {
			log.Warn("Batch interrupted during check", "processed", i, "remaining", len(keys)-i, "error", ctx.Err())
			break
		}
		results = append(results, result)
	}

	log.Info("Batch finished", "processed", len(results))
	return results
}

// validateOne reports false when ctx ended during the check. The outcome
// then reflects the cancellation rather than the key and the stored record
// is left untouched.
func (v *BatchValidator) validateOne(ctx context.Context, log *slog.Logger, key string) (model.Result, bool) {
	start := time.Now()
	result := v.checker.Check(ctx, key)
	if ctx.Err() != nil {
		return result, false
	}
	defer func() { metrics.ValidationDuration.Observe(time.Since(start).Seconds()) }()

	if _, err := v.db.UpsertKeyRecord(key, result.Status, result.ErrorMessage); err != nil {
		log.Error("Failed to save key record", "key_suffix", logger.KeySuffix(key), "status", result.Status, "error", err)
		saved := model.NewResult(key, model.StatusDBError, fmt.Sprintf("database save failed: %v", err))
		saved.AttemptedStatus = result.Status
		result = saved
	} else {
		log.Debug("Key validated", "key_suffix", logger.KeySuffix(key), "status", result.Status)
	}

	metrics.ValidationsTotal.WithLabelValues(string(result.Status)).Inc()
	return result, true
}
