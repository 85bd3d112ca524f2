package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/huanlingzx/gemini-key/internal/db"
	"github.com/huanlingzx/gemini-key/internal/extractor"
	"github.com/huanlingzx/gemini-key/internal/metrics"
	"github.com/huanlingzx/gemini-key/internal/model"

	"github.com/gin-gonic/gin"
)

// BatchValidator validates a batch of keys and stores the outcomes.
type BatchValidator interface {
	ValidateBatch(ctx context.Context, keys []string) []model.Result
}

type Handler struct {
	db        db.Service
	validator BatchValidator
	extractor *extractor.Extractor
	maxKeys   int
	logger    *slog.Logger
	now       func() time.Time
}

func NewHandler(dbService db.Service, v BatchValidator, ex *extractor.Extractor, maxKeys int, logger *slog.Logger) *Handler {
	return &Handler{
		db:        dbService,
		validator: v,
		extractor: ex,
		maxKeys:   maxKeys,
		logger:    logger.With("component", "api"),
		now:       time.Now,
	}
}

// ValidateKeysHandler serves the validate-keys endpoint for every action.
func (h *Handler) ValidateKeysHandler(c *gin.Context) {
	var req KeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	op, err := req.Decode(h.maxKeys)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch op := op.(type) {
	case ValidateOp:
		results := h.validator.ValidateBatch(c.Request.Context(), op.Keys)
		c.JSON(http.StatusOK, results)
	case FetchAllOp:
		h.respondWithRecords(c, op.Limit)
	case ClearInvalidOp:
		h.clearInvalid(c)
	}
}

// ListKeysHandler returns every stored record, newest first.
func (h *Handler) ListKeysHandler(c *gin.Context) {
	h.respondWithRecords(c, 0)
}

// ClearInvalidHandler deletes the records whose status is invalid or error.
func (h *Handler) ClearInvalidHandler(c *gin.Context) {
	h.clearInvalid(c)
}

// ExtractHandler returns the candidate keys found in the posted text.
func (h *Handler) ExtractHandler(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	keys := h.extractor.Extract(req.Text)
	c.JSON(http.StatusOK, ExtractResponse{Keys: keys, Count: len(keys)})
}

// ExportValidKeysHandler serves the valid keys as a text file, one per line.
func (h *Handler) ExportValidKeysHandler(c *gin.Context) {
	records, err := h.db.ListKeyRecordsByStatus(model.StatusValid)
	if err != nil {
		h.logger.Error("Failed to list valid keys", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load keys"})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNoValidKeysMessage})
		return
	}

	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.KeyString
	}
	filename := fmt.Sprintf("gemini_valid_keys_%s.txt", h.now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(strings.Join(lines, "\n")))
}

func (h *Handler) respondWithRecords(c *gin.Context, limit int) {
	records, err := h.db.ListKeyRecords(limit)
	if err != nil {
		h.logger.Error("Failed to list key records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load keys"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) clearInvalid(c *gin.Context) {
	count, err := h.db.DeleteKeyRecordsByStatus(model.PrunableStatuses...)
	if err != nil {
		h.logger.Error("Failed to clear invalid keys", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete keys"})
		return
	}
	metrics.RecordsDeletedTotal.Add(float64(count))
	h.logger.Info("Cleared invalid keys", "count", count)
	c.JSON(http.StatusOK, ClearResponse{
		Message: fmt.Sprintf("Deleted %d invalid keys.", count),
		Count:   count,
	})
}

