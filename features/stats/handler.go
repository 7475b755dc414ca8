package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ragindexer/internal/middleware"
)

type ToolRepo interface {
	Count(ctx context.Context) (int, error)
}

type JobRepo interface {
	Count(ctx context.Context) (int, error)
}

type ChunkCounter interface {
	CountChunks(ctx context.Context) (int, error)
}

// Retrieval echoes the similarity settings downstream search consumers
// should apply to the stored vectors.
type Retrieval struct {
	SimilarityThreshold float64 `json:"similarity_threshold"`
	MaxMatches          int     `json:"max_matches"`
	EmbeddingModel      string  `json:"embedding_model"`
	ProcessingVersion   string  `json:"processing_version"`
}

type Handler struct {
	toolRepo  ToolRepo
	jobRepo   JobRepo
	chunks    ChunkCounter
	retrieval Retrieval
}

func NewHandler(t ToolRepo, j JobRepo, c ChunkCounter, r Retrieval) *Handler {
	return &Handler{toolRepo: t, jobRepo: j, chunks: c, retrieval: r}
}

type StatsResponse struct {
	Tools      int       `json:"tools"`
	Chunks     int       `json:"chunks"`
	FailedJobs int       `json:"failed_jobs"`
	Retrieval  Retrieval `json:"retrieval"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	tCount, err := h.toolRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count tools", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count tools", http.StatusInternalServerError)
		return
	}

	jCount, err := h.jobRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count jobs", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
		return
	}

	cCount, err := h.chunks.CountChunks(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count chunks", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count chunks", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Tools:      tCount,
		Chunks:     cCount,
		FailedJobs: jCount,
		Retrieval:  h.retrieval,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
