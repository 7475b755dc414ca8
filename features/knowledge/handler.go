package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ragindexer/internal/config"
	"ragindexer/internal/middleware"
)

type Indexer interface {
	IndexDocument(ctx context.Context, req IndexRequest) Result
	GetToolKnowledgeStats(ctx context.Context, toolID string) (*Stats, error)
	CleanupToolKnowledge(ctx context.Context, toolID, sourcePath string) (int64, error)
}

type Publisher interface {
	Publish(topic string, body []byte) error
}

type Handler struct {
	service Indexer
	pub     Publisher
}

// NewHandler wires the HTTP surface. pub may be nil, which disables ?async=true.
func NewHandler(s Indexer, pub Publisher) *Handler {
	return &Handler{service: s, pub: pub}
}

type IndexBody struct {
	SourcePath string `json:"source_path"`
	SourceType string `json:"source_type"`
	Title      string `json:"title"`
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)
	toolID := r.PathValue("toolID")

	var body IndexBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", "invalid JSON", http.StatusBadRequest)
		return
	}
	body.SourcePath = strings.TrimSpace(body.SourcePath)
	if toolID == "" || body.SourcePath == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "tool id and source_path are required", http.StatusBadRequest)
		return
	}

	req := IndexRequest{ToolID: toolID, SourcePath: body.SourcePath, SourceType: body.SourceType, Title: body.Title}

	if r.URL.Query().Get("async") == "true" {
		h.enqueue(ctx, w, req)
		return
	}

	slog.InfoContext(ctx, "indexing document", "tool_id", toolID, "source_path", req.SourcePath, "correlationId", correlationID)
	res := h.service.IndexDocument(ctx, req)

	status := http.StatusOK
	if !res.Success {
		if errors.Is(res.Err, ErrToolNotFound) {
			h.writeError(ctx, w, "NOT_FOUND", res.Error, http.StatusNotFound)
			return
		}
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(ctx, w, status, map[string]interface{}{"data": res})
}

func (h *Handler) enqueue(ctx context.Context, w http.ResponseWriter, req IndexRequest) {
	if h.pub == nil {
		h.writeError(ctx, w, "UNAVAILABLE", "queue is disabled", http.StatusServiceUnavailable)
		return
	}

	payload, err := json.Marshal(struct {
		IndexRequest
		CorrelationID string `json:"correlation_id,omitempty"`
	}{req, middleware.GetCorrelationID(ctx)})
	if err != nil {
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to encode request", http.StatusInternalServerError)
		return
	}
	if err := h.pub.Publish(config.TopicIndexRequest, payload); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue index request", "error", err, "correlationId", middleware.GetCorrelationID(ctx))
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to enqueue request", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(ctx, "index request queued", "tool_id", req.ToolID, "source_path", req.SourcePath)
	h.writeJSON(ctx, w, http.StatusAccepted, map[string]interface{}{
		"data": map[string]string{"status": "queued", "tool_id": req.ToolID, "source_path": req.SourcePath},
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	toolID := r.PathValue("toolID")

	stats, err := h.service.GetToolKnowledgeStats(ctx, toolID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get knowledge stats", "tool_id", toolID, "error", err, "correlationId", middleware.GetCorrelationID(ctx))
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to get knowledge stats", http.StatusInternalServerError)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{"data": stats})
}

func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	toolID := r.PathValue("toolID")
	sourcePath := r.URL.Query().Get("source_path")

	slog.InfoContext(ctx, "cleaning up knowledge", "tool_id", toolID, "source_path", sourcePath, "correlationId", middleware.GetCorrelationID(ctx))

	n, err := h.service.CleanupToolKnowledge(ctx, toolID, sourcePath)
	if err != nil {
		slog.ErrorContext(ctx, "failed to clean up knowledge", "tool_id", toolID, "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to clean up knowledge", http.StatusInternalServerError)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"tool_id": toolID, "source_path": sourcePath, "deleted_count": n},
	})
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	h.writeJSON(ctx, w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	})
}
