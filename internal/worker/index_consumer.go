package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"
	"ragindexer/features/job"
	"ragindexer/internal/config"
	"ragindexer/internal/middleware"
)

// IndexConsumer runs queued index requests through the pipeline. Pipeline
// failures are recorded as failed jobs and acknowledged; only an unsaved
// failure is handed back to NSQ for redelivery.
type IndexConsumer struct {
	indexer   Indexer
	jobs      JobSaver
	publisher TaskPublisher
}

// NewIndexConsumer builds the consumer. publisher may be nil, in which case
// results are only logged.
func NewIndexConsumer(idx Indexer, j JobSaver, tp TaskPublisher) *IndexConsumer {
	return &IndexConsumer{
		indexer:   idx,
		jobs:      j,
		publisher: tp,
	}
}

func (h *IndexConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var msg IndexMessage
	err := json.Unmarshal(m.Body, &msg)

	correlationID := msg.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if err != nil {
		// Poison pill
		slog.ErrorContext(ctx, "invalid index message, dropping", "error", err)
		return nil
	}
	if msg.ToolID == "" || msg.SourcePath == "" {
		slog.ErrorContext(ctx, "missing required fields, dropping", "tool_id", msg.ToolID, "source_path", msg.SourcePath)
		return nil
	}

	ctx = middleware.WithToolID(ctx, msg.ToolID)
	slog.InfoContext(ctx, "index request received", "source_path", msg.SourcePath, "attempt", msg.Attempt, "nsq_attempts", m.Attempts)

	res := h.indexer.IndexDocument(ctx, msg.IndexRequest)
	h.publishResult(ctx, ResultMessage{Result: res, Attempt: msg.Attempt, CorrelationID: correlationID})

	if res.Success {
		return nil
	}

	failed := &job.Job{
		ToolID:     msg.ToolID,
		SourcePath: msg.SourcePath,
		FailedAt:   string(res.FailedAt),
		Payload:    json.RawMessage(m.Body),
		Error:      res.Error,
		Retries:    msg.Attempt,
	}
	if err := h.jobs.Save(ctx, failed); err != nil {
		slog.ErrorContext(ctx, "failed to save failed job", "error", err)
		return err
	}
	slog.InfoContext(ctx, "saved failed job for retry", "job_id", failed.ID, "failed_at", failed.FailedAt)
	return nil
}

// LogFailedMessage is called by go-nsq once a message exhausts MaxAttempts.
func (h *IndexConsumer) LogFailedMessage(m *nsq.Message) {
	slog.Error("index message exceeded max attempts, giving up", "attempts", m.Attempts, "body", string(m.Body))
}

func (h *IndexConsumer) publishResult(ctx context.Context, msg ResultMessage) {
	if h.publisher == nil {
		return
	}
	body, err := json.Marshal(msg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal index result", "error", err)
		return
	}
	if err := h.publisher.Publish(config.TopicIndexResult, body); err != nil {
		slog.WarnContext(ctx, "failed to publish index result", "error", err)
	}
}
