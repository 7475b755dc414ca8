package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ragindexer/internal/config"
)

const publishTimeout = 5 * time.Second

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo   Repository
	pub    EventPublisher
	logger *slog.Logger
}

func NewService(repo Repository, pub EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pub: pub, logger: logger}
}

func (s *Service) Save(ctx context.Context, job *Job) error {
	return s.repo.Save(ctx, job)
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Retry re-queues the original request with its attempt counter bumped and
// drops the failed record once the publish succeeded.
func (s *Service) Retry(ctx context.Context, id string) error {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	var req map[string]interface{}
	if err := json.Unmarshal(job.Payload, &req); err != nil {
		return fmt.Errorf("decode job payload: %w", err)
	}
	req["attempt"] = job.Retries + 1

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	if s.pub == nil {
		return errors.New("queue is disabled")
	}

	done := make(chan error, 1)
	go func() {
		done <- s.pub.Publish(config.TopicIndexRequest, body)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return errors.New("timeout waiting for NSQ publish")
	}

	s.logger.InfoContext(ctx, "failed job re-queued", "id", id, "tool_id", job.ToolID, "attempt", job.Retries+1)
	return s.repo.Delete(ctx, id)
}

// RetryAll re-queues every failed job that has not used up maxRetries and
// returns how many were re-queued.
func (s *Service) RetryAll(ctx context.Context, maxRetries int) (int, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	retried := 0
	for _, j := range jobs {
		if maxRetries > 0 && j.Retries >= maxRetries {
			continue
		}
		if err := s.Retry(ctx, j.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to retry job", "id", j.ID, "error", err)
			continue
		}
		retried++
	}
	return retried, nil
}
