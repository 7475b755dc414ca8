package worker

import (
	"context"

	"ragindexer/features/job"
	"ragindexer/features/knowledge"
)

type Indexer interface {
	IndexDocument(ctx context.Context, req knowledge.IndexRequest) knowledge.Result
}

type JobSaver interface {
	Save(ctx context.Context, j *job.Job) error
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}
