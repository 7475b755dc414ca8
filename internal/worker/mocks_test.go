package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"ragindexer/features/job"
	"ragindexer/features/knowledge"
)

type MockIndexer struct{ mock.Mock }

func (m *MockIndexer) IndexDocument(ctx context.Context, req knowledge.IndexRequest) knowledge.Result {
	args := m.Called(ctx, req)
	return args.Get(0).(knowledge.Result)
}

type MockJobRepo struct{ mock.Mock }

func (m *MockJobRepo) Save(ctx context.Context, j *job.Job) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

type MockTaskPublisher struct{ mock.Mock }

func (m *MockTaskPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}
