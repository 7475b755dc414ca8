package worker

import "ragindexer/features/knowledge"

// IndexMessage is the body published on the index request topic.
type IndexMessage struct {
	knowledge.IndexRequest
	CorrelationID string `json:"correlation_id,omitempty"`
}

// ResultMessage is published on the index result topic once a run finishes.
type ResultMessage struct {
	knowledge.Result
	Attempt       int    `json:"attempt"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
