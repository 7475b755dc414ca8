package config

const (
	// TopicIndexRequest carries documents queued for indexing.
	TopicIndexRequest = "knowledge.index"

	// TopicIndexResult carries the outcome of each queued indexing run.
	TopicIndexResult = "knowledge.index.result"

	// ChannelIndexer is the consumer channel shared by indexer processes.
	ChannelIndexer = "indexer"
)
