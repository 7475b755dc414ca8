package job

import (
	"encoding/json"
	"time"
)

// Job is a failed indexing run kept for inspection and retry. Payload is the
// original queued request.
type Job struct {
	ID         string          `json:"id"`
	ToolID     string          `json:"tool_id"`
	SourcePath string          `json:"source_path"`
	FailedAt   string          `json:"failed_at"`
	Payload    json.RawMessage `json:"payload"`
	Error      string          `json:"error"`
	Retries    int             `json:"retries"`
	CreatedAt  time.Time       `json:"created_at"`
}
