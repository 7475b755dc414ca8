package weaviate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"ragindexer/features/knowledge"
	"ragindexer/internal/vector"
)

const (
	previewLength = 200
	// sourceScanLimit bounds the objects read when grouping a tool's sources.
	sourceScanLimit = 10000
)

// chunkNamespace seeds the deterministic object IDs that stand in for the
// (tool_id, content_hash) unique index.
var chunkNamespace = uuid.MustParse("6f1c1e5a-2b7d-4c1e-9a53-7b0f3d2e8c41")

// Store keeps knowledge chunks in Weaviate as a drop-in knowledge.Repository.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// ObjectID is the Weaviate id of the chunk with the given dedup key.
func ObjectID(toolID, contentHash string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(toolID+":"+contentHash)).String()
}

func (s *Store) ExistsByHash(ctx context.Context, toolID, contentHash string) (bool, error) {
	where := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			textEqual("toolId", toolID),
			textEqual("contentHash", contentHash),
		})

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassKnowledgeChunk).
		WithWhere(where).
		WithLimit(1).
		WithFields(graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}}).
		Do(ctx)
	if err != nil {
		return false, err
	}
	if len(res.Errors) > 0 {
		return false, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}
	return len(getObjects(res.Data)) > 0, nil
}

func (s *Store) Insert(ctx context.Context, c *knowledge.Chunk) error {
	meta := string(c.Metadata)
	if meta == "" {
		meta = "{}"
	}
	createdAt := time.Now().UTC()

	w, err := s.client.Data().Creator().
		WithClassName(vector.ClassKnowledgeChunk).
		WithID(ObjectID(c.ToolID, c.ContentHash)).
		WithProperties(map[string]interface{}{
			"toolId":            c.ToolID,
			"content":           c.Content,
			"chunkIndex":        c.ChunkIndex,
			"sourcePath":        c.SourcePath,
			"sourceType":        c.SourceType,
			"sourceTitle":       c.SourceTitle,
			"contentHash":       c.ContentHash,
			"qualityScore":      c.QualityScore,
			"sourceMetadata":    meta,
			"processingVersion": c.ProcessingVersion,
			"isActive":          c.IsActive,
			"createdAt":         createdAt.Format(time.RFC3339),
		}).
		WithVector(c.Embedding).
		Do(ctx)
	if err != nil {
		var werr *fault.WeaviateClientError
		if errors.As(err, &werr) && werr.StatusCode == http.StatusUnprocessableEntity {
			return knowledge.ErrDuplicate
		}
		return err
	}

	c.ID = string(w.Object.ID)
	c.CreatedAt = createdAt
	return nil
}

// Delete removes every matching chunk. Weaviate caps a batch delete at
// QUERY_MAXIMUM_RESULTS objects, so it repeats until a pass deletes nothing.
func (s *Store) Delete(ctx context.Context, toolID, sourcePath string) (int64, error) {
	var total int64
	for {
		res, err := s.client.Batch().ObjectsBatchDeleter().
			WithClassName(vector.ClassKnowledgeChunk).
			WithOutput("minimal").
			WithWhere(toolWhere(toolID, sourcePath)).
			Do(ctx)
		if err != nil {
			return total, err
		}
		if res == nil || res.Results == nil || res.Results.Successful == 0 {
			return total, nil
		}
		total += res.Results.Successful
	}
}

func (s *Store) CountByTool(ctx context.Context, toolID string) (int, error) {
	return s.count(ctx, toolWhere(toolID, ""))
}

func (s *Store) CountChunks(ctx context.Context) (int, error) {
	return s.count(ctx, nil)
}

func (s *Store) Sources(ctx context.Context, toolID string) ([]knowledge.SourceStats, error) {
	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassKnowledgeChunk).
		WithWhere(toolWhere(toolID, "")).
		WithLimit(sourceScanLimit).
		WithFields(
			graphql.Field{Name: "sourcePath"},
			graphql.Field{Name: "sourceType"},
			graphql.Field{Name: "sourceTitle"},
			graphql.Field{Name: "createdAt"},
		).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	objects := getObjects(res.Data)
	if len(objects) >= sourceScanLimit {
		slog.WarnContext(ctx, "source scan hit the object limit, stats may be incomplete",
			"tool_id", toolID, "limit", sourceScanLimit)
	}

	bySource := make(map[string]*knowledge.SourceStats)
	for _, props := range objects {
		path, _ := props["sourcePath"].(string)
		st, ok := bySource[path]
		if !ok {
			st = &knowledge.SourceStats{SourcePath: path}
			st.SourceType, _ = props["sourceType"].(string)
			st.SourceTitle, _ = props["sourceTitle"].(string)
			bySource[path] = st
		}
		st.ChunkCount++
		if raw, ok := props["createdAt"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil && ts.After(st.LastIndexed) {
				st.LastIndexed = ts
			}
		}
	}

	sources := make([]knowledge.SourceStats, 0, len(bySource))
	for _, st := range bySource {
		sources = append(sources, *st)
	}
	sort.Slice(sources, func(i, j int) bool {
		if !sources[i].LastIndexed.Equal(sources[j].LastIndexed) {
			return sources[i].LastIndexed.After(sources[j].LastIndexed)
		}
		return sources[i].SourcePath < sources[j].SourcePath
	})
	return sources, nil
}

func (s *Store) TopChunks(ctx context.Context, toolID string, limit int) ([]knowledge.TopChunk, error) {
	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassKnowledgeChunk).
		WithWhere(toolWhere(toolID, "")).
		WithSort(graphql.Sort{Path: []string{"qualityScore"}, Order: graphql.Desc}).
		WithLimit(limit).
		WithFields(
			graphql.Field{Name: "content"},
			graphql.Field{Name: "sourcePath"},
			graphql.Field{Name: "chunkIndex"},
			graphql.Field{Name: "qualityScore"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}},
		).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var top []knowledge.TopChunk
	for _, props := range getObjects(res.Data) {
		tc := knowledge.TopChunk{}
		tc.SourcePath, _ = props["sourcePath"].(string)
		if idx, ok := props["chunkIndex"].(float64); ok {
			tc.ChunkIndex = int(idx)
		}
		tc.QualityScore, _ = props["qualityScore"].(float64)
		if content, ok := props["content"].(string); ok {
			tc.Preview = preview(content)
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			tc.ID, _ = additional["id"].(string)
		}
		top = append(top, tc)
	}
	return top, nil
}

func (s *Store) count(ctx context.Context, where *filters.WhereBuilder) (int, error) {
	agg := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassKnowledgeChunk).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}})
	if where != nil {
		agg = agg.WithWhere(where)
	}

	res, err := agg.Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	data, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	groups, ok := data[vector.ClassKnowledgeChunk].([]interface{})
	if !ok || len(groups) == 0 {
		return 0, nil
	}
	group, _ := groups[0].(map[string]interface{})
	meta, _ := group["meta"].(map[string]interface{})
	n, _ := meta["count"].(float64)
	return int(n), nil
}

func toolWhere(toolID, sourcePath string) *filters.WhereBuilder {
	if sourcePath == "" {
		return textEqual("toolId", toolID)
	}
	return filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			textEqual("toolId", toolID),
			textEqual("sourcePath", sourcePath),
		})
}

func textEqual(path, value string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{path}).
		WithOperator(filters.Equal).
		WithValueText(value)
}

func getObjects(data map[string]models.JSONObject) []map[string]interface{} {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := get[vector.ClassKnowledgeChunk].([]interface{})
	if !ok {
		return nil
	}
	objects := make([]map[string]interface{}, 0, len(raw))
	for _, o := range raw {
		if props, ok := o.(map[string]interface{}); ok {
			objects = append(objects, props)
		}
	}
	return objects
}

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLength {
		return content
	}
	return string(r[:previewLength])
}

// EnsureSchema creates or extends the chunk class.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.SchemaFor(s.client))
}
