package knowledge_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"ragindexer/features/knowledge"
	"ragindexer/features/tool"
	"ragindexer/internal/extract"
)

type MockTools struct {
	mock.Mock
}

func (m *MockTools) Get(ctx context.Context, id string) (*tool.Tool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tool.Tool), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, sourcePath, sourceType string) (*extract.Document, error) {
	args := m.Called(ctx, sourcePath, sourceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extract.Document), args.Error(1)
}

type MockChunker struct {
	mock.Mock
}

func (m *MockChunker) Chunk(text string) []string {
	args := m.Called(text)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) ExistsByHash(ctx context.Context, toolID, contentHash string) (bool, error) {
	args := m.Called(ctx, toolID, contentHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepo) Insert(ctx context.Context, c *knowledge.Chunk) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockRepo) Delete(ctx context.Context, toolID, sourcePath string) (int64, error) {
	args := m.Called(ctx, toolID, sourcePath)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepo) CountByTool(ctx context.Context, toolID string) (int, error) {
	args := m.Called(ctx, toolID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) Sources(ctx context.Context, toolID string) ([]knowledge.SourceStats, error) {
	args := m.Called(ctx, toolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]knowledge.SourceStats), args.Error(1)
}

func (m *MockRepo) TopChunks(ctx context.Context, toolID string, limit int) ([]knowledge.TopChunk, error) {
	args := m.Called(ctx, toolID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]knowledge.TopChunk), args.Error(1)
}

func (m *MockRepo) CountChunks(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// memRepo is an in-memory Repository that enforces (tool_id, content_hash)
// uniqueness like the database does.
type memRepo struct {
	mu   sync.Mutex
	rows []knowledge.Chunk
	seq  int
}

func (r *memRepo) ExistsByHash(_ context.Context, toolID, contentHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.ToolID == toolID && c.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) Insert(ctx context.Context, c *knowledge.Chunk) error {
	if exists, _ := r.ExistsByHash(ctx, c.ToolID, c.ContentHash); exists {
		return knowledge.ErrDuplicate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = fmt.Sprintf("chunk-%d", r.seq)
	c.CreatedAt = time.Now()
	r.rows = append(r.rows, *c)
	return nil
}

func (r *memRepo) Delete(_ context.Context, toolID, sourcePath string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	var n int64
	for _, c := range r.rows {
		if c.ToolID == toolID && (sourcePath == "" || c.SourcePath == sourcePath) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	r.rows = kept
	return n, nil
}

func (r *memRepo) CountByTool(_ context.Context, toolID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.rows {
		if c.ToolID == toolID {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) Sources(_ context.Context, toolID string) ([]knowledge.SourceStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	by := map[string]*knowledge.SourceStats{}
	for _, c := range r.rows {
		if c.ToolID != toolID {
			continue
		}
		s, ok := by[c.SourcePath]
		if !ok {
			s = &knowledge.SourceStats{SourcePath: c.SourcePath, SourceType: c.SourceType, SourceTitle: c.SourceTitle}
			by[c.SourcePath] = s
		}
		s.ChunkCount++
		if c.CreatedAt.After(s.LastIndexed) {
			s.LastIndexed = c.CreatedAt
		}
	}
	out := make([]knowledge.SourceStats, 0, len(by))
	for _, s := range by {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourcePath < out[j].SourcePath })
	return out, nil
}

func (r *memRepo) TopChunks(_ context.Context, toolID string, limit int) ([]knowledge.TopChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []knowledge.TopChunk
	for _, c := range r.rows {
		if c.ToolID == toolID {
			out = append(out, knowledge.TopChunk{ID: c.ID, SourcePath: c.SourcePath, ChunkIndex: c.ChunkIndex, QualityScore: c.QualityScore, Preview: c.Content})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].QualityScore > out[j].QualityScore })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) CountChunks(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows), nil
}
