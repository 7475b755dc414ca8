package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ragindexer/features/tool"
	"ragindexer/internal/embedding"
	"ragindexer/internal/extract"
	"ragindexer/internal/middleware"
)

type ToolRegistry interface {
	Get(ctx context.Context, id string) (*tool.Tool, error)
}

type Extractor interface {
	Extract(ctx context.Context, sourcePath, sourceType string) (*extract.Document, error)
}

type Chunker interface {
	Chunk(text string) []string
}

type EmbeddingGenerator interface {
	EmbedAll(ctx context.Context, texts []string) []embedding.Outcome
}

type ServiceOptions struct {
	ProcessingVersion string
	TopChunks         int
	BatchSize         int
}

// Service runs the indexing pipeline and the read/cleanup operations on a
// tool's knowledge.
type Service struct {
	tools     ToolRegistry
	extractor Extractor
	chunker   Chunker
	embedder  EmbeddingGenerator
	repo      Repository
	store     *Store
	opts      ServiceOptions
}

func NewService(tools ToolRegistry, ex Extractor, ch Chunker, em EmbeddingGenerator, repo Repository, opts ServiceOptions) *Service {
	if opts.TopChunks <= 0 {
		opts.TopChunks = 10
	}
	return &Service{
		tools:     tools,
		extractor: ex,
		chunker:   ch,
		embedder:  em,
		repo:      repo,
		store:     NewStore(repo, opts.BatchSize),
		opts:      opts,
	}
}

// run tracks the pipeline state of a single IndexDocument call.
type run struct {
	ctx    context.Context
	req    IndexRequest
	state  State
	result Result
}

func (r *run) enter(s State) {
	slog.DebugContext(r.ctx, "pipeline state", "from", r.state, "to", s, "source_path", r.req.SourcePath)
	r.state = s
	r.result.State = s
}

func (r *run) fail(err error) Result {
	slog.ErrorContext(r.ctx, "indexing failed", "state", r.state, "source_path", r.req.SourcePath, "error", err)
	r.result.Success = false
	r.result.Error = err.Error()
	r.result.Err = err
	r.result.FailedAt = r.state
	r.result.State = StateFailed
	r.result.Summary = nil
	return r.result
}

// IndexDocument extracts, chunks, embeds and stores one source for a tool.
// It never returns a Go error; failures are described by the Result.
func (s *Service) IndexDocument(ctx context.Context, req IndexRequest) Result {
	ctx = middleware.WithToolID(ctx, req.ToolID)
	r := &run{
		ctx: ctx,
		req: req,
		result: Result{
			ToolID:     req.ToolID,
			SourcePath: req.SourcePath,
		},
	}

	r.enter(StateDetectingType)
	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = extract.DetectSourceType(req.SourcePath)
	}
	r.result.SourceType = sourceType

	t, err := s.tools.Get(ctx, req.ToolID)
	if err != nil {
		if errors.Is(err, tool.ErrNotFound) {
			return r.fail(fmt.Errorf("%w: %s", ErrToolNotFound, req.ToolID))
		}
		return r.fail(fmt.Errorf("look up tool %s: %w", req.ToolID, err))
	}
	r.result.ToolName = t.Name

	r.enter(StateExtracting)
	doc, err := s.extractor.Extract(ctx, req.SourcePath, sourceType)
	if err != nil {
		return r.fail(err)
	}
	title := extract.Title(req.SourcePath, sourceType, req.Title)
	r.result.SourceTitle = title

	r.enter(StateChunking)
	texts := s.chunker.Chunk(doc.Text)
	if len(texts) == 0 {
		return r.fail(ErrNoChunks)
	}
	slog.InfoContext(ctx, "document chunked", "source_path", req.SourcePath, "chunks", len(texts))

	r.enter(StateEmbedding)
	outcomes := s.embedder.EmbedAll(ctx, texts)

	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		slog.WarnContext(ctx, "dropping unencodable source metadata", "error", err)
		meta = nil
	}

	chunks := make([]Chunk, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		content := strings.TrimSpace(texts[o.Index])
		chunks = append(chunks, Chunk{
			ToolID:            req.ToolID,
			Content:           content,
			ChunkIndex:        o.Index,
			SourcePath:        req.SourcePath,
			SourceType:        sourceType,
			SourceTitle:       title,
			ContentHash:       ContentHash(content),
			Embedding:         o.Vector,
			QualityScore:      o.Quality,
			Metadata:          meta,
			ProcessingVersion: s.opts.ProcessingVersion,
			IsActive:          true,
		})
	}
	if len(chunks) == 0 {
		return r.fail(ErrNoEmbeddings)
	}

	r.enter(StateStoring)
	stored := s.store.Save(ctx, req.ToolID, chunks)

	r.enter(StateSummarizing)
	r.result.Summary = &Summary{
		TotalChunksProcessed: len(texts),
		ChunksWithEmbeddings: len(chunks),
		TotalChunks:          stored.Total,
		Stored:               stored.Stored,
		Skipped:              stored.Skipped,
		Failed:               stored.Failed,
	}
	r.result.Success = true
	r.enter(StateSuccess)

	slog.InfoContext(ctx, "document indexed",
		"source_path", req.SourcePath,
		"tool_name", t.Name,
		"stored", stored.Stored,
		"skipped", stored.Skipped,
		"failed", stored.Failed,
	)
	return r.result
}

// GetToolKnowledgeStats summarizes what is stored for a tool.
func (s *Service) GetToolKnowledgeStats(ctx context.Context, toolID string) (*Stats, error) {
	count, err := s.repo.CountByTool(ctx, toolID)
	if err != nil {
		return nil, fmt.Errorf("%w: count chunks: %v", ErrStorage, err)
	}

	sources, err := s.repo.Sources(ctx, toolID)
	if err != nil {
		return nil, fmt.Errorf("%w: list sources: %v", ErrStorage, err)
	}

	top, err := s.repo.TopChunks(ctx, toolID, s.opts.TopChunks)
	if err != nil {
		return nil, fmt.Errorf("%w: top chunks: %v", ErrStorage, err)
	}

	if sources == nil {
		sources = []SourceStats{}
	}
	if top == nil {
		top = []TopChunk{}
	}
	return &Stats{ToolID: toolID, ChunkCount: count, Sources: sources, TopChunks: top}, nil
}

// CleanupToolKnowledge deletes a tool's chunks, or only those of sourcePath
// when it is not empty. Deletion is permanent.
func (s *Service) CleanupToolKnowledge(ctx context.Context, toolID, sourcePath string) (int64, error) {
	ctx = middleware.WithToolID(ctx, toolID)
	return s.store.Cleanup(ctx, toolID, sourcePath)
}
