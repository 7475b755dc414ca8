package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

const (
	SourcePDF      = "pdf"
	SourceURL      = "url"
	SourceText     = "text"
	SourceMarkdown = "markdown"
	SourceDocument = "document"
)

var (
	ErrExtraction      = errors.New("extraction failed")
	ErrUnsupportedType = fmt.Errorf("%w: unsupported source type", ErrExtraction)
)

// Document is the text pulled from a single source. It lives only for the
// duration of one indexing run.
type Document struct {
	Text       string
	SourcePath string
	SourceType string
	Metadata   Metadata
}

// Metadata is carried through to storage as an opaque JSON bag.
type Metadata struct {
	FileSize       int64             `json:"file_size,omitempty"`
	FileType       string            `json:"file_type,omitempty"`
	Author         string            `json:"author,omitempty"`
	CreatedDate    string            `json:"created_date,omitempty"`
	ModifiedDate   string            `json:"modified_date,omitempty"`
	PageCount      int               `json:"page_count,omitempty"`
	URLStatus      int               `json:"url_status,omitempty"`
	Encoding       string            `json:"encoding,omitempty"`
	Headings       []string          `json:"headings,omitempty"`
	AdditionalInfo map[string]string `json:"additional_info,omitempty"`
}

// ObjectFetcher downloads a whole object from blob storage.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// Extractor routes a source to the reader for its type. Local paths and
// s3://bucket/key paths are both accepted for file-based types.
type Extractor struct {
	client  *http.Client
	objects ObjectFetcher
	md      goldmark.Markdown
}

// New builds an Extractor. objects may be nil when S3 sources are not used.
func New(urlTimeout time.Duration, objects ObjectFetcher) *Extractor {
	if urlTimeout <= 0 {
		urlTimeout = 30 * time.Second
	}
	return &Extractor{
		client:  &http.Client{Timeout: urlTimeout},
		objects: objects,
		md:      goldmark.New(),
	}
}

// Extract returns the plain text of sourcePath. An empty sourceType is
// detected from the path. All failures wrap ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, sourcePath, sourceType string) (*Document, error) {
	if sourceType == "" {
		sourceType = DetectSourceType(sourcePath)
	}

	doc := &Document{SourcePath: sourcePath, SourceType: sourceType}

	var err error
	switch sourceType {
	case SourceURL:
		doc.Text, doc.Metadata, err = e.extractURL(ctx, sourcePath)
	case SourcePDF, SourceText, SourceMarkdown, SourceDocument:
		var data []byte
		data, doc.Metadata, err = e.load(ctx, sourcePath)
		if err != nil {
			return nil, err
		}
		doc.Text, err = e.extractBytes(sourceType, sourcePath, data, &doc.Metadata)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, sourceType)
	}
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "extracted source", "source_path", sourcePath, "source_type", sourceType, "length", len(doc.Text))
	return doc, nil
}

func (e *Extractor) extractBytes(sourceType, sourcePath string, data []byte, meta *Metadata) (string, error) {
	switch sourceType {
	case SourcePDF:
		return extractPDF(data, meta)
	case SourceMarkdown:
		return e.extractMarkdown(data, meta)
	case SourceDocument:
		return extractDocument(sourcePath, data, meta)
	default:
		return extractText(data, meta)
	}
}

func (e *Extractor) load(ctx context.Context, sourcePath string) ([]byte, Metadata, error) {
	meta := Metadata{FileType: strings.TrimPrefix(strings.ToLower(filepath.Ext(sourcePath)), ".")}

	if bucket, key, ok := ParseS3Path(sourcePath); ok {
		if e.objects == nil {
			return nil, meta, fmt.Errorf("%w: no object store configured for %s", ErrExtraction, sourcePath)
		}
		data, err := e.objects.Fetch(ctx, bucket, key)
		if err != nil {
			return nil, meta, fmt.Errorf("%w: fetch %s: %v", ErrExtraction, sourcePath, err)
		}
		meta.FileSize = int64(len(data))
		return data, meta, nil
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, meta, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if info.IsDir() {
		return nil, meta, fmt.Errorf("%w: %s is a directory", ErrExtraction, sourcePath)
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, meta, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	meta.FileSize = info.Size()
	meta.ModifiedDate = info.ModTime().UTC().Format(time.RFC3339)
	return data, meta, nil
}
