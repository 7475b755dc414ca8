package extract

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// DetectSourceType infers a source type from a path or URL. It never fails;
// unknown extensions are read as text.
func DetectSourceType(sourcePath string) string {
	lower := strings.ToLower(sourcePath)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return SourceURL
	}

	switch filepath.Ext(lower) {
	case ".pdf":
		return SourcePDF
	case ".md", ".markdown":
		return SourceMarkdown
	case ".doc", ".docx":
		return SourceDocument
	default:
		return SourceText
	}
}

// Title returns custom when set. Otherwise URLs use the last path segment,
// or the whole URL when that segment is empty, and files use their stem.
func Title(sourcePath, sourceType, custom string) string {
	if custom = strings.TrimSpace(custom); custom != "" {
		return custom
	}

	if sourceType == SourceURL {
		u, err := url.Parse(sourcePath)
		if err != nil {
			return sourcePath
		}
		if tail := path.Base(u.Path); u.Path != "" && !strings.HasSuffix(u.Path, "/") && tail != "." {
			return tail
		}
		return sourcePath
	}

	if _, key, ok := ParseS3Path(sourcePath); ok {
		sourcePath = key
	}
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseS3Path splits s3://bucket/key into its parts.
func ParseS3Path(sourcePath string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(sourcePath, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
