package extract

import (
	"bytes"
	"fmt"
	"path/filepath"

	"code.sajari.com/docconv"
)

// extractDocument converts Word documents by their extension's MIME type.
func extractDocument(sourcePath string, data []byte, meta *Metadata) (string, error) {
	mime := docconv.MimeTypeByExtension(filepath.Base(sourcePath))

	res, err := docconv.Convert(bytes.NewReader(data), mime, false)
	if err != nil {
		return "", fmt.Errorf("%w: document: %v", ErrExtraction, err)
	}

	meta.Author = firstNonEmpty(res.Meta["Author"], meta.Author)
	meta.CreatedDate = firstNonEmpty(res.Meta["CreatedDate"], meta.CreatedDate)
	meta.ModifiedDate = firstNonEmpty(res.Meta["ModifiedDate"], meta.ModifiedDate)
	return res.Body, nil
}
