package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
)

const pageSeparator = "\n\n"

// extractPDF reads pages in order with the native parser and falls back to
// pdftotext when that fails. Blank pages contribute an empty string.
func extractPDF(data []byte, meta *Metadata) (string, error) {
	pages, err := readPDFPages(data)
	if err == nil {
		meta.PageCount = len(pages)
		return strings.Join(pages, pageSeparator), nil
	}
	slog.Warn("native pdf parse failed, trying pdftotext", "error", err)

	body, info, convErr := docconv.ConvertPDF(bytes.NewReader(data))
	if convErr != nil {
		return "", fmt.Errorf("%w: pdf: %v; fallback: %v", ErrExtraction, err, convErr)
	}

	// pdftotext separates pages with form feeds
	pages = strings.Split(strings.TrimSuffix(body, "\f"), "\f")
	for i := range pages {
		pages[i] = strings.TrimSpace(pages[i])
	}
	applyPDFInfo(meta, info)
	if meta.PageCount == 0 {
		meta.PageCount = len(pages)
	}
	return strings.Join(pages, pageSeparator), nil
}

func readPDFPages(data []byte) (pages []string, err error) {
	// the parser panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(txt))
	}
	return pages, nil
}

func applyPDFInfo(meta *Metadata, info map[string]string) {
	meta.Author = info["Author"]
	meta.CreatedDate = info["CreationDate"]
	meta.ModifiedDate = firstNonEmpty(info["ModDate"], meta.ModifiedDate)
	if n, err := strconv.Atoi(strings.TrimSpace(info["Pages"])); err == nil {
		meta.PageCount = n
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
