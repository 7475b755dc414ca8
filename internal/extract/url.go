package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func (e *Extractor) extractURL(ctx context.Context, sourceURL string) (string, Metadata, error) {
	meta := Metadata{FileType: "html"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", meta, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", meta, fmt.Errorf("%w: fetch %s: %v", ErrExtraction, sourceURL, err)
	}
	defer resp.Body.Close()

	meta.URLStatus = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", meta, fmt.Errorf("%w: fetch %s: status %d", ErrExtraction, sourceURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", meta, fmt.Errorf("%w: parse html: %v", ErrExtraction, err)
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		meta.AdditionalInfo = map[string]string{"html_title": title}
	}
	doc.Find("script, style, nav, header, footer").Remove()

	return collapseText(doc.Text()), meta, nil
}

// collapseText trims each line, breaks lines on runs of double spaces and
// joins the non-empty phrases with single spaces.
func collapseText(raw string) string {
	var phrases []string
	for _, line := range strings.Split(raw, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				phrases = append(phrases, phrase)
			}
		}
	}
	return strings.Join(phrases, " ")
}
