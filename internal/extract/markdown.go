package extract

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"ragindexer/internal/text"
)

func (e *Extractor) extractMarkdown(data []byte, meta *Metadata) (string, error) {
	s, err := extractText(data, meta)
	if err != nil {
		return "", err
	}
	s = text.CleanMarkdownNoise(s)
	meta.Headings = e.headings(s)
	return s, nil
}

func (e *Extractor) headings(markdown string) []string {
	src := []byte(markdown)
	root := e.md.Parser().Parse(gmtext.NewReader(src))

	var out []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			if title := strings.TrimSpace(string(h.Text(src))); title != "" {
				out = append(out, title)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}
