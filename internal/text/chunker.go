package text

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// NUL-delimited so it cannot collide with extracted text
	paragraphMarker  = "\x00PARAGRAPH\x00"
	sentenceSep      = ". "
	overlapSentences = 2
)

var paragraphRe = regexp.MustCompile(`[ \t]*\x00PARAGRAPH\x00[ \t]*`)

// ChunkOptions bounds chunk construction. ChunkSize is measured in tokens,
// MinChunkSize and MaxChunkSize in characters.
type ChunkOptions struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
	MaxChunkSize int
}

// Chunker splits text into sentence-aligned chunks of at most ChunkSize tokens.
// Consecutive chunks overlap by the last two sentences of the previous chunk.
type Chunker struct {
	opts ChunkOptions
	tok  Tokenizer
}

func NewChunker(opts ChunkOptions, tok Tokenizer) *Chunker {
	if tok == nil {
		tok = ApproxTokenizer{}
	}
	return &Chunker{opts: opts, tok: tok}
}

// Chunk returns the ordered chunk texts. Blank input yields no chunks.
// A single sentence longer than ChunkSize is never split.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	marked := strings.ReplaceAll(text, "\n\n", " "+paragraphMarker+" ")

	var (
		chunks  []string
		current []string
		tokens  int
	)

	for _, raw := range strings.Split(marked, sentenceSep) {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		n := c.tok.Count(sentence)

		if tokens+n > c.opts.ChunkSize && len(current) > 0 {
			chunks = c.emit(chunks, current)
			current = append(c.seed(current), sentence)
			tokens = c.count(current)
			continue
		}

		current = append(current, sentence)
		tokens += n
	}

	if len(current) > 0 {
		chunks = c.emit(chunks, current)
	}
	return chunks
}

func (c *Chunker) emit(chunks []string, sentences []string) []string {
	joined := strings.Join(sentences, sentenceSep)
	content := strings.TrimSpace(paragraphRe.ReplaceAllString(joined, "\n\n"))

	size := utf8.RuneCountInString(content)
	if size < c.opts.MinChunkSize {
		slog.Debug("dropping short chunk", "length", size, "min", c.opts.MinChunkSize)
		return chunks
	}
	if c.opts.MaxChunkSize > 0 && size > c.opts.MaxChunkSize {
		slog.Warn("chunk exceeds max size", "length", size, "max", c.opts.MaxChunkSize)
	}
	return append(chunks, content)
}

// seed copies the trailing sentences that open the next chunk.
func (c *Chunker) seed(sentences []string) []string {
	if c.opts.ChunkOverlap <= 0 {
		return make([]string, 0, 1)
	}
	n := min(overlapSentences, len(sentences))
	out := make([]string, n, n+1)
	copy(out, sentences[len(sentences)-n:])
	return out
}

func (c *Chunker) count(sentences []string) int {
	total := 0
	for _, s := range sentences {
		total += c.tok.Count(s)
	}
	return total
}
