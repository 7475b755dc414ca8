package text

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const fallbackEncoding = "cl100k_base"

// Tokenizer counts model tokens for chunk budgeting.
type Tokenizer interface {
	Count(text string) int
}

var setLoader sync.Once

type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the BPE ranks embedded in the binary, so no
// network access is needed. Unknown models use cl100k_base.
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	setLoader.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) Count(s string) int {
	return len(t.enc.EncodeOrdinary(s))
}

// ApproxTokenizer estimates roughly four characters per token.
type ApproxTokenizer struct{}

func (ApproxTokenizer) Count(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// NewTokenizer prefers the model's BPE encoding and degrades to ApproxTokenizer.
func NewTokenizer(model string) Tokenizer {
	t, err := NewTiktokenTokenizer(model)
	if err != nil {
		slog.Warn("tiktoken unavailable, using approximate token counts", "model", model, "error", err)
		return ApproxTokenizer{}
	}
	return t
}
