package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tiktoken counts tokens using a tiktoken BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// New loads the named encoding (e.g. "cl100k_base"). The BPE vocabulary is
// fetched on first use, so this can fail without network access.
func New(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Count implements domain.TokenCounter.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Words is a whitespace-split fallback counter for environments where the
// BPE vocabulary cannot be loaded. Counts are approximate.
type Words struct{}

// Count implements domain.TokenCounter.
func (Words) Count(text string) int { return len(strings.Fields(text)) }
