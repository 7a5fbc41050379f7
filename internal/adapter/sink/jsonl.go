package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"streambench/internal/domain"
)

// JSONL writes one metrics record per line. Safe for concurrent use.
type JSONL struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONL wraps an arbitrary writer.
func NewJSONL(w io.Writer) *JSONL {
	return &JSONL{enc: json.NewEncoder(w)}
}

// Open creates a JSONL sink for path; "stdout" or "" writes to stdout.
func Open(path string) (*JSONL, error) {
	if path == "" || path == "stdout" {
		return NewJSONL(os.Stdout), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open metrics output: %w", err)
	}
	s := NewJSONL(f)
	s.closer = f
	return s, nil
}

// Record implements domain.MetricsSink.
func (s *JSONL) Record(_ context.Context, m domain.RequestMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(m)
}

// Close releases the underlying file, if any.
func (s *JSONL) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
