package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"streambench/internal/domain"
)

func TestJSONLRecord(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONL(&buf)

	err := s.Record(context.Background(), domain.RequestMetrics{
		ID:              "r1",
		InterTokenTimes: []time.Duration{5 * time.Millisecond},
		NumPromptTokens: 3,
		NumOutputTokens: 12,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSONL line: %v", err)
	}
	if m["id"] != "r1" {
		t.Errorf("id = %v", m["id"])
	}
	if m["num_output_tokens"] != float64(12) {
		t.Errorf("num_output_tokens = %v", m["num_output_tokens"])
	}
	if _, ok := m["error_code"]; ok {
		t.Error("error_code should be omitted for successful requests")
	}
}

func TestJSONLConcurrentRecords(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONL(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Record(context.Background(), domain.RequestMetrics{ID: "x"})
		}()
	}
	wg.Wait()

	lines := 0
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("line %d corrupt: %v", lines, err)
		}
		lines++
	}
	if lines != 20 {
		t.Errorf("lines = %d, want 20", lines)
	}
}

func TestOpenStdout(t *testing.T) {
	s, err := Open("stdout")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
