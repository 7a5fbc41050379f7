package domain

import (
	"context"
	"time"
)

// ErrorCodeServer is the generic code recorded for any transport or decode
// failure during a streamed request.
const ErrorCodeServer = 500

// RequestMetrics is the measurement record for one streamed request.
// ErrorCode/ErrorMessage and GeneratedText are mutually exclusive: a failed
// request carries an error and an empty text, a successful one the reverse.
type RequestMetrics struct {
	ID string `json:"id"`
	// InterTokenTimes holds one duration per streamed line; the first entry
	// is measured from request dispatch. Empty on failure.
	InterTokenTimes []time.Duration `json:"inter_token_times"`
	NumPromptTokens int             `json:"num_prompt_tokens"`
	NumOutputTokens int             `json:"num_output_tokens"`
	ErrorCode       int             `json:"error_code,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// Failed reports whether the request ended with an error record.
func (m RequestMetrics) Failed() bool { return m.ErrorCode != 0 }

// MetricsSink consumes one metrics record per completed request.
// Implementations must be safe for concurrent use: the benchmark runner
// records from multiple goroutines.
type MetricsSink interface {
	Record(ctx context.Context, m RequestMetrics) error
}
