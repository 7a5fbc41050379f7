package domain

import "context"

// RequestConfig describes one benchmark request against an inference endpoint.
type RequestConfig struct {
	// ID identifies the request in logs and metrics records.
	ID string `json:"id"`
	// Model is the inference endpoint name the request is sent to.
	Model string `json:"model"`
	// Prompt is the user message body.
	Prompt string `json:"prompt"`
	// PromptTokens is the token length of Prompt, computed by the caller.
	PromptTokens int `json:"prompt_tokens"`
	// SamplingParams are passed through to the endpoint's parameters block.
	SamplingParams map[string]any `json:"sampling_params,omitempty"`
}

// LLMClient sends a single request to an inference endpoint and measures it.
//
// The returned error is non-nil only for configuration problems detected
// before any network activity. Transport and decode failures are reported
// inside the metrics record instead, so a benchmark run never aborts on a
// single bad response.
type LLMClient interface {
	Send(ctx context.Context, req RequestConfig) (RequestMetrics, string, error)
	Name() string
}

// TokenCounter reports the token length of a text under some tokenizer.
type TokenCounter interface {
	Count(text string) int
}
