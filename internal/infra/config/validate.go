package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a
// *ValidationError when one or more problems are found, so callers can
// report every issue at once.
func Validate(cfg *Config) error {
	ve := &ValidationError{}

	if cfg.Benchmark.Requests <= 0 {
		ve.Add("benchmark.requests must be > 0")
	}
	if cfg.Benchmark.Concurrency <= 0 {
		ve.Add("benchmark.concurrency must be > 0")
	}
	if cfg.Benchmark.QPS < 0 {
		ve.Add("benchmark.qps must be >= 0")
	}
	if cfg.Benchmark.Prompt == "" && cfg.Benchmark.PromptFile == "" {
		ve.Add("benchmark.prompt or benchmark.prompt_file is required")
	}
	if cfg.Benchmark.TokenEncoding == "" {
		ve.Add("benchmark.token_encoding is required")
	}

	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not a valid level", cfg.Logger.Level)
	}

	if cfg.Tracer.Enabled {
		switch cfg.Tracer.Exporter {
		case "stdout", "noop", "":
		default:
			ve.Add("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}
