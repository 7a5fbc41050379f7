package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Benchmark BenchmarkConfig `yaml:"benchmark"`
	Output    OutputConfig    `yaml:"output"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
}

// BenchmarkConfig describes the request workload.
type BenchmarkConfig struct {
	// Endpoint is the SageMaker inference endpoint name.
	Endpoint string `yaml:"endpoint"`
	// Prompt is the user message sent with every request. PromptFile, when
	// set, takes precedence and is read at load time.
	Prompt     string `yaml:"prompt"`
	PromptFile string `yaml:"prompt_file"`
	// Requests is the total number of requests to send.
	Requests int `yaml:"requests"`
	// Concurrency bounds the number of in-flight requests.
	Concurrency int `yaml:"concurrency"`
	// QPS caps the request launch rate; 0 disables the limiter.
	QPS float64 `yaml:"qps"`
	// SamplingParams are forwarded verbatim to the endpoint's parameters
	// block (max_tokens is renamed on the wire by the client).
	SamplingParams map[string]any `yaml:"sampling_params"`
	// TokenEncoding selects the tiktoken encoding for token counts.
	TokenEncoding string `yaml:"token_encoding"`
}

// OutputConfig describes where metrics records go.
type OutputConfig struct {
	// Path is the JSONL metrics file; "stdout" or "" writes to stdout.
	Path string `yaml:"path"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config with sane defaults for a small local run.
func Defaults() *Config {
	return &Config{
		Benchmark: BenchmarkConfig{
			Prompt:      "Write a short story about a lighthouse keeper.",
			Requests:    1,
			Concurrency: 1,
			SamplingParams: map[string]any{
				"max_tokens": 256,
			},
			TokenEncoding: "cl100k_base",
		},
		Output: OutputConfig{Path: "stdout"},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Enabled: false, Exporter: "noop"},
	}
}

// Load reads the YAML file at path on top of Defaults. A missing file is not
// an error: env overrides and defaults still apply, so the CLI can run from
// flags alone.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to env overrides
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	ApplyEnvOverrides(cfg)

	if cfg.Benchmark.PromptFile != "" {
		prompt, err := os.ReadFile(cfg.Benchmark.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("read prompt file: %w", err)
		}
		cfg.Benchmark.Prompt = string(prompt)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides lets STREAMBENCH_* variables override file values.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STREAMBENCH_ENDPOINT"); v != "" {
		cfg.Benchmark.Endpoint = v
	}
	if v := os.Getenv("STREAMBENCH_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Benchmark.Requests = n
		}
	}
	if v := os.Getenv("STREAMBENCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Benchmark.Concurrency = n
		}
	}
	if v := os.Getenv("STREAMBENCH_OUTPUT"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("STREAMBENCH_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
}
