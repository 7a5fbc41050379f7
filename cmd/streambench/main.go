package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"streambench/internal/adapter/llm"
	"streambench/internal/adapter/sink"
	"streambench/internal/adapter/tokenizer"
	"streambench/internal/domain"
	"streambench/internal/infra/config"
	"streambench/internal/infra/logger"
	"streambench/internal/infra/tracer"
	"streambench/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "config.yaml", "path to config file")
		endpoint    = flag.String("endpoint", "", "SageMaker endpoint name")
		prompt      = flag.String("prompt", "", "prompt text")
		requests    = flag.Int("requests", 0, "number of requests to send")
		concurrency = flag.Int("concurrency", 0, "maximum in-flight requests")
		qps         = flag.Float64("qps", -1, "request launch rate limit (0 = unlimited)")
		maxTokens   = flag.Int("max-tokens", 0, "generation cap per request")
		output      = flag.String("output", "", "metrics output path (JSONL; \"stdout\" for console)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, *endpoint, *prompt, *requests, *concurrency, *qps, *maxTokens, *output)

	if cfg.Benchmark.Endpoint == "" {
		return fmt.Errorf("no endpoint configured (set --endpoint or benchmark.endpoint)")
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	var counter domain.TokenCounter
	counter, err = tokenizer.New(cfg.Benchmark.TokenEncoding)
	if err != nil {
		log.Warn("token encoding unavailable, using word counts",
			"encoding", cfg.Benchmark.TokenEncoding,
			"error", err,
		)
		counter = tokenizer.Words{}
	}

	client, err := llm.NewSageMakerClient(ctx, counter, log)
	if err != nil {
		return err
	}

	out, err := sink.Open(cfg.Output.Path)
	if err != nil {
		return err
	}
	defer out.Close()

	template := domain.RequestConfig{
		Model:          cfg.Benchmark.Endpoint,
		Prompt:         cfg.Benchmark.Prompt,
		PromptTokens:   counter.Count(cfg.Benchmark.Prompt),
		SamplingParams: cfg.Benchmark.SamplingParams,
	}

	runner := usecase.NewRunner(client, out, log, cfg.Benchmark.Concurrency, cfg.Benchmark.QPS)
	log.Info("benchmark starting",
		"endpoint", cfg.Benchmark.Endpoint,
		"requests", cfg.Benchmark.Requests,
		"concurrency", cfg.Benchmark.Concurrency,
		"prompt_tokens", template.PromptTokens,
	)

	if err := runner.Run(ctx, cfg.Benchmark.Requests, template); err != nil {
		return err
	}

	log.Info("benchmark complete", "requests", cfg.Benchmark.Requests)
	return nil
}

// applyFlags overlays non-zero flag values onto the loaded config.
func applyFlags(cfg *config.Config, endpoint, prompt string, requests, concurrency int, qps float64, maxTokens int, output string) {
	if endpoint != "" {
		cfg.Benchmark.Endpoint = endpoint
	}
	if prompt != "" {
		cfg.Benchmark.Prompt = prompt
	}
	if requests > 0 {
		cfg.Benchmark.Requests = requests
	}
	if concurrency > 0 {
		cfg.Benchmark.Concurrency = concurrency
	}
	if qps >= 0 {
		cfg.Benchmark.QPS = qps
	}
	if maxTokens > 0 {
		if cfg.Benchmark.SamplingParams == nil {
			cfg.Benchmark.SamplingParams = map[string]any{}
		}
		cfg.Benchmark.SamplingParams["max_tokens"] = maxTokens
	}
	if output != "" {
		cfg.Output.Path = output
	}
}
