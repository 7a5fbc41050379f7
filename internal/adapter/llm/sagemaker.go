package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel/trace"

	"streambench/internal/domain"
	"streambench/internal/infra/tracer"
)

// requiredEnv are the environment variables that must be present before any
// network activity. Their values feed the AWS credential chain; we only
// check presence here.
var requiredEnv = []string{
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_REGION_NAME",
}

// responseStream abstracts the SDK's event stream for testability.
type responseStream interface {
	Events() <-chan types.ResponseStream
	Err() error
	Close() error
}

// endpointInvoker abstracts the SageMaker runtime call for testability.
type endpointInvoker interface {
	InvokeStream(ctx context.Context, in *sagemakerruntime.InvokeEndpointWithResponseStreamInput) (responseStream, error)
}

// sdkInvoker is the production endpointInvoker backed by the real client.
type sdkInvoker struct {
	client *sagemakerruntime.Client
}

func (s *sdkInvoker) InvokeStream(ctx context.Context, in *sagemakerruntime.InvokeEndpointWithResponseStreamInput) (responseStream, error) {
	out, err := s.client.InvokeEndpointWithResponseStream(ctx, in)
	if err != nil {
		return nil, err
	}
	return out.GetStream(), nil
}

// SageMakerClient implements domain.LLMClient against a SageMaker streaming
// inference endpoint.
type SageMakerClient struct {
	invoker endpointInvoker
	tokens  domain.TokenCounter
	logger  *slog.Logger
}

// NewSageMakerClient creates a client using the default AWS credential chain,
// with the region taken from AWS_REGION_NAME. It fails fast when any of the
// required environment variables is absent.
func NewSageMakerClient(ctx context.Context, tokens domain.TokenCounter, logger *slog.Logger) (*SageMakerClient, error) {
	if err := checkRequiredEnv(); err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(os.Getenv("AWS_REGION_NAME")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SageMakerClient{
		invoker: &sdkInvoker{client: sagemakerruntime.NewFromConfig(awsCfg)},
		tokens:  tokens,
		logger:  logger,
	}, nil
}

// newSageMakerClientWithInvoker creates a client with an injected invoker (for testing).
func newSageMakerClientWithInvoker(invoker endpointInvoker, tokens domain.TokenCounter, logger *slog.Logger) *SageMakerClient {
	return &SageMakerClient{invoker: invoker, tokens: tokens, logger: logger}
}

// Name implements domain.LLMClient.
func (c *SageMakerClient) Name() string { return "sagemaker" }

// Send implements domain.LLMClient. Configuration errors are returned to the
// caller; every other failure is folded into the metrics record so one bad
// response never aborts a benchmark run. On failure the partial inter-token
// timings are discarded rather than reported.
func (c *SageMakerClient) Send(ctx context.Context, req domain.RequestConfig) (domain.RequestMetrics, string, error) {
	ctx, span := tracer.StartSpan(ctx, "bench.request",
		trace.WithAttributes(
			tracer.StringAttr("bench.endpoint", req.Model),
			tracer.StringAttr("bench.request_id", req.ID),
		),
	)
	defer span.End()

	if err := checkRequiredEnv(); err != nil {
		tracer.RecordError(span, err)
		return domain.RequestMetrics{}, "", err
	}

	metrics := domain.RequestMetrics{
		ID:              req.ID,
		NumPromptTokens: req.PromptTokens,
	}

	text, interTokens, err := c.streamCompletion(ctx, req)
	if err != nil {
		c.logger.Error("request failed",
			"id", req.ID,
			"endpoint", req.Model,
			"error", err,
		)
		tracer.RecordError(span, err)
		metrics.ErrorCode = domain.ErrorCodeServer
		metrics.ErrorMessage = err.Error()
		return metrics, "", nil
	}

	metrics.InterTokenTimes = interTokens
	metrics.NumOutputTokens = c.tokens.Count(text)
	span.SetAttributes(
		tracer.IntAttr("bench.prompt_tokens", metrics.NumPromptTokens),
		tracer.IntAttr("bench.output_tokens", metrics.NumOutputTokens),
	)
	tracer.SetOK(span)
	c.logger.Debug("request completed",
		"id", req.ID,
		"endpoint", req.Model,
		"lines", len(interTokens),
		"output_tokens", metrics.NumOutputTokens,
	)

	return metrics, text, nil
}

// streamCompletion opens the response stream, drains it line by line, and
// decodes the reassembled body.
func (c *SageMakerClient) streamCompletion(ctx context.Context, req domain.RequestConfig) (string, []time.Duration, error) {
	payload, err := buildPayload(req)
	if err != nil {
		return "", nil, fmt.Errorf("marshal payload: %w", err)
	}

	input := &sagemakerruntime.InvokeEndpointWithResponseStreamInput{
		EndpointName:     aws.String(req.Model),
		ContentType:      aws.String("application/json"),
		Body:             payload,
		CustomAttributes: aws.String("accept_eula=true"),
	}

	dispatched := time.Now()
	stream, err := c.invoker.InvokeStream(ctx, input)
	if err != nil {
		return "", nil, classifyInvokeError(err)
	}
	defer stream.Close()

	var (
		body        []byte
		interTokens []time.Duration
		mostRecent  = dispatched
	)
	reader := NewLineReader(stream.Events(), c.logger)
	for {
		line, ok := reader.Next()
		if !ok {
			break
		}
		if len(interTokens) == 0 {
			c.logger.Debug("first token",
				"id", req.ID,
				"latency", line.TTFT.Sub(dispatched),
			)
		}
		body = append(body, line.Data...)
		now := time.Now()
		interTokens = append(interTokens, now.Sub(mostRecent))
		mostRecent = now
	}
	if err := stream.Err(); err != nil {
		return "", nil, domain.WrapOp("read stream", err)
	}

	text, err := decodeGeneration(body)
	if err != nil {
		return "", nil, err
	}
	return text, interTokens, nil
}

// chatMessage is one role/content pair in the endpoint's inputs block.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// invokePayload is the wire shape the endpoint expects.
type invokePayload struct {
	Inputs     [][]chatMessage `json:"inputs"`
	Parameters map[string]any  `json:"parameters"`
}

// buildPayload assembles the request body: an empty system turn, the user
// prompt, and the sampling parameters. The endpoint names its generation cap
// max_new_tokens, so a caller-supplied max_tokens is renamed and the original
// key dropped from the wire.
func buildPayload(req domain.RequestConfig) ([]byte, error) {
	params := make(map[string]any, len(req.SamplingParams))
	for k, v := range req.SamplingParams {
		params[k] = v
	}
	if v, ok := params["max_tokens"]; ok {
		params["max_new_tokens"] = v
		delete(params, "max_tokens")
	}

	return json.Marshal(invokePayload{
		Inputs: [][]chatMessage{{
			{Role: "system", Content: ""},
			{Role: "user", Content: req.Prompt},
		}},
		Parameters: params,
	})
}

// generationRecord mirrors the endpoint's final envelope: a JSON array whose
// first element nests the generated text at generation.content.
type generationRecord struct {
	Generation struct {
		Content string `json:"content"`
	} `json:"generation"`
}

// decodeGeneration parses the reassembled body and extracts the text.
func decodeGeneration(body []byte) (string, error) {
	var records []generationRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("%w: empty response array", domain.ErrDecode)
	}
	return records[0].Generation.Content, nil
}

// checkRequiredEnv verifies presence of the required environment variables,
// naming the first missing one.
func checkRequiredEnv() error {
	for _, name := range requiredEnv {
		if os.Getenv(name) == "" {
			return fmt.Errorf("%w: %s", domain.ErrMissingEnv, name)
		}
	}
	return nil
}

// classifyInvokeError surfaces the smithy error code when one is available.
func classifyInvokeError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %s", domain.ErrProviderError, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return domain.WrapOp("invoke endpoint", err)
}
