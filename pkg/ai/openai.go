package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "essay",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "essay",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluation failures",
	}, []string{"model"})
)

// responseSchema rejects any scoring payload that is not an integer score
// in [0,10] with feedback text and a highlight list.
const responseSchema = `{
	"type": "object",
	"required": ["score", "feedback", "highlights"],
	"properties": {
		"score": {"type": "integer", "minimum": 0, "maximum": 10},
		"feedback": {"type": "string"},
		"highlights": {"type": "array", "items": {"type": "string"}}
	}
}`

var evaluationSchema = jsonschema.MustCompileString("essay_evaluation.json", responseSchema)

// OpenAIConfig defines configuration options for the OpenAI essay evaluator.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float32
	MaxRetries     int
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// OpenAIEvaluator implements Evaluator against the OpenAI chat completion API.
type OpenAIEvaluator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEvaluator builds a new evaluator using the provided configuration.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	tracer := otel.Tracer("github.com/noah-isme/essay-eval-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIEvaluator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Evaluate sends the essay to the scoring model and parses the response.
// Transport failures are retried up to the configured limit, each attempt
// under its own deadline; a malformed or schema-invalid response is a hard
// failure and is not retried.
func (e *OpenAIEvaluator) Evaluate(parent context.Context, essay string) (EssayEvaluation, error) {
	ctx, span := e.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: evaluatorSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: essay,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := e.complete(ctx, request)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EssayEvaluation{}, fmt.Errorf("openai evaluate: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EssayEvaluation{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := ParseEvaluation(content)
	if err != nil {
		aiFailures.WithLabelValues(e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EssayEvaluation{}, err
	}

	span.SetAttributes(attribute.Int("evaluation.score", result.Score))

	return result, nil
}

func (e *OpenAIEvaluator) complete(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		resp, err := e.client.CreateChatCompletion(attemptCtx, request)
		cancel()
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		e.logger.Warn().Err(err).Int("attempt", attempt).Msg("scoring request failed")
	}

	return openai.ChatCompletionResponse{}, lastErr
}

// ParseEvaluation validates the raw model output against the response
// schema and decodes it.
func ParseEvaluation(content string) (EssayEvaluation, error) {
	var payload interface{}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return EssayEvaluation{}, fmt.Errorf("parse evaluation json: %w", err)
	}

	if err := evaluationSchema.Validate(payload); err != nil {
		return EssayEvaluation{}, fmt.Errorf("evaluation response failed schema validation: %w", err)
	}

	var result EssayEvaluation
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return EssayEvaluation{}, fmt.Errorf("decode evaluation json: %w", err)
	}

	if result.Highlights == nil {
		result.Highlights = []string{}
	}

	return result, nil
}

func evaluatorSystemPrompt() string {
	return "You are an evaluator grading English essays. Grade on grammatical accuracy, logical structure, and vocabulary use" +
		". Respond with a JSON object: {\"score\": integer 0-10, \"feedback\": \"concise per-paragraph comments in English\", " +
		"\"highlights\": [\"sentences or words that cost points\"]}. Each highlight must be the exact sentence (for grammar or" +
		" logic issues) or the exact word (for vocabulary issues) as written in the essay, with no duplicates."
}
