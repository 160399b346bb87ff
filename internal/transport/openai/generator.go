package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/generation"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/verdict"
	"github.com/SimondaVinciii/capbot-agent/internal/metrics"
)

// Generation purposes, used as the metrics "purpose" label.
const (
	purposeRewrite      = "rewrite"
	purposeAnalysis     = "analysis"
	purposeAlternatives = "alternatives"
)

// GeneratorConfig holds chat completion settings on top of the provider Config.
type GeneratorConfig struct {
	Config
	Temperature float32
	MaxTokens   int
}

// Generator produces topic rewrites, overlap analyses and alternative approaches
// through the chat completion API.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generator.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.8
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2500
	}
	return &Generator{
		client:      newClient(&cfg.Config),
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
		limiter:     newLimiter(cfg.RequestsPerSecond),
		logger:      logger,
	}
}

// Generate returns the raw rewrite reply for req. Parsing is the caller's job.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (string, error) {
	return g.complete(ctx, purposeRewrite, generation.RewritePrompt(req), g.temperature, g.maxTokens)
}

// Analyze reads the overlap between document and its duplicate candidates.
// The summary and the recommendation list come from two short calls.
func (g *Generator) Analyze(
	ctx context.Context,
	document string,
	candidates []verdict.Candidate,
) (generation.Analysis, error) {
	summary, err := g.complete(ctx, purposeAnalysis, generation.AnalysisPrompt(document, candidates), 0.3, 200)
	if err != nil {
		return generation.Analysis{}, err
	}
	summary = strings.TrimSpace(summary)

	list, err := g.complete(ctx, purposeAnalysis, generation.RecommendationsPrompt(summary), 0.3, 150)
	if err != nil {
		return generation.Analysis{}, err
	}
	return generation.Analysis{
		Summary:         summary,
		Recommendations: generation.ParseRecommendations(list),
	}, nil
}

// Alternatives asks for three alternative approaches to c.
func (g *Generator) Alternatives(ctx context.Context, c topic.Content) ([]generation.Alternative, error) {
	raw, err := g.complete(ctx, purposeAlternatives, generation.AlternativesPrompt(c), 0.8, 1500)
	if err != nil {
		return nil, err
	}
	alts, err := generation.ParseAlternatives(raw)
	if err != nil {
		return nil, fmt.Errorf("parse alternatives: %w: %w", domain.ErrGeneratorError, err)
	}
	return alts, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (g *Generator) complete(
	ctx context.Context,
	purpose, prompt string,
	temperature float32,
	maxTokens int,
) (string, error) {
	if err := wait(ctx, g.limiter); err != nil {
		metrics.GeneratorErrorsTotal.WithLabelValues(g.model, "rate_limited").Inc()
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generation.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)

	if err != nil {
		metrics.GeneratorRequestsTotal.WithLabelValues(g.model, purpose, "error").Inc()
		metrics.GeneratorErrorsTotal.WithLabelValues(g.model, "api_error").Inc()
		return "", parseAPIError("generator", err, domain.ErrGeneratorError)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.GeneratorRequestsTotal.WithLabelValues(g.model, purpose, "error").Inc()
		metrics.GeneratorErrorsTotal.WithLabelValues(g.model, "empty_response").Inc()
		return "", fmt.Errorf("empty %s response: %w", purpose, domain.ErrGeneratorError)
	}

	metrics.GeneratorRequestsTotal.WithLabelValues(g.model, purpose, "success").Inc()
	metrics.GeneratorRequestDuration.WithLabelValues(g.model, purpose).Observe(latency.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.GeneratorTokensTotal.WithLabelValues(g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.GeneratorTokensTotal.WithLabelValues(g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}
	if u := domain.UsageFromContext(ctx); u != nil {
		u.AddGeneration(resp.Usage.TotalTokens)
	}

	g.logger.Debug("Generator request completed",
		zap.String("purpose", purpose),
		zap.Int64("latency_ms", latency.Milliseconds()),
		zap.Int("tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}
