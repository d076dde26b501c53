package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/yuchen-w/fangnote/internal/config"
	"github.com/yuchen-w/fangnote/internal/metrics"
	"github.com/yuchen-w/fangnote/internal/models"
)

// LLMExtractor implements Extractor on top of a langchaingo model.
type LLMExtractor struct {
	llm       llms.Model
	modelName string
	metrics   *metrics.Collector
}

// Compile-time check that LLMExtractor implements Extractor.
var _ Extractor = (*LLMExtractor)(nil)

// NewLLMExtractor creates an extractor for the configured provider.
func NewLLMExtractor(ctx context.Context, cfg config.Config, collector *metrics.Collector) (*LLMExtractor, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderGoogleAI:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("Gemini API key required (set GEMINI_API_KEY)")
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GeminiAPIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create googleai model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported extraction provider: %s", cfg.Provider)
	}

	return &LLMExtractor{
		llm:       model,
		modelName: cfg.Model,
		metrics:   collector,
	}, nil
}

// Model returns the configured model name.
func (e *LLMExtractor) Model() string {
	return e.modelName
}

// Extract sends the prompt plus inline media and parses the JSON reply.
func (e *LLMExtractor) Extract(ctx context.Context, in Input) ([]models.Listing, error) {
	parts := []llms.ContentPart{llms.TextPart(buildPrompt(in.Text))}
	if in.Image != nil {
		parts = append(parts, llms.BinaryPart(in.Image.MIME, in.Image.Data))
	}
	if in.Audio != nil {
		parts = append(parts, llms.BinaryPart(in.Audio.MIME, in.Audio.Data))
	}

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	start := time.Now()
	resp, err := e.llm.GenerateContent(ctx, messages, llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoResponse
	}

	choice := resp.Choices[0]
	if e.metrics != nil {
		in, out := tokenUsage(choice.GenerationInfo)
		e.metrics.RecordExtraction(time.Since(start), in, out)
	}

	return parseListings(choice.Content)
}

// tokenUsage pulls token counts out of GenerationInfo. Providers use
// different key names; missing counts report as zero.
func tokenUsage(info map[string]any) (input, output int64) {
	return intFromInfo(info, "input_tokens", "PromptTokens", "prompt_tokens"),
		intFromInfo(info, "output_tokens", "CompletionTokens", "completion_tokens")
}

func intFromInfo(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		v, ok := info[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return int64(n)
		case int32:
			return int64(n)
		case int64:
			return n
		case float64:
			return int64(n)
		}
	}
	return 0
}
