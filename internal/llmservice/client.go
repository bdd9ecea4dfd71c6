package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"docuchat/internal/config"
)

// Client is a single-shot chat completion provider.
type Client struct {
	llm   llms.Model
	model string
}

// NewClient builds the chat model named by cfg.Provider.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("Creating chat client")

	var (
		llm llms.Model
		err error
	)
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s client: %w", cfg.Provider, err)
	}
	return NewClientWithModel(llm, cfg.Model), nil
}

// NewClientWithModel wraps an already constructed langchaingo model.
func NewClientWithModel(llm llms.Model, model string) *Client {
	return &Client{llm: llm, model: model}
}

// Complete sends one system and one user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, userPrompt),
	}

	opts := []llms.CallOption{llms.WithTemperature(temperature)}
	if c.model != "" {
		opts = append(opts, llms.WithModel(c.model))
	}
	log.Debug().Str("model", c.model).Float64("temperature", temperature).Msg("Generating completion")

	res, err := GenerateContent(ctx, c.llm, messages, opts...)
	if err != nil {
		return "", err
	}
	return res.Choices[0].Content, nil
}

// GenerateContent calls the model and checks that it produced at least one choice.
func GenerateContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	res, err := llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}
	return res, nil
}
