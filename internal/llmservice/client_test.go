package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"docuchat/internal/config"
)

type fakeModel struct {
	messages []llms.MessageContent
	options  llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestCompleteSendsSystemAndUserMessages(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "The sky is blue."}}}}
	client := NewClientWithModel(model, "test-model")

	got, err := client.Complete(context.Background(), "system rules", "user question", 0.1)
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", got)

	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.TextContent{Text: "system rules"}, model.messages[0].Parts[0])
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.TextContent{Text: "user question"}, model.messages[1].Parts[0])
	assert.InDelta(t, 0.1, model.options.Temperature, 1e-9)
	assert.Equal(t, "test-model", model.options.Model)
}

func TestCompleteWithoutModelNameLeavesProviderDefault(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
	_, err := NewClientWithModel(model, "").Complete(context.Background(), "s", "u", 0.1)
	require.NoError(t, err)
	assert.Empty(t, model.options.Model)
}

func TestCompletePropagatesErrors(t *testing.T) {
	boom := errors.New("rate limited")
	client := NewClientWithModel(&fakeModel{err: boom}, "test-model")

	_, err := client.Complete(context.Background(), "s", "u", 0)
	require.ErrorIs(t, err, boom)
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	client := NewClientWithModel(&fakeModel{resp: &llms.ContentResponse{}}, "test-model")

	_, err := client.Complete(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestNewClientProviders(t *testing.T) {
	c, err := NewClient(&config.LLMConfig{Provider: "openai", Key: "sk-test", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = NewClient(&config.LLMConfig{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewClient(&config.LLMConfig{Provider: "hash"})
	require.Error(t, err)
}
