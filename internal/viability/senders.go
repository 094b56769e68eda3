package viability

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/alwayscodedfresh/lead-cli/pkg/anthropic"
	"github.com/alwayscodedfresh/lead-cli/pkg/openai"
)

// Temperature used for classification calls on both providers.
const Temperature = 0.3

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// AnthropicSender sends prompts through the Messages API.
type AnthropicSender struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicSender creates an AnthropicSender.
func NewAnthropicSender(client anthropic.Client, model string, maxTokens int64) *AnthropicSender {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicSender{client: client, model: model, maxTokens: maxTokens}
}

// Send implements Sender. The system part is sent as a cached block so a
// batch pays for it once.
func (s *AnthropicSender) Send(ctx context.Context, p Prompt) (string, error) {
	temp := Temperature
	req := anthropic.MessageRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	}
	if p.System != "" {
		req.System = []anthropic.SystemBlock{{Text: p.System, CacheControl: &anthropic.CacheControl{}}}
	}
	resp, err := s.client.CreateMessage(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "viability: anthropic send")
	}
	resp.Usage.LogCost(s.model, "viability")
	return resp.Text(), nil
}

// OpenAISender sends prompts through an OpenAI-compatible chat endpoint.
type OpenAISender struct {
	client openai.Client
	model  string
}

// NewOpenAISender creates an OpenAISender. An empty model uses the client default.
func NewOpenAISender(client openai.Client, model string) *OpenAISender {
	return &OpenAISender{client: client, model: model}
}

// Send implements Sender.
func (s *OpenAISender) Send(ctx context.Context, p Prompt) (string, error) {
	temp := Temperature
	var msgs []openai.Message
	if p.System != "" {
		msgs = append(msgs, openai.Message{Role: "system", Content: p.System})
	}
	msgs = append(msgs, openai.Message{Role: "user", Content: p.User})
	resp, err := s.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    msgs,
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "viability: openai send")
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("viability: openai returned no choices")
	}
	return resp.Content(), nil
}
