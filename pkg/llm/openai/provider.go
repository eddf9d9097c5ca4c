package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ai-chat-be/pkg/llm"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider talks to the chat completions API through langchaingo.
type OpenAIProvider struct {
	client *lcopenai.LLM
	model  string
}

var (
	_ llm.LLMProvider    = &OpenAIProvider{}
	_ llm.VisionProvider = &OpenAIProvider{}
)

func NewOpenAIProvider(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(apiKey),
		lcopenai.WithModel(model),
		lcopenai.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	}
	if baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}

	client, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	return &OpenAIProvider{client: client, model: model}, nil
}

func toMessageType(role string) (llms.ChatMessageType, error) {
	switch role {
	case llm.RoleSystem:
		return llms.ChatMessageTypeSystem, nil
	case llm.RoleUser:
		return llms.ChatMessageTypeHuman, nil
	case llm.RoleAssistant:
		return llms.ChatMessageTypeAI, nil
	}
	return "", fmt.Errorf("unsupported role %q", role)
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{Model: p.model}, opts...)

	content := make([]llms.MessageContent, 0, len(history))
	for _, msg := range history {
		msgType, err := toMessageType(msg.Role)
		if err != nil {
			return "", err
		}
		content = append(content, llms.TextParts(msgType, msg.Content))
	}

	return p.generate(ctx, content, options)
}

func (p *OpenAIProvider) generate(ctx context.Context, content []llms.MessageContent, options llm.Options) (string, error) {
	callOpts := []llms.CallOption{llms.WithModel(options.Model)}
	if options.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(options.MaxTokens))
	}
	if options.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(options.Temperature))
	}

	resp, err := p.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}

	return resp.Choices[0].Content, nil
}

// DescribeImage sends the prompt and the image as one user turn; the image
// travels as a base64 data URL.
func (p *OpenAIProvider) DescribeImage(ctx context.Context, prompt, mimeType string, image []byte, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{Model: p.model}, opts...)

	content := []llms.MessageContent{{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextContent{Text: prompt},
			llms.ImageURLPart("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)),
		},
	}}
	return p.generate(ctx, content, options)
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
