package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-chat-be/pkg/llm"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	client    *lcollama.LLM
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) (*OllamaProvider, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	client, err := lcollama.New(
		lcollama.WithServerURL(baseURL),
		lcollama.WithModel(modelName),
		lcollama.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama client: %w", err)
	}
	return &OllamaProvider{BaseURL: baseURL, ModelName: modelName, client: client}, nil
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

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{Temperature: 0.7, Model: o.ModelName}, opts...)

	content := make([]llms.MessageContent, 0, len(history))
	for _, msg := range history {
		msgType, err := toMessageType(msg.Role)
		if err != nil {
			return "", err
		}
		content = append(content, llms.TextParts(msgType, msg.Content))
	}

	callOpts := []llms.CallOption{llms.WithModel(options.Model)}
	if options.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(options.MaxTokens))
	}
	if options.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(options.Temperature))
	}

	resp, err := o.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ollama returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
