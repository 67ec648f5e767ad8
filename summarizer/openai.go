package summarizer

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/zaka-ai/paperpush/config"
)

// OpenAIClient implements LLMClient using the official openai-go SDK
// (chat completions). Model, temperature and output budget come from
// configuration; BaseURL allows any OpenAI-compatible endpoint.
type OpenAIClient struct {
	model       string
	temperature float64
	maxTokens   int
	opts        []option.RequestOption
}

// NewOpenAIClient builds a client from the loaded configuration.
func NewOpenAIClient(cfg config.OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		opts:        opts,
	}, nil
}

func (o *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	client := openai.NewClient(o.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(o.temperature),
		MaxTokens:   openai.Int(int64(o.maxTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
