package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"contentforge/config"
)

// OpenAIClient implements TextGenerator and ImageGenerator using the official
// openai-go SDK.
type OpenAIClient struct {
	model      string
	imageModel string
	opts       []option.RequestOption
}

// NewOpenAIClient creates a client from provider configuration
func NewOpenAIClient(cfg *config.ProviderConfig) (*OpenAIClient, error) {
	if cfg == nil {
		return nil, errors.New("provider config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; provide provider.api_key")
	}
	if cfg.Model == "" {
		return nil, errors.New("provider model is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		opts:       opts,
	}, nil
}

// GenerateText calls the chat completions API with a writing-assistant system
// prompt built from the requested kind, tone and length.
func (c *OpenAIClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	client := openai.NewClient(c.opts...)

	system := fmt.Sprintf(
		"You are a professional content writer. Generate %s content in a %s tone. "+
			"Make it %s length. Be creative, engaging, and informative. "+
			"Format the response with proper paragraphs and structure.",
		req.Kind, req.Tone, req.Length,
	)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(0.7),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindUnknown, Err: errors.New("openai: empty choices")}
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateImage calls the images API and returns the raw image bytes
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	client := openai.NewClient(c.opts...)

	resp, err := client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:          openai.ImageModel(c.imageModel),
		Prompt:         prompt,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		N:              openai.Int(1),
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Data) == 0 {
		return nil, &Error{Kind: KindUnknown, Err: errors.New("openai: empty image data")}
	}

	payload, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Err: err}
	}

	return payload, nil
}

// Check makes a minimal completion call to verify the credential and model
func (c *OpenAIClient) Check(ctx context.Context) (string, error) {
	client := openai.NewClient(c.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Say 'Hello, World!'"),
		},
		MaxTokens: openai.Int(10),
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindUnknown, Err: errors.New("openai: empty choices")}
	}

	return resp.Choices[0].Message.Content, nil
}
