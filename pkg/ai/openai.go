package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEnhancer runs a vision analysis; it returns notes but no image.
type OpenAIEnhancer struct {
	client *openai.Client
	model  string
}

func NewOpenAIEnhancer(apiKey, model string) *OpenAIEnhancer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIEnhancer{client: openai.NewClient(apiKey), model: model}
}

func (o *OpenAIEnhancer) Provider() string { return "openai" }
func (o *OpenAIEnhancer) Model() string    { return o.model }
func (o *OpenAIEnhancer) Close() error     { return nil }

func (o *OpenAIEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResult, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.MimeType, base64.StdEncoding.EncodeToString(req.Image))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: 800,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: instruction(req.Prompt)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	notes := strings.TrimSpace(resp.Choices[0].Message.Content)
	if notes == "" {
		return nil, ErrEmptyResponse
	}
	return &EnhanceResult{
		Notes:        notes,
		InputTokens:  int32(resp.Usage.PromptTokens),
		OutputTokens: int32(resp.Usage.CompletionTokens),
	}, nil
}
