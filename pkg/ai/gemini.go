package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiEnhancer struct {
	client *genai.Client
	model  string
}

func NewGeminiEnhancer(ctx context.Context, apiKey, model string) (*GeminiEnhancer, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiEnhancer{client: client, model: model}, nil
}

func (g *GeminiEnhancer) Provider() string { return "gemini" }
func (g *GeminiEnhancer) Model() string    { return g.model }
func (g *GeminiEnhancer) Close() error     { return g.client.Close() }

func (g *GeminiEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResult, error) {
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(0.2)
	m.SetMaxOutputTokens(2048)

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	format := strings.TrimPrefix(req.MimeType, "image/")
	resp, err := m.GenerateContent(ctx, genai.ImageData(format, req.Image), genai.Text(instruction(req.Prompt)))
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyResponse
	}

	out := &EnhanceResult{}
	var notes []string
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			notes = append(notes, strings.TrimSpace(string(p)))
		case genai.Blob:
			if out.Image == nil && strings.HasPrefix(p.MIMEType, "image/") {
				out.Image = p.Data
				out.MimeType = p.MIMEType
			}
		}
	}
	out.Notes = strings.TrimSpace(strings.Join(notes, "\n"))
	if out.Image == nil && out.Notes == "" {
		return nil, ErrEmptyResponse
	}

	if u := resp.UsageMetadata; u != nil {
		out.InputTokens = u.PromptTokenCount
		out.OutputTokens = u.CandidatesTokenCount
	}
	return out, nil
}
