package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"luxscaler/internal/config"
)

const defaultInstruction = "Enhance this photo: improve sharpness, exposure and color balance while keeping the subject and composition unchanged. Return the enhanced image and one short sentence describing what changed."

type EnhanceRequest struct {
	Image    []byte
	MimeType string
	Prompt   string
}

type EnhanceResult struct {
	Image        []byte
	MimeType     string
	Notes        string
	InputTokens  int32
	OutputTokens int32
}

// Enhancer relays one photo to a generative model.
type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResult, error)
	Provider() string
	Model() string
	Close() error
}

var ErrEmptyResponse = errors.New("ai: provider returned no content")

func NewEnhancer(cfg *config.Config) (Enhancer, error) {
	switch cfg.AI.Provider {
	case "openai":
		return NewOpenAIEnhancer(cfg.AI.APIKey, cfg.AI.Model), nil
	case "gemini":
		return NewGeminiEnhancer(context.Background(), cfg.AI.APIKey, cfg.AI.Model)
	default:
		return nil, fmt.Errorf("ai: unsupported provider %q", cfg.AI.Provider)
	}
}

func instruction(prompt string) string {
	if p := strings.TrimSpace(prompt); p != "" {
		return defaultInstruction + "\nUser request: " + p
	}
	return defaultInstruction
}

// USD per million tokens, input then output.
var modelPricing = map[string][2]float64{
	"gemini-2.0-flash":      {0.10, 0.40},
	"gemini-2.0-flash-lite": {0.075, 0.30},
	"gemini-1.5-flash":      {0.075, 0.30},
	"gpt-4o-mini":           {0.15, 0.60},
	"gpt-4o":                {2.50, 10.00},
}

// EstimateCostUSD prices a call from its usage counts. Unknown models cost 0.
func EstimateCostUSD(model string, in, out int32) float64 {
	price, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return (float64(in)*price[0] + float64(out)*price[1]) / 1_000_000
}
