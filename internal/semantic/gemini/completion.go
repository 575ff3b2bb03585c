// Package gemini implements the completion service using Google Gemini.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Ensure Service implements scrape.CompletionService at compile time.
var _ scrape.CompletionService = (*Service)(nil)

// Service implements scrape.CompletionService using Google Gemini.
type Service struct {
	client *genai.Client
	model  string
}

// NewService creates a Service. An empty model selects DefaultModel.
func NewService(client *genai.Client, model string) *Service {
	if model == "" {
		model = DefaultModel
	}
	return &Service{client: client, model: model}
}

// NewClient builds a genai client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// Complete sends a single prompt and returns the model's text reply.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := s.client.Models.GenerateContent(ctx, s.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: prompt}},
		}},
		BuildConfig(),
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if result == nil {
		return "", fmt.Errorf("gemini returned nil result")
	}
	return result.Text(), nil
}

// BuildConfig returns the GenerateContentConfig for extraction calls.
func BuildConfig() *genai.GenerateContentConfig {
	temp := float32(0.2)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: "You are a data extraction assistant. You are given the text content of a web page and an instruction. Respond with valid JSON only, shaped to match the instruction.",
			}},
		},
		Temperature: &temp,
	}
}
