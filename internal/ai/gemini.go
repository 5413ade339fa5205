package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/xacan1/SynergyFuckingSystem/internal/config"
)

// Gemini asks Google's Gemini models through the genai SDK.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	retries     int
}

// NewGemini builds the Gemini resolver. The model name defaults to a fast
// flash model when the configured one is a DeepSeek name.
func NewGemini(cfg config.AIConfig) (*Gemini, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" || model == "deepseek-chat" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		timeout:     time.Duration(cfg.RequestTimeoutMs) * time.Millisecond,
		retries:     cfg.MaxRetries,
	}, nil
}

// Complete sends the prompt and returns the text of the response.
func (c *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<attempt) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.Models.GenerateContent(reqCtx, c.model, genai.Text(prompt), gc)
		cancel()
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if text := resp.Text(); text != "" {
			return text, nil
		}
		lastErr = errors.New("empty response")
	}
	return "", fmt.Errorf("gemini request failed after %d attempts: %w", c.retries+1, lastErr)
}
