package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/xacan1/SynergyFuckingSystem/internal/config"
)

// DeepSeek talks to the DeepSeek chat API through its OpenAI-compatible
// endpoint.
type DeepSeek struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	retries     int
}

// NewDeepSeek builds the DeepSeek resolver.
func NewDeepSeek(cfg config.AIConfig) (*DeepSeek, error) {
	if cfg.DeepSeekAPIKey == "" {
		return nil, errors.New("deepseek api key is empty")
	}
	cc := openai.DefaultConfig(cfg.DeepSeekAPIKey)
	if cfg.DeepSeekBaseURL != "" {
		cc.BaseURL = cfg.DeepSeekBaseURL
	}
	return &DeepSeek{
		client:      openai.NewClientWithConfig(cc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     time.Duration(cfg.RequestTimeoutMs) * time.Millisecond,
		retries:     cfg.MaxRetries,
	}, nil
}

// Complete sends the prompt and returns the raw completion. Transient
// failures are retried with exponential backoff.
func (c *DeepSeek) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
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
		resp, err := c.client.CreateChatCompletion(reqCtx, req)
		cancel()
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = errors.New("empty completion")
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("deepseek request failed after %d attempts: %w", c.retries+1, lastErr)
}
