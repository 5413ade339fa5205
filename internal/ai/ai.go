// Package ai provides the model backends used when the local store does
// not know a question.
package ai

import (
	"fmt"
	"strings"

	"github.com/xacan1/SynergyFuckingSystem/internal/config"
	"github.com/xacan1/SynergyFuckingSystem/internal/parser"
)

// New builds the resolver for the given name. The name is either a bare
// provider ("deepseek", "gemini") or a concrete model identifier such as
// "deepseek-reasoner" or "gemini-2.0-flash", which also selects the model.
// An empty name falls back to the configured provider.
func New(cfg config.AIConfig, name string) (parser.Resolver, error) {
	if name == "" {
		name = cfg.Provider
	}
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "deepseek"):
		if lower != "deepseek" {
			cfg.Model = name
		}
		return NewDeepSeek(cfg)
	case strings.HasPrefix(lower, "gemini"):
		if lower != "gemini" {
			cfg.Model = name
		}
		return NewGemini(cfg)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", name)
	}
}
