package assist

import (
	"context"
	"fmt"

	"codeloft/internal/config"
)

// New builds the Client selected by the loaded configuration.
// The "custom" provider speaks the OpenAI wire format against a
// user-supplied base URL.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	timeout := cfg.GetAssistTimeout()

	switch cfg.Assist.Provider {
	case "openai", "":
		return NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:  cfg.Assist.APIKey,
			BaseURL: cfg.Assist.BaseURL,
			Model:   cfg.Assist.Model,
			Timeout: timeout,
		}), nil

	case "custom":
		if cfg.Assist.BaseURL == "" {
			return nil, fmt.Errorf("custom provider requires a base URL")
		}
		return NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:  cfg.Assist.APIKey,
			BaseURL: cfg.Assist.BaseURL,
			Model:   cfg.Assist.Model,
			Timeout: timeout,
		}), nil

	case "gemini":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:  cfg.Assist.APIKey,
			Model:   cfg.Assist.Model,
			Timeout: timeout,
		})

	default:
		return nil, fmt.Errorf("unknown provider: %s (valid: openai, gemini, custom)", cfg.Assist.Provider)
	}
}
