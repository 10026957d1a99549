// Package assist provides the language-model backends behind the chat
// panel: an OpenAI-compatible HTTP client, a Gemini client, and a page
// fetcher for pulling web content into the conversation.
package assist

import "context"

// Roles for chat messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the interface all completion providers implement.
type Client interface {
	// Complete sends a prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Chat sends a multi-turn conversation and returns the next
	// assistant reply.
	Chat(ctx context.Context, systemPrompt string, turns []Message) (string, error)
	// Model returns the model identifier in use.
	Model() string
}
