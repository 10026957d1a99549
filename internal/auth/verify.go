package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	openAIModelsURL = "https://api.openai.com/v1"
	geminiModelsURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Verifier checks that an API key is accepted by its provider before the
// login is recorded.
type Verifier struct {
	httpClient *http.Client
}

// NewVerifier creates a verifier with a short request timeout.
func NewVerifier() *Verifier {
	return &Verifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify asks the provider's model-listing endpoint whether the key is
// valid. An empty baseURL selects the provider's public endpoint.
func (v *Verifier) Verify(ctx context.Context, provider, baseURL, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key is empty")
	}

	switch provider {
	case "openai", "custom", "":
		if baseURL == "" {
			baseURL = openAIModelsURL
		}
		return v.checkBearer(ctx, strings.TrimRight(baseURL, "/")+"/models", apiKey)

	case "gemini":
		if baseURL == "" {
			baseURL = geminiModelsURL
		}
		endpoint := strings.TrimRight(baseURL, "/") + "/models?key=" + url.QueryEscape(apiKey)
		return v.checkPlain(ctx, endpoint)

	default:
		return fmt.Errorf("unknown provider: %s", provider)
	}
}

func (v *Verifier) checkBearer(ctx context.Context, endpoint, apiKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	return v.do(req)
}

func (v *Verifier) checkPlain(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return v.do(req)
}

func (v *Verifier) do(req *http.Request) error {
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API key rejected: %s", strings.TrimSpace(string(body)))
	default:
		return fmt.Errorf("verification failed with status %d", resp.StatusCode)
	}
}
