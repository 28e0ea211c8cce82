package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/neurorouter"
)

// HTTP talks to an OpenAI-compatible chat completions endpoint
// (Ollama, Groq, llama.cpp server) through a neurorouter client.
type HTTP struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	// RequestsPerMinute enables client-side throttling when positive.
	RequestsPerMinute int

	// Client overrides the HTTP client. Nil builds one with Timeout.
	Client *http.Client

	router *neurorouter.Client
}

func (h *HTTP) Name() string { return KindHTTP }

// Complete sends the prompt as a single user message and returns the
// first choice's content. HTTP 429 and the client-side limit wrap
// neurorouter.ErrRateLimited; transport failures wrap ErrUnavailable.
func (h *HTTP) Complete(ctx context.Context, prompt string) (string, error) {
	if h.Endpoint == "" {
		return "", fmt.Errorf("http backend: %w: no endpoint configured", ErrUnavailable)
	}
	maxTokens := h.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	temperature := h.Temperature

	resp, err := h.routerClient().Complete(ctx, &neurorouter.CompletionRequest{
		Messages:    []neurorouter.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("http backend: %w", ctx.Err())
		}
		if isTransportError(err) {
			return "", fmt.Errorf("http backend: %w: %v", ErrUnavailable, err)
		}
		return "", fmt.Errorf("http backend: %w", err)
	}
	return resp.Content, nil
}

// routerClient builds the neurorouter client once so its rate limiter
// keeps state across calls.
func (h *HTTP) routerClient() *neurorouter.Client {
	if h.router != nil {
		return h.router
	}
	h.router = &neurorouter.Client{
		BaseURL:    h.Endpoint,
		APIKey:     h.APIKey,
		Model:      h.Model,
		HTTPClient: h.client(),
	}
	if h.RequestsPerMinute > 0 {
		h.router.RateLimit = &neurorouter.RateLimit{RequestsPerMinute: h.RequestsPerMinute}
	}
	return h.router
}

func (h *HTTP) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func isTransportError(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}
