// Package anthropic provides the live backend for the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"llmarena/internal/core"
	"llmarena/internal/llmclient"
	"llmarena/internal/providers"
)

const (
	defaultBaseURL      = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"

	defaultMaxTokens    = 1024
	standardTemperature = 0.7

	failurePrefix = "Failed to generate response: "
)

// Registration exposes the Anthropic backend to the provider factory.
var Registration = providers.Registration{
	Types: []string{providers.TypeAnthropic},
	New: func(cfg providers.ProviderConfig, deps providers.Deps) (core.Backend, error) {
		return New(cfg, deps.HTTPClient)
	},
}

// Provider implements core.Backend for Anthropic
type Provider struct {
	name   string
	apiKey string
	client *llmclient.Client
}

// New creates a new Anthropic provider. A nil httpClient uses the shared default.
func New(cfg providers.ProviderConfig, httpClient *http.Client) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic requires an API key")
	}
	p := &Provider{name: cfg.Name, apiKey: cfg.APIKey}
	if p.name == "" {
		p.name = providers.TypeAnthropic
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	p.client = llmclient.New(httpClient, llmclient.Config{
		ProviderName: p.name,
		BaseURL:      baseURL,
	}, p.setHeaders)
	return p, nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
}

// anthropicRequest represents the Anthropic API request format
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Stream      bool               `json:"stream,omitempty"`
}

// anthropicMessage represents a message in Anthropic format
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse represents the Anthropic API response format
type anthropicResponse struct {
	ID         string             `json:"id"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

// anthropicContent represents content in Anthropic response
type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func newRequest(model core.ModelDescriptor, prompt string, stream bool) anthropicRequest {
	return anthropicRequest{
		Model:       model.ID,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		MaxTokens:   defaultMaxTokens,
		Temperature: standardTemperature,
		Stream:      stream,
	}
}

// Complete returns the concatenated text blocks of the reply.
func (p *Provider) Complete(ctx context.Context, model core.ModelDescriptor, prompt string) (string, error) {
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/messages",
		Body:     newRequest(model, prompt, false),
	})
	if err != nil {
		return "", p.failure(err)
	}

	var msg anthropicResponse
	if err := json.Unmarshal(resp.Body, &msg); err != nil {
		return "", p.failure(err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", p.failure(errors.New("response contained no content"))
	}
	return sb.String(), nil
}

// Stream relays text deltas from the Messages streaming API.
func (p *Provider) Stream(ctx context.Context, model core.ModelDescriptor, prompt string, _ time.Duration) (core.FragmentStream, error) {
	body, err := p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/messages",
		Body:     newRequest(model, prompt, true),
	})
	if err != nil {
		return nil, p.failure(err)
	}
	return newMessageStream(body, p.failure), nil
}

// failure converts any error into a provider error carrying the upstream
// message. Context errors pass through untouched.
func (p *Provider) failure(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	status := http.StatusBadGateway
	msg := err.Error()
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) {
		msg = gwErr.Message
		if gwErr.StatusCode != 0 {
			status = gwErr.StatusCode
		}
	}
	return core.NewProviderError(p.name, status, failurePrefix+msg, err)
}
