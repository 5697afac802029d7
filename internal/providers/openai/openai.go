// Package openai provides the live backend for OpenAI-compatible APIs:
// OpenAI itself, Azure OpenAI, OpenRouter, Gemini, Groq, xAI and Ollama.
package openai

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"llmarena/internal/core"
	"llmarena/internal/llmclient"
	"llmarena/internal/providers"
)

// Registration provides factory registration for every OpenAI-compatible type.
var Registration = providers.Registration{
	Types: []string{
		providers.TypeOpenAI,
		providers.TypeAzureOpenAI,
		providers.TypeOpenRouter,
		providers.TypeGemini,
		providers.TypeGroq,
		providers.TypeXAI,
		providers.TypeOllama,
	},
	New: func(cfg providers.ProviderConfig, deps providers.Deps) (core.Backend, error) {
		return New(cfg, deps.HTTPClient)
	},
}

const (
	defaultAzureAPIVersion = "2025-04-01-preview"

	// standardTemperature is sent with every chat completion.
	standardTemperature = 0.7

	failurePrefix = "Failed to generate response: "
)

var errNoContent = errors.New("response contained no content")

// dialect describes how one vendor deviates from the OpenAI API.
type dialect struct {
	baseURL string
	// responses marks support for the Responses API used by reasoning models.
	responses bool
	keyless   bool
}

var dialects = map[string]dialect{
	providers.TypeOpenAI:      {baseURL: "https://api.openai.com/v1", responses: true},
	providers.TypeAzureOpenAI: {responses: true},
	providers.TypeOpenRouter:  {baseURL: "https://openrouter.ai/api/v1"},
	providers.TypeGemini:      {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai"},
	providers.TypeGroq:        {baseURL: "https://api.groq.com/openai/v1"},
	providers.TypeXAI:         {baseURL: "https://api.x.ai/v1", responses: true},
	providers.TypeOllama:      {baseURL: "http://localhost:11434/v1", keyless: true},
}

// Provider implements core.Backend for one OpenAI-compatible endpoint.
type Provider struct {
	name       string
	kind       string
	dialect    dialect
	apiKey     string
	apiVersion string
	client     *llmclient.Client
}

// New creates a provider for cfg. A nil httpClient uses the shared default.
func New(cfg providers.ProviderConfig, httpClient *http.Client) (*Provider, error) {
	d, ok := dialects[cfg.Type]
	if !ok {
		return nil, errors.New("unsupported provider type: " + cfg.Type)
	}

	p := &Provider{
		name:       cfg.Name,
		kind:       cfg.Type,
		dialect:    d,
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
	}
	if p.name == "" {
		p.name = cfg.Type
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = d.baseURL
	}
	if baseURL == "" {
		return nil, errors.New(cfg.Type + " requires an endpoint base URL")
	}
	if p.kind == providers.TypeAzureOpenAI && p.apiVersion == "" {
		p.apiVersion = defaultAzureAPIVersion
	}
	if p.apiKey == "" && !d.keyless {
		return nil, errors.New(cfg.Type + " requires an API key")
	}

	p.client = llmclient.New(httpClient, llmclient.Config{
		ProviderName: p.name,
		BaseURL:      baseURL,
	}, p.setHeaders)
	return p, nil
}

// setHeaders sets authentication for the dialect and forwards the request id.
func (p *Provider) setHeaders(req *http.Request) {
	switch {
	case p.kind == providers.TypeAzureOpenAI:
		req.Header.Set("api-key", p.apiKey)
	case p.apiKey != "":
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if p.kind == providers.TypeOpenRouter {
		req.Header.Set("X-Title", "llmarena")
	}

	if requestID := core.RequestID(req.Context()); requestID != "" && isValidClientRequestID(requestID) {
		req.Header.Set("X-Client-Request-Id", requestID)
	}
}

// isValidClientRequestID checks OpenAI's constraints on X-Client-Request-Id:
// ASCII only, at most 512 bytes.
func isValidClientRequestID(id string) bool {
	if len(id) > 512 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] > 127 {
			return false
		}
	}
	return true
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

type reasoning struct {
	Effort string `json:"effort"`
}

type responsesRequest struct {
	Model     string    `json:"model"`
	Input     []message `json:"input"`
	Reasoning reasoning `json:"reasoning"`
}

func userMessages(prompt string) []message {
	return []message{{Role: "user", Content: prompt}}
}

// chatEndpoint returns the chat completions path for the dialect.
func (p *Provider) chatEndpoint(model string) (string, url.Values) {
	if p.kind == providers.TypeAzureOpenAI {
		return "/openai/deployments/" + url.PathEscape(model) + "/chat/completions", p.azureQuery()
	}
	return "/chat/completions", nil
}

func (p *Provider) responsesEndpoint() (string, url.Values) {
	if p.kind == providers.TypeAzureOpenAI {
		return "/openai/responses", p.azureQuery()
	}
	return "/responses", nil
}

func (p *Provider) azureQuery() url.Values {
	return url.Values{"api-version": {p.apiVersion}}
}

// Complete returns the full answer. Reasoning models use the Responses API
// with minimal effort where the vendor offers it; everything else uses Chat
// Completions.
func (p *Provider) Complete(ctx context.Context, model core.ModelDescriptor, prompt string) (string, error) {
	var (
		content string
		err     error
	)
	if p.usesResponses(model) {
		content, err = p.respond(ctx, model, prompt)
	} else {
		content, err = p.chat(ctx, model, prompt)
	}
	if err != nil {
		return "", p.failure(err)
	}
	return content, nil
}

// Stream streams chat completions from the upstream SSE feed. Reasoning
// models produce their whole answer as a single fragment.
func (p *Provider) Stream(ctx context.Context, model core.ModelDescriptor, prompt string, _ time.Duration) (core.FragmentStream, error) {
	if p.usesResponses(model) {
		content, err := p.respond(ctx, model, prompt)
		if err != nil {
			return nil, p.failure(err)
		}
		return newSingleStream(content), nil
	}

	endpoint, query := p.chatEndpoint(model.ID)
	body, err := p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: endpoint,
		Query:    query,
		Body: chatRequest{
			Model:       model.ID,
			Messages:    userMessages(prompt),
			Temperature: standardTemperature,
			Stream:      true,
		},
	})
	if err != nil {
		return nil, p.failure(err)
	}
	return newChatStream(body, p.failure), nil
}

func (p *Provider) usesResponses(model core.ModelDescriptor) bool {
	return model.IsReasoning && p.dialect.responses
}

func (p *Provider) chat(ctx context.Context, model core.ModelDescriptor, prompt string) (string, error) {
	endpoint, query := p.chatEndpoint(model.ID)
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: endpoint,
		Query:    query,
		Body: chatRequest{
			Model:       model.ID,
			Messages:    userMessages(prompt),
			Temperature: standardTemperature,
		},
	})
	if err != nil {
		return "", err
	}

	if !gjson.GetBytes(resp.Body, "choices.0").Exists() {
		return "", errors.New("response contained no choices")
	}
	// null and "" both mean the model produced nothing
	content := gjson.GetBytes(resp.Body, "choices.0.message.content").String()
	if content == "" {
		return "", errNoContent
	}
	return content, nil
}

func (p *Provider) respond(ctx context.Context, model core.ModelDescriptor, prompt string) (string, error) {
	endpoint, query := p.responsesEndpoint()
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: endpoint,
		Query:    query,
		Body: responsesRequest{
			Model:     model.ID,
			Input:     userMessages(prompt),
			Reasoning: reasoning{Effort: "minimal"},
		},
	})
	if err != nil {
		return "", err
	}

	text, ok := outputText(resp.Body)
	if !ok {
		return "", errors.New("response contained no output text")
	}
	if text == "" {
		return "", errNoContent
	}
	return text, nil
}

// outputText concatenates every output_text part of a Responses API payload.
// A top-level output_text field wins when present.
func outputText(body []byte) (string, bool) {
	if top := gjson.GetBytes(body, "output_text"); top.Exists() {
		return top.String(), true
	}

	var sb strings.Builder
	found := false
	gjson.GetBytes(body, "output").ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() != "message" {
			return true
		}
		item.Get("content").ForEach(func(_, part gjson.Result) bool {
			if part.Get("type").String() == "output_text" {
				sb.WriteString(part.Get("text").String())
				found = true
			}
			return true
		})
		return true
	})
	return sb.String(), found
}

// failure converts any error into a provider error carrying the upstream
// message. Context errors pass through untouched so callers can tell an
// abandoned or timed-out call from a provider failure.
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
