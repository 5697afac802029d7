package providers

import (
	"os"
	"strings"

	"llmarena/config"
)

// Provider types understood by the live backends.
const (
	TypeOpenAI      = "openai"
	TypeAzureOpenAI = "azure-openai"
	TypeOpenRouter  = "openrouter"
	TypeGemini      = "gemini"
	TypeGroq        = "groq"
	TypeXAI         = "xai"
	TypeOllama      = "ollama"
	TypeAnthropic   = "anthropic"
)

// ProviderConfig is a provider entry after env overrides and filtering.
type ProviderConfig struct {
	Name       string
	Type       string
	APIKey     string
	BaseURL    string
	APIVersion string
}

// knownProviderEnvs maps well-known provider names to their environment variables.
// This list is the authoritative source for provider auto-discovery from env vars.
var knownProviderEnvs = []struct {
	name          string
	providerType  string
	apiKeyEnv     string
	baseURLEnv    string
	apiVersionEnv string
}{
	{"openai", TypeOpenAI, "OPENAI_API_KEY", "OPENAI_BASE_URL", ""},
	{"azure-openai", TypeAzureOpenAI, "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_VERSION"},
	{"openrouter", TypeOpenRouter, "OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", ""},
	{"anthropic", TypeAnthropic, "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL", ""},
	{"gemini", TypeGemini, "GEMINI_API_KEY", "GEMINI_BASE_URL", ""},
	{"groq", TypeGroq, "GROQ_API_KEY", "GROQ_BASE_URL", ""},
	{"xai", TypeXAI, "XAI_API_KEY", "XAI_BASE_URL", ""},
	{"ollama", TypeOllama, "", "OLLAMA_BASE_URL", ""},
}

// ResolveProviders overlays env vars on the YAML provider map and drops
// entries that cannot be used. The result is keyed by provider name.
func ResolveProviders(raw map[string]config.RawProviderConfig) map[string]ProviderConfig {
	merged := applyProviderEnvVars(raw)

	result := make(map[string]ProviderConfig, len(merged))
	for name, p := range merged {
		if p.Type == "" {
			p.Type = name
		}
		if !usable(p) {
			continue
		}
		result[name] = ProviderConfig{
			Name:       name,
			Type:       p.Type,
			APIKey:     p.APIKey,
			BaseURL:    p.BaseURL,
			APIVersion: p.APIVersion,
		}
	}
	return result
}

// applyProviderEnvVars overlays well-known provider env vars onto the raw YAML map.
// Env var values always win over YAML values for the same provider name.
func applyProviderEnvVars(raw map[string]config.RawProviderConfig) map[string]config.RawProviderConfig {
	result := make(map[string]config.RawProviderConfig, len(raw))
	for k, v := range raw {
		result[k] = v
	}

	for _, kp := range knownProviderEnvs {
		var apiKey string
		if kp.apiKeyEnv != "" {
			apiKey = os.Getenv(kp.apiKeyEnv)
		}
		baseURL := os.Getenv(kp.baseURLEnv)
		var apiVersion string
		if kp.apiVersionEnv != "" {
			apiVersion = os.Getenv(kp.apiVersionEnv)
		}

		if apiKey == "" && baseURL == "" && apiVersion == "" {
			continue
		}

		existing, exists := result[kp.name]
		if !exists {
			existing = config.RawProviderConfig{Type: kp.providerType}
		}
		if apiKey != "" {
			existing.APIKey = apiKey
		}
		if baseURL != "" {
			existing.BaseURL = baseURL
		}
		if apiVersion != "" {
			existing.APIVersion = apiVersion
		}
		result[kp.name] = existing
	}

	return result
}

// usable reports whether a provider has real credentials. Azure also needs
// its resource endpoint; Ollama needs only an endpoint.
func usable(p config.RawProviderConfig) bool {
	if strings.Contains(p.APIKey, "${") {
		return false
	}
	switch p.Type {
	case TypeOllama:
		return p.BaseURL != ""
	case TypeAzureOpenAI:
		if p.BaseURL == "" {
			return false
		}
	}
	return p.APIKey != ""
}
