// Package llm translates chunks of Markdown with a language model.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "qwen2.5:7b"
	defaultOpenAIBase  = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultOpenAIModel = "qwen-flash"
	defaultTemperature = 0.1
	// Chunks are already bounded by the splitter; the clip only guards against
	// a pathological single chunk.
	maxChunkChars = 120_000
)

const defaultLLMHTTPTimeout = 3 * time.Minute

// Config describes how to build a translator.
type Config struct {
	Provider   string
	Model      string
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// Request is one chunk to translate plus the neighbouring text that gives the
// model context without being translated itself.
type Request struct {
	Text        string
	PreContext  string
	PostContext string
	Direction   string
	Temperature float64
}

// DeltaHandler receives the translation accumulated so far while a response
// streams in.
type DeltaHandler func(partial string) error

// Translator turns one chunk into its translation.
type Translator interface {
	Translate(ctx context.Context, req Request, onDelta DeltaHandler) (string, error)
	Name() string
}

// New builds the translator for cfg.Provider: "qwen" (any OpenAI-compatible
// endpoint), "ollama" or "mock".
func New(cfg Config) (Translator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "mock":
		return NewMock(0), nil
	case "qwen", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s provider needs an API key", cfg.Provider)
		}
		return &openAIClient{
			apiKey: cfg.APIKey,
			model:  orDefault(cfg.Model, defaultOpenAIModel),
			base:   strings.TrimRight(orDefault(cfg.Endpoint, defaultOpenAIBase), "/"),
			client: pickHTTPClient(cfg.HTTPClient),
		}, nil
	case "ollama":
		return &ollamaClient{
			host:   strings.TrimRight(orDefault(cfg.Endpoint, defaultOllamaHost), "/"),
			model:  orDefault(cfg.Model, defaultOllamaModel),
			client: pickHTTPClient(cfg.HTTPClient),
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Long generations are common on local models; cancellation comes from the caller's context.
	return &http.Client{Timeout: defaultLLMHTTPTimeout}
}

func temperatureOf(req Request) float64 {
	if req.Temperature <= 0 {
		return defaultTemperature
	}
	return req.Temperature
}
