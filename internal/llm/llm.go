// Package llm wraps the OpenAI-compatible chat-completions endpoint.
package llm

import (
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/nousapp/nous/internal/config"
)

// requestTimeout bounds every outbound model call; a call past the deadline
// is a failure, not a hang.
const requestTimeout = 60 * time.Second

// NewClient creates an OpenAI-compatible client against the configured
// endpoint.
func NewClient(cfg config.LLMConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: requestTimeout}

	return openai.NewClientWithConfig(clientCfg)
}
