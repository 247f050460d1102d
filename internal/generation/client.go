package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"landmarks/internal/config"
	"landmarks/internal/domain"
	"landmarks/internal/restclient"
)

// Client calls a chat completions endpoint, either Azure OpenAI (deployment
// routing, api-key header) or any OpenAI-compatible API (bearer token, model in body).
type Client struct {
	rest   *restclient.Client
	path   string
	query  url.Values
	model  string
	logger *zap.Logger
}

// NewClient builds a generator from the generator, retry and breaker config sections.
func NewClient(cfg config.GeneratorConfig, retry config.RetryConfig, breaker config.BreakerConfig, logger *zap.Logger, opts ...restclient.Option) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	c := &Client{model: cfg.Model, logger: logger.Named("generation")}
	headers := map[string]string{}
	switch cfg.Type {
	case "azure":
		if cfg.Deployment == "" {
			return nil, fmt.Errorf("generator.deployment is required for azure")
		}
		headers["api-key"] = key
		c.path = "/openai/deployments/" + url.PathEscape(cfg.Deployment) + "/chat/completions"
		c.query = url.Values{"api-version": {cfg.APIVersion}}
		if c.model == "" {
			c.model = cfg.Deployment
		}
	case "openai":
		headers["Authorization"] = "Bearer " + key
		c.path = "/chat/completions"
		if c.model == "" {
			c.model = "gpt-4o-mini"
		}
	default:
		return nil, fmt.Errorf("unknown generator type: %s", cfg.Type)
	}
	c.rest = restclient.New(restclient.Config{
		Name:    "generation",
		BaseURL: cfg.Endpoint,
		Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		Headers: headers,
		Retry:   retry,
		Breaker: breaker,
	}, logger, opts...)
	return c, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	Stream      bool      `json:"stream"`
}

// Generate sends one completion request. Transient failures are retried by the
// transport; any other failure is a generation error. A response without
// usable content yields "".
func (c *Client) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	messages := make([]message, 0, 2)
	if p.System != "" {
		messages = append(messages, message{Role: "system", Content: p.System})
	}
	messages = append(messages, message{Role: "user", Content: p.User})
	req := completionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
		Stop:        p.Stop,
	}
	c.logger.Debug("generating text", zap.Int("prompt_length", len(p.User)))

	var raw json.RawMessage
	err := c.rest.Do(ctx, http.MethodPost, c.path, c.query, req, &raw)
	if err != nil {
		if domain.IsRetryable(err) || domain.IsType(err, domain.ErrorTypeUnavailable) {
			return "", err
		}
		if domain.IsType(err, domain.ErrorTypeData) {
			c.logger.Warn("unreadable completion response", zap.Error(err))
			return "", nil
		}
		return "", domain.NewGenerationError("text generation failed").WithCause(err)
	}
	text := contentOf(raw)
	c.logger.Debug("generated text", zap.Int("length", len(text)))
	return text, nil
}

func contentOf(raw json.RawMessage) string {
	var resp struct {
		Choices []struct {
			Message *struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Choices) == 0 {
		return ""
	}
	m := resp.Choices[0].Message
	if m == nil || m.Content == nil {
		return ""
	}
	return *m.Content
}
