package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const DefaultBaseURL = "http://localhost:11434"

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client runs non-streaming completions against an Ollama server.
type Client struct {
	api   *api.Client
	model string
}

func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("ollama: model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		api:   api.NewClient(u, &http.Client{Timeout: cfg.Timeout}),
		model: cfg.Model,
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: &stream,
	}

	var (
		content string
		final   api.GenerateResponse
	)
	err := c.api.Generate(ctx, req, func(gr api.GenerateResponse) error {
		content += gr.Response
		if gr.Done {
			final = gr
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate failed for model %s: %w", c.model, err)
	}

	if !final.Done {
		return "", fmt.Errorf("no completion received from ollama for model %s", c.model)
	}

	switch final.DoneReason {
	case "stop", "":
		return content, nil
	case "length":
		// partial output is still usable; the orchestrator bounds its length
		return content, nil
	default:
		return "", fmt.Errorf("unexpected completion reason %q for model %s", final.DoneReason, c.model)
	}
}
