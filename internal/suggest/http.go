package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/errors"
	"github.com/Iron-Ham/conflux/internal/strategy"
)

const (
	// defaultHTTPTimeout caps a request when the advisor's context carries
	// no earlier deadline.
	defaultHTTPTimeout = 10 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// HTTPProvider POSTs the conflict as JSON to an endpoint and decodes a
// Suggestion from the response.
type HTTPProvider struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithModel sets the model name forwarded to the endpoint.
func WithModel(model string) HTTPOption {
	return func(p *HTTPProvider) {
		p.model = model
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		p.httpClient = c
	}
}

// WithRequestTimeout sets the HTTP client timeout.
func WithRequestTimeout(d time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		p.httpClient.Timeout = d
	}
}

// NewHTTPProvider creates a provider for endpoint. The bearer token is read
// from the apiKeyEnv environment variable; an unset variable sends no
// Authorization header.
func NewHTTPProvider(endpoint, apiKeyEnv string, opts ...HTTPOption) (*HTTPProvider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("http suggestion provider needs an endpoint")
	}
	p := &HTTPProvider{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	if apiKeyEnv != "" {
		p.apiKey = os.Getenv(apiKeyEnv)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *HTTPProvider) Name() string { return "http" }

// suggestRequest is the body sent to the endpoint.
type suggestRequest struct {
	Model    string            `json:"model,omitempty"`
	Conflict conflict.Conflict `json:"conflict"`
}

// suggestResponse is the body expected back.
type suggestResponse struct {
	Strategy   string    `json:"strategy"`
	Confidence *int      `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
	Value      any       `json:"value,omitempty"`
	Error      *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// Suggest sends c to the endpoint.
func (p *HTTPProvider) Suggest(ctx context.Context, c conflict.Conflict) (Suggestion, error) {
	reqBytes, err := json.Marshal(suggestRequest{Model: p.model, Conflict: c})
	if err != nil {
		return Suggestion{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return Suggestion{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Suggestion{}, errors.NewProviderError(p.Name(), "send request", errors.Join(errors.ErrProviderUnavailable, err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Suggestion{}, errors.NewProviderError(p.Name(), "read response", errors.Join(errors.ErrProviderUnavailable, err))
	}

	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, errors.NewProviderError(p.Name(),
			fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body), 200)), errors.ErrProviderUnavailable)
	}

	var out suggestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Suggestion{}, errors.NewProviderError(p.Name(), "decode response", errors.Join(errors.ErrProviderMalformed, err))
	}
	if out.Error != nil {
		return Suggestion{}, errors.NewProviderError(p.Name(), out.Error.Message, errors.ErrProviderUnavailable)
	}
	return out.validate(p.Name())
}

func (r suggestResponse) validate(provider string) (Suggestion, error) {
	name := strategy.Name(r.Strategy)
	known := false
	for _, n := range strategy.Names() {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return Suggestion{}, errors.NewProviderError(provider,
			fmt.Sprintf("unknown strategy %q", r.Strategy), errors.ErrProviderMalformed)
	}
	if r.Confidence == nil || *r.Confidence < 0 || *r.Confidence > 100 {
		return Suggestion{}, errors.NewProviderError(provider, "confidence missing or out of range", errors.ErrProviderMalformed)
	}
	return Suggestion{
		Strategy:   name,
		Confidence: *r.Confidence,
		Reasoning:  r.Reasoning,
		Value:      r.Value,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
