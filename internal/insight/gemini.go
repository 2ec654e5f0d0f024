// Package insight produces the one-line market "vibe check" shown next to a
// swap pair. Lookups never fail: errors collapse into fixed fallback text.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/swaptoon/swap-engine/internal/metrics"
)

const (
	// FallbackNoKey is shown when no API key is configured.
	FallbackNoKey = "Conecta tu API Key para ver consejos inteligentes de IA."
	// FallbackError is shown when the upstream call fails for any reason.
	FallbackError = "¡El mercado se ve interesante hoy!"
	// Loading is the placeholder while a lookup is in flight.
	Loading = "Cargando curiosidades..."

	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel    = "gemini-3-flash-preview"
)

var ErrEmptyResponse = errors.New("insight: empty response")

// Provider returns a short insight for swapping from → to.
type Provider interface {
	Insight(ctx context.Context, from, to string) string
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, from, to string) string

func (f ProviderFunc) Insight(ctx context.Context, from, to string) string { return f(ctx, from, to) }

// Prompt is the instruction sent upstream for a pair.
func Prompt(from, to string) string {
	return fmt.Sprintf(`Give me a very short, fun, 1-sentence fact or "vibe check" about swapping %s to %s. Keep it lighthearted and safe. Return ONLY the sentence in Spanish.`, from, to)
}

// GeminiProvider calls the Generative Language generateContent endpoint.
type GeminiProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// GeminiOption customizes a GeminiProvider.
type GeminiOption func(*GeminiProvider)

func WithEndpoint(url string) GeminiOption {
	return func(g *GeminiProvider) { g.endpoint = strings.TrimSuffix(url, "/") }
}

func WithModel(model string) GeminiOption {
	return func(g *GeminiProvider) { g.model = model }
}

func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiProvider) { g.client = c }
}

// WithRateLimit caps upstream calls to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) GeminiOption {
	return func(g *GeminiProvider) { g.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// NewGemini creates a provider. An empty apiKey is allowed: every lookup
// then returns FallbackNoKey without touching the network.
func NewGemini(apiKey string, opts ...GeminiOption) *GeminiProvider {
	g := &GeminiProvider{
		apiKey:   apiKey,
		model:    DefaultModel,
		endpoint: DefaultEndpoint,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GeminiProvider) Insight(ctx context.Context, from, to string) string {
	if g.apiKey == "" {
		metrics.InsightRequests.WithLabelValues("no_key").Inc()
		return FallbackNoKey
	}

	text, err := g.generate(ctx, Prompt(from, to))
	if err != nil {
		metrics.InsightRequests.WithLabelValues("error").Inc()
		slog.Warn("insight lookup failed", "from", from, "to", to, "err", err)
		return FallbackError
	}
	metrics.InsightRequests.WithLabelValues("ok").Inc()
	return text
}

// --- wire types ---

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiProvider) generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.endpoint, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(out.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
