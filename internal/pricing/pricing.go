// Package pricing provides live part price lookups for cost estimation.
//
// Prices come from a Serp-style product search API; a static catalog serves
// as the offline fallback. Lookups are per-call and never memoized: part
// prices are volatile by nature.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

// Lookup resolves the price of one replacement part for a device, in the
// configured currency.
type Lookup interface {
	PriceFor(ctx context.Context, device models.DeviceContext, partName string) (float64, error)
}

// DefaultEndpoint is the product search API endpoint.
const DefaultEndpoint = "https://serpapi.com/search.json"

// SerpClient implements Lookup against a Serp-style Amazon product search.
type SerpClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// Opts holds configuration options for the Serp client.
type Opts struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Option configures the Serp client.
type Option func(*Opts)

// WithEndpoint overrides the search API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *Opts) { o.Endpoint = endpoint }
}

// WithAPIKey sets the search API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// NewSerpClient creates a price lookup client.
func NewSerpClient(opts ...Option) (*SerpClient, error) {
	cfg := Opts{Endpoint: DefaultEndpoint, Timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		slog.Error("pricing.NewSerpClient: API key not set")
		return nil, fmt.Errorf("search API key not set")
	}
	slog.Debug("pricing.NewSerpClient: client created", "endpoint", cfg.Endpoint)
	return &SerpClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
	}, nil
}

// searchResponse is the subset of the search API reply we read.
type searchResponse struct {
	OrganicResults []struct {
		Title          string  `json:"title"`
		ExtractedPrice float64 `json:"extracted_price"`
	} `json:"organic_results"`
}

// PriceFor implements Lookup. The query combines brand, model and part name;
// the first result with a usable price wins.
func (c *SerpClient) PriceFor(ctx context.Context, device models.DeviceContext, partName string) (float64, error) {
	query := strings.TrimSpace(fmt.Sprintf("%s %s %s replacement", device.BrandModel(), device.DeviceType, partName))
	slog.Debug("pricing.PriceFor: searching", "query", query)

	params := url.Values{}
	params.Set("engine", "amazon")
	params.Set("k", query)
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build price request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("pricing.PriceFor: request failed", "error", err, "part", partName)
		return 0, fmt.Errorf("price lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("pricing.PriceFor: unexpected status", "status", resp.StatusCode, "part", partName)
		return 0, fmt.Errorf("price lookup returned status %d", resp.StatusCode)
	}

	var search searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		slog.Error("pricing.PriceFor: malformed response", "error", err, "part", partName)
		return 0, fmt.Errorf("malformed price lookup response: %w", err)
	}

	for _, r := range search.OrganicResults {
		if r.ExtractedPrice > 0 {
			slog.Debug("pricing.PriceFor: price found", "part", partName, "price", r.ExtractedPrice, "title", r.Title)
			return r.ExtractedPrice, nil
		}
	}
	slog.Warn("pricing.PriceFor: no priced results", "part", partName)
	return 0, fmt.Errorf("no priced results for part %q", partName)
}

// StaticCatalog is an offline Lookup with fixed per-part prices, used when no
// search API key is configured and as the degraded path in tests.
type StaticCatalog struct {
	prices       map[string]float64
	defaultPrice float64
}

// NewStaticCatalog creates a catalog with typical HKD part prices.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		prices: map[string]float64{
			"screen":      680,
			"battery":     320,
			"keyboard":    240,
			"charger":     150,
			"motherboard": 1500,
			"fan":         180,
			"speaker":     200,
			"camera":      350,
			"ssd":         520,
			"ram":         300,
		},
		defaultPrice: 250,
	}
}

// PriceFor implements Lookup by keyword match against the catalog.
func (s *StaticCatalog) PriceFor(ctx context.Context, device models.DeviceContext, partName string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	name := strings.ToLower(partName)
	for keyword, price := range s.prices {
		if strings.Contains(name, keyword) {
			return price, nil
		}
	}
	slog.Debug("pricing.StaticCatalog: part not in catalog, using default", "part", partName)
	return s.defaultPrice, nil
}
