// Package openfoodfacts is a client for the Open Food Facts search API.
package openfoodfacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	catalogapp "github.com/grocery/backend/internal/application/catalog"
	"github.com/grocery/backend/internal/domain/catalog"
	"github.com/grocery/backend/internal/infrastructure/cache"
	"github.com/grocery/backend/internal/infrastructure/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	searchPath      = "/cgi/search.pl"
	maxResponseSize = 10 << 20
	cacheKeyPrefix  = "off:search:"
)

var (
	// ErrNoResult is returned when a search has no hits
	ErrNoResult = errors.New("openfoodfacts: no result")
	// ErrUnavailable wraps transport failures and non-2xx responses
	ErrUnavailable = errors.New("openfoodfacts: service unavailable")
)

// Ensure Client implements the catalog ports
var (
	_ catalogapp.NutritionLookup = (*Client)(nil)
	_ catalogapp.ProductSource   = (*Client)(nil)
)

// SearchParams describes a search.pl query
type SearchParams struct {
	Terms    string
	PageSize int
	Simple   bool
	Fields   []string
}

func (p SearchParams) values() url.Values {
	q := url.Values{}
	q.Set("search_terms", p.Terms)
	if p.Simple {
		q.Set("search_simple", "1")
	}
	q.Set("json", "1")
	q.Set("page_size", strconv.Itoa(p.PageSize))
	if len(p.Fields) > 0 {
		q.Set("fields", strings.Join(p.Fields, ","))
	}
	return q
}

// Client queries Open Food Facts. Successful responses are cached.
type Client struct {
	baseURL    string
	userAgent  string
	pageSize   int
	cacheTTL   time.Duration
	httpClient *http.Client
	cache      cache.Store
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithCache sets the response cache
func WithCache(store cache.Store) Option {
	return func(c *Client) {
		if store != nil {
			c.cache = store
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client from configuration
func NewClient(cfg config.OpenFoodFactsConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 1
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		pageSize:  pageSize,
		cacheTTL:  cfg.CacheTTL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cache:  cache.NopStore{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a search and returns the raw hits
func (c *Client) Search(ctx context.Context, params SearchParams) ([]RawProduct, error) {
	if strings.TrimSpace(params.Terms) == "" {
		return nil, fmt.Errorf("openfoodfacts: search terms are required")
	}
	if params.PageSize <= 0 {
		params.PageSize = c.pageSize
	}

	query := params.values().Encode()
	key := cacheKey(query)

	if body, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("openfoodfacts cache read failed", zap.Error(err))
	} else if ok {
		if products, err := decode(body); err == nil {
			c.logger.Debug("openfoodfacts cache hit", zap.String("terms", params.Terms))
			return products, nil
		}
	}

	body, err := c.doRequest(ctx, query)
	if err != nil {
		return nil, err
	}
	products, err := decode(body)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
		c.logger.Warn("openfoodfacts cache write failed", zap.Error(err))
	}
	return products, nil
}

// FirstMatch returns the nutrition summary of the first hit for query
func (c *Client) FirstMatch(ctx context.Context, query string) (catalog.NutritionalInfo, error) {
	products, err := c.Search(ctx, SearchParams{Terms: query, PageSize: 1, Simple: true})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNoResult
	}
	return products[0].Summary(), nil
}

// LookupNutrition returns the first-hit summary, or nil when nothing matches
func (c *Client) LookupNutrition(ctx context.Context, query string) (catalog.NutritionalInfo, error) {
	info, err := c.FirstMatch(ctx, query)
	if errors.Is(err, ErrNoResult) {
		return nil, nil
	}
	return info, err
}

// ImportFields are requested when importing catalog products
var ImportFields = []string{
	"code", "product_name", "brands", "image_url", "image_front_url",
	"categories", "nutrition_grade_fr", "nutriscore_grade", "nutriments",
}

// SearchCategory returns up to count candidates for a search
func (c *Client) SearchCategory(ctx context.Context, terms string, count int) ([]ProductCandidate, error) {
	products, err := c.Search(ctx, SearchParams{Terms: terms, PageSize: count, Fields: ImportFields})
	if err != nil {
		return nil, err
	}
	if count > 0 && len(products) > count {
		products = products[:count]
	}
	candidates := make([]ProductCandidate, len(products))
	for i, p := range products {
		candidates[i] = p.Candidate()
	}
	return candidates, nil
}

func (c *Client) doRequest(ctx context.Context, query string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("openfoodfacts: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("openfoodfacts: failed to read response: %w", err)
	}

	c.logger.Debug("openfoodfacts request",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}
	return body, nil
}

func decode(body []byte) ([]RawProduct, error) {
	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("openfoodfacts: failed to decode response: %w", err)
	}
	return out.Products, nil
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
