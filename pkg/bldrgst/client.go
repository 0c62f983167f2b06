// Package bldrgst provides a client for the data.go.kr building-registry
// (건축물대장) hub API: title records via getBrTitleInfo and exclusive-unit
// records via getBrExposInfo.
package bldrgst

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://apis.data.go.kr/1613000/BldRgstHubService"
	defaultPageSize = 100
	defaultMaxPages = 200

	opTitleInfo = "getBrTitleInfo"
	opExposInfo = "getBrExposInfo"
)

// Record is one raw registry row: field name to loosely-typed value.
// The upstream API makes no type guarantees; numbers arrive as either JSON
// numbers or strings depending on the field and the year of registration.
type Record = map[string]any

// LotKey identifies a lot: district (시군구) code, neighborhood (법정동)
// code, and main/sub lot numbers (번/지).
type LotKey struct {
	District     string `json:"district"`
	Neighborhood string `json:"neighborhood"`
	LotMain      string `json:"lot_main"`
	LotSub       string `json:"lot_sub"`
}

// Normalize returns the key with lot numbers zero-padded to four digits.
// A blank sub-lot means "no sub-lot" and maps to the 0000 sentinel, so keys
// that differ only by "" vs "0000" compare equal after normalization.
func (k LotKey) Normalize() LotKey {
	k.District = strings.TrimSpace(k.District)
	k.Neighborhood = strings.TrimSpace(k.Neighborhood)
	k.LotMain = padLot(k.LotMain)
	k.LotSub = padLot(k.LotSub)
	return k
}

// padLot zero-pads a lot number to 4 digits; blank becomes "0000".
func padLot(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 4 {
		return s
	}
	return strings.Repeat("0", 4-len(s)) + s
}

// Client fetches paginated registry records for a lot key.
type Client interface {
	// FetchTitle returns the title (표제부) records: building-level
	// attributes, one row per building/dong on the lot.
	FetchTitle(ctx context.Context, key LotKey) ([]Record, error)

	// FetchUnits returns the exclusive-unit (전유부) records: one row per
	// individually-owned unit.
	FetchUnits(ctx context.Context, key LotKey) ([]Record, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithBaseURL overrides the API base URL (tests point this at httptest).
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithPageSize sets the numOfRows requested per page.
func WithPageSize(n int) Option {
	return func(c *client) { c.pageSize = n }
}

// WithMaxPages sets the pagination safety cap. Exceeding it is an error
// rather than a silent truncation.
func WithMaxPages(n int) Option {
	return func(c *client) { c.maxPages = n }
}

// WithRateLimit sets the requests-per-second limit for API calls. The burst
// is at least 1 so fractional rates still admit single requests.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type client struct {
	serviceKey string
	baseURL    string
	pageSize   int
	maxPages   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a registry client. The service key is the data.go.kr
// credential and is sent with every request.
func NewClient(serviceKey string, opts ...Option) Client {
	c := &client{
		serviceKey: serviceKey,
		baseURL:    defaultBaseURL,
		pageSize:   defaultPageSize,
		maxPages:   defaultMaxPages,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) FetchTitle(ctx context.Context, key LotKey) ([]Record, error) {
	return c.requestItems(ctx, opTitleInfo, key.Normalize())
}

func (c *client) FetchUnits(ctx context.Context, key LotKey) ([]Record, error) {
	return c.requestItems(ctx, opExposInfo, key.Normalize())
}
