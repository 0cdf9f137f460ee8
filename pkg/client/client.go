// Package client fetches pages of artworks from the public artwork API.
// It classifies failures, optionally retries, and can hold requests
// inside a shared request budget.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for page requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artwork_requests_total",
		Help: "Total artwork page requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artwork_request_duration_seconds",
		Help:    "Artwork page request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artwork_errors_total",
		Help: "Total artwork page request errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of page request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and local budget waits.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassMalformed represents bodies that are not artwork pages.
	ErrorClassMalformed ErrorClass = "malformed"
)

// DefaultBaseURL is the public artwork API root.
const DefaultBaseURL = "https://api.artic.edu/api/v1"

// DefaultFields is the field projection requested for every record.
var DefaultFields = []string{
	"id", "title", "artist_display", "place_of_origin",
	"inscriptions", "date_start", "date_end",
}

// Client fetches artwork pages.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *ratelimit.Tracker
	retry       RetryConfig
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, without a trailing /artworks.
	BaseURL string

	// UserAgent is sent with every request. The API asks clients to
	// identify themselves.
	UserAgent string

	// Fields restricts the returned record fields. Empty requests all fields.
	Fields []string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// MaxRetries is the number of retries after a retriable failure.
	// 0 leaves retrying to the caller.
	MaxRetries     int
	InitialBackoff time.Duration

	// RateLimiter gates requests when set.
	RateLimiter *ratelimit.Tracker
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      userAgent,
		Fields:         DefaultFields,
		Timeout:        15 * time.Second,
		MaxRetries:     0,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// New creates a new artwork client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter: cfg.RateLimiter,
		retry:       retry,
		config:      cfg,
		logger:      log.With().Str("component", "artwork-client").Logger(),
	}, nil
}

// pageResponse is the wire shape of GET /artworks. Pointers detect
// missing blocks.
type pageResponse struct {
	Data       *[]artwork.Record   `json:"data"`
	Pagination *artwork.Pagination `json:"pagination"`
}

// PageURL builds the request URL for one page.
func (c *Client) PageURL(page, limit int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if len(c.config.Fields) > 0 {
		q.Set("fields", strings.Join(c.config.Fields, ","))
	}
	return c.baseURL + "/artworks?" + q.Encode()
}

// FetchPage fetches one page of artworks. Any failure is returned as a
// *FetchError; the client keeps no state between calls.
func (c *Client) FetchPage(ctx context.Context, page, limit int) (*artwork.Page, error) {
	if page < 1 {
		return nil, &FetchError{Page: page, Limit: limit, ErrorClass: ErrorClassClient, Message: "invalid arguments", Err: ErrInvalidPage}
	}
	if limit <= 0 {
		return nil, &FetchError{Page: page, Limit: limit, ErrorClass: ErrorClassClient, Message: "invalid arguments", Err: ErrInvalidPageSize}
	}

	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	var result *artwork.Page
	attempts, err := retryWithBackoff(ctx, c.retry, func() (ErrorClass, error) {
		p, err := c.fetchOnce(ctx, page, limit)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) {
				return fe.ErrorClass, err
			}
			return ErrorClassNetwork, err
		}
		result = p
		return "", nil
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.Attempts = attempts
			return nil, fe
		}
		return nil, &FetchError{
			Page:       page,
			Limit:      limit,
			ErrorClass: ErrorClassNetwork,
			Message:    "request abandoned",
			Attempts:   attempts,
			Err:        err,
		}
	}

	c.logger.Debug().
		Int("page", page).
		Int("limit", limit).
		Int("records", len(result.Records)).
		Int("total", result.Pagination.Total).
		Dur("duration", time.Since(startTime)).
		Msg("Fetched artwork page")

	return result, nil
}

// fetchOnce performs a single request attempt.
func (c *Client) fetchOnce(ctx context.Context, page, limit int) (*artwork.Page, error) {
	fail := func(class ErrorClass, status int, msg string, err error) error {
		errorsTotal.WithLabelValues(string(class)).Inc()
		return &FetchError{Page: page, Limit: limit, StatusCode: status, ErrorClass: class, Message: msg, Err: err}
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Acquire(ctx); err != nil {
			requestsTotal.WithLabelValues("rate_limited").Inc()
			return nil, fail(ErrorClassRateLimit, 0, "waiting for request budget", fmt.Errorf("%w: %v", ErrRateLimited, err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PageURL(page, limit), nil)
	if err != nil {
		return nil, fail(ErrorClassClient, 0, "create request", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("AIC-User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Int("page", page).Msg("HTTP request failed")
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, fail(classifyError(nil, err), 0, "request failed", err)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errClass := classifyError(resp, nil)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		c.logger.Warn().
			Int("page", page).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Artwork request error")

		return nil, fail(errClass, resp.StatusCode, resp.Status, errors.New(strings.TrimSpace(string(body))))
	}

	var decoded pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fail(ErrorClassMalformed, resp.StatusCode, "decode body", fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if decoded.Data == nil {
		return nil, fail(ErrorClassMalformed, resp.StatusCode, "missing data", ErrMalformedResponse)
	}
	if decoded.Pagination == nil {
		return nil, fail(ErrorClassMalformed, resp.StatusCode, "missing pagination", ErrMalformedResponse)
	}

	return &artwork.Page{
		Records:    *decoded.Data,
		Pagination: *decoded.Pagination,
	}, nil
}

// classifyError categorizes a failed request for metrics and retry decisions.
func classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		// 1xx/3xx that the transport did not follow
		return ErrorClassClient
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
