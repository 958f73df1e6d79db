// Package client provides the Jobsuche HTTP client with retries, request
// pacing, a circuit breaker, and a closed error taxonomy.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/jobsuche-client/pkg/pagination"
	"github.com/Sternrassler/jobsuche-client/pkg/ratelimit"
	"github.com/Sternrassler/jobsuche-client/pkg/search"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Prometheus metrics for Jobsuche client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobsuche_requests_total",
		Help: "Total Jobsuche requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobsuche_request_duration_seconds",
		Help:    "Jobsuche request attempt duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobsuche_errors_total",
		Help: "Total Jobsuche errors by kind",
	}, []string{"kind"})
)

const (
	// DefaultBaseURL is the public Jobsuche service.
	DefaultBaseURL = "https://rest.arbeitsagentur.de/jobboerse/jobsuche-service"

	// DefaultAPIKey is the public client identifier the service accepts.
	DefaultAPIKey = "jobboerse-jobsuche"

	// DefaultUserAgent identifies this library.
	DefaultUserAgent = "jobsuche-client-go/1.0"
)

// Endpoint labels used in logs and metrics.
const (
	EndpointJobs       = "jobs"
	EndpointJobDetails = "jobdetails"
	EndpointLogo       = "logo"
)

const (
	acceptJSON = "application/json"
	acceptPNG  = "image/png"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the service, without trailing slash.
	BaseURL string

	// APIKey is sent as X-API-Key on every request.
	APIKey string

	// UserAgent header.
	UserAgent string

	// Timeouts. ConnectTimeout bounds dialing; RequestTimeout bounds one
	// attempt including reading the body.
	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	// Retry
	Retry RetryConfig

	// Pacing. RequestsPerSecond <= 0 disables the limiter.
	RequestsPerSecond float64
	Burst             int

	// Circuit breaker. BreakerThreshold == 0 disables it; otherwise the
	// breaker opens after that many consecutive transport or server faults
	// and stays open for BreakerTimeout.
	BreakerThreshold uint32
	BreakerTimeout   time.Duration

	// RateLimitStore shares Retry-After cooldowns between clients. Nil disables it.
	RateLimitStore ratelimit.Store

	// HTTPClient replaces the internally built client. ConnectTimeout is
	// ignored when set.
	HTTPClient *http.Client

	// Logger overrides the global zerolog logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		APIKey:         DefaultAPIKey,
		UserAgent:      DefaultUserAgent,
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 30 * time.Second,
		Retry:          DefaultRetryConfig(),
		Burst:          1,
		BreakerTimeout: 30 * time.Second,
	}
}

// Client is the Jobsuche client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	retry      *RetryPolicy
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	tracker    *ratelimit.Tracker
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates a new Jobsuche client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be > 0 (got %s)", cfg.RequestTimeout)
	}

	logger := log.With().Str("component", "jobsuche-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		httpClient = &http.Client{Transport: transport}
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		config:     cfg,
		retry:      NewRetryPolicy(cfg.Retry),
		logger:     logger,
		now:        time.Now,
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	if cfg.BreakerThreshold > 0 {
		threshold := cfg.BreakerThreshold
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "jobsuche",
			MaxRequests: 1,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				switch KindOf(err) {
				case KindTransport, KindServerFault:
					return false
				default:
					return true
				}
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		})
	}

	if cfg.RateLimitStore != nil {
		c.tracker = ratelimit.NewTracker(cfg.RateLimitStore, logger)
	}

	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// ListJobs fetches one page of search results.
func (c *Client) ListJobs(ctx context.Context, opts search.Options) (*JobSearchResponse, error) {
	target := c.baseURL + "/pc/v4/jobs"
	if query, ok := opts.Encode(); ok {
		target += "?" + query
	}
	return execute(ctx, c, request{endpoint: EndpointJobs, url: target, accept: acceptJSON}, decodeJSON[JobSearchResponse])
}

// JobDetails fetches the full record for the listing with the given
// reference number.
func (c *Client) JobDetails(ctx context.Context, refnr string) (*JobDetails, error) {
	target := c.baseURL + "/pc/v4/jobdetails/" + url.PathEscape(EncodeRefnr(refnr))
	return execute(ctx, c, request{endpoint: EndpointJobDetails, url: target, accept: acceptJSON}, decodeJSON[JobDetails])
}

// EmployerLogo fetches an employer logo as PNG bytes. hashID is the
// listing's EmployerLogoID.
func (c *Client) EmployerLogo(ctx context.Context, hashID string) ([]byte, error) {
	target := c.baseURL + "/ed/v1/arbeitgeberlogo/" + url.PathEscape(hashID)
	return execute(ctx, c, request{endpoint: EndpointLogo, url: target, accept: acceptPNG}, func(body []byte) ([]byte, error) {
		return body, nil
	})
}

// Jobs returns a lazy iterator over every listing matching opts. Pages are
// requested from 1 upwards; page and size in opts are replaced per request
// and a size in opts becomes the default page size.
func (c *Client) Jobs(ctx context.Context, opts search.Options, pageOpts ...pagination.Option) *pagination.Iterator[JobListing] {
	all := make([]pagination.Option, 0, len(pageOpts)+2)
	if size, ok := opts.Size(); ok && size > 0 {
		all = append(all, pagination.WithPageSize(size))
	}
	all = append(all, pageOpts...)
	all = append(all, func(cfg *pagination.Config) {
		if cfg.PageSize > search.MaxSize {
			cfg.PageSize = search.MaxSize
		}
	})
	return pagination.New[JobListing](ctx, c.listFetcher(opts), all...)
}

// AllJobs drains Jobs into a slice. On error the listings collected so far
// are returned with it.
func (c *Client) AllJobs(ctx context.Context, opts search.Options, pageOpts ...pagination.Option) ([]JobListing, error) {
	return pagination.Collect(c.Jobs(ctx, opts, pageOpts...))
}

func (c *Client) listFetcher(opts search.Options) pagination.PageFetcher[JobListing] {
	return pagination.FetcherFunc[JobListing](func(ctx context.Context, page, size int) (*pagination.Page[JobListing], error) {
		resp, err := c.ListJobs(ctx, opts.Builder().Page(page).Size(size).Build())
		if err != nil {
			return nil, err
		}
		return &pagination.Page[JobListing]{
			Items:  resp.Listings,
			Total:  resp.Total,
			Number: resp.Page,
			Size:   resp.Size,
			Facets: resp.Facets,
		}, nil
	})
}

type request struct {
	endpoint string
	url      string
	accept   string
}

func decodeJSON[T any](body []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// execute runs one logical request: every attempt shares one request ID,
// and a body that cannot be decoded counts as a transport failure.
func execute[T any](ctx context.Context, c *Client, req request, decode func([]byte) (T, error)) (T, error) {
	requestID := uuid.NewString()
	logger := c.logger.With().
		Str("endpoint", req.endpoint).
		Str("request_id", requestID).
		Logger()

	logger.Debug().Str("url", req.url).Msg("Executing Jobsuche request")

	return retryWithBackoff(ctx, c.retry, logger, func(attempt int) (T, error) {
		var zero T

		body, err := c.attempt(ctx, req, requestID, attempt, logger)
		if err != nil {
			return zero, err
		}

		v, err := decode(body)
		if err != nil {
			errorsTotal.WithLabelValues(string(KindTransport)).Inc()
			logger.Warn().Err(err).Int("attempt", attempt).Msg("Failed to decode response")
			return zero, ClassifyTransport(fmt.Errorf("decode response: %w", err))
		}
		return v, nil
	})
}

// attempt waits for the shared cooldown and the pacing limiter, then sends
// the request through the breaker.
func (c *Client) attempt(ctx context.Context, req request, requestID string, attempt int, logger zerolog.Logger) ([]byte, error) {
	if c.tracker != nil {
		if err := c.tracker.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ClassifyTransport(ctx.Err())
			}
			logger.Warn().Err(err).Msg("Rate limit state unavailable - proceeding")
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, ClassifyTransport(err)
		}
	}

	if c.breaker == nil {
		return c.roundTrip(ctx, req, requestID, attempt, logger)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, req, requestID, attempt, logger)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		errorsTotal.WithLabelValues(string(KindTransport)).Inc()
		requestsTotal.WithLabelValues(req.endpoint, "breaker_open").Inc()
		return nil, ClassifyTransport(fmt.Errorf("circuit breaker: %w", err))
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// roundTrip performs a single HTTP exchange and classifies the outcome.
func (c *Client) roundTrip(ctx context.Context, req request, requestID string, attempt int, logger zerolog.Logger) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, req.url, nil)
	if err != nil {
		return nil, ClassifyTransport(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("X-API-Key", c.config.APIKey)
	httpReq.Header.Set("Accept", req.accept)
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("X-Request-ID", requestID)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(req.endpoint).Observe(time.Since(startTime).Seconds())
	}()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		errorsTotal.WithLabelValues(string(KindTransport)).Inc()
		requestsTotal.WithLabelValues(req.endpoint, "transport_error").Inc()
		logger.Debug().Err(err).Int("attempt", attempt).Msg("HTTP request failed")
		return nil, ClassifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(KindTransport)).Inc()
		requestsTotal.WithLabelValues(req.endpoint, "transport_error").Inc()
		return nil, ClassifyTransport(fmt.Errorf("read body: %w", err))
	}

	requestsTotal.WithLabelValues(req.endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Debug().
			Int("status_code", resp.StatusCode).
			Int("attempt", attempt).
			Dur("duration", time.Since(startTime)).
			Msg("Jobsuche request succeeded")
		return body, nil
	}

	apiErr := Classify(resp.StatusCode, resp.Header, body, c.now())
	errorsTotal.WithLabelValues(string(apiErr.Kind)).Inc()

	event := logger.Debug().
		Int("status_code", resp.StatusCode).
		Str("error_kind", string(apiErr.Kind)).
		Int("attempt", attempt)
	if apiErr.RetryAfter != nil {
		event = event.Dur("retry_after", *apiErr.RetryAfter)
	}
	event.Msg("Jobsuche request error")

	if apiErr.Kind == KindRateLimited && apiErr.RetryAfter != nil && c.tracker != nil {
		if err := c.tracker.Record(ctx, *apiErr.RetryAfter); err != nil {
			logger.Warn().Err(err).Msg("Failed to record cooldown")
		}
	}

	return nil, apiErr
}
