package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/jobsuche-client/internal/testutil"
	"github.com/Sternrassler/jobsuche-client/pkg/pagination"
	"github.com/Sternrassler/jobsuche-client/pkg/ratelimit"
	"github.com/Sternrassler/jobsuche-client/pkg/search"
)

// newTestClient creates a client against baseURL with fast retries.
func newTestClient(t *testing.T, baseURL string, mutate ...func(*Config)) *Client {
	t.Helper()

	logger := testLogger()
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Retry = fastRetryConfig()
	cfg.Logger = &logger
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.BaseURL = "" }, expectError: true},
		{name: "invalid base url", mutate: func(c *Config) { c.BaseURL = "://bad" }, expectError: true},
		{name: "missing api key", mutate: func(c *Config) { c.APIKey = "" }, expectError: true},
		{name: "zero request timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, expectError: true},
		{name: "empty user agent falls back", mutate: func(c *Config) { c.UserAgent = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)

			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestListJobs_RequestAndDecode(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()

	mock.SetResponse(testutil.PathJobs, testutil.NewJSONResponse(map[string]any{
		"stellenangebote": []any{testutil.Listing("REF-1")},
		"maxErgebnisse":   1234,
		"page":            1,
		"size":            25,
		"facetten":        map[string]any{"arbeitsort": map[string]any{"counts": map[string]int{"Berlin": 3}}},
		"unknownField":    "ignored",
	}))

	c := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.UserAgent = "TestApp/1.0" })
	opts := search.NewBuilder().
		JobTitle("Software Engineer").
		Location("Berlin").
		Size(25).
		WorkingTimes(search.Vollzeit, search.HeimTelearbeit).
		Build()

	resp, err := c.ListJobs(context.Background(), opts)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}

	if len(resp.Listings) != 1 || resp.Listings[0].Refnr != "REF-1" {
		t.Fatalf("Listings = %+v, want one REF-1", resp.Listings)
	}
	if resp.Total == nil || *resp.Total != 1234 {
		t.Errorf("Total = %v, want 1234", resp.Total)
	}
	if resp.Size == nil || *resp.Size != 25 {
		t.Errorf("Size = %v, want 25", resp.Size)
	}
	if len(resp.Facets) == 0 {
		t.Error("Facets should be passed through raw")
	}
	if loc := resp.Listings[0].Location; loc.City == nil || *loc.City != "Berlin" || loc.Coordinates == nil {
		t.Errorf("Location = %+v, want Berlin with coordinates", loc)
	}

	req, ok := mock.LastRequest()
	if !ok {
		t.Fatal("no request recorded")
	}
	if req.Path != testutil.PathJobs {
		t.Errorf("path = %q, want %q", req.Path, testutil.PathJobs)
	}
	if got := req.Query.Get("was"); got != "Software Engineer" {
		t.Errorf("was = %q, want Software Engineer", got)
	}
	if got := req.Query.Get("arbeitszeit"); got != "vz;ho" {
		t.Errorf("arbeitszeit = %q, want vz;ho", got)
	}
	if got := req.Header.Get("X-API-Key"); got != DefaultAPIKey {
		t.Errorf("X-API-Key = %q, want %q", got, DefaultAPIKey)
	}
	if got := req.Header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want application/json", got)
	}
	if got := req.Header.Get("User-Agent"); got != "TestApp/1.0" {
		t.Errorf("User-Agent = %q, want TestApp/1.0", got)
	}
	if req.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestListJobs_NoFiltersSendsNoQuery(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetResponse(testutil.PathJobs, testutil.NewJSONResponse(map[string]any{"stellenangebote": []any{}}))

	c := newTestClient(t, mock.URL())
	if _, err := c.ListJobs(context.Background(), search.NewBuilder().Build()); err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}

	req, _ := mock.LastRequest()
	if len(req.Query) != 0 {
		t.Errorf("query = %v, want none", req.Query)
	}
}

func TestJobDetails_EncodesRefnrAsOnePathSegment(t *testing.T) {
	tests := []struct {
		refnr    string
		wantPath string
	}{
		{refnr: "10001-1000123456-S", wantPath: testutil.PathJobDetails + "MTAwMDEtMTAwMDEyMzQ1Ni1T"},
		{refnr: "???", wantPath: testutil.PathJobDetails + "Pz8%2F"},
	}

	for _, tt := range tests {
		t.Run(tt.refnr, func(t *testing.T) {
			mock := testutil.NewMockJobsuche()
			defer mock.Close()
			mock.SetResponse(tt.wantPath, testutil.NewJSONResponse(map[string]any{
				"refnr":               tt.refnr,
				"titel":               "Go Developer",
				"arbeitsorte":         []any{map[string]any{"ort": "Hamburg"}},
				"arbeitszeitmodelle":  []string{"VOLLZEIT"},
				"anzahlOffeneStellen": 2,
				"fertigkeiten": []any{map[string]any{
					"hierarchieName": "IT",
					"auspraegungen":  map[string][]string{"Expertenkenntnisse": {"Go"}},
				}},
			}))

			c := newTestClient(t, mock.URL())
			details, err := c.JobDetails(context.Background(), tt.refnr)
			if err != nil {
				t.Fatalf("JobDetails() error = %v", err)
			}

			if details.Refnr == nil || *details.Refnr != tt.refnr {
				t.Errorf("Refnr = %v, want %q", details.Refnr, tt.refnr)
			}
			if details.OpenPositions == nil || *details.OpenPositions != 2 {
				t.Errorf("OpenPositions = %v, want 2", details.OpenPositions)
			}
			if len(details.Skills) != 1 || details.Skills[0].Levels["Expertenkenntnisse"][0] != "Go" {
				t.Errorf("Skills = %+v", details.Skills)
			}
			if details.Description != nil {
				t.Errorf("Description = %v, want absent", *details.Description)
			}
		})
	}
}

func TestJobDetails_NotFound(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	_, err := c.JobDetails(context.Background(), "expired")

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1 (404 is fatal)", mock.GetRequestCount())
	}
}

func TestEmployerLogo(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()

	png := []byte("\x89PNG\r\n\x1a\nfake")
	mock.SetResponse(testutil.PathLogo+"abc123", testutil.NewPNGResponse(png))

	c := newTestClient(t, mock.URL())
	got, err := c.EmployerLogo(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("EmployerLogo() error = %v", err)
	}
	if string(got) != string(png) {
		t.Errorf("logo bytes = %q, want %q", got, png)
	}

	req, _ := mock.LastRequest()
	if accept := req.Header.Get("Accept"); accept != "image/png" {
		t.Errorf("Accept = %q, want image/png", accept)
	}
}

func TestExecutor_RetriesTransientFault(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetSequence(testutil.PathJobs,
		testutil.NewServerErrorResponse(http.StatusServiceUnavailable),
		testutil.NewJSONResponse(map[string]any{"stellenangebote": []any{}}),
	)

	c := newTestClient(t, mock.URL())
	if _, err := c.ListJobs(context.Background(), search.NewBuilder().Build()); err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mock.GetRequestCount())
	}

	requests := mock.Requests()
	if requests[0].Header.Get("X-Request-ID") != requests[1].Header.Get("X-Request-ID") {
		t.Error("attempts of one logical request should share X-Request-ID")
	}
}

func TestExecutor_RateLimitedHonorsRetryAfter(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetSequence(testutil.PathJobs,
		testutil.NewRateLimitResponse("0"),
		testutil.NewJSONResponse(map[string]any{"stellenangebote": []any{}}),
	)

	c := newTestClient(t, mock.URL(), func(cfg *Config) {
		cfg.Retry.InitialBackoff = time.Hour
		cfg.Retry.MaxBackoff = time.Hour
	})

	start := time.Now()
	if _, err := c.ListJobs(context.Background(), search.NewBuilder().Build()); err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("took %v, Retry-After: 0 should override the hour-long backoff", elapsed)
	}
}

func TestExecutor_ExhaustionSurfacesLastError(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetResponse(testutil.PathJobs, testutil.NewServerErrorResponse(http.StatusServiceUnavailable))

	c := newTestClient(t, mock.URL())
	_, err := c.ListJobs(context.Background(), search.NewBuilder().Build())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Kind != KindServerFault || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("err = %+v, want server_fault 503", apiErr)
	}
	if len(apiErr.Errors) != 1 || apiErr.Errors[0] != "backend unavailable" {
		t.Errorf("Errors = %v, want [backend unavailable]", apiErr.Errors)
	}
	if mock.GetRequestCount() != 4 {
		t.Errorf("requests = %d, want 4 (1 + 3 retries)", mock.GetRequestCount())
	}
}

func TestExecutor_NonRetryableServerFault(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetResponse(testutil.PathJobs, testutil.NewServerErrorResponse(http.StatusInternalServerError))

	c := newTestClient(t, mock.URL())
	_, err := c.ListJobs(context.Background(), search.NewBuilder().Build())

	if !errors.Is(err, ErrServerFault) {
		t.Errorf("err = %v, want ErrServerFault", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1 (500 is not retried)", mock.GetRequestCount())
	}
}

func TestExecutor_RetriesDisabled(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetResponse(testutil.PathJobs, testutil.NewServerErrorResponse(http.StatusServiceUnavailable))

	c := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.Retry.Enabled = false })
	if _, err := c.ListJobs(context.Background(), search.NewBuilder().Build()); err == nil {
		t.Fatal("expected error")
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.GetRequestCount())
	}
}

func TestExecutor_MalformedPayloadIsTransport(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetResponse(testutil.PathJobs, testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"stellenangebote": [`})

	c := newTestClient(t, mock.URL(), func(cfg *Config) { cfg.Retry.MaxRetries = 1 })
	_, err := c.ListJobs(context.Background(), search.NewBuilder().Build())

	if !errors.Is(err, ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mock.GetRequestCount())
	}
}

func TestExecutor_ConnectionRefused(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	baseURL := mock.URL()
	mock.Close()

	c := newTestClient(t, baseURL, func(cfg *Config) { cfg.Retry.MaxRetries = 1 })
	_, err := c.ListJobs(context.Background(), search.NewBuilder().Build())

	if KindOf(err) != KindTransport {
		t.Errorf("KindOf(err) = %q, want transport", KindOf(err))
	}
}

func TestExecutor_RequestTimeout(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	resp := testutil.NewJSONResponse(map[string]any{"stellenangebote": []any{}})
	resp.Delay = 300 * time.Millisecond
	mock.SetResponse(testutil.PathJobs, resp)

	c := newTestClient(t, mock.URL(), func(cfg *Config) {
		cfg.RequestTimeout = 50 * time.Millisecond
		cfg.Retry.Enabled = false
	})
	_, err := c.ListJobs(context.Background(), search.NewBuilder().Build())

	if !errors.Is(err, ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}

func TestExecutor_CancelledContext(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, mock.URL())
	_, err := c.ListJobs(ctx, search.NewBuilder().Build())

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled cause", err)
	}
	if KindOf(err) != KindTransport {
		t.Errorf("KindOf(err) = %q, want transport", KindOf(err))
	}
}

func TestExecutor_CircuitBreakerOpens(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetResponse(testutil.PathJobs, testutil.NewServerErrorResponse(http.StatusInternalServerError))

	c := newTestClient(t, mock.URL(), func(cfg *Config) {
		cfg.Retry.Enabled = false
		cfg.BreakerThreshold = 2
		cfg.BreakerTimeout = time.Minute
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.ListJobs(ctx, search.NewBuilder().Build()); !errors.Is(err, ErrServerFault) {
			t.Fatalf("call %d: err = %v, want ErrServerFault", i, err)
		}
	}

	_, err := c.ListJobs(ctx, search.NewBuilder().Build())
	if !errors.Is(err, ErrTransport) {
		t.Errorf("err = %v, want ErrTransport from open breaker", err)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("requests = %d, want 2 (open breaker sends nothing)", mock.GetRequestCount())
	}
}

func TestExecutor_BreakerIgnoresClientErrors(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()

	c := newTestClient(t, mock.URL(), func(cfg *Config) {
		cfg.BreakerThreshold = 1
		cfg.BreakerTimeout = time.Minute
	})

	for i := 0; i < 3; i++ {
		if _, err := c.JobDetails(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d: err = %v, want ErrNotFound", i, err)
		}
	}
}

func TestExecutor_RequestPacing(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetResponse(testutil.PathJobs, testutil.NewJSONResponse(map[string]any{"stellenangebote": []any{}}))

	c := newTestClient(t, mock.URL(), func(cfg *Config) {
		cfg.RequestsPerSecond = 20
		cfg.Burst = 1
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.ListJobs(context.Background(), search.NewBuilder().Build()); err != nil {
			t.Fatalf("ListJobs() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 paced requests took %v, want >= ~100ms at 20 rps", elapsed)
	}
}

func TestExecutor_SharedCooldown(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetSequence(testutil.PathJobs,
		testutil.NewRateLimitResponse("1"),
		testutil.NewJSONResponse(map[string]any{"stellenangebote": []any{}}),
	)

	store := ratelimit.NewMemoryStore()
	noRetry := func(cfg *Config) {
		cfg.Retry.Enabled = false
		cfg.RateLimitStore = store
	}
	a := newTestClient(t, mock.URL(), noRetry)
	b := newTestClient(t, mock.URL(), noRetry)

	if _, err := a.ListJobs(context.Background(), search.NewBuilder().Build()); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}

	start := time.Now()
	if _, err := b.ListJobs(context.Background(), search.NewBuilder().Build()); err != nil {
		t.Fatalf("second client error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 800*time.Millisecond {
		t.Errorf("second client waited %v, want the shared 1s cooldown", elapsed)
	}
}

func TestJobs_LazyPagination(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetListingPages(-1, 2, 2, 0)

	c := newTestClient(t, mock.URL())
	it := c.Jobs(context.Background(), search.NewBuilder().JobTitle("Go").Build(), pagination.WithPageSize(2))

	if mock.GetRequestCount() != 0 {
		t.Fatal("Jobs must not fetch before the first Next")
	}

	var refs []string
	for it.Next() {
		refs = append(refs, it.Item().Refnr)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	want := []string{"REF-1-0", "REF-1-1", "REF-2-0", "REF-2-1"}
	if len(refs) != len(want) {
		t.Fatalf("refs = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("refs[%d] = %q, want %q", i, refs[i], want[i])
		}
	}

	requests := mock.Requests()
	if len(requests) != 3 {
		t.Fatalf("requests = %d, want 3", len(requests))
	}
	for i, req := range requests {
		if got, want := req.Query.Get("page"), string(rune('1'+i)); got != want {
			t.Errorf("request %d page = %q, want %q", i, got, want)
		}
		if got := req.Query.Get("size"); got != "2" {
			t.Errorf("request %d size = %q, want 2", i, got)
		}
		if got := req.Query.Get("was"); got != "Go" {
			t.Errorf("request %d was = %q, want Go", i, got)
		}
	}
}

func TestJobs_StopsAtReportedTotal(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetListingPages(4, 2, 2, 2)

	c := newTestClient(t, mock.URL())
	listings, err := c.AllJobs(context.Background(), search.NewBuilder().Build(), pagination.WithPageSize(2))
	if err != nil {
		t.Fatalf("AllJobs() error = %v", err)
	}
	if len(listings) != 4 {
		t.Errorf("listings = %d, want 4", len(listings))
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mock.GetRequestCount())
	}
}

func TestJobs_SizeFromOptionsAndClamp(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetListingPages(-1, 1)

	c := newTestClient(t, mock.URL())

	for _, tc := range []struct {
		name     string
		opts     search.Options
		pageOpts []pagination.Option
		wantSize string
	}{
		{name: "options size", opts: search.NewBuilder().Size(30).Build(), wantSize: "30"},
		{name: "explicit page size wins", opts: search.NewBuilder().Size(30).Build(), pageOpts: []pagination.Option{pagination.WithPageSize(10)}, wantSize: "10"},
		{name: "clamped", opts: search.NewBuilder().Build(), pageOpts: []pagination.Option{pagination.WithPageSize(500)}, wantSize: "100"},
		{name: "default", opts: search.NewBuilder().Build(), wantSize: "50"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mock.Reset()
			if _, err := c.AllJobs(context.Background(), tc.opts, tc.pageOpts...); err != nil {
				t.Fatalf("AllJobs() error = %v", err)
			}
			req, _ := mock.LastRequest()
			if got := req.Query.Get("size"); got != tc.wantSize {
				t.Errorf("size = %q, want %q", got, tc.wantSize)
			}
		})
	}
}

func TestAllJobs_PartialResultOnError(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetHandler(testutil.PathJobs, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			resp := testutil.NewJSONResponse(map[string]any{
				"stellenangebote": []any{testutil.Listing("A"), testutil.Listing("B")},
			})
			w.WriteHeader(resp.StatusCode)
			w.Write([]byte(resp.Body))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})

	c := newTestClient(t, mock.URL())
	listings, err := c.AllJobs(context.Background(), search.NewBuilder().Build(), pagination.WithPageSize(2))

	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	if len(listings) != 2 {
		t.Errorf("listings = %d, want 2 collected before the failure", len(listings))
	}
}

func TestClient_ConcurrentUse(t *testing.T) {
	mock := testutil.NewMockJobsuche()
	defer mock.Close()
	mock.SetListingPages(-1, 3)

	c := newTestClient(t, mock.URL())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			listings, err := c.AllJobs(context.Background(), search.NewBuilder().Build(), pagination.WithPageSize(5))
			if err != nil {
				t.Errorf("AllJobs() error = %v", err)
				return
			}
			if len(listings) != 3 {
				t.Errorf("listings = %d, want 3", len(listings))
			}
		}()
	}
	wg.Wait()

	if mock.GetRequestCount() != 8 {
		t.Errorf("requests = %d, want 8", mock.GetRequestCount())
	}
}
