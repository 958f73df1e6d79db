package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/jobsuche-client/pkg/client"
	"github.com/Sternrassler/jobsuche-client/pkg/metrics"
	"github.com/Sternrassler/jobsuche-client/pkg/pagination"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search, details and metrics over HTTP",
		Long: `Run an HTTP gateway in front of the Jobsuche API.

  GET /health               liveness
  GET /metrics              Prometheus metrics
  GET /jobs?was=..&wo=..    all matching listings as NDJSON (limit=N to cap)
  GET /jobdetails/{refnr}   listing details
  GET /logo/{hash}          employer logo`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if addr == "" {
			addr = a.cfg.Server.Addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gw := &gateway{client: a.client, logger: a.logger.With().Str("component", "gateway").Logger()}
		srv := &http.Server{
			Addr:              addr,
			Handler:           gw.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.logger.Info().Str("addr", addr).Msg("Starting Jobsuche gateway")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.logger.Info().Msg("Shutting down Jobsuche gateway")
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	}

	return cmd
}

// gateway exposes client operations over HTTP.
type gateway struct {
	client *client.Client
	logger zerolog.Logger
}

func (gw *gateway) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /jobs", gw.jobsHandler)
	mux.HandleFunc("GET /jobdetails/{refnr}", gw.detailsHandler)
	mux.HandleFunc("GET /logo/{hash}", gw.logoHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// jobsHandler streams every matching listing, one JSON object per line.
// A failure after the first line is reported as a final {"error": ...} line.
func (gw *gateway) jobsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	c, err := criteriaFromQuery(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts, err := c.options()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var pageOpts []pagination.Option
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", raw), http.StatusBadRequest)
			return
		}
		if limit > 0 {
			pageOpts = append(pageOpts, pagination.WithLimit(limit))
		}
	}

	it := gw.client.Jobs(r.Context(), opts, pageOpts...)
	defer it.Stop()

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	started := false

	for it.Next() {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(it.Item()); err != nil {
			gw.logger.Debug().Err(err).Msg("Client went away during stream")
			return
		}
		_ = rc.Flush()
	}

	if err := it.Err(); err != nil {
		gw.logger.Warn().Err(err).Int("yielded", it.Yielded()).Msg("Listing stream failed")
		if !started {
			gw.writeError(w, err)
			return
		}
		_ = enc.Encode(map[string]string{"error": err.Error()})
		return
	}

	if !started {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
	}
}

func (gw *gateway) detailsHandler(w http.ResponseWriter, r *http.Request) {
	details, err := gw.client.JobDetails(r.Context(), r.PathValue("refnr"))
	if err != nil {
		gw.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(details); err != nil {
		gw.logger.Debug().Err(err).Msg("Failed to write details")
	}
}

func (gw *gateway) logoHandler(w http.ResponseWriter, r *http.Request) {
	data, err := gw.client.EmployerLogo(r.Context(), r.PathValue("hash"))
	if err != nil {
		gw.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(data); err != nil {
		gw.logger.Debug().Err(err).Msg("Failed to write logo")
	}
}

// writeError maps a client error onto a gateway status.
func (gw *gateway) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case client.KindNotFound:
			status = http.StatusNotFound
		case client.KindRateLimited:
			status = http.StatusTooManyRequests
			if apiErr.RetryAfter != nil {
				w.Header().Set("Retry-After", strconv.Itoa(int(apiErr.RetryAfter.Seconds())))
			}
		case client.KindTransport:
			status = http.StatusGatewayTimeout
		}
	}

	http.Error(w, fmt.Sprintf("Jobsuche request failed: %v", err), status)
}
