package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/thunderauth"
	"github.com/MrEthical07/thunderauth/endpoint"
	"github.com/MrEthical07/thunderauth/metrics/export/prometheus"
	"github.com/gorilla/mux"
)

type MetricsCmd struct {
	Listen     string        `long:"listen" default:"127.0.0.1:9464" description:"address serving /metrics"`
	ProbePath  string        `long:"probe" description:"authenticated GET issued every --interval; empty disables probing"`
	Interval   time.Duration `long:"interval" default:"30s"`
	Histograms bool          `long:"histograms" description:"record request latency buckets"`
}

func (c *MetricsCmd) Execute(_ []string) error {
	// The command runs until interrupted, so the global timeout does not apply.
	opts.Timeout = 365 * 24 * time.Hour
	s, err := opts.open(func(b *thunderauth.Builder) {
		b.WithMetricsEnabled(true).WithLatencyHistograms(c.Histograms)
	})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(s.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter := prometheus.NewPrometheusExporter(s.client)
	router := mux.NewRouter()
	router.Handle("/metrics", exporter.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !s.client.IsAuthenticated(r.Context()) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	srv := &http.Server{Addr: c.Listen, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("serving metrics on http://%s/metrics", c.Listen)

	if c.ProbePath != "" {
		go c.probe(ctx, s.client)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (c *MetricsCmd) probe(ctx context.Context, client *thunderauth.Client) {
	d := endpoint.Descriptor{
		Path:          c.ProbePath,
		Method:        endpoint.MethodGet,
		Headers:       endpoint.DefaultHeaders(),
		Authenticated: true,
	}
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()
	for {
		if err := client.ExecuteVoid(ctx, d); err != nil && ctx.Err() == nil {
			log.Printf("probe %s: %v", c.ProbePath, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
