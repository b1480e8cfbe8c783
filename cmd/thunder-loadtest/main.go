// Command thunder-loadtest drives many clients against an in-process mock
// auth API and reports request latency with and without token recovery.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/thunderauth"
	"github.com/MrEthical07/thunderauth/credstore"
	"github.com/MrEthical07/thunderauth/endpoint"
	"github.com/MrEthical07/thunderauth/internal/mockapi"
	"github.com/alicebob/miniredis/v2"
	"github.com/jessevdk/go-flags"
	"github.com/redis/go-redis/v9"
)

type options struct {
	Clients      int           `long:"clients" default:"64" description:"number of signed-in clients"`
	Concurrency  int           `long:"concurrency" default:"256" description:"number of concurrent workers"`
	Ops          int           `long:"ops" default:"50000" description:"requests per phase"`
	RevokeEvery  time.Duration `long:"revoke-every" default:"50ms" description:"access token revocation interval during the recovery phase"`
	RedisAddr    string        `long:"redis-addr" env:"REDIS_ADDR" description:"redis address; empty starts miniredis"`
	SingleFlight bool          `long:"single-flight" description:"coalesce concurrent refreshes per client"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	if opts.Clients <= 0 || opts.Concurrency <= 0 || opts.Ops <= 0 {
		fmt.Fprintln(os.Stderr, "clients, concurrency, and ops must be > 0")
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx := context.Background()

	rdb, cleanup, err := openRedis(opts.RedisAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	api, err := mockapi.New(mockapi.Options{})
	if err != nil {
		return err
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	transport := &http.Transport{MaxIdleConnsPerHost: opts.Concurrency}
	httpClient := &http.Client{Transport: transport, Timeout: 10 * time.Second}
	quiet := log.New(io.Discard, "", 0)

	clients := make([]*thunderauth.Client, opts.Clients)
	fmt.Printf("signing in %d clients...\n", opts.Clients)
	startSeed := time.Now()
	for i := range clients {
		email := fmt.Sprintf("user-%d@example.com", i)
		api.AddUser(mockapi.User{Email: email, Password: "loadtest"})
		c, err := thunderauth.New().
			WithBaseURL(srv.URL).
			WithHTTPClient(httpClient).
			WithSecretBackend(credstore.NewRedisBackend(rdb, fmt.Sprintf("lt:%d", i))).
			WithLogger(quiet).
			WithMetricsEnabled(true).
			WithSingleFlightRefresh(opts.SingleFlight).
			Build()
		if err != nil {
			return err
		}
		defer c.Close()
		if _, err := c.Login(ctx, email, "loadtest"); err != nil {
			return fmt.Errorf("login %s: %w", email, err)
		}
		clients[i] = c
	}
	fmt.Printf("signed in in %s\n", time.Since(startSeed).Round(time.Millisecond))

	profile := endpoint.Descriptor{
		Path:          mockapi.PathProfile,
		Method:        endpoint.MethodGet,
		Headers:       endpoint.DefaultHeaders(),
		Authenticated: true,
	}

	steady := runPhase(ctx, clients, profile, opts.Ops, opts.Concurrency)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(opts.RevokeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				api.RevokeAccessTokens()
			}
		}
	}()
	recovery := runPhase(ctx, clients, profile, opts.Ops, opts.Concurrency)
	close(stop)

	var refreshes, refreshFailures uint64
	for _, c := range clients {
		snap := c.MetricsSnapshot()
		refreshes += snap.Counters[thunderauth.MetricRefreshSuccess]
		refreshFailures += snap.Counters[thunderauth.MetricRefreshFailure]
	}

	fmt.Println("---- results ----")
	printStats("steady", steady)
	printStats("recovery", recovery)
	fmt.Printf("refreshes=%d refresh_failures=%d refresh_calls=%d\n",
		refreshes, refreshFailures, api.Hits(mockapi.PathRefreshToken))
	return nil
}

func openRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		fmt.Printf("using miniredis at %s\n", mr.Addr())
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	fmt.Printf("using redis at %s\n", addr)
	return client, func() { _ = client.Close() }, nil
}

// runPhase issues ops requests from concurrency workers, each picking a
// random client per request.
func runPhase(ctx context.Context, clients []*thunderauth.Client, d endpoint.Descriptor, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				c := clients[r.Intn(len(clients))]
				t0 := time.Now()
				err := c.ExecuteVoid(ctx, d)
				elapsed := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

// percentile expects samples sorted ascending.
func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
