package thunderauth

import (
	"log"
	"net/http"
	"time"

	"github.com/MrEthical07/thunderauth/apierror"
	"github.com/MrEthical07/thunderauth/credstore"
	"github.com/MrEthical07/thunderauth/internal/flows"
	"github.com/MrEthical07/thunderauth/jwt"
	"github.com/MrEthical07/thunderauth/transport"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Builder assembles a Client. Configure it during initialization and call
// Build once.
type Builder struct {
	config Config
	doer   transport.Doer

	redis    redis.UniversalClient
	secrets  credstore.Backend
	settings credstore.Backend
	store    *credstore.Store

	auditSink AuditSink
	observer  transport.Observer
	logger    *log.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the API base URL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithHTTPClient sets the HTTP client. Its own Timeout wins over the
// configured one.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	if hc != nil {
		b.doer = hc
	}
	return b
}

// WithDoer sets an arbitrary request executor.
func (b *Builder) WithDoer(d transport.Doer) *Builder {
	b.doer = d
	return b
}

// WithRedis keeps secrets in Redis under the "thunder" prefix. An explicit
// secret backend takes precedence.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSecretBackend sets where tokens are kept.
func (b *Builder) WithSecretBackend(backend credstore.Backend) *Builder {
	b.secrets = backend
	return b
}

// WithSettingsBackend sets where the token expiry is kept. Without one the
// secret backend is used.
func (b *Builder) WithSettingsBackend(backend credstore.Backend) *Builder {
	b.settings = backend
	return b
}

// WithCredentialStore shares an existing store. Backend and namespace options
// are ignored when set.
func (b *Builder) WithCredentialStore(store *credstore.Store) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithObserver adds an attempt observer next to the metrics one.
func (b *Builder) WithObserver(o transport.Observer) *Builder {
	b.observer = o
	return b
}

// WithLogger sets the warning logger. The default is log.Default().
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the time source of the client and of the store it
// creates.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithSingleFlightRefresh makes concurrent recoveries share one refresh
// request.
func (b *Builder) WithSingleFlightRefresh(enabled bool) *Builder {
	b.config.Refresh.SingleFlight = enabled
	return b
}

// Build validates the configuration and returns a ready Client. A Builder
// can be built once.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}

	// -------- CREDENTIAL STORE --------
	store := b.store
	if store == nil {
		secrets := b.secrets
		if secrets == nil && b.redis != nil {
			secrets = credstore.NewRedisBackend(b.redis, "")
		}
		store = credstore.New(secrets, b.settings,
			credstore.WithNamespace(cfg.Credentials.Namespace),
			credstore.WithClock(now),
			credstore.WithValidityMargin(cfg.Credentials.ValidityMargin),
			credstore.WithDefaultExpiresIn(cfg.Credentials.DefaultExpiresIn),
		)
	}

	// -------- TRANSPORT --------
	doer := b.doer
	if doer == nil {
		doer = &http.Client{Timeout: cfg.API.Timeout}
	}
	metrics := NewMetrics(cfg.Metrics)
	var observer transport.Observer = attemptObserver{metrics: metrics}
	if b.observer != nil {
		observer = observers{observer, b.observer}
	}
	tc := transport.New(
		transport.WithDoer(doer),
		transport.WithUserAgent(cfg.API.UserAgent),
		transport.WithObserver(observer),
	)

	c := &Client{
		config:    cfg,
		store:     store,
		transport: tc,
		metrics:   metrics,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		logger:    logger,
		now:       now,
	}
	if cfg.Refresh.SingleFlight {
		c.flight = &singleflight.Group{}
	}

	// -------- FLOWS --------
	deps := flows.Deps{
		Refresh: flows.RefreshDeps{
			IsUnauthorized:   apierror.IsUnauthorized,
			LoadRefreshToken: store.RefreshToken,
			MissingRefreshToken: func() error {
				return apierror.Unauthorized(MessageRefreshTokenNotFound)
			},
			Refresh: c.refresh,
			Warn:    logger.Printf,
		},
		Persist: flows.PersistDeps{
			Now:              now,
			AccessExpiry:     jwt.ExpiresAt,
			DefaultExpiresIn: cfg.Credentials.DefaultExpiresIn,
			SaveTokens:       store.SaveTokens,
		},
	}
	c.persist = deps.Persist
	c.api = &requester{transport: tc, store: store, deps: deps.Refresh, metrics: metrics}
	c.refresher = &requester{transport: tc, store: store, isRefresh: true, deps: deps.Refresh, metrics: metrics}

	b.built = true

	return c, nil
}

// observers fans one attempt report out to several observers.
type observers []transport.Observer

func (o observers) ObserveAttempt(method, path string, status int, latency time.Duration, err error) {
	for _, obs := range o {
		obs.ObserveAttempt(method, path, status, latency, err)
	}
}
