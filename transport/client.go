package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/thunderauth/apierror"
	"github.com/MrEthical07/thunderauth/endpoint"
	"github.com/google/uuid"
)

// Doer executes one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor runs a descriptor and returns the raw success body. Both *Client and
// the refresh-aware requester of the root package implement it.
type Executor interface {
	Execute(ctx context.Context, d endpoint.Descriptor) ([]byte, error)
}

// Observer receives one report per executed attempt. Status is 0 when no
// response was received.
type Observer interface {
	ObserveAttempt(method, path string, status int, latency time.Duration, err error)
}

// Client executes descriptors and classifies the outcome.
type Client struct {
	doer      Doer
	userAgent string
	requestID func() string
	observer  Observer
}

// Option configures a Client.
type Option func(*Client)

// WithDoer sets the HTTP executor. The default is http.DefaultClient.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.doer = d
		}
	}
}

// WithUserAgent sets the User-Agent sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithObserver installs an attempt observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithRequestIDFunc overrides the X-Request-ID generator.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// New builds a Client.
func New(opts ...Option) *Client {
	c := &Client{
		doer:      http.DefaultClient,
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute performs the call described by d. 2xx responses return the body
// unmodified; every other outcome is an *apierror.Error.
func (c *Client) Execute(ctx context.Context, d endpoint.Descriptor) ([]byte, error) {
	req, err := d.Request(ctx)
	if err != nil {
		return nil, err
	}
	if req.Header.Get(endpoint.HeaderRequestID) == "" {
		req.Header.Set(endpoint.HeaderRequestID, c.requestID())
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		err = apierror.Unspecified(err)
		c.observe(req, 0, start, err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		err = apierror.Unspecified(err)
		c.observe(req, resp.StatusCode, start, err)
		return nil, err
	}

	err = Classify(resp.StatusCode, body)
	c.observe(req, resp.StatusCode, start, err)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ExecuteVoid is Execute with the success payload discarded.
func (c *Client) ExecuteVoid(ctx context.Context, d endpoint.Descriptor) error {
	_, err := c.Execute(ctx, d)
	return err
}

func (c *Client) observe(req *http.Request, status int, start time.Time, err error) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveAttempt(req.Method, req.URL.Path, status, time.Since(start), err)
}

// Classify maps a status code and body to nil (2xx) or the matching error.
func Classify(status int, body []byte) error {
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusBadRequest:
		return apierror.BadRequest(bodyText(body, "Bad Request"))
	case status == http.StatusUnauthorized:
		return apierror.Unauthorized(bodyText(body, "Unauthorized"))
	case status == http.StatusNotFound:
		return apierror.NotFound()
	case status >= 500 && status <= 599:
		return apierror.ServerError(bodyText(body, "Server Error"))
	default:
		return apierror.InvalidResponse()
	}
}

func bodyText(body []byte, fallback string) string {
	if len(body) == 0 {
		return fallback
	}
	return string(body)
}
