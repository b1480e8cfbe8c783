package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrEthical07/thunderauth/apierror"
)

// Method is an HTTP method accepted by a Descriptor.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
	MethodPatch  Method = http.MethodPatch
)

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	}
	return false
}

const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"

	contentTypeJSON = "application/json"
)

// Descriptor declares one API call. It is a value: the With* helpers return
// modified copies and never touch the receiver's maps.
type Descriptor struct {
	BaseURL string
	Path    string
	Method  Method
	Headers map[string]string
	Query   map[string]string
	Body    map[string]any

	// RefreshCall marks the refresh-token call. Unauthorized failures of a
	// refresh call are never answered with another refresh.
	RefreshCall bool
	// Authenticated asks the caller-side requester to attach the current
	// access token as a bearer header on every attempt, including a retry.
	Authenticated bool
}

// DefaultHeaders returns the headers applied when a Descriptor sets none.
func DefaultHeaders() map[string]string {
	return map[string]string{HeaderContentType: contentTypeJSON}
}

// BearerHeaders returns the default headers plus an Authorization bearer header.
func BearerHeaders(token string) map[string]string {
	h := DefaultHeaders()
	h[HeaderAuthorization] = "Bearer " + token
	return h
}

// WithHeader returns a copy of d with header key set to value.
func (d Descriptor) WithHeader(key, value string) Descriptor {
	next := make(map[string]string, len(d.Headers)+1)
	for k, v := range d.headers() {
		next[k] = v
	}
	next[key] = value
	d.Headers = next
	return d
}

// WithBaseURL returns a copy of d targeting baseURL.
func (d Descriptor) WithBaseURL(baseURL string) Descriptor {
	d.BaseURL = baseURL
	return d
}

// Header returns the effective value of header key.
func (d Descriptor) Header(key string) string {
	for k, v := range d.headers() {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (d Descriptor) headers() map[string]string {
	if d.Headers == nil {
		return DefaultHeaders()
	}
	return d.Headers
}

// URL resolves BaseURL, Path and Query into the target URL.
func (d Descriptor) URL() (*url.URL, error) {
	base := strings.TrimSpace(d.BaseURL)
	if base == "" {
		return nil, apierror.InvalidURL()
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apierror.InvalidURL()
	}
	q := url.Values{}
	if d.Path != "" {
		if !strings.HasPrefix(d.Path, "/") {
			return nil, apierror.InvalidURL()
		}
		// The path replaces any path on the base origin. A query written into
		// the path is kept; Query entries override its keys.
		p, err := url.Parse(d.Path)
		if err != nil || p.Scheme != "" || p.Host != "" || p.Fragment != "" {
			return nil, apierror.InvalidURL()
		}
		u.Path = p.Path
		u.RawPath = p.RawPath
		if p.RawQuery != "" {
			if q, err = url.ParseQuery(p.RawQuery); err != nil {
				return nil, apierror.InvalidURL()
			}
			u.RawQuery = q.Encode()
		}
	}
	if len(d.Query) > 0 {
		for k, v := range d.Query {
			if k == "" {
				return nil, apierror.InvalidURL()
			}
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// Request builds the wire request for d. It fails with InvalidURL when the
// target cannot be formed and with InvalidData when the body does not
// serialize.
func (d Descriptor) Request(ctx context.Context) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	method := d.Method
	if method == "" {
		method = MethodGet
	}
	if !method.Valid() {
		return nil, apierror.InvalidData(fmt.Errorf("unsupported method %q", method))
	}

	u, err := d.URL()
	if err != nil {
		return nil, err
	}

	var body []byte
	if len(d.Body) > 0 && method != MethodGet {
		body, err = json.Marshal(d.Body)
		if err != nil {
			return nil, apierror.InvalidData(err)
		}
	}

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, string(method), u.String(), bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, string(method), u.String(), nil)
	}
	if err != nil {
		return nil, apierror.InvalidURL()
	}

	for k, v := range d.headers() {
		req.Header.Set(k, v)
	}
	return req, nil
}
