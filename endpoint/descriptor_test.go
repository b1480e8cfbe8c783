package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"testing"

	"github.com/MrEthical07/thunderauth/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorRequestBuildsJSONPost(t *testing.T) {
	d := Descriptor{
		BaseURL: "http://localhost:5246",
		Path:    "/api/auth/login",
		Method:  MethodPost,
		Body:    map[string]any{"email": "a@example.com", "password": "pw"},
	}

	req, err := d.Request(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "http://localhost:5246/api/auth/login", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Empty(t, req.Header.Get("Authorization"))

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, map[string]string{"email": "a@example.com", "password": "pw"}, body)
}

func TestDescriptorRequestAttachesQuery(t *testing.T) {
	d := Descriptor{
		BaseURL: "https://api.example.com/ignored",
		Path:    "/api/profile",
		Method:  MethodGet,
		Query:   map[string]string{"lang": "tr", "page": "2"},
		Body:    map[string]any{"dropped": true},
	}

	req, err := d.Request(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/profile", req.URL.Path)
	assert.Equal(t, "tr", req.URL.Query().Get("lang"))
	assert.Equal(t, "2", req.URL.Query().Get("page"))
	assert.Nil(t, req.Body, "GET requests never carry a body")
}

func TestDescriptorRequestKeepsQueryWrittenInPath(t *testing.T) {
	d := Descriptor{
		BaseURL: "https://api.example.com",
		Path:    "/api/profile?lang=en&page=1",
		Method:  MethodGet,
		Query:   map[string]string{"page": "2"},
	}

	u, err := d.URL()
	require.NoError(t, err)
	assert.Equal(t, "/api/profile", u.Path)
	assert.Equal(t, "en", u.Query().Get("lang"))
	assert.Equal(t, "2", u.Query().Get("page"), "Query overrides the path's value")

	d.Query = nil
	u, err = d.URL()
	require.NoError(t, err)
	assert.Equal(t, "lang=en&page=1", u.RawQuery)
}

func TestDescriptorRequestInvalidURL(t *testing.T) {
	testCases := []struct {
		name string
		d    Descriptor
	}{
		{name: "empty base", d: Descriptor{Path: "/api/auth/login"}},
		{name: "no scheme", d: Descriptor{BaseURL: "localhost", Path: "/x"}},
		{name: "unparseable base", d: Descriptor{BaseURL: "http://[::1", Path: "/x"}},
		{name: "relative path", d: Descriptor{BaseURL: "http://localhost", Path: "api/x"}},
		{name: "empty query key", d: Descriptor{BaseURL: "http://localhost", Path: "/x", Query: map[string]string{"": "v"}}},
		{name: "malformed path query", d: Descriptor{BaseURL: "http://localhost", Path: "/x?a=%zz"}},
		{name: "fragment in path", d: Descriptor{BaseURL: "http://localhost", Path: "/x#frag"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.d.Request(context.Background())
			assert.True(t, errors.Is(err, apierror.ErrInvalidURL), "got %v", err)
		})
	}
}

func TestDescriptorRequestInvalidData(t *testing.T) {
	d := Descriptor{
		BaseURL: "http://localhost",
		Path:    "/x",
		Method:  MethodPost,
		Body:    map[string]any{"bad": math.Inf(1)},
	}
	_, err := d.Request(context.Background())
	assert.True(t, errors.Is(err, apierror.ErrInvalidData), "got %v", err)
}

func TestDescriptorWithHeaderCopies(t *testing.T) {
	orig := Descriptor{BaseURL: "http://localhost", Path: "/x", Headers: map[string]string{"Content-Type": "application/json"}}
	next := orig.WithHeader("Authorization", "Bearer abc")

	assert.Equal(t, "", orig.Header("Authorization"))
	assert.Equal(t, "Bearer abc", next.Header("authorization"))
	assert.Len(t, orig.Headers, 1)

	req, err := next.Request(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
}

func TestBearerHeaders(t *testing.T) {
	h := BearerHeaders("tok")
	assert.Equal(t, "Bearer tok", h["Authorization"])
	assert.Equal(t, "application/json", h["Content-Type"])
}
