package thunderauth

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/thunderauth/apierror"
	"github.com/MrEthical07/thunderauth/endpoint"
	"github.com/MrEthical07/thunderauth/internal/mockapi"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-horse-battery"
)

type testEnv struct {
	api    *mockapi.Server
	server *httptest.Server
	client *Client
}

func newTestEnv(t *testing.T, opts mockapi.Options, configure func(*Builder)) *testEnv {
	t.Helper()

	api, err := mockapi.New(opts)
	if err != nil {
		t.Fatalf("mockapi: %v", err)
	}
	api.AddUser(mockapi.User{Email: testEmail, Password: testPassword, DisplayName: "Alice"})

	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	b := New().
		WithBaseURL(server.URL).
		WithHTTPClient(server.Client()).
		WithLogger(log.New(io.Discard, "", 0))
	if configure != nil {
		configure(b)
	}
	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)

	return &testEnv{api: api, server: server, client: client}
}

func (e *testEnv) login(t *testing.T) *AuthResponse {
	t.Helper()
	resp, err := e.client.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return resp
}

func profileDescriptor() endpoint.Descriptor {
	return endpoint.Descriptor{
		Path:          mockapi.PathProfile,
		Method:        endpoint.MethodGet,
		Headers:       endpoint.DefaultHeaders(),
		Authenticated: true,
	}
}

func unauthorizedMessage(t *testing.T, err error) string {
	t.Helper()
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !errors.Is(err, apierror.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized APIError, got %v", err)
	}
	return apiErr.Message
}
