package thunderauth

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/thunderauth/internal/mockapi"
)

func newBenchmarkClient(b *testing.B) (*Client, *mockapi.Server) {
	b.Helper()

	api, err := mockapi.New(mockapi.Options{})
	if err != nil {
		b.Fatalf("mockapi: %v", err)
	}
	api.AddUser(mockapi.User{Email: testEmail, Password: testPassword})
	server := httptest.NewServer(api)
	b.Cleanup(server.Close)

	client, err := New().
		WithBaseURL(server.URL).
		WithHTTPClient(server.Client()).
		WithLogger(log.New(io.Discard, "", 0)).
		Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	b.Cleanup(client.Close)

	if _, err := client.Login(context.Background(), testEmail, testPassword); err != nil {
		b.Fatalf("login failed: %v", err)
	}
	return client, api
}

func BenchmarkIsAuthenticated(b *testing.B) {
	client, _ := newBenchmarkClient(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !client.IsAuthenticated(ctx) {
			b.Fatal("expected authenticated client")
		}
	}
}

func BenchmarkAuthenticatedExecute(b *testing.B) {
	client, _ := newBenchmarkClient(b)
	ctx := context.Background()
	d := profileDescriptor()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := client.ExecuteVoid(ctx, d); err != nil {
			b.Fatalf("execute failed: %v", err)
		}
	}
}

func BenchmarkExecuteWithRefresh(b *testing.B) {
	client, api := newBenchmarkClient(b)
	ctx := context.Background()
	d := profileDescriptor()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		api.RevokeAccessTokens()
		if err := client.ExecuteVoid(ctx, d); err != nil {
			b.Fatalf("execute failed: %v", err)
		}
	}
}
