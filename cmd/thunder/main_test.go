package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/thunderauth/internal/mockapi"
)

func startAPI(t *testing.T) *httptest.Server {
	t.Helper()
	api, err := mockapi.New(mockapi.Options{})
	if err != nil {
		t.Fatalf("mockapi: %v", err)
	}
	api.AddUser(mockapi.User{Email: "alice@example.com", Password: "pw", DisplayName: "Alice"})
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := stdout
	stdout = buf
	t.Cleanup(func() { stdout = prev })
	return buf
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	srv := startAPI(t)
	out := capture(t)
	global := []string{"--base-url", srv.URL, "--store", "settings", "--state-dir", t.TempDir()}

	if err := run(append(global, "login", "--email", "alice@example.com", "--password", "pw")); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out.String(), "status: Success") || !strings.Contains(out.String(), "user: Alice <alice@example.com>") {
		t.Fatalf("unexpected login output:\n%s", out)
	}

	out.Reset()
	if err := run(append(global, "status")); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "access token:  present") || !strings.Contains(out.String(), "refresh token: present") {
		t.Fatalf("unexpected status output:\n%s", out)
	}

	out.Reset()
	if err := run(append(global, "call", "--path", mockapi.PathProfile)); err != nil {
		t.Fatalf("call: %v", err)
	}
	if !strings.Contains(out.String(), `"email":"alice@example.com"`) {
		t.Fatalf("unexpected call output:\n%s", out)
	}

	if err := run(append(global, "logout")); err != nil {
		t.Fatalf("logout: %v", err)
	}
	out.Reset()
	if err := run(append(global, "status")); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "access token:  absent") {
		t.Fatalf("expected cleared credentials:\n%s", out)
	}
}

func TestVaultStoreRequiresPassphrase(t *testing.T) {
	t.Setenv("THUNDER_PASSPHRASE", "")
	srv := startAPI(t)
	capture(t)

	err := run([]string{"--base-url", srv.URL, "--state-dir", t.TempDir(), "status"})
	if err == nil || !strings.Contains(err.Error(), "passphrase") {
		t.Fatalf("expected passphrase error, got %v", err)
	}
}

func TestVaultStoreRoundTrip(t *testing.T) {
	srv := startAPI(t)
	out := capture(t)
	global := []string{"--base-url", srv.URL, "--state-dir", t.TempDir(), "--passphrase", "hunter2"}

	if err := run(append(global, "login", "--email", "alice@example.com", "--password", "pw")); err != nil {
		t.Fatalf("login: %v", err)
	}
	out.Reset()
	if err := run(append(global, "refresh")); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !strings.Contains(out.String(), "status: Success") {
		t.Fatalf("unexpected refresh output:\n%s", out)
	}
}

func TestLoginFailureIsError(t *testing.T) {
	srv := startAPI(t)
	capture(t)

	err := run([]string{"--base-url", srv.URL, "--store", "memory", "login", "--email", "alice@example.com", "--password", "wrong"})
	if err == nil || !strings.Contains(err.Error(), "Invalid email or password") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestCallRejectsMalformedQuery(t *testing.T) {
	c := &CallCmd{Method: "GET", Path: "/x", Query: []string{"novalue"}}
	if _, err := c.descriptor(); err == nil {
		t.Fatal("expected error for query without '='")
	}
}
