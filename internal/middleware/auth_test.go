package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractTokenPrecedence(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	r.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})

	if got := ExtractToken(r); got != "from-cookie" {
		t.Fatalf("got %q, want cookie to win", got)
	}
}

func TestExtractTokenHeaderFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")

	if got := ExtractToken(r); got != "from-header" {
		t.Fatalf("got %q, want header", got)
	}
}

func TestExtractTokenQueryFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	if got := ExtractToken(r); got != "from-query" {
		t.Fatalf("got %q, want query", got)
	}
}

func TestExtractTokenIgnoresNonBearer(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwdw==")
	if got := ExtractToken(r); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}
