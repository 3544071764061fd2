package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "k" {
			t.Errorf("missing api key header")
		}
		if r.URL.RawQuery != "" {
			t.Errorf("api key must not travel in the query: %q", r.URL.RawQuery)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !strings.HasSuffix(req.Contents[0].Parts[0].Text, "RU detour via Manning Dr until 6pm.") {
			t.Errorf("notice text not forwarded: %q", req.Contents[0].Parts[0].Text)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":" RU buses detour via Manning Dr "},{"text":"until 6pm."}]}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "gemini-1.5-flash", time.Second)
	got, err := c.Summarize(context.Background(), "RU detour via Manning Dr until 6pm.")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "RU buses detour via Manning Dr until 6pm." {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestSummarize_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "gemini-1.5-flash", time.Second)
	_, err := c.Summarize(context.Background(), "anything")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}

func TestSummarize_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "gemini-1.5-flash", time.Second)
	_, err := c.Summarize(context.Background(), "anything")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
