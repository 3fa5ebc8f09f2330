package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPAdapterConsumesSSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key-1" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req httpGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Stream || req.Model != "gemini-2.0-flash" || req.InputText != "hi" {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"text\":\"Hello \"}\n\n")
		fmt.Fprint(w, "data: {\"text\":\"\"}\n\n")
		fmt.Fprint(w, "data: {\"delta\":\"world\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, "key-1", "gemini-2.0-flash")
	var deltas []string
	resp, err := a.StreamResponse(context.Background(), MessageRequest{InputText: "hi"}, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if resp.Text != "Hello world" {
		t.Fatalf("Text = %q", resp.Text)
	}
	if len(deltas) != 2 || deltas[0] != "Hello " || deltas[1] != "world" {
		t.Fatalf("deltas = %v", deltas)
	}
}

func TestHTTPAdapterSingleJSONObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":"one-shot answer"}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, "", "")
	var got string
	resp, err := a.StreamResponse(context.Background(), MessageRequest{}, func(d string) error {
		got += d
		return nil
	})
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if resp.Text != "one-shot answer" || got != resp.Text {
		t.Fatalf("resp = %+v, deltas = %q", resp, got)
	}
}

func TestHTTPAdapterPlainTextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, "", "")
	resp, err := a.StreamResponse(context.Background(), MessageRequest{}, nil)
	if err != nil {
		t.Fatalf("StreamResponse() error = %v", err)
	}
	if resp.Text != "not json at all" {
		t.Fatalf("Text = %q", resp.Text)
	}
}

func TestHTTPAdapterErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, "", "")
	_, err := a.StreamResponse(context.Background(), MessageRequest{}, nil)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("error = %v, want status 401 surfaced", err)
	}
}

func TestHTTPAdapterDeltaHandlerErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"text":"chunk"}`)
		fmt.Fprintln(w, `{"text":"never handled"}`)
	}))
	defer srv.Close()

	abort := fmt.Errorf("stop")
	a := NewHTTPAdapter(srv.URL, "", "")
	_, err := a.StreamResponse(context.Background(), MessageRequest{}, func(string) error { return abort })
	if err != abort {
		t.Fatalf("error = %v, want handler error propagated unchanged", err)
	}
}

func TestNewAdapterModes(t *testing.T) {
	if _, err := NewAdapter(Config{Mode: "http"}); err == nil {
		t.Fatal("http mode without a url should fail")
	}
	if _, err := NewAdapter(Config{Mode: "teleport"}); err == nil {
		t.Fatal("unknown mode should fail")
	}

	a, err := NewAdapter(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("auto mode error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("auto mode without a url should yield the mock, got %T", a)
	}

	a, err = NewAdapter(Config{Mode: "auto", HTTPURL: "http://backend.local"})
	if err != nil {
		t.Fatalf("auto mode error = %v", err)
	}
	if _, ok := a.(*FallbackAdapter); !ok {
		t.Fatalf("auto mode with a url should yield a fallback pair, got %T", a)
	}
}
