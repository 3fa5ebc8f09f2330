package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPEmailSenderSend(t *testing.T) {
	var gotAuth string
	var gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotRaw = body["raw"]
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := NewHTTPEmailSender(srv.URL, "tok-123")
	receipt, err := s.Send(context.Background(), OutboundEmail{
		To:      "dev@example.com",
		Subject: "status",
		Body:    "all green",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !receipt.Success || receipt.Message != "email sent to dev@example.com" {
		t.Fatalf("receipt = %+v", receipt)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", gotAuth)
	}

	mime, err := base64.RawURLEncoding.DecodeString(gotRaw)
	if err != nil {
		t.Fatalf("raw is not base64url: %v", err)
	}
	text := string(mime)
	for _, want := range []string{"To: dev@example.com", "Subject: status", "all green"} {
		if !strings.Contains(text, want) {
			t.Fatalf("MIME message missing %q:\n%s", want, text)
		}
	}
}

func TestHTTPEmailSenderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewHTTPEmailSender(srv.URL, "tok")
	_, err := s.Send(context.Background(), OutboundEmail{To: "a@b.io"})
	if err == nil {
		t.Fatal("Send() should fail on 429")
	}
	if HTTPStatus(err) != http.StatusTooManyRequests {
		t.Fatalf("HTTPStatus = %d, want 429", HTTPStatus(err))
	}
}

func TestEmailSenderRequiresRecipient(t *testing.T) {
	s := NewHTTPEmailSender("http://unused.invalid", "tok")
	if _, err := s.Send(context.Background(), OutboundEmail{Subject: "x"}); err == nil {
		t.Fatal("missing recipient should fail before the request is made")
	}
}
