package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// OutboundEmail is one message to deliver. Sending is irreversible.
type OutboundEmail struct {
	To      string
	Subject string
	Body    string
}

// EmailSender delivers a message through an external mail API.
type EmailSender interface {
	Send(ctx context.Context, msg OutboundEmail) (EmailReceipt, error)
}

// HTTPEmailSender posts a base64url-encoded MIME message to a Gmail-style
// send endpoint using a bearer token.
type HTTPEmailSender struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewHTTPEmailSender(endpoint, token string) *HTTPEmailSender {
	return &HTTPEmailSender{
		endpoint: strings.TrimSpace(endpoint),
		token:    strings.TrimSpace(token),
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPEmailSender) Send(ctx context.Context, msg OutboundEmail) (EmailReceipt, error) {
	if strings.TrimSpace(msg.To) == "" {
		return EmailReceipt{}, fmt.Errorf("email: recipient is required")
	}

	raw, err := encodeMIMEMessage(msg)
	if err != nil {
		return EmailReceipt{}, fmt.Errorf("email: encode message: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return EmailReceipt{}, fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return EmailReceipt{}, fmt.Errorf("email: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	res, err := s.client.Do(req)
	if err != nil {
		return EmailReceipt{}, fmt.Errorf("email: send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return EmailReceipt{}, &httpStatusError{service: "email", status: res.StatusCode, body: strings.TrimSpace(string(body))}
	}

	return EmailReceipt{Success: true, Message: "email sent to " + msg.To}, nil
}

// encodeMIMEMessage builds a multipart MIME message and base64url-encodes it
// the way the Gmail send API expects.
func encodeMIMEMessage(msg OutboundEmail) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	header := map[string][]string{"Content-Type": {"text/plain; charset=UTF-8"}}
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write([]byte(msg.Body)); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// MockEmailSender records nothing and always succeeds, for local/dev use.
type MockEmailSender struct{}

func NewMockEmailSender() *MockEmailSender { return &MockEmailSender{} }

func (m *MockEmailSender) Send(ctx context.Context, msg OutboundEmail) (EmailReceipt, error) {
	select {
	case <-ctx.Done():
		return EmailReceipt{}, ctx.Err()
	default:
	}
	if strings.TrimSpace(msg.To) == "" {
		return EmailReceipt{}, fmt.Errorf("email: recipient is required")
	}
	return EmailReceipt{Success: true, Message: "email queued for " + msg.To}, nil
}
