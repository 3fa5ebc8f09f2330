package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Generator produces media artifacts (images, website previews, storyboards)
// through an external generation service.
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (ImageRef, error)
	GenerateWebsite(ctx context.Context, brief string) (ActionLaunch, error)
	CreateStoryboard(ctx context.Context, brief string) (ActionLaunch, error)
}

// HTTPGenerator talks to a generation service exposing one POST endpoint per
// artifact kind, each returning {"url": ..., "title": ...}.
type HTTPGenerator struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGenerator(baseURL, apiKey string) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type generateResponse struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (g *HTTPGenerator) GenerateImage(ctx context.Context, prompt string) (ImageRef, error) {
	out, err := g.post(ctx, "/v1/images", prompt)
	if err != nil {
		return ImageRef{}, err
	}
	return ImageRef{URL: out.URL, Prompt: prompt}, nil
}

func (g *HTTPGenerator) GenerateWebsite(ctx context.Context, brief string) (ActionLaunch, error) {
	out, err := g.post(ctx, "/v1/websites", brief)
	if err != nil {
		return ActionLaunch{}, err
	}
	return ActionLaunch{Kind: "website", URL: out.URL, Title: out.Title}, nil
}

func (g *HTTPGenerator) CreateStoryboard(ctx context.Context, brief string) (ActionLaunch, error) {
	out, err := g.post(ctx, "/v1/storyboards", brief)
	if err != nil {
		return ActionLaunch{}, err
	}
	return ActionLaunch{Kind: "storyboard", URL: out.URL, Title: out.Title}, nil
}

func (g *HTTPGenerator) post(ctx context.Context, path, prompt string) (generateResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return generateResponse{}, fmt.Errorf("generator: prompt is required")
	}

	payload, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return generateResponse{}, fmt.Errorf("generator: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return generateResponse{}, fmt.Errorf("generator: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return generateResponse{}, fmt.Errorf("generator: send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return generateResponse{}, &httpStatusError{service: "generator", status: res.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var out generateResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return generateResponse{}, fmt.Errorf("generator: decode response: %w", err)
	}
	return out, nil
}

// MockGenerator returns deterministic placeholder artifacts.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (m *MockGenerator) GenerateImage(ctx context.Context, prompt string) (ImageRef, error) {
	if err := ctx.Err(); err != nil {
		return ImageRef{}, err
	}
	return ImageRef{URL: "mock://image/" + slug(prompt), Prompt: prompt}, nil
}

func (m *MockGenerator) GenerateWebsite(ctx context.Context, brief string) (ActionLaunch, error) {
	if err := ctx.Err(); err != nil {
		return ActionLaunch{}, err
	}
	return ActionLaunch{Kind: "website", URL: "mock://website/" + slug(brief), Title: brief}, nil
}

func (m *MockGenerator) CreateStoryboard(ctx context.Context, brief string) (ActionLaunch, error) {
	if err := ctx.Err(); err != nil {
		return ActionLaunch{}, err
	}
	return ActionLaunch{Kind: "storyboard", URL: "mock://storyboard/" + slug(brief), Title: brief}, nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) > 32 {
		s = s[:32]
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
}
