package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WeatherClient looks up current conditions by city name.
type WeatherClient interface {
	Current(ctx context.Context, city string) (WeatherSnapshot, error)
}

// HTTPWeatherClient queries an OpenWeather-compatible endpoint.
type HTTPWeatherClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPWeatherClient(baseURL, apiKey string) *HTTPWeatherClient {
	return &HTTPWeatherClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type openWeatherResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

func (c *HTTPWeatherClient) Current(ctx context.Context, city string) (WeatherSnapshot, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return WeatherSnapshot{}, fmt.Errorf("weather: city is required")
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("units", "metric")
	if c.apiKey != "" {
		q.Set("appid", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("weather: create request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("weather: send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return WeatherSnapshot{}, &httpStatusError{service: "weather", status: res.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return WeatherSnapshot{}, fmt.Errorf("weather: decode response: %w", err)
	}

	snap := WeatherSnapshot{
		City:        payload.Name,
		Country:     payload.Sys.Country,
		Temperature: payload.Main.Temp,
	}
	if snap.City == "" {
		snap.City = city
	}
	if len(payload.Weather) > 0 {
		snap.Description = payload.Weather[0].Description
		snap.Icon = payload.Weather[0].Icon
	}
	return snap, nil
}

// MockWeatherClient returns deterministic conditions for local/dev use.
type MockWeatherClient struct{}

func NewMockWeatherClient() *MockWeatherClient { return &MockWeatherClient{} }

func (m *MockWeatherClient) Current(ctx context.Context, city string) (WeatherSnapshot, error) {
	select {
	case <-ctx.Done():
		return WeatherSnapshot{}, ctx.Err()
	default:
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return WeatherSnapshot{}, fmt.Errorf("weather: city is required")
	}
	return WeatherSnapshot{
		City:        city,
		Country:     "XX",
		Temperature: 21.5,
		Description: "clear sky",
		Icon:        "01d",
	}, nil
}
