package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPWeatherClientCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "Mumbai" || q.Get("units") != "metric" || q.Get("appid") != "sekrit" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"Mumbai","sys":{"country":"IN"},"main":{"temp":31.2},"weather":[{"description":"haze","icon":"50d"}]}`))
	}))
	defer srv.Close()

	c := NewHTTPWeatherClient(srv.URL, "sekrit")
	snap, err := c.Current(context.Background(), "Mumbai")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	want := WeatherSnapshot{City: "Mumbai", Country: "IN", Temperature: 31.2, Description: "haze", Icon: "50d"}
	if snap != want {
		t.Fatalf("snapshot = %+v, want %+v", snap, want)
	}
}

func TestHTTPWeatherClientFillsCityFromInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"main":{"temp":10}}`))
	}))
	defer srv.Close()

	c := NewHTTPWeatherClient(srv.URL, "")
	snap, err := c.Current(context.Background(), "Oslo")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if snap.City != "Oslo" {
		t.Fatalf("City = %q, want input echoed back", snap.City)
	}
}

func TestHTTPWeatherClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "city not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPWeatherClient(srv.URL, "")
	_, err := c.Current(context.Background(), "Nowhere")
	if err == nil {
		t.Fatal("Current() should fail on 404")
	}
	if HTTPStatus(err) != http.StatusNotFound {
		t.Fatalf("HTTPStatus = %d, want 404", HTTPStatus(err))
	}
}

func TestWeatherClientRequiresCity(t *testing.T) {
	c := NewHTTPWeatherClient("http://unused.invalid", "")
	if _, err := c.Current(context.Background(), "  "); err == nil {
		t.Fatal("blank city should fail before the request is made")
	}
}
