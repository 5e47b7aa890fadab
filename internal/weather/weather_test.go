package weather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mirahq/mira-agent/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleBody = `{
	"weather": [{"description": "light rain"}],
	"main": {"temp": 27.4},
	"name": "Bangkok"
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.WeatherConfig{
		APIKey:      "wkey",
		City:        "Bangkok",
		CountryCode: "TH",
	}, testLogger())
	c.baseURL = srv.URL
	return c
}

func TestCurrent(t *testing.T) {
	var gotQuery string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, sampleBody)
	})

	cond, err := c.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if cond.Description != "light rain" {
		t.Errorf("Description = %q", cond.Description)
	}
	if cond.TempCelsius != 27.4 {
		t.Errorf("TempCelsius = %v", cond.TempCelsius)
	}
	if cond.City != "Bangkok" {
		t.Errorf("City = %q", cond.City)
	}

	if !strings.Contains(gotQuery, "appid=wkey") {
		t.Errorf("query %q missing api key", gotQuery)
	}
	if !strings.Contains(gotQuery, "units=metric") {
		t.Errorf("query %q missing metric units", gotQuery)
	}
}

func TestFragment(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sampleBody)
	})

	got := c.Fragment(context.Background())
	want := "The weather in Bangkok is light rain with a temperature of 27.4°C"
	if got != want {
		t.Errorf("Fragment() = %q, want %q", got, want)
	}
}

func TestFragmentDegradesOnError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"city not found", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json")
		}},
		{"empty conditions", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"weather":[],"main":{"temp":1},"name":"X"}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, tt.handler)
			if got := c.Fragment(context.Background()); got != Placeholder {
				t.Errorf("Fragment() = %q, want placeholder", got)
			}
		})
	}
}
