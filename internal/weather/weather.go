// Package weather supplies the current-conditions situational-context
// fragment from OpenWeatherMap. Failures degrade to a placeholder
// string; the turn never aborts because the weather was unreachable.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mirahq/mira-agent/internal/config"
	"github.com/mirahq/mira-agent/internal/httpkit"
)

const defaultBaseURL = "https://api.openweathermap.org"

// Placeholder is injected into the prompt when conditions cannot be
// fetched.
const Placeholder = "Weather information is unavailable"

// Conditions holds the fields the prompt cares about.
type Conditions struct {
	Description string
	TempCelsius float64
	City        string
}

// Client fetches current conditions for a fixed city.
type Client struct {
	baseURL    string
	apiKey     string
	city       string
	country    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a weather client from configuration.
func NewClient(cfg config.WeatherConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  cfg.APIKey,
		city:    cfg.City,
		country: cfg.CountryCode,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(10 * time.Second),
		),
		logger: logger,
	}
}

// Current fetches the current conditions.
func (c *Client) Current(ctx context.Context) (*Conditions, error) {
	q := url.Values{}
	q.Set("appid", c.apiKey)
	q.Set("q", c.city+","+c.country)
	q.Set("units", "metric")

	reqURL := c.baseURL + "/data/2.5/weather?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 256)
		return nil, fmt.Errorf("weather API error %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Weather) == 0 {
		return nil, fmt.Errorf("weather response has no conditions")
	}

	return &Conditions{
		Description: payload.Weather[0].Description,
		TempCelsius: payload.Main.Temp,
		City:        payload.Name,
	}, nil
}

// Fragment returns the prompt fragment for current conditions, or
// Placeholder on any failure. Never errors.
func (c *Client) Fragment(ctx context.Context) string {
	cond, err := c.Current(ctx)
	if err != nil {
		c.logger.Warn("weather lookup failed", "error", err)
		return Placeholder
	}
	return fmt.Sprintf("The weather in %s is %s with a temperature of %.1f°C",
		cond.City, cond.Description, cond.TempCelsius)
}
