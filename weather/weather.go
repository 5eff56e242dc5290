/*
LICENSE
  Copyright (C) 2025 Good Humans Inc.

  This is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  It is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

// Package weather retrieves current conditions and the day's forecast
// for cities via the WeatherAPI.com forecast endpoint, formatted as a
// sentence suitable for reading aloud on a call.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
)

// DefaultURL is the production forecast endpoint.
const DefaultURL = "http://api.weatherapi.com/v1/forecast.json"

// Fallback is substituted for a city whose lookup fails. Callers rely
// on every requested city being present in the result.
const Fallback = "No data available."

// Forecaster provides per-city context strings for a set of cities.
type Forecaster interface {
	ForCities(ctx context.Context, cities []string) map[string]string
}

// Client implements Forecaster against WeatherAPI.com.
type Client struct {
	APIKey string
	URL    string       // Forecast endpoint; DefaultURL if empty.
	Client *http.Client // HTTP client; http.DefaultClient if nil.
}

// forecastResponse mirrors the subset of the WeatherAPI.com forecast
// response that we consume.
type forecastResponse struct {
	Current struct {
		TempF     float64 `json:"temp_f"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []struct {
			Day struct {
				MaxTempF  float64 `json:"maxtemp_f"`
				MinTempF  float64 `json:"mintemp_f"`
				Condition struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// ForCities fetches the weather for each of the given cities,
// returning a map defined for every city. A city whose lookup fails
// maps to Fallback rather than failing the batch; the failure is
// logged and final for this invocation.
func (c *Client) ForCities(ctx context.Context, cities []string) map[string]string {
	m := make(map[string]string, len(cities))
	for _, city := range cities {
		s, err := c.forCity(ctx, city)
		if err != nil {
			log.Printf("could not fetch weather for %s: %v", city, err)
			m[city] = Fallback
			continue
		}
		m[city] = s
	}
	return m
}

// forCity fetches and formats the weather for one city.
func (c *Client) forCity(ctx context.Context, city string) (string, error) {
	base := c.URL
	if base == "" {
		base = DefaultURL
	}
	v := url.Values{}
	v.Set("key", c.APIKey)
	v.Set("q", city)
	v.Set("days", "1")
	v.Set("aqi", "no")
	v.Set("alerts", "no")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+v.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	clt := c.Client
	if clt == nil {
		clt = http.DefaultClient
	}
	resp, err := clt.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %s", http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read response: %w", err)
	}
	var fr forecastResponse
	err = json.Unmarshal(body, &fr)
	if err != nil {
		return "", fmt.Errorf("could not decode response: %w", err)
	}
	if len(fr.Forecast.ForecastDay) == 0 {
		return "", fmt.Errorf("no forecast days for %s", city)
	}

	day := fr.Forecast.ForecastDay[0].Day
	return fmt.Sprintf("Currently in %s, it's %v°F and %s. Today's forecast is %s with a high of %v°F and a low of %v°F.",
		city, fr.Current.TempF, fr.Current.Condition.Text,
		day.Condition.Text, day.MaxTempF, day.MinTempF), nil
}
