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

package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

const forecastBody = `{
  "current": {"temp_f": 61.5, "condition": {"text": "Partly cloudy"}},
  "forecast": {"forecastday": [
    {"day": {"maxtemp_f": 72, "mintemp_f": 55.4, "condition": {"text": "Sunny"}}}
  ]}
}`

func TestForCities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "1", r.URL.Query().Get("days"))
		switch r.URL.Query().Get("q") {
		case "Adelaide":
			fmt.Fprint(w, forecastBody)
		default:
			http.Error(w, "no matching location found", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := &Client{APIKey: "test-key", URL: srv.URL}
	m := c.ForCities(context.Background(), []string{"Adelaide", "Atlantis"})

	assert.Len(t, m, 2)
	assert.Equal(t, "Currently in Adelaide, it's 61.5°F and Partly cloudy. Today's forecast is Sunny with a high of 72°F and a low of 55.4°F.", m["Adelaide"])
	assert.Equal(t, Fallback, m["Atlantis"])
}

func TestForCitiesUnreachable(t *testing.T) {
	// A dead endpoint must yield the fallback for every city, not an error.
	c := &Client{APIKey: "test-key", URL: "http://127.0.0.1:0"}
	m := c.ForCities(context.Background(), []string{"Adelaide"})
	assert.Equal(t, map[string]string{"Adelaide": Fallback}, m)
}
