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

// Package eleven places outbound phone calls through the ElevenLabs
// conversational AI Twilio integration.
package eleven

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultURL is the production API base URL.
const DefaultURL = "https://api.elevenlabs.io"

// outboundCallPath is the immediate outbound call endpoint.
const outboundCallPath = "/v1/convai/twilio/outbound-call"

// DynamicVariables carries the per-call personalization values
// attached to an outbound call. The provider echoes them back
// verbatim in the post-call webhook, which is how a completed call is
// tied back to its subscriber.
type DynamicVariables struct {
	UserID        string `json:"user_id"`
	User          string `json:"user"`
	UserCity      string `json:"user_city"`
	TodaysWeather string `json:"todays_weather"`
	CharacterDesc string `json:"character_description,omitempty"`
}

// TTS overrides the voice the agent speaks with.
type TTS struct {
	VoiceID string `json:"voice_id"`
}

// InitiationData is the conversation_initiation_client_data object of
// an outbound call request.
type InitiationData struct {
	DynamicVariables DynamicVariables `json:"dynamic_variables"`
	TTS              *TTS             `json:"tts,omitempty"`
}

// CallRequest describes one outbound call.
type CallRequest struct {
	AgentID            string         `json:"agent_id"`
	AgentPhoneNumberID string         `json:"agent_phone_number_id"`
	ToNumber           string         `json:"to_number"`
	InitiationData     InitiationData `json:"conversation_initiation_client_data"`
}

// callResponse is the subset of the outbound call response we consume.
type callResponse struct {
	ConversationID string `json:"conversation_id"`
}

// Caller places outbound calls. It is implemented by Client and by
// test fakes.
type Caller interface {
	// Call places one outbound call and returns the conversation ID
	// assigned by the provider.
	Call(ctx context.Context, req CallRequest) (string, error)
}

// Client implements Caller against the ElevenLabs API.
type Client struct {
	APIKey string
	URL    string       // API base URL; DefaultURL if empty.
	Client *http.Client // HTTP client; http.DefaultClient if nil.
}

// Call places one outbound call. A non-2xx response is returned as an
// error carrying the response body for diagnosis.
func (c *Client) Call(ctx context.Context, req CallRequest) (string, error) {
	base := c.URL
	if base == "" {
		base = DefaultURL
	}
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("could not encode call request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+outboundCallPath, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.APIKey)

	clt := c.Client
	if clt == nil {
		clt = http.DefaultClient
	}
	resp, err := clt.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("could not read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("outbound call rejected with status %s: %s", http.StatusText(resp.StatusCode), body)
	}

	var cr callResponse
	err = json.Unmarshal(body, &cr)
	if err != nil {
		return "", fmt.Errorf("could not decode response: %w", err)
	}
	return cr.ConversationID, nil
}
