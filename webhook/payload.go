/*
LICENSE
  Copyright (C) 2025 Good Humans Inc.

  This is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  This is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY
  or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public
  License for more details.

  You should have received a copy of the GNU General Public License in
  gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrValidation indicates a webhook body that does not conform to the
// expected payload schema. Distinct from ErrAuth so the transport can
// answer with a different status.
var ErrValidation = errors.New("invalid webhook payload")

// Payload is the body of a post-call webhook.
type Payload struct {
	Data Data `json:"data"`
}

// Data describes one completed conversation.
type Data struct {
	ConversationID string         `json:"conversation_id"`
	AgentID        string         `json:"agent_id"`
	Analysis       Analysis       `json:"analysis"`
	InitiationData InitiationData `json:"conversation_initiation_client_data"`
}

// Analysis is the provider's post-call analysis.
type Analysis struct {
	TranscriptSummary string                 `json:"transcript_summary"`
	CallSuccessful    bool                   `json:"call_successful"`
	Criteria          map[string]interface{} `json:"evaluation_criteria_results"`
	Collected         *Collected             `json:"data_collection_results"`
}

// Collected holds the optional structured extractions from the call.
type Collected struct {
	PersonalInfo string `json:"user_personal_info"`
	Feeling      string `json:"user_feeling"`
	SleepQuality string `json:"sleep_quality"`
	DailyAgenda  string `json:"daily_agenda"`
}

// InitiationData echoes back the metadata supplied when the call was
// placed. Only the subscriber ID is needed here.
type InitiationData struct {
	DynamicVariables DynamicVariables `json:"dynamic_variables"`
}

// DynamicVariables are the caller-supplied variables echoed verbatim.
type DynamicVariables struct {
	UserID string `json:"user_id"`
}

// ParsePayload decodes and validates a webhook body. Any failure is
// reported as ErrValidation.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	err := json.Unmarshal(body, &p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	err = p.validate()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// validate checks the fields every webhook must carry. The agent ID is
// deliberately not checked; routing by agent happens downstream and an
// unknown or empty agent is not a schema error.
func (p *Payload) validate() error {
	switch {
	case p.Data.ConversationID == "":
		return fmt.Errorf("%w: missing conversation_id", ErrValidation)
	case p.Data.Analysis.TranscriptSummary == "":
		return fmt.Errorf("%w: missing analysis.transcript_summary", ErrValidation)
	case p.Data.InitiationData.DynamicVariables.UserID == "":
		return fmt.Errorf("%w: missing dynamic_variables.user_id", ErrValidation)
	}
	return nil
}
