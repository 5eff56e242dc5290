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
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Good-Humans-Inc/morning-call/datastore"
	"github.com/Good-Humans-Inc/morning-call/model"
)

// Processor routes validated webhook payloads by originating agent and
// persists summaries for the agents it recognizes.
type Processor struct {
	Store   datastore.Store
	AgentID string           // Agent whose webhooks get a Summary written.
	Now     func() time.Time // Clock; defaults to time.Now.
}

// Process handles one validated payload. Webhooks from agents other
// than the configured one are logged and discarded without error;
// this is a router, not a gate. A store failure is returned so the
// transport can answer with a server error and induce redelivery.
func (pr *Processor) Process(ctx context.Context, p *Payload) error {
	if p.Data.AgentID != pr.AgentID {
		log.Printf("ignoring webhook from unhandled agent: %s", p.Data.AgentID)
		return nil
	}

	now := time.Now
	if pr.Now != nil {
		now = pr.Now
	}

	s := model.Summary{
		ConversationID: p.Data.ConversationID,
		UserID:         p.Data.InitiationData.DynamicVariables.UserID,
		Created:        now(),
		Transcript:     p.Data.Analysis.TranscriptSummary,
		CallSuccessful: p.Data.Analysis.CallSuccessful,
		Criteria:       encodeCriteria(p.Data.Analysis.Criteria),
	}
	if c := p.Data.Analysis.Collected; c != nil {
		s.PersonalInfo = c.PersonalInfo
		s.Feeling = c.Feeling
		s.SleepQuality = c.SleepQuality
		s.DailyAgenda = c.DailyAgenda
	}

	err := model.PutSummary(ctx, pr.Store, &s)
	if err != nil {
		return fmt.Errorf("could not put summary for conversation %s: %w", s.ConversationID, err)
	}
	log.Printf("saved summary for conversation %s", s.ConversationID)
	return nil
}

// encodeCriteria renders the free-form evaluation criteria as a JSON
// object string for storage. Untyped maps stop here.
func encodeCriteria(m map[string]interface{}) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
