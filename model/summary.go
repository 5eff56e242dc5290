/*
DESCRIPTION
  Call summary datastore type and functions.

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

package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Good-Humans-Inc/morning-call/datastore"
)

const typeSummary = "Summary" // Summary datastore type.

// Summary is an entity in the datastore recording the outcome of one
// completed call. It is keyed by the conversation ID assigned by the
// calling provider, which makes webhook re-delivery idempotent: a
// second write for the same conversation overwrites the first.
type Summary struct {
	ConversationID string    // Conversation ID assigned by the calling provider.
	UserID         string    // ID of the subscriber the call was for.
	Created        time.Time // Time the summary was recorded.
	Transcript     string    `datastore:",noindex"` // Transcript summary from call analysis.
	CallSuccessful bool      // True if the provider judged the call successful.
	Criteria       string    `datastore:",noindex"` // Evaluation criteria results as a JSON object, "{}" when none.
	PersonalInfo   string    `datastore:",noindex"` // Optional extraction: personal info shared on the call.
	Feeling        string    `datastore:",noindex"` // Optional extraction: reported mood.
	SleepQuality   string    `datastore:",noindex"` // Optional extraction: reported sleep quality.
	DailyAgenda    string    `datastore:",noindex"` // Optional extraction: plans for the day.
}

// Encode serializes a Summary into JSON.
func (s *Summary) Encode() []byte {
	b, _ := json.Marshal(s)
	return b
}

// Decode deserializes a Summary from JSON.
func (s *Summary) Decode(b []byte) error {
	err := json.Unmarshal(b, s)
	if err != nil {
		return datastore.ErrDecoding
	}
	return nil
}

// Copy copies a Summary to dst, or returns a copy of the Summary when dst is nil.
func (s *Summary) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var s2 *Summary
	if dst == nil {
		s2 = new(Summary)
	} else {
		var ok bool
		s2, ok = dst.(*Summary)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*s2 = *s
	return s2, nil
}

// GetCache returns nil, indicating no caching.
func (s *Summary) GetCache() datastore.Cache {
	return nil
}

// PutSummary writes a summary keyed by its conversation ID with full
// overwrite semantics. Fields absent from s are dropped from any
// previously stored summary for the same conversation.
func PutSummary(ctx context.Context, store datastore.Store, s *Summary) error {
	if s.Criteria == "" {
		s.Criteria = "{}"
	}
	key := store.NameKey(typeSummary, s.ConversationID)
	_, err := store.Put(ctx, key, s)
	return err
}

// GetSummary gets the summary for the given conversation ID.
func GetSummary(ctx context.Context, store datastore.Store, conversationID string) (*Summary, error) {
	key := store.NameKey(typeSummary, conversationID)
	s := new(Summary)
	err := store.Get(ctx, key, s)
	if err != nil {
		return nil, err
	}
	return s, nil
}
