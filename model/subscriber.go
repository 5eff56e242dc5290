/*
DESCRIPTION
  Subscriber datastore type and functions.

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
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Good-Humans-Inc/morning-call/datastore"
)

const typeSubscriber = "Subscriber" // Subscriber datastore type.

// Subscriber is an entity in the datastore representing one person
// who receives a scheduled morning call. Subscribers are created by
// the intake collaborator and are read-only to the call services.
type Subscriber struct {
	ID            string    // Subscriber ID, a UUID assigned at intake.
	Name          string    // Display name.
	PhoneNumber   string    // Phone number in E.164 format.
	City          string    // City used for weather lookup.
	Timezone      string    // IANA time zone identifier, e.g., "America/New_York".
	LocalCallTime string    // Preferred local call time, e.g., "7:30 AM".
	CallTime      string    // Call time in UTC as "HH:MM", derived at intake.
	Character     string    `datastore:",omitempty"` // Optional persona ID.
	CharacterDesc string    `datastore:",noindex"`   // Optional persona description.
	Created       time.Time // Time the subscriber entity was created.
}

// Encode serializes a Subscriber into JSON.
func (s *Subscriber) Encode() []byte {
	b, _ := json.Marshal(s)
	return b
}

// Decode deserializes a Subscriber from JSON.
func (s *Subscriber) Decode(b []byte) error {
	err := json.Unmarshal(b, s)
	if err != nil {
		return datastore.ErrDecoding
	}
	return nil
}

// Copy copies a Subscriber to dst, or returns a copy of the Subscriber when dst is nil.
func (s *Subscriber) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var s2 *Subscriber
	if dst == nil {
		s2 = new(Subscriber)
	} else {
		var ok bool
		s2, ok = dst.(*Subscriber)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*s2 = *s
	return s2, nil
}

// GetCache returns nil, indicating no caching.
func (s *Subscriber) GetCache() datastore.Cache {
	return nil
}

// PutSubscriber creates or updates a subscriber, assigning a UUID and
// creation time when the subscriber has none. It is a helper for the
// intake collaborator and tests; the call services never write
// subscribers.
func PutSubscriber(ctx context.Context, store datastore.Store, s *Subscriber) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Created.IsZero() {
		s.Created = time.Now().UTC()
	}
	key := store.NameKey(typeSubscriber, s.ID)
	_, err := store.Put(ctx, key, s)
	return err
}

// GetSubscriber gets the subscriber with the given ID.
func GetSubscriber(ctx context.Context, store datastore.Store, id string) (*Subscriber, error) {
	key := store.NameKey(typeSubscriber, id)
	s := new(Subscriber)
	err := store.Get(ctx, key, s)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetDueSubscribers returns all subscribers whose UTC call time
// equals hhmm exactly. A subscriber whose minute is missed is not
// caught up later; callers own the decision to query more than one
// minute value.
func GetDueSubscribers(ctx context.Context, store datastore.Store, hhmm string) ([]Subscriber, error) {
	q := store.NewQuery(typeSubscriber, false)
	q.FilterField("CallTime", "=", hhmm)
	var subs []Subscriber
	_, err := store.GetAll(ctx, q, &subs)
	return subs, err
}

// DeriveCallTime converts a local call time such as "7:30 AM" in the
// given IANA time zone to the UTC "HH:MM" string stored on the
// subscriber. The conversion uses the zone's offset on the day of
// now, which is the moment of intake.
func DeriveCallTime(timezone, localCallTime string, now time.Time) (string, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", fmt.Errorf("invalid time zone %q: %w", timezone, err)
	}
	t, err := time.Parse("3:04 PM", localCallTime)
	if err != nil {
		return "", fmt.Errorf("invalid local call time %q: %w", localCallTime, err)
	}
	local := now.In(loc)
	local = time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	return local.UTC().Format("15:04"), nil
}
