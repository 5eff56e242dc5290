/*
DESCRIPTION
  Persona datastore type and functions.

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
	"strings"
	"time"

	"github.com/Good-Humans-Inc/morning-call/datastore"
)

const typePersona = "Persona" // Persona datastore type.

// placeholderVoice marks a persona voice that has not been configured
// for production. Calls must never be placed with such a voice.
const placeholderVoice = "placeholder"

// Persona is an entity in the datastore representing a selectable
// call character and the provider voice it speaks with. Personas are
// managed outside the call services and are read-only here.
type Persona struct {
	ID        string    // Persona ID, matching Subscriber.Character.
	VoiceID   string    // Provider voice ID used to override the agent default.
	Active    bool      // True if selectable at intake.
	SortOrder int       // Display order at intake.
	Updated   time.Time // Time the persona was last updated.
}

// Usable returns true if the persona's voice can be used for an
// outbound call. A voice is unusable when it is empty or still
// carries the placeholder marker.
func (p *Persona) Usable() bool {
	if p.VoiceID == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(p.VoiceID), placeholderVoice)
}

// Encode serializes a Persona into JSON.
func (p *Persona) Encode() []byte {
	b, _ := json.Marshal(p)
	return b
}

// Decode deserializes a Persona from JSON.
func (p *Persona) Decode(b []byte) error {
	err := json.Unmarshal(b, p)
	if err != nil {
		return datastore.ErrDecoding
	}
	return nil
}

// Copy copies a Persona to dst, or returns a copy of the Persona when dst is nil.
func (p *Persona) Copy(dst datastore.Entity) (datastore.Entity, error) {
	var p2 *Persona
	if dst == nil {
		p2 = new(Persona)
	} else {
		var ok bool
		p2, ok = dst.(*Persona)
		if !ok {
			return nil, datastore.ErrWrongType
		}
	}
	*p2 = *p
	return p2, nil
}

// GetCache returns nil, indicating no caching.
func (p *Persona) GetCache() datastore.Cache {
	return nil
}

// PutPersona creates or updates a persona.
func PutPersona(ctx context.Context, store datastore.Store, p *Persona) error {
	p.Updated = time.Now().UTC()
	key := store.NameKey(typePersona, p.ID)
	_, err := store.Put(ctx, key, p)
	return err
}

// GetPersona gets the persona with the given ID, or
// datastore.ErrNoSuchEntity when there is none.
func GetPersona(ctx context.Context, store datastore.Store, id string) (*Persona, error) {
	key := store.NameKey(typePersona, id)
	p := new(Persona)
	err := store.Get(ctx, key, p)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetActivePersonas returns all active personas in display order.
func GetActivePersonas(ctx context.Context, store datastore.Store) ([]Persona, error) {
	q := store.NewQuery(typePersona, false)
	q.FilterField("Active", "=", true)
	q.Order("SortOrder")
	var personas []Persona
	_, err := store.GetAll(ctx, q, &personas)
	return personas, err
}
