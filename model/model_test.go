/*
DESCRIPTION
  model tests.

LICENSE
  Copyright (C) 2025 Good Humans Inc.

  This file is free software: you can redistribute it and/or modify it
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
	"errors"
	"testing"
	"time"

	"github.com/Good-Humans-Inc/morning-call/datastore"
)

var testTime = time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)

func testStore(t *testing.T) datastore.Store {
	t.Helper()
	RegisterEntities()
	store, err := datastore.NewStore(context.Background(), "file", "model-test", t.TempDir())
	if err != nil {
		t.Fatalf("datastore.NewStore failed with error: %v", err)
	}
	return store
}

// TestSubscriberEncoding tests Subscriber JSON encoding and decoding.
func TestSubscriberEncoding(t *testing.T) {
	sub := Subscriber{
		ID:            "user-1",
		Name:          "Alex",
		PhoneNumber:   "+15550000001",
		City:          "Adelaide",
		Timezone:      "Australia/Adelaide",
		LocalCallTime: "7:00 AM",
		CallTime:      "21:30",
		Created:       testTime,
	}
	var sub2 Subscriber
	err := sub2.Decode(sub.Encode())
	if err != nil {
		t.Errorf("Subscriber.Decode failed with error: %v", err)
	}
	if sub2 != sub {
		t.Errorf("Subscriber encoding round trip failed: expected %v, got %v", sub, sub2)
	}
}

// TestDeriveCallTime tests local call time conversion to UTC HH:MM.
func TestDeriveCallTime(t *testing.T) {
	tests := []struct {
		timezone string
		local    string
		want     string
	}{
		{"Australia/Adelaide", "7:00 AM", "21:30"}, // ACST is UTC+9:30.
		{"America/Los_Angeles", "7:00 AM", "14:00"}, // PDT on this date.
		{"UTC", "7:00 AM", "07:00"},
		{"UTC", "12:05 PM", "12:05"},
		{"UTC", "12:30 AM", "00:30"},
	}
	for _, test := range tests {
		got, err := DeriveCallTime(test.timezone, test.local, testTime)
		if err != nil {
			t.Errorf("DeriveCallTime(%s, %s) failed with error: %v", test.timezone, test.local, err)
			continue
		}
		if got != test.want {
			t.Errorf("DeriveCallTime(%s, %s): expected %s, got %s", test.timezone, test.local, test.want, got)
		}
	}

	_, err := DeriveCallTime("Mars/Olympus", "7:00 AM", testTime)
	if err == nil {
		t.Errorf("DeriveCallTime with bad timezone: expected error, got nil")
	}
	_, err = DeriveCallTime("UTC", "25 o'clock", testTime)
	if err == nil {
		t.Errorf("DeriveCallTime with bad time: expected error, got nil")
	}
}

// TestSubscriber tests Subscriber creation and due-time queries.
func TestSubscriber(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	subs := []Subscriber{
		{Name: "Alex", PhoneNumber: "+15550000001", City: "Adelaide", CallTime: "21:30"},
		{Name: "Billie", PhoneNumber: "+15550000002", City: "Osaka", CallTime: "21:30"},
		{Name: "Charlie", PhoneNumber: "+15550000003", City: "Adelaide", CallTime: "06:00"},
	}
	for i := range subs {
		err := PutSubscriber(ctx, store, &subs[i])
		if err != nil {
			t.Fatalf("PutSubscriber failed with error: %v", err)
		}
		if subs[i].ID == "" {
			t.Errorf("PutSubscriber did not assign an ID")
		}
		if subs[i].Created.IsZero() {
			t.Errorf("PutSubscriber did not set Created")
		}
	}

	sub, err := GetSubscriber(ctx, store, subs[0].ID)
	if err != nil {
		t.Fatalf("GetSubscriber failed with error: %v", err)
	}
	if sub.Name != "Alex" {
		t.Errorf("GetSubscriber: expected Alex, got %s", sub.Name)
	}

	due, err := GetDueSubscribers(ctx, store, "21:30")
	if err != nil {
		t.Fatalf("GetDueSubscribers failed with error: %v", err)
	}
	if len(due) != 2 {
		t.Errorf("GetDueSubscribers: expected 2 subscribers, got %d", len(due))
	}

	due, err = GetDueSubscribers(ctx, store, "03:03")
	if err != nil {
		t.Fatalf("GetDueSubscribers failed with error: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("GetDueSubscribers: expected 0 subscribers, got %d", len(due))
	}
}

// TestPersona tests Persona storage and voice usability.
func TestPersona(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	personas := []Persona{
		{ID: "pirate", VoiceID: "voice-7", Active: true, SortOrder: 2},
		{ID: "poet", VoiceID: "voice-9", Active: true, SortOrder: 1},
		{ID: "robot", VoiceID: "PLACEHOLDER_voice", Active: true, SortOrder: 3},
		{ID: "sage", VoiceID: "voice-3", Active: true, SortOrder: 10},
		{ID: "retired", VoiceID: "voice-1", Active: false},
	}
	for i := range personas {
		err := PutPersona(ctx, store, &personas[i])
		if err != nil {
			t.Fatalf("PutPersona failed with error: %v", err)
		}
	}

	p, err := GetPersona(ctx, store, "pirate")
	if err != nil {
		t.Fatalf("GetPersona failed with error: %v", err)
	}
	if !p.Usable() {
		t.Errorf("Persona.Usable: expected true for pirate")
	}

	p, err = GetPersona(ctx, store, "robot")
	if err != nil {
		t.Fatalf("GetPersona failed with error: %v", err)
	}
	if p.Usable() {
		t.Errorf("Persona.Usable: expected false for placeholder voice")
	}
	if (&Persona{ID: "empty"}).Usable() {
		t.Errorf("Persona.Usable: expected false for empty voice")
	}

	_, err = GetPersona(ctx, store, "nonexistent")
	if !errors.Is(err, datastore.ErrNoSuchEntity) {
		t.Errorf("GetPersona: expected ErrNoSuchEntity, got %v", err)
	}

	active, err := GetActivePersonas(ctx, store)
	if err != nil {
		t.Fatalf("GetActivePersonas failed with error: %v", err)
	}
	if len(active) != 4 {
		t.Fatalf("GetActivePersonas: expected 4 personas, got %d", len(active))
	}
	// Display order is numeric, so sort order 10 comes last.
	for i, want := range []string{"poet", "pirate", "robot", "sage"} {
		if active[i].ID != want {
			t.Errorf("GetActivePersonas: expected %s at position %d, got %s", want, i, active[i].ID)
		}
	}
}

// TestSummary tests Summary writes and their overwrite semantics.
func TestSummary(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	s := Summary{
		ConversationID: "conv_1",
		UserID:         "user-1",
		Created:        testTime,
		Transcript:     "Talked about the day ahead.",
		CallSuccessful: true,
		SleepQuality:   "good",
	}
	err := PutSummary(ctx, store, &s)
	if err != nil {
		t.Fatalf("PutSummary failed with error: %v", err)
	}
	if s.Criteria != "{}" {
		t.Errorf("PutSummary: expected empty criteria to default to {}, got %q", s.Criteria)
	}

	got, err := GetSummary(ctx, store, "conv_1")
	if err != nil {
		t.Fatalf("GetSummary failed with error: %v", err)
	}
	if *got != s {
		t.Errorf("GetSummary: expected %v, got %v", s, *got)
	}

	// An overwrite replaces the document wholesale.
	s2 := Summary{
		ConversationID: "conv_1",
		UserID:         "user-1",
		Created:        testTime.Add(time.Minute),
		Transcript:     "Talked about the day ahead.",
	}
	err = PutSummary(ctx, store, &s2)
	if err != nil {
		t.Fatalf("PutSummary failed with error: %v", err)
	}
	got, err = GetSummary(ctx, store, "conv_1")
	if err != nil {
		t.Fatalf("GetSummary failed with error: %v", err)
	}
	if got.SleepQuality != "" {
		t.Errorf("PutSummary overwrite: expected sleep quality dropped, got %q", got.SleepQuality)
	}
	if got.CallSuccessful {
		t.Errorf("PutSummary overwrite: expected success flag dropped")
	}
}

// TestVariable tests Variable encoding and storage.
func TestVariable(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	err := PutVariable(ctx, store, "_notify.ops", "1748871000")
	if err != nil {
		t.Fatalf("PutVariable failed with error: %v", err)
	}
	v, err := GetVariable(ctx, store, "_notify.ops")
	if err != nil {
		t.Fatalf("GetVariable failed with error: %v", err)
	}
	if v.Value != "1748871000" {
		t.Errorf("GetVariable: expected 1748871000, got %s", v.Value)
	}
	if !v.IsSystemVariable() {
		t.Errorf("IsSystemVariable: expected true for %s", v.Name)
	}
	if (&Variable{Name: "callTime"}).IsSystemVariable() {
		t.Errorf("IsSystemVariable: expected false for callTime")
	}

	err = DeleteVariable(ctx, store, "_notify.ops")
	if err != nil {
		t.Fatalf("DeleteVariable failed with error: %v", err)
	}
	_, err = GetVariable(ctx, store, "_notify.ops")
	if !errors.Is(err, datastore.ErrNoSuchEntity) {
		t.Errorf("GetVariable after delete: expected ErrNoSuchEntity, got %v", err)
	}
}
