/*
LICENSE
  Copyright (C) 2025 Good Humans Inc.

  This file is part of Morning Call. Morning Call is free software:
  you can redistribute it and/or modify it under the terms of the GNU
  General Public License as published by the Free Software
  Foundation, either version 3 of the License, or (at your option)
  any later version.

  Morning Call is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

package webhook

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Good-Humans-Inc/morning-call/datastore"
	"github.com/Good-Humans-Inc/morning-call/model"
)

const testSecret = "wsec_test"

var testNow = time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)

func TestVerify(t *testing.T) {
	body := []byte(`{"data":{}}`)
	header := Sign(testSecret, body, testNow)

	err := Verify(testSecret, header, body, testNow)
	assert.NoError(t, err)

	// A signature remains valid up to exactly the replay window.
	err = Verify(testSecret, header, body, testNow.Add(300*time.Second))
	assert.NoError(t, err)
}

func TestVerifyRejects(t *testing.T) {
	body := []byte(`{"data":{}}`)
	header := Sign(testSecret, body, testNow)

	// Flip one character of the hex signature.
	var flipped string
	if strings.HasSuffix(header, "0") {
		flipped = header[:len(header)-1] + "1"
	} else {
		flipped = header[:len(header)-1] + "0"
	}

	tests := []struct {
		name   string
		header string
		now    time.Time
		want   error
	}{
		{"missing header", "", testNow, ErrAuth},
		{"missing v0 component", "t=1748871000", testNow, ErrAuth},
		{"missing t component", "v0=deadbeef", testNow, ErrAuth},
		{"unparseable timestamp", "t=abc,v0=deadbeef", testNow, ErrAuth},
		{"flipped signature", flipped, testNow, ErrAuth},
		{"wrong body", header, testNow, ErrAuth},
		{"expired", header, testNow.Add(301 * time.Second), ErrExpired},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := body
			if test.name == "wrong body" {
				b = []byte(`{"data":{"tampered":true}}`)
			}
			err := Verify(testSecret, test.header, b, test.now)
			assert.ErrorIs(t, err, test.want)
		})
	}
}

func TestVerifyDisabled(t *testing.T) {
	// An empty secret disables verification entirely.
	err := Verify("", "not-even-a-signature", []byte("body"), testNow)
	assert.NoError(t, err)
}

func TestParsePayload(t *testing.T) {
	body := []byte(`{"data":{
		"conversation_id":"conv_1",
		"agent_id":"agent-morning",
		"analysis":{
			"transcript_summary":"Talked about the day ahead.",
			"call_successful":true,
			"evaluation_criteria_results":{"greeted":"yes"},
			"data_collection_results":{"user_feeling":"rested","sleep_quality":"good"}
		},
		"conversation_initiation_client_data":{"dynamic_variables":{"user_id":"user-1"}}
	}}`)

	p, err := ParsePayload(body)
	assert.NoError(t, err)
	assert.Equal(t, "conv_1", p.Data.ConversationID)
	assert.Equal(t, "agent-morning", p.Data.AgentID)
	assert.Equal(t, "Talked about the day ahead.", p.Data.Analysis.TranscriptSummary)
	assert.True(t, p.Data.Analysis.CallSuccessful)
	if assert.NotNil(t, p.Data.Analysis.Collected) {
		assert.Equal(t, "rested", p.Data.Analysis.Collected.Feeling)
		assert.Equal(t, "good", p.Data.Analysis.Collected.SleepQuality)
	}
	assert.Equal(t, "user-1", p.Data.InitiationData.DynamicVariables.UserID)
}

func TestParsePayloadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `no`},
		{"missing conversation_id", `{"data":{"agent_id":"a","analysis":{"transcript_summary":"s"},"conversation_initiation_client_data":{"dynamic_variables":{"user_id":"u"}}}}`},
		{"missing transcript_summary", `{"data":{"conversation_id":"c","agent_id":"a","analysis":{},"conversation_initiation_client_data":{"dynamic_variables":{"user_id":"u"}}}}`},
		{"missing user_id", `{"data":{"conversation_id":"c","agent_id":"a","analysis":{"transcript_summary":"s"}}}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParsePayload([]byte(test.body))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	model.RegisterEntities()
	store, err := datastore.NewStore(context.Background(), "file", "webhook-test", t.TempDir())
	if err != nil {
		t.Fatalf("could not create test store: %v", err)
	}
	return &Processor{Store: store, AgentID: "agent-morning", Now: func() time.Time { return testNow }}
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	pr := newTestProcessor(t)

	p := &Payload{Data: Data{
		ConversationID: "conv_1",
		AgentID:        "agent-morning",
		Analysis: Analysis{
			TranscriptSummary: "Talked about the day ahead.",
			CallSuccessful:    true,
			Criteria:          map[string]interface{}{"greeted": "yes"},
			Collected:         &Collected{Feeling: "rested"},
		},
		InitiationData: InitiationData{DynamicVariables: DynamicVariables{UserID: "user-1"}},
	}}

	err := pr.Process(ctx, p)
	assert.NoError(t, err)

	s, err := model.GetSummary(ctx, pr.Store, "conv_1")
	assert.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "Talked about the day ahead.", s.Transcript)
	assert.True(t, s.CallSuccessful)
	assert.Equal(t, `{"greeted":"yes"}`, s.Criteria)
	assert.Equal(t, "rested", s.Feeling)
	assert.Equal(t, testNow, s.Created)
}

func TestProcessUnknownAgent(t *testing.T) {
	ctx := context.Background()
	pr := newTestProcessor(t)

	p := &Payload{Data: Data{
		ConversationID: "conv_1",
		AgentID:        "agent-other",
		Analysis:       Analysis{TranscriptSummary: "Different product."},
		InitiationData: InitiationData{DynamicVariables: DynamicVariables{UserID: "user-1"}},
	}}

	err := pr.Process(ctx, p)
	assert.NoError(t, err)

	_, err = model.GetSummary(ctx, pr.Store, "conv_1")
	assert.ErrorIs(t, err, datastore.ErrNoSuchEntity)
}

func TestProcessRedelivery(t *testing.T) {
	ctx := context.Background()
	pr := newTestProcessor(t)

	p := &Payload{Data: Data{
		ConversationID: "conv_1",
		AgentID:        "agent-morning",
		Analysis: Analysis{
			TranscriptSummary: "Talked about the day ahead.",
			Collected:         &Collected{SleepQuality: "good"},
		},
		InitiationData: InitiationData{DynamicVariables: DynamicVariables{UserID: "user-1"}},
	}}

	err := pr.Process(ctx, p)
	assert.NoError(t, err)
	first, err := model.GetSummary(ctx, pr.Store, "conv_1")
	assert.NoError(t, err)

	err = pr.Process(ctx, p)
	assert.NoError(t, err)
	second, err := model.GetSummary(ctx, pr.Store, "conv_1")
	assert.NoError(t, err)

	// One document, identical both times.
	assert.Equal(t, first, second)
}

// A redelivery that omits a previously present extraction drops that
// field from the stored summary; writes are full overwrites.
func TestRedeliveryDropsOmittedExtraction(t *testing.T) {
	ctx := context.Background()
	pr := newTestProcessor(t)

	p := &Payload{Data: Data{
		ConversationID: "conv_1",
		AgentID:        "agent-morning",
		Analysis: Analysis{
			TranscriptSummary: "Talked about the day ahead.",
			Collected:         &Collected{SleepQuality: "good"},
		},
		InitiationData: InitiationData{DynamicVariables: DynamicVariables{UserID: "user-1"}},
	}}
	err := pr.Process(ctx, p)
	assert.NoError(t, err)

	p.Data.Analysis.Collected = nil
	err = pr.Process(ctx, p)
	assert.NoError(t, err)

	s, err := model.GetSummary(ctx, pr.Store, "conv_1")
	assert.NoError(t, err)
	assert.Empty(t, s.SleepQuality)
}
