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

// Package dispatch selects the subscribers due for a call at a given
// minute and places one outbound call per subscriber, with failures
// isolated per subscriber.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Good-Humans-Inc/morning-call/datastore"
	"github.com/Good-Humans-Inc/morning-call/eleven"
	"github.com/Good-Humans-Inc/morning-call/model"
	"github.com/Good-Humans-Inc/morning-call/notify"
	"github.com/Good-Humans-Inc/morning-call/weather"
)

// defaultName is used for subscribers without a display name.
const defaultName = "User"

// outcome is the result of processing one subscriber.
type outcome int

const (
	outcomeSkipped outcome = iota // Not eligible; excluded from the attempted count.
	outcomeSucceeded
	outcomeFailed
)

// Report aggregates the per-subscriber outcomes of one trigger
// invocation. Skipped subscribers are not counted as attempted.
type Report struct {
	Attempted int // Calls placed or tried.
	Succeeded int // Calls the provider accepted.
	Skipped   int // Subscribers skipped before any call was tried.
}

// Failed returns the number of attempted calls that failed.
func (r Report) Failed() int {
	return r.Attempted - r.Succeeded
}

// Dispatcher places the calls due at a given minute. All collaborators
// are injected so tests can substitute fakes.
type Dispatcher struct {
	Store         datastore.Store
	Caller        eleven.Caller
	Forecasts     weather.Forecaster
	Notifier      *notify.Notifier // Optional ops notifier.
	AgentID       string           // Calling provider agent placing the calls.
	PhoneNumberID string           // Provider phone number the calls originate from.
	Workers       int              // Maximum concurrent calls; sequential if < 2.
}

// CurrentMinute formats an instant as the UTC "HH:MM" minute used for
// due-subscriber matching.
func CurrentMinute(now time.Time) string {
	return now.UTC().Format("15:04")
}

// Run performs one trigger invocation for the minute of now: it
// fetches the due subscribers, pre-fetches weather for their cities,
// and places one call per eligible subscriber. A subscriber store
// failure is fatal for the invocation; everything after that point is
// isolated per subscriber. Calls are not retried.
func (d *Dispatcher) Run(ctx context.Context, now time.Time) (Report, error) {
	hhmm := CurrentMinute(now)
	log.Printf("checking for calls scheduled at %s UTC", hhmm)

	subs, err := model.GetDueSubscribers(ctx, d.Store, hhmm)
	if err != nil {
		d.notify(ctx, fmt.Sprintf("could not get due subscribers for %s: %v", hhmm, err))
		return Report{}, fmt.Errorf("could not get due subscribers: %w", err)
	}
	if len(subs) == 0 {
		log.Printf("no subscribers to call at this time")
		return Report{}, nil
	}

	// Pre-fetch weather once per unique city. This must complete
	// before any call is placed, since subscribers share cities.
	var cities []string
	seen := map[string]bool{}
	for _, sub := range subs {
		if sub.City == "" || seen[sub.City] {
			continue
		}
		seen[sub.City] = true
		cities = append(cities, sub.City)
	}
	forecasts := d.Forecasts.ForCities(ctx, cities)

	var (
		mutex  sync.Mutex
		report Report
	)
	g := new(errgroup.Group)
	limit := d.Workers
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i := range subs {
		sub := &subs[i]
		g.Go(func() error {
			o := d.dispatchOne(ctx, sub, forecasts)
			mutex.Lock()
			defer mutex.Unlock()
			switch o {
			case outcomeSkipped:
				report.Skipped++
			case outcomeSucceeded:
				report.Attempted++
				report.Succeeded++
			case outcomeFailed:
				report.Attempted++
			}
			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		// Workers report failures through the report, never as errors.
		log.Printf("dispatch group returned error: %v", err)
	}

	log.Printf("finished dispatching calls: initiated %d out of %d", report.Succeeded, report.Attempted)
	if report.Failed() > 0 {
		d.notify(ctx, fmt.Sprintf("dispatch at %s UTC: %d of %d calls failed", hhmm, report.Failed(), report.Attempted))
	}
	return report, nil
}

// dispatchOne processes a single subscriber. Ineligible subscribers
// are skipped with a log message; call failures are logged and
// reported as failed, never raised.
func (d *Dispatcher) dispatchOne(ctx context.Context, sub *model.Subscriber, forecasts map[string]string) outcome {
	if sub.PhoneNumber == "" {
		log.Printf("skipping subscriber %s due to missing phone number", sub.ID)
		return outcomeSkipped
	}

	var voiceID string
	if sub.Character != "" {
		if sub.CharacterDesc == "" {
			log.Printf("skipping subscriber %s: character %s has no description", sub.ID, sub.Character)
			return outcomeSkipped
		}
		p, err := model.GetPersona(ctx, d.Store, sub.Character)
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			log.Printf("skipping subscriber %s: no such character %s", sub.ID, sub.Character)
			return outcomeSkipped
		}
		if err != nil {
			log.Printf("skipping subscriber %s: could not get character %s: %v", sub.ID, sub.Character, err)
			return outcomeSkipped
		}
		if !p.Usable() {
			log.Printf("skipping subscriber %s: character %s voice is not usable", sub.ID, sub.Character)
			return outcomeSkipped
		}
		voiceID = p.VoiceID
	}

	name := sub.Name
	if name == "" {
		name = defaultName
	}
	todays := forecasts[sub.City]
	if todays == "" {
		todays = weather.Fallback
	}

	req := eleven.CallRequest{
		AgentID:            d.AgentID,
		AgentPhoneNumberID: d.PhoneNumberID,
		ToNumber:           sub.PhoneNumber,
		InitiationData: eleven.InitiationData{
			DynamicVariables: eleven.DynamicVariables{
				UserID:        sub.ID,
				User:          name,
				UserCity:      sub.City,
				TodaysWeather: todays,
			},
		},
	}
	if voiceID != "" {
		req.InitiationData.DynamicVariables.CharacterDesc = sub.CharacterDesc
		req.InitiationData.TTS = &eleven.TTS{VoiceID: voiceID}
	}

	log.Printf("making call to %s at %s", name, sub.PhoneNumber)
	id, err := d.Caller.Call(ctx, req)
	if err != nil {
		log.Printf("error making call to %s at %s: %v", name, sub.PhoneNumber, err)
		return outcomeFailed
	}
	log.Printf("successfully initiated call for %s, conversation ID: %s", name, id)
	return outcomeSucceeded
}

// notify sends an ops notification, if a notifier is configured.
func (d *Dispatcher) notify(ctx context.Context, msg string) {
	if d.Notifier == nil {
		return
	}
	err := d.Notifier.Send(ctx, "dispatch", msg)
	if err != nil {
		log.Printf("could not send notification: %v", err)
	}
}
