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

// Morning Cron is a cloud service that places scheduled morning calls.
// Once a minute it looks up the subscribers whose call time matches
// the current UTC minute and places one outbound call to each.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Good-Humans-Inc/morning-call/datastore"
	"github.com/Good-Humans-Inc/morning-call/dispatch"
	"github.com/Good-Humans-Inc/morning-call/eleven"
	"github.com/Good-Humans-Inc/morning-call/gauth"
	"github.com/Good-Humans-Inc/morning-call/model"
	"github.com/Good-Humans-Inc/morning-call/notify"
	"github.com/Good-Humans-Inc/morning-call/weather"
)

const (
	projectID          = "morningcall"
	version            = "v0.1.0"
	cronServiceAccount = "morningcall@appspot.gserviceaccount.com"
)

var (
	setupMutex   sync.Mutex
	callStore    datastore.Store
	debug        bool
	standalone   bool
	workers      int
	dispatcher   *dispatch.Dispatcher
	cronSecret   []byte
	notifier     notify.Notifier
)

func main() {
	defaultPort := 8080
	v := os.Getenv("PORT")
	if v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			defaultPort = i
		}
	}

	var host string
	var port int
	flag.BoolVar(&debug, "debug", false, "Run in debug mode.")
	flag.BoolVar(&standalone, "standalone", false, "Run in standalone mode.")
	flag.StringVar(&host, "host", "localhost", "Host we run on in standalone mode")
	flag.IntVar(&port, "port", defaultPort, "Port we listen on in standalone mode")
	flag.IntVar(&workers, "workers", 1, "Maximum concurrent outbound calls")
	flag.Parse()

	// Perform one-time setup or bail.
	ctx := context.Background()
	setup(ctx)

	// In standalone mode there is no external cron service, so run
	// the minute scheduler in-process.
	if standalone {
		startScheduler()
	}

	http.HandleFunc("/_ah/warmup", warmupHandler)
	http.HandleFunc("/cron/dispatch", dispatchHandler)
	http.HandleFunc("/", indexHandler)

	log.Printf("Listening on %s:%d", host, port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf("%s:%d", host, port), nil))
}

// warmupHandler handles App Engine warmup requests. It simply ensures that the instance is loaded.
func warmupHandler(w http.ResponseWriter, r *http.Request) {
	indexHandler(w, r)
}

// indexHandler handles requests for the home page and is here just to
// test that the service is running.
func indexHandler(w http.ResponseWriter, r *http.Request) {
	logRequest(r)
	w.Write([]byte(projectID + " " + version))
}

// setup executes per-instance one-time warmup and is used to
// initialize the datastore, secrets, notifier and dispatcher. Any
// errors are considered fatal.
func setup(ctx context.Context) {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	if callStore != nil {
		return
	}

	var err error
	if standalone {
		log.Printf("Running in standalone mode")
		callStore, err = datastore.NewStore(ctx, "file", projectID, "store")
	} else {
		log.Printf("Running in App Engine mode")
		callStore, err = datastore.NewStore(ctx, "cloud", projectID, "")
	}
	if err != nil {
		log.Fatalf("could not set up datastore: %v", err)
	}
	model.RegisterEntities()

	cronSecret, err = gauth.GetHexSecret(ctx, projectID, "cronSecret")
	if err != nil || cronSecret == nil {
		log.Printf("could not get cronSecret: %v", err)
	}

	secrets, err := gauth.GetSecrets(ctx, projectID, nil)
	if err != nil {
		log.Fatalf("could not get secrets: %v", err)
	}
	for _, key := range []string{"ELEVENLABS_API_KEY", "ELEVENLABS_AGENT_ID", "ELEVENLABS_PHONE_NUMBER_ID"} {
		if secrets[key] == "" {
			log.Fatalf("missing required secret %s", key)
		}
	}
	if secrets["WEATHER_API_KEY"] == "" {
		log.Printf("missing WEATHER_API_KEY; weather context will fall back")
	}

	recipient, period := notify.GetOpsEnvVars()
	err = notifier.Init(notify.WithSecrets(secrets), notify.WithRecipient(recipient), notify.WithStore(notify.NewTimeStore(callStore, period)))
	if err != nil {
		log.Fatalf("could not set up email notifier: %v", err)
	}

	dispatcher = &dispatch.Dispatcher{
		Store:         callStore,
		Caller:        &eleven.Client{APIKey: secrets["ELEVENLABS_API_KEY"]},
		Forecasts:     &weather.Client{APIKey: secrets["WEATHER_API_KEY"]},
		Notifier:      &notifier,
		AgentID:       secrets["ELEVENLABS_AGENT_ID"],
		PhoneNumberID: secrets["ELEVENLABS_PHONE_NUMBER_ID"],
		Workers:       workers,
	}
}

// dispatchHandler handles the minute trigger. In App Engine mode the
// request originates from the cron service and must carry a token
// signed with the shared cron secret.
func dispatchHandler(w http.ResponseWriter, r *http.Request) {
	logRequest(r)

	ctx := r.Context()
	setup(ctx)

	if cronSecret != nil {
		claims, err := gauth.GetClaims(r.Header.Get("Authorization"), cronSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "request from %s has invalid claims: %v", r.RemoteAddr, err)
			return
		}
		if claims["iss"] != cronServiceAccount {
			writeError(w, http.StatusUnauthorized, "request from %s has invalid issuer: %q", r.RemoteAddr, claims["iss"])
			return
		}
	}

	report, err := dispatcher.Run(ctx, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not dispatch calls: %v", err)
		return
	}
	fmt.Fprintf(w, "initiated %d out of %d calls, skipped %d", report.Succeeded, report.Attempted, report.Skipped)
}

// writeError writes http errors to the response writer, in order to provide more detailed
// response errors in a concise manner.
func writeError(w http.ResponseWriter, code int, msg string, args ...interface{}) {
	errorMsg := http.StatusText(code)
	if msg != "" {
		errorMsg += ": " + fmt.Sprintf(msg, args...)
	}
	log.Print(errorMsg)
	http.Error(w, errorMsg, code)
}

// logRequest logs a request if in debug mode and standalone mode.
// It does nothing in App Engine mode as App Engine logs requests
// automatically.
func logRequest(r *http.Request) {
	if !(debug || standalone) {
		return
	}
	if r.URL.RawQuery == "" {
		log.Println(r.URL.Path)
		return
	}
	log.Println(r.URL.Path + "?" + r.URL.RawQuery)
}
