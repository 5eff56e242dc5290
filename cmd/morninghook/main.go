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

// Morning Hook is a cloud service receiving post-call webhooks from
// the calling provider and persisting call summaries.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Good-Humans-Inc/morning-call/datastore"
	"github.com/Good-Humans-Inc/morning-call/gauth"
	"github.com/Good-Humans-Inc/morning-call/model"
	"github.com/Good-Humans-Inc/morning-call/webhook"
)

// Project constants.
const (
	projectID = "morningcall"
	version   = "v0.1.0"
)

// service defines the properties of our web service.
type service struct {
	setupMutex    sync.Mutex
	summaryStore  datastore.Store
	debug         bool
	standalone    bool
	storePath     string
	webhookSecret string
	processor     *webhook.Processor
}

// svc is an instance of our service.
var svc *service = &service{}

func registerRoutes(app *fiber.App) {
	app.Get("/", svc.versionHandler)
	app.Post("/", svc.webhookHandler)
}

func main() {
	defaultPort := 8082
	v := os.Getenv("PORT")
	if v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			defaultPort = i
		}
	}

	var host string
	var port int
	flag.BoolVar(&svc.debug, "debug", false, "Run in debug mode.")
	flag.BoolVar(&svc.standalone, "standalone", false, "Run in standalone mode.")
	flag.StringVar(&host, "host", "localhost", "Host we run on in standalone mode")
	flag.IntVar(&port, "port", defaultPort, "Port we listen on in standalone mode")
	flag.StringVar(&svc.storePath, "filestore", "store", "File store path")
	flag.Parse()

	// Create app.
	app := fiber.New()

	// Perform one-time setup or bail.
	ctx := context.Background()
	svc.setup(ctx)

	// Recover from panics.
	app.Use(recover.New())

	// Set the logging level.
	if svc.debug {
		log.SetLevel(log.LevelDebug)
	} else if svc.standalone {
		log.SetLevel(log.LevelInfo)
	} else {
		// Appengine logs requests for us.
		log.SetLevel(log.LevelError)
	}

	// Add logging middleware to log requests if applicable.
	app.Use(func(ctx *fiber.Ctx) error {
		log.Info(ctx.Path())
		return ctx.Next()
	})

	registerRoutes(app)

	// Start web server.
	listenOn := fmt.Sprintf("%s:%d", host, port)
	fmt.Printf("starting web server on %s\n", listenOn)
	log.Fatal(app.Listen(listenOn))
}

// versionHandler handles requests for the home page and is here just
// to test that the service is running.
func (svc *service) versionHandler(ctx *fiber.Ctx) error {
	ctx.WriteString(projectID + " " + version)
	return nil
}

// setup executes per-instance one-time warmup and is used to
// initialize the datastore, secrets and webhook processor. Any
// errors getting required secrets are considered fatal.
func (svc *service) setup(ctx context.Context) {
	svc.setupMutex.Lock()
	defer svc.setupMutex.Unlock()

	if svc.summaryStore != nil {
		return
	}

	var err error
	if svc.standalone {
		log.Info("Running in standalone mode")
		svc.summaryStore, err = datastore.NewStore(ctx, "file", projectID, svc.storePath)
	} else {
		log.Info("Running in App Engine mode")
		svc.summaryStore, err = datastore.NewStore(ctx, "cloud", projectID, "")
	}
	if err != nil {
		log.Fatalf("could not set up datastore: %v", err)
	}
	model.RegisterEntities()

	agentID, err := gauth.GetSecret(ctx, projectID, "MORNING_CALL_AGENT_ID")
	if err != nil {
		log.Fatalf("could not get MORNING_CALL_AGENT_ID: %v", err)
	}

	svc.webhookSecret, err = gauth.GetSecret(ctx, projectID, "ELEVENLABS_WEBHOOK_SECRET")
	if err != nil || svc.webhookSecret == "" {
		// Deliberate escape hatch for local testing. Not safe for
		// production deployments.
		log.Warn("no ELEVENLABS_WEBHOOK_SECRET configured; webhook authentication is DISABLED")
	}

	svc.processor = &webhook.Processor{Store: svc.summaryStore, AgentID: agentID}
}

// webhookHandler authenticates, validates and processes one post-call
// webhook. The provider retries on any non-2xx response, so store
// failures are deliberately answered with a server error.
func (svc *service) webhookHandler(ctx *fiber.Ctx) error {
	body := ctx.Body()

	err := webhook.Verify(svc.webhookSecret, ctx.Get(webhook.SignatureHeader), body, time.Now())
	switch {
	case errors.Is(err, webhook.ErrExpired):
		log.Warnf("rejecting webhook: %v", err)
		return fiber.NewError(fiber.StatusForbidden, "signature expired")
	case err != nil:
		log.Warnf("rejecting webhook: %v", err)
		return fiber.NewError(fiber.StatusUnauthorized, "invalid signature")
	}

	p, err := webhook.ParsePayload(body)
	if err != nil {
		log.Warnf("rejecting webhook: %v", err)
		return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("unable to process webhook payload: %v", err))
	}

	err = svc.processor.Process(ctx.Context(), p)
	if err != nil {
		log.Errorf("could not process webhook: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "could not save summary")
	}

	ctx.Set("Content-Type", "application/json")
	return ctx.SendString(`{"status": "received"}`)
}
