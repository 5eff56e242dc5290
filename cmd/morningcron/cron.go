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

package main

import (
	"context"
	"log"
	"time"

	cron "github.com/robfig/cron/v3"
)

// dispatchSpec fires on every minute. Subscribers store their call
// time at minute granularity, so a finer schedule gains nothing.
const dispatchSpec = "* * * * *"

// startScheduler runs the minute trigger in-process, for standalone
// deployments without an external cron service. The scheduler runs in
// UTC, matching the dispatcher's due-time convention.
func startScheduler() {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(dispatchSpec, func() {
		_, err := dispatcher.Run(context.Background(), time.Now())
		if err != nil {
			log.Printf("scheduled dispatch failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("could not schedule dispatch: %v", err)
	}
	c.Start() // We will not stop the cron.
	log.Printf("scheduled dispatch for every minute")
}
