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

// Package webhook authenticates, validates and processes post-call
// webhooks from the calling provider.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the header carrying the webhook signature.
const SignatureHeader = "Elevenlabs-Signature"

// maxSignatureAge is the replay window. Signatures whose timestamp is
// strictly older than this are rejected.
const maxSignatureAge = 300 * time.Second

var (
	// ErrAuth indicates a missing, malformed or mismatched signature.
	ErrAuth = errors.New("invalid webhook signature")

	// ErrExpired indicates a signature whose timestamp is outside the
	// replay window.
	ErrExpired = errors.New("webhook signature expired")
)

// Verify checks the composite signature header against the raw
// request body. The header value is comma-separated, with a t=
// component carrying a Unix timestamp and a v0= component carrying
// the hex HMAC-SHA256 of "<timestamp>.<body>" under secret. An empty
// secret disables verification entirely; callers opting into that
// must make the choice explicit.
func Verify(secret, header string, body []byte, now time.Time) error {
	if secret == "" {
		return nil
	}
	if header == "" {
		return fmt.Errorf("%w: missing %s header", ErrAuth, SignatureHeader)
	}

	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "t="); ok {
			ts = v
		}
		if v, ok := strings.CutPrefix(part, "v0="); ok {
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return fmt.Errorf("%w: header missing t= or v0= component", ErrAuth)
	}

	t, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: unparseable timestamp %q", ErrAuth, ts)
	}
	if now.Unix()-t > int64(maxSignatureAge.Seconds()) {
		return fmt.Errorf("%w: timestamp %d too old", ErrExpired, t)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", ts, body)
	want := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return fmt.Errorf("%w: signature mismatch", ErrAuth)
	}
	return nil
}

// Sign produces a signature header value for the given body and
// instant, for use by tests and local tooling.
func Sign(secret string, body []byte, now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", ts, body)
	return "t=" + ts + ",v0=" + hex.EncodeToString(mac.Sum(nil))
}
