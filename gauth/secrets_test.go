/*
LICENSE
  Copyright (C) 2025 Good Humans Inc.

  This is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  It is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

package gauth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestGetSecrets(t *testing.T) {
	ctx := context.Background()

	f := filepath.Join(t.TempDir(), "secrets")
	err := os.WriteFile(f, []byte("webhookSecret:wsecret\r\ncronSecret:3af320667aba6a8b9ff9dc475adb382c\n"), 0600)
	if err != nil {
		t.Fatalf("could not write secrets file: %v", err)
	}
	t.Setenv("TESTPROJECT_SECRETS", f)

	secrets, err := GetSecrets(ctx, "testproject", []string{"webhookSecret", "cronSecret"})
	if err != nil {
		t.Errorf("GetSecrets failed: %v", err)
	}
	if secrets["webhookSecret"] != "wsecret" {
		t.Errorf("expected wsecret, got %s", secrets["webhookSecret"])
	}

	v, err := GetSecret(ctx, "testproject", "webhookSecret")
	if err != nil {
		t.Errorf("GetSecret failed: %v", err)
	}
	if v != "wsecret" {
		t.Errorf("expected wsecret, got %s", v)
	}

	b, err := GetHexSecret(ctx, "testproject", "cronSecret")
	if err != nil {
		t.Errorf("GetHexSecret failed: %v", err)
	}
	if len(b) != 16 {
		t.Errorf("expected 16 decoded bytes, got %d", len(b))
	}

	_, err = GetSecrets(ctx, "testproject", []string{"missingKey"})
	if err == nil {
		t.Errorf("GetSecrets with missing key unexpectedly succeeded")
	}

	os.Unsetenv("NOSUCHPROJECT_SECRETS")
	_, err = GetSecrets(ctx, "nosuchproject", nil)
	if err == nil {
		t.Errorf("GetSecrets without env var unexpectedly succeeded")
	}
}
