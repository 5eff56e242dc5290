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
	"encoding/hex"
	"reflect"
	"testing"
)

// TestJWT tests signing and unsigning of JWT claims.
func TestJWT(t *testing.T) {
	const hexSecret = "3af320667aba6a8b9ff9dc475adb382c"
	secret, err := hex.DecodeString(hexSecret)
	if err != nil {
		t.Fatalf("could not decode hexSecret: %v", err)
	}

	tests := []map[string]interface{}{
		{},
		{"iss": "dispatch@morning-call.app"},
		{"iss": "dispatch@morning-call.app", "job": "dispatch"},
	}

	for i, claims := range tests {
		tokString, err := PutClaims(claims, secret)
		if err != nil {
			t.Errorf("PutClaims#%d failed with unexpected error: %v", i, err)
		}
		got, err := GetClaims(tokString, secret)
		if err != nil {
			t.Errorf("GetClaims#%d failed with unexpected error: %v", i, err)
		}
		if !reflect.DeepEqual(got, claims) {
			t.Errorf("GetClaims#%d failed: expected %v, got %v", i, claims, got)
		}
		got, err = GetClaims("Bearer "+tokString, secret)
		if err != nil {
			t.Errorf("GetClaims#%d with Bearer prefix failed with unexpected error: %v", i, err)
		}
		if !reflect.DeepEqual(got, claims) {
			t.Errorf("GetClaims#%d with Bearer prefix failed: expected %v, got %v", i, claims, got)
		}
	}

	// A token signed with one secret must not verify with another.
	tokString, err := PutClaims(map[string]interface{}{"iss": "dispatch@morning-call.app"}, secret)
	if err != nil {
		t.Fatalf("PutClaims failed with unexpected error: %v", err)
	}
	_, err = GetClaims(tokString, []byte("not-the-secret"))
	if err == nil {
		t.Errorf("GetClaims with wrong secret unexpectedly succeeded")
	}
}
