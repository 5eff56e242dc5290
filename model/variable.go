/*
DESCRIPTION
  Variable datastore type and functions.

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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Good-Humans-Inc/morning-call/datastore"
)

const typeVariable = "Variable" // Variable datastore type.

// Variable stores arbitrary service state as a named string value,
// such as notification bookkeeping. Variables that start with an
// underscore, e.g., _<var>, are system variables hidden from users.
type Variable struct {
	Name    string    // Variable name, which is any ID.
	Value   string    `datastore:",noindex"` // Variable value.
	Updated time.Time // Date/time last updated.
}

// Encode serializes a Variable into tab-separated values.
func (v *Variable) Encode() []byte {
	return []byte(fmt.Sprintf("%s\t%s\t%d", v.Name, v.Value, v.Updated.Unix()))
}

// Decode deserializes a Variable from tab-separated values.
func (v *Variable) Decode(b []byte) error {
	p := strings.Split(string(b), "\t")
	if len(p) != 3 {
		return datastore.ErrDecoding
	}
	v.Name = p[0]
	v.Value = p[1]
	ts, err := strconv.ParseInt(p[2], 10, 64)
	if err != nil {
		return datastore.ErrDecoding
	}
	v.Updated = time.Unix(ts, 0)
	return nil
}

// Copy is not currently implemented.
func (v *Variable) Copy(datastore.Entity) (datastore.Entity, error) {
	return nil, datastore.ErrUnimplemented
}

// GetCache returns nil, indicating no caching.
func (v *Variable) GetCache() datastore.Cache {
	return nil
}

// IsSystemVariable returns true if the variable is a system variable.
func (v *Variable) IsSystemVariable() bool {
	return len(v.Name) > 0 && v.Name[0] == '_'
}

// PutVariable creates or updates a variable, updating its timestamp.
func PutVariable(ctx context.Context, store datastore.Store, name, value string) error {
	key := store.NameKey(typeVariable, name)
	v := &Variable{Name: name, Value: value, Updated: time.Now().UTC()}
	_, err := store.Put(ctx, key, v)
	return err
}

// GetVariable gets a variable.
func GetVariable(ctx context.Context, store datastore.Store, name string) (*Variable, error) {
	key := store.NameKey(typeVariable, name)
	v := new(Variable)
	err := store.Get(ctx, key, v)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteVariable deletes a variable.
func DeleteVariable(ctx context.Context, store datastore.Store, name string) error {
	key := store.NameKey(typeVariable, name)
	return store.DeleteMulti(ctx, []*datastore.Key{key})
}
