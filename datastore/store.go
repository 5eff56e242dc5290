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

// Package datastore provides a generic interface to a document store,
// with drivers for the Google Cloud Datastore ("cloud") and a
// file-backed store ("file") used in standalone mode and testing.
package datastore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
)

// Key is a datastore key. Keys with names are used for entities keyed
// by an externally-supplied identifier, such as a conversation ID.
type Key = datastore.Key

// Store-related errors.
var (
	ErrNoSuchEntity         = errors.New("no such entity")
	ErrEntityExists         = errors.New("entity exists")
	ErrWrongType            = errors.New("wrong type")
	ErrDecoding             = errors.New("decoding error")
	ErrUnimplemented        = errors.New("unimplemented")
	ErrInvalidStoreKind     = errors.New("invalid store kind")
	ErrInvalidStoreID       = errors.New("invalid store ID")
	ErrOperatorNotSupported = errors.New("operator not supported")
)

// Entity defines the common interface of entities handled by a Store.
// Entities that wish to be cached should return a non-nil Cache.
type Entity interface {
	Copy(dst Entity) (Entity, error) // Copy an entity to dst, or return a copy of the entity when dst is nil.
	GetCache() Cache                 // Return the cache for this type of entity, or nil for no caching.
}

// EntityCoder is implemented by entities that can serialize
// themselves. The file store requires it; the cloud store does not.
type EntityCoder interface {
	Encode() []byte
	Decode([]byte) error
}

// newEntity maps entity kinds to their factory functions.
var newEntity = map[string]func() Entity{}

// RegisterEntity registers a factory function for the given kind of
// entity. Registration is required before entities of that kind can
// be retrieved from a file store.
func RegisterEntity(kind string, factory func() Entity) {
	newEntity[kind] = factory
}

// NewEntity instantiates a new entity of the given kind, or returns
// an error if the kind has not been registered.
func NewEntity(kind string) (Entity, error) {
	factory, ok := newEntity[kind]
	if !ok {
		return nil, fmt.Errorf("unregistered entity kind %s", kind)
	}
	return factory(), nil
}

// Query defines the query interface, which is a subset of the
// queries supported by the Google Cloud Datastore.
type Query interface {
	// Filter filters a query with filterStr of the form "<field> <op>",
	// e.g., "CallTime =". A nil value is ignored.
	Filter(filterStr string, value interface{}) error

	// FilterField filters a query by field name, operator and value.
	FilterField(fieldName, operator string, value interface{}) error

	// Order orders the results of a query by the given field.
	Order(fieldName string)

	// Limit limits the number of results returned.
	Limit(limit int)

	// Offset sets the number of keys to skip before returning results.
	Offset(offset int)
}

// Store defines the datastore interface.
type Store interface {
	IDKey(kind string, id int64) *Key
	NameKey(kind, name string) *Key
	IncompleteKey(kind string) *Key
	NewQuery(kind string, keysOnly bool, keyParts ...string) Query
	Get(ctx context.Context, key *Key, dst Entity) error
	GetAll(ctx context.Context, query Query, dst interface{}) ([]*Key, error)
	Create(ctx context.Context, key *Key, src Entity) error
	Put(ctx context.Context, key *Key, src Entity) (*Key, error)
	Update(ctx context.Context, key *Key, fn func(Entity), dst Entity) error
	Delete(ctx context.Context, key *Key) error
	DeleteMulti(ctx context.Context, keys []*Key) error
}

// NewStore returns a new Store. The kind is either "cloud" for the
// Google Cloud Datastore or "file" for a file-backed store. The id is
// the project ID for cloud stores, with an optional database name in
// the form <ID>/<Database_Name>, or a namespace for file stores. The
// url locates credentials for cloud stores and the directory for file
// stores.
func NewStore(ctx context.Context, kind, id, url string) (Store, error) {
	switch kind {
	case "cloud":
		return newCloudStore(ctx, id, url)
	case "file":
		return newFileStore(ctx, id, url)
	default:
		return nil, ErrInvalidStoreKind
	}
}
