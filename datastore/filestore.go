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

package datastore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FileStore implements Store using files, with one file per entity.
// Entities must implement EntityCoder and be registered with
// RegisterEntity before they can be queried. FileStore is intended
// for standalone mode and testing, not production use.
type FileStore struct {
	dir   string
	mutex sync.Mutex
}

// newFileStore returns a new FileStore rooted at dir/id, creating the
// directory as needed.
func newFileStore(ctx context.Context, id, dir string) (*FileStore, error) {
	if dir == "" {
		dir = "store"
	}
	root := filepath.Join(dir, id)
	err := os.MkdirAll(root, 0766)
	if err != nil {
		return nil, fmt.Errorf("could not create directory %s: %w", root, err)
	}
	return &FileStore{dir: root}, nil
}

// IDKey returns an ID key given a kind and an int64 ID.
func (s *FileStore) IDKey(kind string, id int64) *Key {
	return &Key{Kind: kind, ID: id}
}

// NameKey returns a name key given a kind and a (string) name.
func (s *FileStore) NameKey(kind, name string) *Key {
	return &Key{Kind: kind, Name: name}
}

// IncompleteKey returns a key which will be assigned a time-based ID
// upon Put.
func (s *FileStore) IncompleteKey(kind string) *Key {
	return &Key{Kind: kind}
}

// NewQuery returns a new FileQuery. The keyParts are ignored, since
// the file store derives keys from file names.
func (s *FileStore) NewQuery(kind string, keysOnly bool, keyParts ...string) Query {
	return &FileQuery{kind: kind, keysOnly: keysOnly}
}

// fileName returns the file holding the entity with the given key.
func (s *FileStore) fileName(key *Key) string {
	n := key.Name
	if n == "" {
		n = strconv.FormatInt(key.ID, 10)
	}
	return filepath.Join(s.dir, key.Kind, n)
}

func (s *FileStore) Get(ctx context.Context, key *Key, dst Entity) error {
	if cache := dst.GetCache(); cache != nil {
		err := cache.Get(key, dst)
		if err == nil {
			return nil
		}
	}
	coder, ok := dst.(EntityCoder)
	if !ok {
		return ErrWrongType
	}
	b, err := os.ReadFile(s.fileName(key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoSuchEntity
	}
	if err != nil {
		return err
	}
	return coder.Decode(b)
}

func (s *FileStore) GetAll(ctx context.Context, query Query, dst interface{}) ([]*Key, error) {
	q, ok := query.(*FileQuery)
	if !ok {
		return nil, errors.New("expected *FileQuery type")
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, q.kind))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil // Nothing of this kind stored yet.
	}
	if err != nil {
		return nil, err
	}

	type match struct {
		key *Key
		ent Entity
	}
	var matches []match
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key := s.keyForFile(q.kind, entry.Name())
		ent, err := NewEntity(q.kind)
		if err != nil {
			return nil, err
		}
		err = s.Get(ctx, key, ent)
		if err != nil {
			return nil, fmt.Errorf("could not get entity for key %v: %w", key, err)
		}
		ok, err := q.matches(ent)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, match{key: key, ent: ent})
		}
	}

	if q.order != "" {
		sort.Slice(matches, func(i, j int) bool {
			return fieldLess(matches[i].ent, matches[j].ent, q.order)
		})
	}
	if q.offset > 0 {
		if q.offset > len(matches) {
			matches = nil
		} else {
			matches = matches[q.offset:]
		}
	}
	if q.limit > 0 && len(matches) > q.limit {
		matches = matches[:q.limit]
	}

	keys := make([]*Key, len(matches))
	for i, m := range matches {
		keys[i] = m.key
	}
	if q.keysOnly || dst == nil {
		return keys, nil
	}

	// dst must be a pointer to a slice of entity values.
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return nil, ErrWrongType
	}
	sv := dv.Elem()
	for _, m := range matches {
		sv.Set(reflect.Append(sv, reflect.ValueOf(m.ent).Elem()))
	}
	return keys, nil
}

// keyForFile reconstructs an entity key from its file name. All-digit
// names (with an optional leading minus) are ID keys.
func (s *FileStore) keyForFile(kind, name string) *Key {
	id, err := strconv.ParseInt(name, 10, 64)
	if err == nil {
		return &Key{Kind: kind, ID: id}
	}
	return &Key{Kind: kind, Name: name}
}

func (s *FileStore) Create(ctx context.Context, key *Key, src Entity) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, err := os.Stat(s.fileName(key))
	if err == nil {
		return ErrEntityExists
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	_, err = s.put(key, src)
	return err
}

func (s *FileStore) Put(ctx context.Context, key *Key, src Entity) (*Key, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.put(key, src)
}

// put writes an entity without locking. Callers must hold the mutex.
func (s *FileStore) put(key *Key, src Entity) (*Key, error) {
	coder, ok := src.(EntityCoder)
	if !ok {
		return nil, ErrWrongType
	}
	if key.Name == "" && key.ID == 0 {
		key.ID = time.Now().UnixNano()
	}
	f := s.fileName(key)
	err := os.MkdirAll(filepath.Dir(f), 0766)
	if err != nil {
		return nil, err
	}
	err = os.WriteFile(f, coder.Encode(), 0666)
	if err != nil {
		return nil, err
	}
	if cache := src.GetCache(); cache != nil {
		cache.Set(key, src)
	}
	return key, nil
}

func (s *FileStore) Update(ctx context.Context, key *Key, fn func(Entity), dst Entity) error {
	err := s.Get(ctx, key, dst)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	fn(dst)
	_, err = s.put(key, dst)
	return err
}

func (s *FileStore) Delete(ctx context.Context, key *Key) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	err := os.Remove(s.fileName(key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoSuchEntity
	}
	if err != nil {
		return err
	}
	if cache := GetCache(key.Kind); cache != nil {
		cache.Delete(key)
	}
	return nil
}

func (s *FileStore) DeleteMulti(ctx context.Context, keys []*Key) error {
	for _, k := range keys {
		err := s.Delete(ctx, k)
		if err != nil {
			return err
		}
	}
	return nil
}

// FileQuery implements Query for the FileStore. Only equality
// filtering is supported.
type FileQuery struct {
	kind     string
	keysOnly bool
	filters  []fileFilter
	order    string
	limit    int
	offset   int
}

type fileFilter struct {
	field string
	value interface{}
}

func (q *FileQuery) Filter(filterStr string, value interface{}) error {
	if value == nil {
		return nil
	}
	parts := strings.Fields(filterStr)
	if len(parts) != 2 {
		return fmt.Errorf("invalid filter %q", filterStr)
	}
	return q.FilterField(parts[0], parts[1], value)
}

func (q *FileQuery) FilterField(fieldName, operator string, value interface{}) error {
	if value == nil {
		return nil
	}
	if operator != "=" && operator != "==" {
		return ErrOperatorNotSupported
	}
	q.filters = append(q.filters, fileFilter{field: fieldName, value: value})
	return nil
}

func (q *FileQuery) Order(fieldName string) {
	q.order = fieldName
}

func (q *FileQuery) Limit(limit int) {
	q.limit = limit
}

func (q *FileQuery) Offset(offset int) {
	q.offset = offset
}

// matches reports whether the entity satisfies every filter.
func (q *FileQuery) matches(ent Entity) (bool, error) {
	for _, f := range q.filters {
		v := reflect.ValueOf(ent).Elem().FieldByName(f.field)
		if !v.IsValid() {
			return false, fmt.Errorf("no such field %s", f.field)
		}
		if fmt.Sprint(v.Interface()) != fmt.Sprint(f.value) {
			return false, nil
		}
	}
	return true, nil
}

// fieldLess orders two entities by the named field, numerically for
// numeric fields and lexicographically otherwise, matching the cloud
// datastore's ordering of those types.
func fieldLess(a, b Entity, field string) bool {
	av := reflect.ValueOf(a).Elem().FieldByName(field)
	bv := reflect.ValueOf(b).Elem().FieldByName(field)
	if !av.IsValid() || !bv.IsValid() {
		return false
	}
	switch av.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return av.Int() < bv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return av.Uint() < bv.Uint()
	case reflect.Float32, reflect.Float64:
		return av.Float() < bv.Float()
	}
	return fmt.Sprint(av.Interface()) < fmt.Sprint(bv.Interface())
}
