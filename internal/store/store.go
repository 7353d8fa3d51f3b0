// Package store persists JSON documents in named collections, the
// way the frontend's original document database exposed them: keyed
// reads and writes, merge updates, and atomic array mutations on
// list-valued fields.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a document id does not exist in the
// requested collection.
var ErrNotFound = errors.New("store: document not found")

// Document is one stored record. CreatedAt is assigned by the store
// on first write, never by the caller.
type Document struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Decode unmarshals the document body into v.
func (d *Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Fields returns the document body as a generic map.
func (d *Document) Fields() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(d.Data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// DocStore is the document-database collaborator. Backends are
// driver-selected from config: sqlite for single-node deployments,
// postgres when the backend shares a database with other services.
type DocStore interface {
	// Get fetches one document, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// List returns every document in a collection.
	List(ctx context.Context, collection string) ([]Document, error)
	// Add stores value under a fresh server-assigned id.
	Add(ctx context.Context, collection string, value any) (string, error)
	// Set stores value under id, replacing any existing body but
	// preserving the original creation time.
	Set(ctx context.Context, collection, id string, value any) error
	// Update merges fields into an existing document's body, or
	// ErrNotFound.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document, or ErrNotFound.
	Delete(ctx context.Context, collection, id string) error

	// ArrayUnion appends elems to the named list field, skipping
	// values already present. A missing field becomes a new list.
	ArrayUnion(ctx context.Context, collection, id, field string, elems ...any) error
	// ArrayRemove deletes every occurrence of elems from the named
	// list field.
	ArrayRemove(ctx context.Context, collection, id, field string, elems ...any) error

	// Migrate creates the backing schema.
	Migrate(ctx context.Context) error
	Close() error
}

// mergeFields overlays fields onto an existing JSON body. Shared by
// both backends so merge semantics cannot drift between drivers.
func mergeFields(data json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	for k, v := range fields {
		body[k] = v
	}
	return json.Marshal(body)
}

// applyArrayMutation rewrites the named list field, either unioning
// or removing elems. Elements compare by their JSON encoding.
func applyArrayMutation(data json.RawMessage, field string, elems []any, remove bool) (json.RawMessage, error) {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}

	var current []any
	if raw, ok := body[field]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, errors.New("store: field is not a list: " + field)
		}
		current = list
	}

	keys := make(map[string]bool, len(elems))
	for _, e := range elems {
		enc, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		keys[string(enc)] = true
	}

	if remove {
		kept := make([]any, 0, len(current))
		for _, v := range current {
			enc, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			if !keys[string(enc)] {
				kept = append(kept, v)
			}
		}
		body[field] = kept
	} else {
		present := make(map[string]bool, len(current))
		for _, v := range current {
			enc, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			present[string(enc)] = true
		}
		for _, e := range elems {
			enc, _ := json.Marshal(e)
			if !present[string(enc)] {
				current = append(current, e)
				present[string(enc)] = true
			}
		}
		body[field] = current
	}

	return json.Marshal(body)
}
