// Package docstore defines the document store the family graph engine is
// built on, together with helpers shared by in-process adapters.
//
// A store holds named collections of flat documents. Field values are one of
// string, bool, int64, float64, time.Time, []string or nil; other integer and
// float widths are normalized on write. Transform values (Increment,
// ArrayUnion, ArrayRemove, ServerTimestamp) may appear in Create and Update
// fields and are resolved by the store against the stored document.
package docstore

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("docstore: document not found")
	ErrAlreadyExists      = errors.New("docstore: document already exists")
	ErrPreconditionFailed = errors.New("docstore: precondition failed")
	ErrBatchTooLarge      = errors.New("docstore: batch too large")
	ErrInvalidValue       = errors.New("docstore: invalid field value")
)

// Fields is a flat set of document fields.
type Fields map[string]any

// Document is a stored record.
type Document struct {
	ID     string
	Fields Fields
}

// Precondition must hold on the stored document for an Update to apply.
type Precondition struct {
	Field  string
	Equals any
}

// Store is the port the engine consumes. Implementations must make Commit
// all-or-nothing: either every write applies or none does.
type Store interface {
	// Create writes a new document. An empty id asks the store to allocate
	// one. Creating an existing id fails with ErrAlreadyExists.
	Create(ctx context.Context, collection, id string, fields Fields) (string, error)
	// Get returns ErrNotFound when the id has no document.
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// Update merges fields into an existing document. A nil value removes
	// the field. Missing documents fail with ErrNotFound and unmet
	// preconditions with ErrPreconditionFailed.
	Update(ctx context.Context, collection, id string, fields Fields, preconditions ...Precondition) error
	// Delete is idempotent.
	Delete(ctx context.Context, collection, id string) error
	Commit(ctx context.Context, writes []Write) error
	// MaxBatchSize is the largest number of writes Commit accepts.
	MaxBatchSize() int
	Close() error
}

type WriteKind int

const (
	WriteCreate WriteKind = iota
	WriteUpdate
	WriteDelete
)

func (k WriteKind) String() string {
	switch k {
	case WriteCreate:
		return "create"
	case WriteUpdate:
		return "update"
	case WriteDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Write is one element of a Commit batch. Create writes need an explicit id.
type Write struct {
	Kind          WriteKind
	Collection    string
	ID            string
	Fields        Fields
	Preconditions []Precondition
}

func CreateWrite(collection, id string, fields Fields) Write {
	return Write{Kind: WriteCreate, Collection: collection, ID: id, Fields: fields}
}

func UpdateWrite(collection, id string, fields Fields, preconditions ...Precondition) Write {
	return Write{Kind: WriteUpdate, Collection: collection, ID: id, Fields: fields, Preconditions: preconditions}
}

func DeleteWrite(collection, id string) Write {
	return Write{Kind: WriteDelete, Collection: collection, ID: id}
}
