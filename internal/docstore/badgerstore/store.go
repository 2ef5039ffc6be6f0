// Package badgerstore implements docstore.Store on an embedded BadgerDB.
//
// Documents are stored under "doc/<collection>/<id>" as gob-encoded field
// maps. Every mutation runs inside a single Badger transaction, so Commit is
// all-or-nothing. Queries scan the collection prefix and are evaluated in
// process, which is fine at family-tree scale.
package badgerstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AndrivA89/family-graph/internal/docstore"
)

func init() {
	gob.Register(time.Time{})
}

const (
	DefaultMaxBatchSize    = 500
	DefaultConflictRetries = 50
)

type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// MaxBatchSize caps the writes accepted by Commit. Zero means DefaultMaxBatchSize.
	MaxBatchSize int
	// ConflictRetries bounds how often Commit replays a transaction that lost
	// a write conflict. Zero means DefaultConflictRetries; negative disables
	// retrying.
	ConflictRetries int
	// Logger receives Badger's internal log lines. Nil silences them.
	Logger *slog.Logger
}

func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true, MaxBatchSize: DefaultMaxBatchSize}
}

func InMemoryConfig() Config {
	return Config{InMemory: true, MaxBatchSize: DefaultMaxBatchSize}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

type Store struct {
	db       *badger.DB
	maxBatch int
	retries  int
	now      func() time.Time
}

var _ docstore.Store = (*Store)(nil)

func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badgerstore: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	retries := cfg.ConflictRetries
	switch {
	case retries == 0:
		retries = DefaultConflictRetries
	case retries < 0:
		retries = 0
	}
	return &Store{db: db, maxBatch: maxBatch, retries: retries, now: time.Now}, nil
}

func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) MaxBatchSize() int {
	return s.maxBatch
}

func (s *Store) Create(ctx context.Context, collection, id string, fields docstore.Fields) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if err := s.Commit(ctx, []docstore.Write{docstore.CreateWrite(collection, id, fields)}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	var doc docstore.Document
	err := s.db.View(func(txn *badger.Txn) error {
		fields, err := load(txn, collection, id)
		if err != nil {
			return err
		}
		doc = docstore.Document{ID: id, Fields: fields}
		return nil
	})
	return doc, err
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var docs []docstore.Document
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := collectionPrefix(collection)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			var fields docstore.Fields
			if err := item.Value(func(val []byte) error {
				var err error
				fields, err = decode(val)
				return err
			}); err != nil {
				return fmt.Errorf("decode %s/%s: %w", collection, id, err)
			}
			docs = append(docs, docstore.Document{ID: id, Fields: fields})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q.Run(docs), nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields, preconditions ...docstore.Precondition) error {
	return s.Commit(ctx, []docstore.Write{docstore.UpdateWrite(collection, id, fields, preconditions...)})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.Commit(ctx, []docstore.Write{docstore.DeleteWrite(collection, id)})
}

// Commit applies writes in one Badger transaction. Any failing write discards
// the whole transaction. Badger transactions are optimistic: when another
// commit touched the same keys first the transaction is replayed, with
// preconditions evaluated again against the fresh state, up to
// Config.ConflictRetries times.
func (s *Store) Commit(ctx context.Context, writes []docstore.Write) error {
	if len(writes) > s.maxBatch {
		return fmt.Errorf("%w: %d writes, limit %d", docstore.ErrBatchTooLarge, len(writes), s.maxBatch)
	}
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		now := s.now()
		err := s.db.Update(func(txn *badger.Txn) error {
			for i, w := range writes {
				if err := apply(txn, w, now); err != nil {
					return fmt.Errorf("write %d (%s %s/%s): %w", i, w.Kind, w.Collection, w.ID, err)
				}
			}
			return nil
		})
		switch {
		case errors.Is(err, badger.ErrConflict) && attempt < s.retries:
			if err := sleepCtx(ctx, conflictBackoff(attempt)); err != nil {
				return err
			}
			continue
		case errors.Is(err, badger.ErrTxnTooBig):
			return fmt.Errorf("%w: %v", docstore.ErrBatchTooLarge, err)
		}
		return err
	}
}

// conflictBackoff grows linearly up to 20ms with up to 50% jitter so that
// contending writers spread out.
func conflictBackoff(attempt int) time.Duration {
	d := time.Duration(attempt+1) * time.Millisecond
	if d > 20*time.Millisecond {
		d = 20 * time.Millisecond
	}
	return d + rand.N(d/2+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func apply(txn *badger.Txn, w docstore.Write, now time.Time) error {
	if w.ID == "" || w.Collection == "" || strings.Contains(w.Collection, "/") {
		return fmt.Errorf("%w: bad document address", docstore.ErrInvalidValue)
	}
	key := documentKey(w.Collection, w.ID)

	switch w.Kind {
	case docstore.WriteCreate:
		_, err := txn.Get(key)
		if err == nil {
			return docstore.ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		fields, err := docstore.Apply(nil, w.Fields, now)
		if err != nil {
			return err
		}
		return store(txn, key, fields)

	case docstore.WriteUpdate:
		current, err := load(txn, w.Collection, w.ID)
		if err != nil {
			return err
		}
		if err := docstore.CheckPreconditions(current, w.Preconditions); err != nil {
			return err
		}
		fields, err := docstore.Apply(current, w.Fields, now)
		if err != nil {
			return err
		}
		return store(txn, key, fields)

	case docstore.WriteDelete:
		return txn.Delete(key)
	}
	return fmt.Errorf("%w: unknown write kind %d", docstore.ErrInvalidValue, w.Kind)
}

func load(txn *badger.Txn, collection, id string) (docstore.Fields, error) {
	item, err := txn.Get(documentKey(collection, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var fields docstore.Fields
	err = item.Value(func(val []byte) error {
		fields, err = decode(val)
		return err
	})
	return fields, err
}

func store(txn *badger.Txn, key []byte, fields docstore.Fields) error {
	val, err := encode(fields)
	if err != nil {
		return err
	}
	return txn.Set(key, val)
}

func collectionPrefix(collection string) []byte {
	return []byte("doc/" + collection + "/")
}

func documentKey(collection, id string) []byte {
	return append(collectionPrefix(collection), id...)
}

func encode(fields docstore.Fields) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(map[string]any(fields)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(val []byte) (docstore.Fields, error) {
	var m map[string]any
	if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return docstore.Fields(m), nil
}
