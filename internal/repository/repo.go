package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/AndrivA89/family-graph/internal/docstore"
	"github.com/AndrivA89/family-graph/internal/domain"
)

// FamilyRepository maps trees, members, relations and events onto a
// docstore.Store. Multi-record changes go through a single Commit so readers
// never observe half-applied state.
type FamilyRepository struct {
	store      docstore.Store
	newID      func() string
	now        func() time.Time
	batchLimit int
}

type Option func(*FamilyRepository)

func WithIDGenerator(fn func() string) Option {
	return func(r *FamilyRepository) { r.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(r *FamilyRepository) { r.now = fn }
}

// WithBatchLimit caps chunked cascades below the store's own limit.
func WithBatchLimit(n int) Option {
	return func(r *FamilyRepository) { r.batchLimit = n }
}

func NewFamilyRepository(store docstore.Store, opts ...Option) *FamilyRepository {
	r := &FamilyRepository{
		store: store,
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// translate maps a store fault to the domain taxonomy, keeping the cause.
func translate(op, id string, err error, write bool) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	kind := domain.ErrReadFailed
	if write {
		kind = domain.ErrWriteFailed
	}
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		kind = domain.ErrNotFound
	case errors.Is(err, docstore.ErrPreconditionFailed):
		kind = domain.ErrVersionConflict
	case errors.Is(err, docstore.ErrInvalidValue):
		kind = domain.ErrMalformedInput
	}
	return &domain.Error{Op: op, Kind: kind, ID: id, Err: err}
}

func (r *FamilyRepository) limit() int {
	n := r.store.MaxBatchSize()
	if r.batchLimit > 0 && r.batchLimit < n {
		n = r.batchLimit
	}
	if n <= 0 {
		n = 1
	}
	return n
}

// commitChunked commits writes in order, split into store-sized batches.
// Each chunk is atomic; the sequence as a whole is not.
func (r *FamilyRepository) commitChunked(ctx context.Context, writes []docstore.Write) error {
	size := r.limit()
	for start := 0; start < len(writes); start += size {
		end := start + size
		if end > len(writes) {
			end = len(writes)
		}
		if err := r.store.Commit(ctx, writes[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *FamilyRepository) query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	return r.store.Query(ctx, collection, q)
}

// mergeDocs concatenates result sets, keeping the first copy of each id.
func mergeDocs(sets ...[]docstore.Document) []docstore.Document {
	seen := map[string]struct{}{}
	var out []docstore.Document
	for _, set := range sets {
		for _, d := range set {
			if _, ok := seen[d.ID]; ok {
				continue
			}
			seen[d.ID] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

func sortRelations(rels []domain.FamilyRelation) {
	sort.SliceStable(rels, func(i, j int) bool {
		if !rels[i].CreatedAt.Equal(rels[j].CreatedAt) {
			return rels[i].CreatedAt.Before(rels[j].CreatedAt)
		}
		return rels[i].ID < rels[j].ID
	})
}
