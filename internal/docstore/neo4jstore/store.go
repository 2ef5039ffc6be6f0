// Package neo4jstore implements docstore.Store on Neo4j. Each document is a
// node labelled with its collection name and keyed by an id property. Field
// transforms are translated to Cypher so they resolve inside the transaction.
//
// The driver is owned by the caller; Close does not close it.
package neo4jstore

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AndrivA89/family-graph/internal/docstore"
)

const DefaultMaxBatchSize = 500

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Store struct {
	driver   neo4j.DriverWithContext
	database string
	maxBatch int
	logger   *slog.Logger
}

var _ docstore.Store = (*Store)(nil)

type Option func(*Store)

func WithDatabase(name string) Option {
	return func(s *Store) { s.database = name }
}

func WithMaxBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func New(driver neo4j.DriverWithContext, opts ...Option) *Store {
	s := &Store{
		driver:   driver,
		maxBatch: DefaultMaxBatchSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) MaxBatchSize() int {
	return s.maxBatch
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Store) closeSession(ctx context.Context, session neo4j.SessionWithContext) {
	if err := session.Close(ctx); err != nil {
		s.logger.Warn("close neo4j session", "error", err)
	}
}

// EnsureIndexes creates an id index per collection label.
func (s *Store) EnsureIndexes(ctx context.Context, collections ...string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer s.closeSession(ctx, session)

	for _, c := range collections {
		if !identifier.MatchString(c) {
			return fmt.Errorf("%w: collection %q", docstore.ErrInvalidValue, c)
		}
		query := fmt.Sprintf("CREATE INDEX %s_id IF NOT EXISTS FOR (n:`%s`) ON (n.id)", c, c)
		if _, err := session.Run(ctx, query, nil); err != nil {
			return fmt.Errorf("create index for %s: %w", c, err)
		}
	}
	return nil
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
	if !identifier.MatchString(collection) {
		return docstore.Document{}, fmt.Errorf("%w: collection %q", docstore.ErrInvalidValue, collection)
	}
	session := s.session(ctx, neo4j.AccessModeRead)
	defer s.closeSession(ctx, session)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := fmt.Sprintf("MATCH (n:`%s` {id: $id}) RETURN properties(n) AS props", collection)
		res, err := tx.Run(ctx, query, map[string]interface{}{"id": id})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, docstore.ErrNotFound
		}
		return toDocument(records[0])
	})
	if err != nil {
		return docstore.Document{}, err
	}
	return result.(docstore.Document), nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	cypher, params, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer s.closeSession(ctx, session)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var docs []docstore.Document
		for res.Next(ctx) {
			doc, err := toDocument(res.Record())
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		if err = res.Err(); err != nil {
			return nil, err
		}
		return docs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]docstore.Document), nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields, preconditions ...docstore.Precondition) error {
	return s.Commit(ctx, []docstore.Write{docstore.UpdateWrite(collection, id, fields, preconditions...)})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.Commit(ctx, []docstore.Write{docstore.DeleteWrite(collection, id)})
}

// Commit runs every write in one managed write transaction. An error from
// any write rolls the transaction back.
func (s *Store) Commit(ctx context.Context, writes []docstore.Write) error {
	if len(writes) > s.maxBatch {
		return fmt.Errorf("%w: %d writes, limit %d", docstore.ErrBatchTooLarge, len(writes), s.maxBatch)
	}
	for _, w := range writes {
		if w.ID == "" || !identifier.MatchString(w.Collection) {
			return fmt.Errorf("%w: bad document address %q/%q", docstore.ErrInvalidValue, w.Collection, w.ID)
		}
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer s.closeSession(ctx, session)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for i, w := range writes {
			if err := applyWrite(ctx, tx, w); err != nil {
				return nil, fmt.Errorf("write %d (%s %s/%s): %w", i, w.Kind, w.Collection, w.ID, err)
			}
		}
		return nil, nil
	})
	return err
}

func applyWrite(ctx context.Context, tx neo4j.ManagedTransaction, w docstore.Write) error {
	params := map[string]interface{}{"id": w.ID}

	switch w.Kind {
	case docstore.WriteCreate:
		query := fmt.Sprintf("MATCH (n:`%s` {id: $id}) RETURN count(n) AS c", w.Collection)
		count, err := single(ctx, tx, query, params, "c")
		if err != nil {
			return err
		}
		if count.(int64) > 0 {
			return docstore.ErrAlreadyExists
		}
		query = fmt.Sprintf("CREATE (n:`%s` {id: $id})", w.Collection)
		if _, err := tx.Run(ctx, query, params); err != nil {
			return err
		}
		return setFields(ctx, tx, w)

	case docstore.WriteUpdate:
		// The no-op SET takes the node's write lock so the precondition
		// check and the update see the same version.
		query := fmt.Sprintf("MATCH (n:`%s` {id: $id}) SET n.id = n.id RETURN properties(n) AS props", w.Collection)
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return docstore.ErrNotFound
		}
		doc, err := toDocument(records[0])
		if err != nil {
			return err
		}
		if err := docstore.CheckPreconditions(doc.Fields, w.Preconditions); err != nil {
			return err
		}
		return setFields(ctx, tx, w)

	case docstore.WriteDelete:
		query := fmt.Sprintf("MATCH (n:`%s` {id: $id}) DETACH DELETE n", w.Collection)
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return err
		}
		_, err = res.Consume(ctx)
		return err
	}
	return fmt.Errorf("%w: unknown write kind %d", docstore.ErrInvalidValue, w.Kind)
}

// setFields translates plain values, nils and transforms into one SET/REMOVE
// statement against the node addressed by w.
func setFields(ctx context.Context, tx neo4j.ManagedTransaction, w docstore.Write) error {
	props := map[string]interface{}{}
	params := map[string]interface{}{"id": w.ID}
	var sets, removes []string

	i := 0
	for field, value := range w.Fields {
		if field == "id" || !identifier.MatchString(field) {
			return fmt.Errorf("%w: field %q", docstore.ErrInvalidValue, field)
		}
		p := fmt.Sprintf("t%d", i)
		i++
		ref := fmt.Sprintf("n.`%s`", field)

		switch t := value.(type) {
		case docstore.Increment:
			params[p] = t.By
			sets = append(sets, fmt.Sprintf("%s = coalesce(%s, 0) + $%s", ref, ref, p))
		case docstore.ArrayUnion:
			params[p] = dedupe(t.Values)
			sets = append(sets, fmt.Sprintf("%s = coalesce(%s, []) + [x IN $%s WHERE NOT x IN coalesce(%s, [])]", ref, ref, p, ref))
		case docstore.ArrayRemove:
			params[p] = t.Values
			sets = append(sets, fmt.Sprintf("%s = [x IN coalesce(%s, []) WHERE NOT x IN $%s]", ref, ref, p))
		case docstore.ServerTimestamp:
			sets = append(sets, fmt.Sprintf("%s = datetime()", ref))
		default:
			nv, err := docstore.Normalize(value)
			if err != nil {
				return fmt.Errorf("field %s: %w", field, err)
			}
			if nv == nil {
				removes = append(removes, ref)
				continue
			}
			props[field] = nv
		}
	}
	params["props"] = props

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (n:`%s` {id: $id}) SET n += $props", w.Collection)
	for _, s := range sets {
		b.WriteString(", ")
		b.WriteString(s)
	}
	if len(removes) > 0 {
		b.WriteString(" REMOVE ")
		b.WriteString(strings.Join(removes, ", "))
	}

	res, err := tx.Run(ctx, b.String(), params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func buildQuery(collection string, q docstore.Query) (string, map[string]interface{}, error) {
	if !identifier.MatchString(collection) {
		return "", nil, fmt.Errorf("%w: collection %q", docstore.ErrInvalidValue, collection)
	}
	params := map[string]interface{}{}
	var where []string
	for i, f := range q.Filters {
		if !identifier.MatchString(f.Field) {
			return "", nil, fmt.Errorf("%w: field %q", docstore.ErrInvalidValue, f.Field)
		}
		p := fmt.Sprintf("p%d", i)
		ref := fmt.Sprintf("n.`%s`", f.Field)
		value, err := docstore.Normalize(f.Value)
		if err != nil {
			return "", nil, err
		}
		params[p] = value

		switch f.Op {
		case docstore.OpEq:
			if value == nil {
				where = append(where, ref+" IS NULL")
				delete(params, p)
				continue
			}
			where = append(where, fmt.Sprintf("%s = $%s", ref, p))
		case docstore.OpNe:
			where = append(where, fmt.Sprintf("%s <> $%s", ref, p))
		case docstore.OpLt, docstore.OpLte, docstore.OpGt, docstore.OpGte:
			where = append(where, fmt.Sprintf("%s %s $%s", ref, f.Op, p))
		case docstore.OpIn:
			where = append(where, fmt.Sprintf("%s IN $%s", ref, p))
		case docstore.OpArrayContains:
			where = append(where, fmt.Sprintf("$%s IN coalesce(%s, [])", p, ref))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MATCH (n:`%s`)", collection)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" RETURN properties(n) AS props ORDER BY ")
	for _, o := range q.OrderBy {
		if !identifier.MatchString(o.Field) {
			return "", nil, fmt.Errorf("%w: order field %q", docstore.ErrInvalidValue, o.Field)
		}
		fmt.Fprintf(&b, "n.`%s`", o.Field)
		if o.Desc {
			b.WriteString(" DESC")
		}
		b.WriteString(", ")
	}
	b.WriteString("n.id")
	if q.Limit > 0 {
		b.WriteString(" LIMIT $limit")
		params["limit"] = int64(q.Limit)
	}
	return b.String(), params, nil
}

func single(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]interface{}, key string) (interface{}, error) {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	record, err := res.Single(ctx)
	if err != nil {
		return nil, err
	}
	v, _ := record.Get(key)
	return v, nil
}

func toDocument(record *neo4j.Record) (docstore.Document, error) {
	raw, ok := record.Get("props")
	if !ok {
		return docstore.Document{}, fmt.Errorf("record has no props column")
	}
	props, ok := raw.(map[string]interface{})
	if !ok {
		return docstore.Document{}, fmt.Errorf("unexpected type %T for props", raw)
	}
	doc := docstore.Document{Fields: docstore.Fields{}}
	for k, v := range props {
		if k == "id" {
			doc.ID, _ = v.(string)
			continue
		}
		nv, err := docstore.Normalize(v)
		if err != nil {
			return docstore.Document{}, fmt.Errorf("property %s: %w", k, err)
		}
		doc.Fields[k] = nv
	}
	return doc, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
