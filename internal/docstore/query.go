package docstore

import (
	"fmt"
	"sort"
	"time"
)

type Op string

const (
	OpEq            Op = "=="
	OpNe            Op = "!="
	OpLt            Op = "<"
	OpLte           Op = "<="
	OpGt            Op = ">"
	OpGte           Op = ">="
	OpIn            Op = "in"
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

type Order struct {
	Field string
	Desc  bool
}

// Query selects documents matching every filter. Documents are sorted by
// OrderBy, then by id. Limit <= 0 means no limit.
type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
}

func (q Query) Validate() error {
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		case OpIn:
			if _, err := inValues(f.Value); err != nil {
				return err
			}
		case OpArrayContains:
			if _, ok := f.Value.(string); !ok {
				return fmt.Errorf("%w: array-contains needs a string, got %T", ErrInvalidValue, f.Value)
			}
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidValue, f.Op)
		}
	}
	return nil
}

// Matches reports whether fields satisfy every filter.
func (q Query) Matches(fields Fields) bool {
	for _, f := range q.Filters {
		if !matchFilter(fields, f) {
			return false
		}
	}
	return true
}

// Run filters, sorts and limits docs in process. Adapters without a native
// query engine use it.
func (q Query) Run(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.Matches(d.Fields) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range q.OrderBy {
			c := compare(out[i].Fields[o.Field], out[j].Fields[o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matchFilter(fields Fields, f Filter) bool {
	got, present := fields[f.Field]
	want, _ := Normalize(f.Value)
	switch f.Op {
	case OpEq:
		return compare(got, want) == 0
	case OpNe:
		return present && compare(got, want) != 0
	case OpLt, OpLte, OpGt, OpGte:
		if !present || rank(got) != rank(want) {
			return false
		}
		c := compare(got, want)
		switch f.Op {
		case OpLt:
			return c < 0
		case OpLte:
			return c <= 0
		case OpGt:
			return c > 0
		default:
			return c >= 0
		}
	case OpIn:
		values, err := inValues(f.Value)
		if err != nil {
			return false
		}
		for _, v := range values {
			if compare(got, v) == 0 {
				return true
			}
		}
		return false
	case OpArrayContains:
		list, ok := got.([]string)
		if !ok {
			return false
		}
		s, _ := f.Value.(string)
		return contains(list, s)
	}
	return false
}

func inValues(v any) ([]any, error) {
	switch t := v.(type) {
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(t))
		for _, e := range t {
			n, err := Normalize(e)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: in needs a list, got %T", ErrInvalidValue, v)
	}
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64:
		return 2
	case string:
		return 3
	case time.Time:
		return 4
	case []string:
		return 5
	default:
		return 6
	}
}

// compare orders values of different types by type rank, and values of the
// same type naturally. Integers and floats compare numerically.
func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmpInt(int64(ra), int64(rb))
	}
	switch x := a.(type) {
	case nil:
		return 0
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmpInt(x, y)
		}
		return cmpFloat(float64(x), b.(float64))
	case float64:
		if y, ok := b.(int64); ok {
			return cmpFloat(x, float64(y))
		}
		return cmpFloat(x, b.(float64))
	case string:
		y := b.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case time.Time:
		return x.Compare(b.(time.Time))
	case []string:
		y := b.([]string)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := compare(x[i], y[i]); c != 0 {
				return c
			}
		}
		return cmpInt(int64(len(x)), int64(len(y)))
	}
	return 0
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
