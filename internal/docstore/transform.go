package docstore

import (
	"fmt"
	"time"
)

// Increment adds By to a numeric field. A missing field counts as zero.
type Increment struct {
	By int64
}

// ArrayUnion appends each value not already present in a string list field.
type ArrayUnion struct {
	Values []string
}

// ArrayRemove drops every occurrence of the values from a string list field.
type ArrayRemove struct {
	Values []string
}

// ServerTimestamp is replaced by the store's clock at write time.
type ServerTimestamp struct{}

func IsTransform(v any) bool {
	switch v.(type) {
	case Increment, ArrayUnion, ArrayRemove, ServerTimestamp:
		return true
	}
	return false
}

// Apply merges patch into current and returns the resulting fields. current
// is not modified. Transforms are resolved against current, nil values remove
// the field and plain values are normalized.
func Apply(current, patch Fields, now time.Time) (Fields, error) {
	out := make(Fields, len(current)+len(patch))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range patch {
		switch t := v.(type) {
		case nil:
			delete(out, k)
		case Increment:
			n, err := incrementValue(out[k], t.By)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			out[k] = n
		case ArrayUnion:
			list, err := stringList(out[k])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			out[k] = union(list, t.Values)
		case ArrayRemove:
			list, err := stringList(out[k])
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			out[k] = remove(list, t.Values)
		case ServerTimestamp:
			out[k] = now.UTC()
		default:
			nv, err := Normalize(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			if nv == nil {
				delete(out, k)
				continue
			}
			out[k] = nv
		}
	}
	return out, nil
}

func incrementValue(current any, by int64) (any, error) {
	switch c := current.(type) {
	case nil:
		return by, nil
	case int64:
		return c + by, nil
	case float64:
		return c + float64(by), nil
	default:
		return nil, fmt.Errorf("%w: cannot increment %T", ErrInvalidValue, current)
	}
}

func stringList(current any) ([]string, error) {
	switch c := current.(type) {
	case nil:
		return nil, nil
	case []string:
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a string list", ErrInvalidValue, current)
	}
}

func union(list, values []string) []string {
	out := append([]string{}, list...)
	for _, v := range values {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func remove(list, values []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !contains(values, v) {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Normalize converts a plain field value to its canonical stored form.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, int64, float64, []string:
		return t, nil
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC(), nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: list element %T", ErrInvalidValue, e)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidValue, v)
	}
}

// CheckPreconditions reports ErrPreconditionFailed if any precondition does
// not hold on fields.
func CheckPreconditions(fields Fields, preconditions []Precondition) error {
	for _, p := range preconditions {
		want, err := Normalize(p.Equals)
		if err != nil {
			return err
		}
		if compare(fields[p.Field], want) != 0 {
			return fmt.Errorf("%w: %s", ErrPreconditionFailed, p.Field)
		}
	}
	return nil
}
