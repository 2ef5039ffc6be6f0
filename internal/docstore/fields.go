package docstore

import "time"

// Typed accessors tolerate the representations adapters hand back (int vs
// int64, []any vs []string) and return the zero value for missing fields.

func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

func (f Fields) Int64(key string) int64 {
	switch v := f[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func (f Fields) Int(key string) int {
	return int(f.Int64(key))
}

func (f Fields) Time(key string) time.Time {
	t, _ := f.TimePtr(key)
	if t == nil {
		return time.Time{}
	}
	return *t
}

// TimePtr returns nil, false when the field is missing or not a time.
func (f Fields) TimePtr(key string) (*time.Time, bool) {
	switch v := f[key].(type) {
	case time.Time:
		t := v.UTC()
		return &t, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, false
		}
		return &t, true
	}
	return nil, false
}

func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
