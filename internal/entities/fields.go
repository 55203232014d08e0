package entities

import (
	"fmt"
	"time"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

// fieldReader reads typed values from a remote document. The first error
// sticks; later reads return zero values.
type fieldReader struct {
	fields map[string]any
	err    error
}

func newFieldReader(fields map[string]any) *fieldReader {
	return &fieldReader{fields: fields}
}

func (r *fieldReader) fail(key, format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: field %s: %s", domain.ErrMalformedDocument, key, fmt.Sprintf(format, args...))
	}
}

// lookup returns the value for key, or nil when it is absent or null.
func (r *fieldReader) lookup(key string, required bool) any {
	if r.err != nil {
		return nil
	}
	v, ok := r.fields[key]
	if (!ok || v == nil) && required {
		r.fail(key, "missing")
	}
	return v
}

func (r *fieldReader) str(key string, required bool) string {
	v := r.lookup(key, required)
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, "want string, got %T", v)
	}
	return s
}

func (r *fieldReader) strPtr(key string) *string {
	if r.lookup(key, false) == nil {
		return nil
	}
	s := r.str(key, false)
	return &s
}

func (r *fieldReader) boolean(key string) bool {
	v := r.lookup(key, false)
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(key, "want bool, got %T", v)
	}
	return b
}

func (r *fieldReader) time(key string, required bool) time.Time {
	v := r.lookup(key, required)
	if v == nil {
		return time.Time{}
	}
	t, err := domain.ParseTime(v)
	if err != nil {
		r.fail(key, "%v", err)
	}
	return t
}

func (r *fieldReader) timePtr(key string) *time.Time {
	if r.lookup(key, false) == nil {
		return nil
	}
	t := r.time(key, false)
	return &t
}

func (r *fieldReader) intPtr(key string) *int {
	v := r.lookup(key, false)
	if v == nil {
		return nil
	}
	n, err := domain.ToInt64(v)
	if err != nil {
		r.fail(key, "%v", err)
		return nil
	}
	i := int(n)
	return &i
}

func (r *fieldReader) floatPtr(key string) *float64 {
	v := r.lookup(key, false)
	if v == nil {
		return nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int64:
		f = float64(n)
	case int:
		f = float64(n)
	default:
		r.fail(key, "want number, got %T", v)
		return nil
	}
	return &f
}

func (r *fieldReader) strings(key string) []string {
	v := r.lookup(key, false)
	switch list := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				r.fail(key, "want string list, got element %T", item)
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		r.fail(key, "want list, got %T", v)
		return nil
	}
}

// Writers for optional values. Absent values are written as null so a
// merge clears them remotely.

func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return domain.FormatTime(*t)
}

func optString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func optFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func stringList(list []string) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}

// Row timestamps are stored as Unix milliseconds.

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func toOptMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromOptMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}

func cloneStrings(list []string) []string {
	if list == nil {
		return nil
	}
	return append([]string(nil), list...)
}
