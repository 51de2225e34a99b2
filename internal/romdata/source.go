package romdata

import "fmt"

// Source resolves an id to a value and reports whether it had one.
type Source[T any] func(id int) (T, bool)

// FirstOf returns a Source that asks each source in order and answers with
// the first hit.
func FirstOf[T any](sources ...Source[T]) Source[T] {
	return func(id int) (T, bool) {
		for _, s := range sources {
			if s == nil {
				continue
			}
			if v, ok := s(id); ok {
				return v, true
			}
		}
		var zero T
		return zero, false
	}
}

// Get returns the resolved value or the zero value.
func (s Source[T]) Get(id int) T {
	v, _ := s(id)
	return v
}

// fromNames serves non-empty entries of a name table. A nil table never hits.
func fromNames(names []string) Source[string] {
	return func(id int) (string, bool) {
		if id < 0 || id >= len(names) || names[id] == "" {
			return "", false
		}
		return names[id], true
	}
}

// synthesized always hits with a formatted placeholder.
func synthesized(format string) Source[string] {
	return func(id int) (string, bool) {
		return fmt.Sprintf(format, id), true
	}
}
