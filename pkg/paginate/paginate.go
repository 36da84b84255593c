// Package paginate merges offset/limit pages into sparse client-side lists.
package paginate

import (
	"errors"
	"fmt"
)

// ErrMissingPaginate is returned when a field wired through the cache is fetched without
// pagination arguments.
var ErrMissingPaginate = errors.New("missing paginate argument")

// ConfigError names the field that was fetched without pagination arguments.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("paginate: field %q: %v", e.Field, ErrMissingPaginate)
}

func (e *ConfigError) Unwrap() error {
	return ErrMissingPaginate
}

// Paginate holds the offset/limit pair attached to a list field.
type Paginate struct {
	Limit  *int `json:"limit,omitempty"`
	Offset *int `json:"offset,omitempty"`
}

// Args are the field arguments relevant to pagination.
type Args struct {
	Paginate *Paginate `json:"paginate,omitempty"`
}

// Page builds Args for the given offset and limit.
func Page(offset, limit int) Args {
	return Args{Paginate: &Paginate{Offset: &offset, Limit: &limit}}
}

// Offset returns the requested offset, defaulting to 0.
func (a Args) Offset() int {
	if a.Paginate == nil || a.Paginate.Offset == nil {
		return 0
	}
	return *a.Paginate.Offset
}

// Limit returns the requested limit and whether one was given.
func (a Args) Limit() (int, bool) {
	if a.Paginate == nil || a.Paginate.Limit == nil {
		return 0, false
	}
	return *a.Paginate.Limit, true
}

// Slot is one position of a List. Positions that no page has written yet are holes.
type Slot[T any] struct {
	Value  T
	Loaded bool
}

// List is a sparse list indexed by absolute offset.
type List[T any] []Slot[T]

// FromSlice returns a fully loaded list holding vs.
func FromSlice[T any](vs []T) List[T] {
	l := make(List[T], len(vs))
	for i, v := range vs {
		l[i] = Slot[T]{Value: v, Loaded: true}
	}
	return l
}

// Len returns the length of the list, holes included.
func (l List[T]) Len() int {
	return len(l)
}

// At returns the value at i and whether it has been loaded.
func (l List[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(l) || !l[i].Loaded {
		return zero, false
	}
	return l[i].Value, true
}

// Items returns the loaded values in offset order, skipping holes.
func (l List[T]) Items() []T {
	out := make([]T, 0, len(l))
	for _, s := range l {
		if s.Loaded {
			out = append(out, s.Value)
		}
	}
	return out
}

// Prefix returns the values before the first hole.
func (l List[T]) Prefix() []T {
	out := make([]T, 0, len(l))
	for _, s := range l {
		if !s.Loaded {
			break
		}
		out = append(out, s.Value)
	}
	return out
}

// Holes returns the offsets that have not been loaded yet.
func (l List[T]) Holes() []int {
	var hs []int
	for i, s := range l {
		if !s.Loaded {
			hs = append(hs, i)
		}
	}
	return hs
}

// Merge writes incoming into a copy of existing starting at the requested offset.
// existing is never modified. Each page writes only its own absolute positions, so
// pages may be merged in any order and re-fetching a page replaces it in place.
func Merge[T any](existing List[T], incoming []T, args Args, field string) (List[T], error) {
	if args.Paginate == nil {
		return nil, &ConfigError{Field: field}
	}

	offset := args.Offset()
	if offset < 0 {
		return nil, fmt.Errorf("paginate: field %q: negative offset %d", field, offset)
	}

	size := len(existing)
	if end := offset + len(incoming); end > size {
		size = end
	}

	merged := make(List[T], size)
	copy(merged, existing)
	for i, v := range incoming {
		merged[offset+i] = Slot[T]{Value: v, Loaded: true}
	}
	return merged, nil
}
