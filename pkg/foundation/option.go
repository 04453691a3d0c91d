package foundation

import (
	"encoding/json"
	"fmt"
)

// Option holds a value that may be absent. Lookups against build output
// return None for "not found" instead of an error.
type Option[T any] struct {
	value   T
	present bool
}

// Some wraps a present value.
func Some[T any](value T) Option[T] {
	return Option[T]{value: value, present: true}
}

// None returns an empty Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// IsSome reports whether a value is present.
func (o Option[T]) IsSome() bool { return o.present }

// IsNone reports whether the Option is empty.
func (o Option[T]) IsNone() bool { return !o.present }

// Get returns the value and whether it was present, comma-ok style.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.present
}

// Unwrap returns the value and panics on None.
func (o Option[T]) Unwrap() T {
	if !o.present {
		panic("foundation: Unwrap called on None")
	}
	return o.value
}

// UnwrapOr returns the value, or fallback when empty.
func (o Option[T]) UnwrapOr(fallback T) T {
	if o.present {
		return o.value
	}
	return fallback
}

// Filter keeps the value only when predicate holds.
func (o Option[T]) Filter(predicate func(T) bool) Option[T] {
	if o.present && predicate(o.value) {
		return o
	}
	return None[T]()
}

// MapOption transforms the contained value, propagating None.
func MapOption[T, U any](o Option[T], fn func(T) U) Option[U] {
	if !o.present {
		return None[U]()
	}
	return Some(fn(o.value))
}

// FlatMapOption chains lookups that themselves may be absent.
func FlatMapOption[T, U any](o Option[T], fn func(T) Option[U]) Option[U] {
	if !o.present {
		return None[U]()
	}
	return fn(o.value)
}

// FromComma builds an Option from a comma-ok pair.
func FromComma[T any](value T, ok bool) Option[T] {
	if !ok {
		return None[T]()
	}
	return Some(value)
}

// MarshalJSON encodes None as null and Some as the bare value.
func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o Option[T]) String() string {
	if o.present {
		return fmt.Sprintf("Some(%v)", o.value)
	}
	return "None"
}
