package enum

import (
	"fmt"
	"reflect"
)

// registry maps each enum type to its known values by string representation.
// Registration happens in package-level variable initializations, before any
// lookup can run, so no locking is needed.
var registry = map[reflect.Type]any{}

// New registers a value under its own type and returns it, so enum
// declarations read as plain variable initializations.
func New[T comparable](value T) T {
	t := reflect.TypeOf(value)
	values, ok := registry[t].(map[string]T)
	if !ok {
		values = map[string]T{}
		registry[t] = values
	}

	values[reflect.ValueOf(value).String()] = value
	return value
}

// ToEnum resolves a string back to a registered value of T.
func ToEnum[T comparable](s string) (T, error) {
	var zero T
	values, ok := registry[reflect.TypeOf(zero)].(map[string]T)
	if !ok {
		return zero, fmt.Errorf("not found enum type %T", zero)
	}

	value, ok := values[s]
	if !ok {
		return zero, fmt.Errorf("not found value %s in enum %T", s, zero)
	}

	return value, nil
}
