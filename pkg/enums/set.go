package enums

import (
	"fmt"
	"slices"
	"strings"
)

// set lists the labels of one Postgres enum type in declaration order.
type set[T ~string] []T

func (s set[T]) contains(v T) bool {
	return slices.Contains(s, v)
}

func (s set[T]) parse(kind, raw string) (T, error) {
	if v := T(strings.TrimSpace(raw)); s.contains(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
