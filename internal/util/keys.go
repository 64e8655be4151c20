package util

import (
	"fmt"
	"strings"
)

// SetPrefix namespaces every reverse-index set key. Caller cache keys must
// not collide with it.
const SetPrefix = "__set:"

// TypeSetKey returns the set key holding ids of cached collections of a type.
func TypeSetKey(typeTag string) string {
	return SetPrefix + typeTag
}

// InstanceSetKey returns the set key for a record identity: the type tag
// followed by each primary-key scalar, colon-joined.
func InstanceSetKey(typeTag string, pk []string) string {
	if len(pk) == 0 {
		return SetPrefix + typeTag
	}
	return SetPrefix + typeTag + ":" + strings.Join(pk, ":")
}

// FormatScalar renders a primary-key scalar in its canonical string form.
// Numeric widths collapse (int(5) and int64(5) both render "5"), which is
// what identity comparison and set-key construction want.
func FormatScalar(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
