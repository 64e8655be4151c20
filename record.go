package recache

import (
	"reflect"

	"github.com/yourorg/recache/internal/util"
)

// Field names one primary-key component of a record and carries its scalar
// value. Fields are ordered; two records share an identity iff their type
// tags match and their field values match element-wise.
type Field struct {
	Name  string
	Value any
}

// Record is the shape a cached domain value must expose so the engine can
// derive its identity. TypeTag must be stable per record kind; PrimaryKey
// must return the same ordered fields for logically equal records.
type Record interface {
	TypeTag() string
	PrimaryKey() []Field
}

// InstanceSetKey returns the reverse-index set key for a record identity.
func InstanceSetKey(r Record) string {
	pk := r.PrimaryKey()
	vals := make([]string, len(pk))
	for i, f := range pk {
		vals[i] = util.FormatScalar(f.Value)
	}
	return util.InstanceSetKey(r.TypeTag(), vals)
}

// TypeSetKey returns the reverse-index set key for cached collections of a
// record type.
func TypeSetKey(typeTag string) string {
	return util.TypeSetKey(typeTag)
}

// SameIdentity reports whether two records name the same domain record.
// Scalar values are compared through their canonical string form, so e.g.
// int(5) and int64(5) projections match.
func SameIdentity(a, b Record) bool {
	if a.TypeTag() != b.TypeTag() {
		return false
	}
	ap, bp := a.PrimaryKey(), b.PrimaryKey()
	if len(ap) != len(bp) {
		return false
	}
	for i := range ap {
		if util.FormatScalar(ap[i].Value) != util.FormatScalar(bp[i].Value) {
			return false
		}
	}
	return true
}

// RecordsOf detects list-shaped values: a slice whose elements all implement
// Record. Detection is by runtime shape, not by key naming conventions.
// An empty slice reports ok with a nil result.
func RecordsOf(v any) ([]Record, bool) {
	if recs, ok := v.([]Record); ok {
		return recs, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	n := rv.Len()
	if n == 0 {
		return nil, true
	}
	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		r, ok := rv.Index(i).Interface().(Record)
		if !ok {
			return nil, false
		}
		out = append(out, r)
	}
	return out, true
}

// replaceElement returns a copy of list with the element at i replaced by
// rec, preserving the dynamic slice type of list. ok is false when rec is
// not assignable to the list's element type.
func replaceElement(list any, i int, rec Record) (any, bool) {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice || i < 0 || i >= rv.Len() {
		return nil, false
	}
	et := rv.Type().Elem()
	nv := reflect.ValueOf(rec)
	if !nv.Type().AssignableTo(et) {
		return nil, false
	}
	out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(out, rv)
	out.Index(i).Set(nv)
	return out.Interface(), true
}
