// Package shallow provides the cheap one-level equality used to decide
// whether derived values must be recomputed.
//
// Equal compares flat records only. A nested value that changed in place
// without changing its top-level reference is not detected.
package shallow

import "reflect"

// Equal reports whether a and b are identical, or are flat records whose
// fields are pairwise identical.
//
// Records are string-keyed maps and structs of the same type. A nil value and
// an empty map compare equal.
func Equal(a, b any) bool {
	if Identical(a, b) {
		return true
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if isEmptyRecord(va) && isEmptyRecord(vb) {
		return true
	}
	if !va.IsValid() || !vb.IsValid() {
		return false
	}

	switch {
	case isStringMap(va) && va.Type() == vb.Type():
		return mapsEqual(va, vb)
	case va.Kind() == reflect.Struct && va.Type() == vb.Type():
		return structsEqual(va, vb)
	}
	return false
}

// Identical reports identity for references and plain equality for values.
//
// Maps, pointers and channels compare by address. Slices compare by address
// and length. Funcs are identical only when both are nil, since Go cannot
// observe closure identity.
func Identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	return identicalValues(va, vb)
}

func identicalValues(va, vb reflect.Value) bool {
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return va.IsNil() && vb.IsNil()
	case reflect.Interface:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		ea, eb := va.Elem(), vb.Elem()
		if ea.Type() != eb.Type() {
			return false
		}
		return identicalValues(ea, eb)
	}
	if va.Type().Comparable() {
		return safeEqual(va, vb)
	}
	// Structs and arrays holding non-comparable fields.
	switch va.Kind() {
	case reflect.Struct:
		return structsEqual(va, vb)
	case reflect.Array:
		for i := 0; i < va.Len(); i++ {
			if !identicalValues(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true
	}
	return false
}

// safeEqual compares comparable values, treating a runtime panic (an
// interface field holding an uncomparable dynamic value) as inequality.
func safeEqual(va, vb reflect.Value) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return va.Equal(vb)
}

func mapsEqual(va, vb reflect.Value) bool {
	if va.Len() != vb.Len() {
		return false
	}
	iter := va.MapRange()
	for iter.Next() {
		other := vb.MapIndex(iter.Key())
		if !other.IsValid() {
			return false
		}
		if !identicalValues(iter.Value(), other) {
			return false
		}
	}
	return true
}

func structsEqual(va, vb reflect.Value) bool {
	for i := 0; i < va.NumField(); i++ {
		if !identicalValues(va.Field(i), vb.Field(i)) {
			return false
		}
	}
	return true
}

func isStringMap(v reflect.Value) bool {
	return v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
}

func isEmptyRecord(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	return isStringMap(v) && v.Len() == 0
}
