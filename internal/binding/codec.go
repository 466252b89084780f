// Package binding translates blackboard values to and from foreign
// representations: goja JavaScript values and JSON documents.
//
// Supported values are bool, string, every integer and float kind (including
// named types such as time.Duration), time.Time, and the generic composites
// []any and map[string]any. Composite elements follow JSON rules: nil, bool,
// string, float64 or nested composites. Anything else, and any value a codec
// cannot represent exactly, is reported with ErrConversion.
package binding

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"
	"unicode/utf8"

	"github.com/joeycumines/bteng/internal/bt"
)

// ErrConversion reports a value that cannot be translated losslessly.
var ErrConversion = errors.New("binding: conversion failed")

// Codec converts blackboard values to a foreign representation F and back.
// Import restores the Go type typ; a nil typ or an empty interface type
// yields a generic value.
type Codec[F any] interface {
	Export(v any) (F, error)
	Import(f F, typ reflect.Type) (any, error)
}

var (
	timeType = reflect.TypeFor[time.Time]()
	anyType  = reflect.TypeFor[any]()
	sliceTyp = reflect.TypeFor[[]any]()
	mapTyp   = reflect.TypeFor[map[string]any]()
)

// maxSafeInteger is the largest integer a float64 holds exactly.
const maxSafeInteger = 1<<53 - 1

func conversionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConversion, fmt.Sprintf(format, args...))
}

// generic reports whether typ denotes an untyped destination.
func generic(typ reflect.Type) bool {
	return typ == nil || typ == anyType
}

// checkGeneric validates a composite element tree.
func checkGeneric(v any) error {
	switch x := v.(type) {
	case nil, bool, float64:
		return nil
	case string:
		if !utf8.ValidString(x) {
			return conversionError("invalid UTF-8 string")
		}
		return nil
	case []any:
		for i, e := range x {
			if err := checkGeneric(e); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	case map[string]any:
		for k, e := range x {
			if !utf8.ValidString(k) {
				return conversionError("invalid UTF-8 key")
			}
			if err := checkGeneric(e); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		return nil
	default:
		return conversionError("unsupported composite element %T", v)
	}
}

// assignNumber stores a decoded number into a new value of an integer or
// float type, reporting precision loss and overflow.
func assignNumber(f float64, typ reflect.Type) (any, error) {
	out := reflect.New(typ).Elem()
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f != math.Trunc(f) || math.Abs(f) > maxSafeInteger {
			return nil, conversionError("%v is not an exact integer", f)
		}
		if out.OverflowInt(int64(f)) {
			return nil, conversionError("%v overflows %v", f, typ)
		}
		out.SetInt(int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if f != math.Trunc(f) || f < 0 || f > maxSafeInteger {
			return nil, conversionError("%v is not an exact unsigned integer", f)
		}
		if out.OverflowUint(uint64(f)) {
			return nil, conversionError("%v overflows %v", f, typ)
		}
		out.SetUint(uint64(f))
	case reflect.Float32:
		if !math.IsNaN(f) && !math.IsInf(f, 0) && float64(float32(f)) != f {
			return nil, conversionError("%v does not fit float32", f)
		}
		out.SetFloat(f)
	case reflect.Float64:
		out.SetFloat(f)
	default:
		return nil, conversionError("number cannot be stored as %v", typ)
	}
	return out.Interface(), nil
}

// numeric returns v as a float64 when it is an integer or float kind that a
// float64 represents exactly.
func numeric(v reflect.Value) (float64, bool, error) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := v.Int()
		if i > maxSafeInteger || i < -maxSafeInteger {
			return 0, true, conversionError("integer %d exceeds 53 bits", i)
		}
		return float64(i), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > maxSafeInteger {
			return 0, true, conversionError("integer %d exceeds 53 bits", u)
		}
		return float64(u), true, nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), true, nil
	default:
		return 0, false, nil
	}
}

// ExportBlackboard exports every written local key of bb.
func ExportBlackboard[F any](c Codec[F], bb *bt.Blackboard) (map[string]F, error) {
	out := make(map[string]F)
	for k, v := range bb.Snapshot() {
		f, err := c.Export(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

// ImportValue decodes f into the type fixed for key, or a generic value for
// an untyped key, and writes it to bb.
func ImportValue[F any](c Codec[F], bb *bt.Blackboard, key string, f F) error {
	var typ reflect.Type
	if e, ok := bb.Entry(key); ok {
		typ = e.Type()
	}
	v, err := c.Import(f, typ)
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	if v == nil {
		return conversionError("key %q: null cannot be stored", key)
	}
	return bb.Set(key, v)
}
