package binding

import (
	"bytes"
	"math"
	"reflect"
	"time"
	"unicode/utf8"

	"github.com/segmentio/encoding/json"
)

// JSON converts values to and from JSON documents. Integers keep their full
// precision; NaN and infinities are rejected.
type JSON struct{}

var _ Codec[[]byte] = JSON{}

var null = []byte("null")

func (JSON) Export(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return append([]byte(nil), null...), nil
	case time.Time:
	case []any, map[string]any:
		if err := checkGeneric(x); err != nil {
			return nil, err
		}
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		case reflect.Float32, reflect.Float64:
			if f := rv.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, conversionError("%v has no JSON representation", f)
			}
		case reflect.String:
			if !utf8.ValidString(rv.String()) {
				return nil, conversionError("invalid UTF-8 string")
			}
		default:
			return nil, conversionError("unsupported type %T", v)
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, conversionError("%v", err)
	}
	return data, nil
}

func (JSON) Import(data []byte, typ reflect.Type) (any, error) {
	if bytes.Equal(bytes.TrimSpace(data), null) {
		if generic(typ) {
			return nil, nil
		}
		return nil, conversionError("null cannot be stored as %v", typ)
	}
	if generic(typ) {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, conversionError("%v", err)
		}
		return v, nil
	}
	switch typ.Kind() {
	case reflect.Interface, reflect.Struct, reflect.Pointer, reflect.Chan, reflect.Func,
		reflect.Array, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		if typ != timeType {
			return nil, conversionError("unsupported type %v", typ)
		}
	case reflect.Slice:
		if typ != sliceTyp {
			return nil, conversionError("unsupported type %v", typ)
		}
	case reflect.Map:
		if typ != mapTyp {
			return nil, conversionError("unsupported type %v", typ)
		}
	}
	out := reflect.New(typ)
	if err := json.Unmarshal(data, out.Interface()); err != nil {
		return nil, conversionError("%v", err)
	}
	return out.Elem().Interface(), nil
}
