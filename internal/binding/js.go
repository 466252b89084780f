package binding

import (
	"reflect"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/dop251/goja"
)

// JS converts values to and from a goja runtime. Numbers are JavaScript
// doubles, so integers beyond 53 bits are rejected. time.Time is carried as
// an RFC 3339 string with nanoseconds.
//
// A JS codec must only be used from the goroutine that owns its runtime.
type JS struct {
	vm *goja.Runtime
}

// NewJS returns a codec bound to vm.
func NewJS(vm *goja.Runtime) *JS {
	return &JS{vm: vm}
}

var _ Codec[goja.Value] = (*JS)(nil)

func (c *JS) Export(v any) (goja.Value, error) {
	switch x := v.(type) {
	case nil:
		return goja.Null(), nil
	case time.Time:
		return c.vm.ToValue(x.Format(time.RFC3339Nano)), nil
	case []any, map[string]any:
		if err := checkGeneric(x); err != nil {
			return nil, err
		}
		return c.exportGeneric(x), nil
	}

	rv := reflect.ValueOf(v)
	if f, ok, err := numeric(rv); ok {
		if err != nil {
			return nil, err
		}
		if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
			return c.vm.ToValue(f), nil
		}
		return c.vm.ToValue(int64(f)), nil
	}
	switch rv.Kind() {
	case reflect.Bool:
		return c.vm.ToValue(rv.Bool()), nil
	case reflect.String:
		if !utf8.ValidString(rv.String()) {
			return nil, conversionError("invalid UTF-8 string")
		}
		return c.vm.ToValue(rv.String()), nil
	default:
		return nil, conversionError("unsupported type %T", v)
	}
}

func (c *JS) exportGeneric(v any) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Null()
	case []any:
		items := make([]any, len(x))
		for i, e := range x {
			items[i] = c.exportGeneric(e)
		}
		return c.vm.NewArray(items...)
	case map[string]any:
		obj := c.vm.NewObject()
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_ = obj.Set(k, c.exportGeneric(x[k]))
		}
		return obj
	default:
		return c.vm.ToValue(x)
	}
}

func (c *JS) Import(v goja.Value, typ reflect.Type) (any, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		if generic(typ) {
			return nil, nil
		}
		return nil, conversionError("null cannot be stored as %v", typ)
	}
	exported := v.Export()

	if generic(typ) || typ == sliceTyp || typ == mapTyp {
		g, err := importGeneric(exported)
		if err != nil {
			return nil, err
		}
		if !generic(typ) && reflect.TypeOf(g) != typ {
			return nil, conversionError("%T cannot be stored as %v", g, typ)
		}
		return g, nil
	}

	if typ == timeType {
		s, ok := exported.(string)
		if !ok {
			return nil, conversionError("time requires a string, got %T", exported)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, conversionError("%v", err)
		}
		return t, nil
	}

	switch typ.Kind() {
	case reflect.Bool:
		b, ok := exported.(bool)
		if !ok {
			return nil, conversionError("%v requires a boolean, got %T", typ, exported)
		}
		return reflect.ValueOf(b).Convert(typ).Interface(), nil
	case reflect.String:
		s, ok := exported.(string)
		if !ok {
			return nil, conversionError("%v requires a string, got %T", typ, exported)
		}
		return reflect.ValueOf(s).Convert(typ).Interface(), nil
	}

	switch x := exported.(type) {
	case int64:
		return assignNumber(float64(x), typ)
	case float64:
		return assignNumber(x, typ)
	default:
		return nil, conversionError("%T cannot be stored as %v", exported, typ)
	}
}

// importGeneric normalizes an exported JS value to the composite element
// rules: every number becomes a float64.
func importGeneric(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, float64:
		return x, nil
	case int64:
		return float64(x), nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			g, err := importGeneric(e)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			g, err := importGeneric(e)
			if err != nil {
				return nil, err
			}
			out[k] = g
		}
		return out, nil
	default:
		return nil, conversionError("unsupported JavaScript value %T", v)
	}
}
