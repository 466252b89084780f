package binding

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/bteng/internal/bt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mode string

// supportedValues are values both codecs must round-trip exactly.
func supportedValues() map[string]any {
	return map[string]any{
		"bool":        true,
		"string":      "patrol ✓",
		"named":       mode("search"),
		"int":         -42,
		"int8":        int8(-8),
		"uint16":      uint16(65535),
		"int64 edge":  int64(1<<53 - 1),
		"float32":     float32(0.1),
		"float64":     3.25,
		"whole float": 7.0,
		"duration":    1500 * time.Millisecond,
		"slice":       []any{"a", 1.5, true, nil, []any{2.0}},
		"map":         map[string]any{"x": 1.0, "nested": map[string]any{"ok": false}},
	}
}

func roundTrip[F any](t *testing.T, c Codec[F], v any) any {
	t.Helper()
	f, err := c.Export(v)
	require.NoError(t, err)
	out, err := c.Import(f, reflect.TypeOf(v))
	require.NoError(t, err)
	return out
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	for name, value := range supportedValues() {
		t.Run("js/"+name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, value, roundTrip[goja.Value](t, NewJS(goja.New()), value))
		})
		t.Run("json/"+name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, value, roundTrip[[]byte](t, JSON{}, value))
		})
	}
}

func TestRoundTripTime(t *testing.T) {
	t.Parallel()
	ts := time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.FixedZone("X", 3600))

	got := roundTrip[goja.Value](t, NewJS(goja.New()), ts)
	assert.True(t, ts.Equal(got.(time.Time)))

	got = roundTrip[[]byte](t, JSON{}, ts)
	assert.True(t, ts.Equal(got.(time.Time)))
}

func TestExportRejectsUnsupported(t *testing.T) {
	t.Parallel()
	type point struct{ X, Y int }
	for name, v := range map[string]any{
		"struct":         point{1, 2},
		"pointer":        &point{},
		"typed slice":    []int{1},
		"int composite":  []any{1},
		"bad utf8":       "\xff",
		"func":           func() {},
		"map value type": map[string]int{"a": 1},
	} {
		_, err := NewJS(goja.New()).Export(v)
		assert.ErrorIs(t, err, ErrConversion, "js %s", name)
		_, err = JSON{}.Export(v)
		assert.ErrorIs(t, err, ErrConversion, "json %s", name)
	}
}

func TestJSRejectsWideIntegers(t *testing.T) {
	t.Parallel()
	c := NewJS(goja.New())
	_, err := c.Export(int64(1 << 53))
	assert.ErrorIs(t, err, ErrConversion)
	_, err = c.Export(uint64(math.MaxUint64))
	assert.ErrorIs(t, err, ErrConversion)

	// JSON keeps full precision
	assert.Equal(t, int64(math.MaxInt64), roundTrip[[]byte](t, JSON{}, int64(math.MaxInt64)))
}

func TestJSONRejectsNonFinite(t *testing.T) {
	t.Parallel()
	_, err := JSON{}.Export(math.NaN())
	assert.ErrorIs(t, err, ErrConversion)
	_, err = JSON{}.Export([]any{math.Inf(1)})
	assert.ErrorIs(t, err, ErrConversion)

	v, err := NewJS(goja.New()).Export(math.Inf(-1))
	require.NoError(t, err)
	assert.True(t, math.IsInf(v.ToFloat(), -1))
}

func TestImportRejectsLossyNumbers(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	c := NewJS(vm)

	_, err := c.Import(vm.ToValue(1.5), reflect.TypeFor[int]())
	assert.ErrorIs(t, err, ErrConversion)
	_, err = c.Import(vm.ToValue(300), reflect.TypeFor[int8]())
	assert.ErrorIs(t, err, ErrConversion)
	_, err = c.Import(vm.ToValue(-1), reflect.TypeFor[uint]())
	assert.ErrorIs(t, err, ErrConversion)
	_, err = c.Import(vm.ToValue(0.1), reflect.TypeFor[float32]())
	assert.ErrorIs(t, err, ErrConversion)
	_, err = c.Import(vm.ToValue("1"), reflect.TypeFor[int]())
	assert.ErrorIs(t, err, ErrConversion)

	_, err = JSON{}.Import([]byte("1.5"), reflect.TypeFor[int]())
	assert.ErrorIs(t, err, ErrConversion)
	_, err = JSON{}.Import([]byte("300"), reflect.TypeFor[int8]())
	assert.ErrorIs(t, err, ErrConversion)
}

func TestImportNull(t *testing.T) {
	t.Parallel()
	v, err := JSON{}.Import([]byte(" null "), nil)
	require.NoError(t, err)
	assert.Nil(t, v)
	_, err = JSON{}.Import([]byte("null"), reflect.TypeFor[string]())
	assert.ErrorIs(t, err, ErrConversion)

	_, err = NewJS(goja.New()).Import(goja.Undefined(), reflect.TypeFor[bool]())
	assert.ErrorIs(t, err, ErrConversion)
}

func TestImportGeneric(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	val, err := vm.RunString(`({n: 2, list: [1, "two", null], flag: true})`)
	require.NoError(t, err)

	got, err := NewJS(vm).Import(val, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"n":    2.0,
		"list": []any{1.0, "two", nil},
		"flag": true,
	}, got)

	got, err = JSON{}.Import([]byte(`{"n":2,"list":[1,"two",null],"flag":true}`), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"n":    2.0,
		"list": []any{1.0, "two", nil},
		"flag": true,
	}, got)
}

func TestJSImportRejectsFunctions(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	fn, err := vm.RunString(`(function () {})`)
	require.NoError(t, err)
	_, err = NewJS(vm).Import(fn, nil)
	assert.ErrorIs(t, err, ErrConversion)
}

func TestBlackboardTransfer(t *testing.T) {
	t.Parallel()
	src := bt.NewBlackboard(nil)
	require.NoError(t, bt.SetValue(src, "battery", 0.75))
	require.NoError(t, bt.SetValue(src, "waypoint", 3))
	require.NoError(t, bt.SetValue(src, "mode", "patrol"))

	docs, err := ExportBlackboard[[]byte](JSON{}, src)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	dst := bt.NewBlackboard(nil)
	require.NoError(t, bt.SetValue(dst, "waypoint", 0))
	for k, doc := range docs {
		require.NoError(t, ImportValue[[]byte](JSON{}, dst, k, doc))
	}

	// the declared type is restored, untyped keys decode generically
	waypoint, err := bt.GetValue[int](dst, "waypoint")
	require.NoError(t, err)
	assert.Equal(t, 3, waypoint)
	battery, err := bt.GetValue[float64](dst, "battery")
	require.NoError(t, err)
	assert.Equal(t, 0.75, battery)
	current, err := bt.GetValue[string](dst, "mode")
	require.NoError(t, err)
	assert.Equal(t, "patrol", current)
}

func TestExportBlackboardUnsupported(t *testing.T) {
	t.Parallel()
	bb := bt.NewBlackboard(nil)
	require.NoError(t, bb.Set("ch", make(chan int)))

	_, err := ExportBlackboard[[]byte](JSON{}, bb)
	assert.ErrorIs(t, err, ErrConversion)
	assert.ErrorContains(t, err, `key "ch"`)
}

func TestImportValueRejectsNull(t *testing.T) {
	t.Parallel()
	err := ImportValue[[]byte](JSON{}, bt.NewBlackboard(nil), "k", []byte("null"))
	assert.ErrorIs(t, err, ErrConversion)
}
