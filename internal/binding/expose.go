package binding

import (
	"sort"

	"github.com/dop251/goja"
	"github.com/joeycumines/bteng/internal/bt"
)

// ExposeBlackboard returns a script object with get, set, has, delete and
// keys methods backed by bb.
//
// get returns undefined for a missing key. set converts its argument to the
// type already fixed for the key (see ImportValue) and throws on conversion
// or type errors. keys returns the local keys, sorted.
func ExposeBlackboard(vm *goja.Runtime, bb *bt.Blackboard) goja.Value {
	codec := NewJS(vm)
	obj := vm.NewObject()
	_ = obj.Set("get", func(key string) goja.Value {
		v, ok := bb.Get(key)
		if !ok {
			return goja.Undefined()
		}
		out, err := codec.Export(v)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return out
	})
	_ = obj.Set("set", func(key string, value goja.Value) {
		if err := ImportValue[goja.Value](codec, bb, key, value); err != nil {
			panic(vm.NewGoError(err))
		}
	})
	_ = obj.Set("has", bb.Has)
	_ = obj.Set("delete", bb.Delete)
	_ = obj.Set("keys", func() *goja.Object {
		keys := bb.Keys()
		sort.Strings(keys)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return vm.NewArray(out...)
	})
	return obj
}
