package bt

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlackboard_BasicOperations(t *testing.T) {
	t.Parallel()

	bb := new(Blackboard)

	// Test Set and Get
	require.NoError(t, bb.Set("key1", "value1"))
	v, ok := bb.Get("key1")
	require.True(t, ok)
	require.Equal(t, "value1", v)

	// Test non-existent key
	_, ok = bb.Get("nonexistent")
	require.False(t, ok)

	// Test Has
	require.True(t, bb.Has("key1"))
	require.False(t, bb.Has("nonexistent"))

	// Test Delete
	bb.Delete("key1")
	require.False(t, bb.Has("key1"))

	require.NoError(t, bb.Set("a", 1))
	require.NoError(t, bb.Set("b", 2))
	require.ElementsMatch(t, []string{"a", "b"}, bb.Keys())
	require.Equal(t, 2, bb.Len())
	require.Equal(t, map[string]any{"a": 1, "b": 2}, bb.Snapshot())

	bb.Clear()
	require.Zero(t, bb.Len())
	require.Empty(t, bb.Keys())
}

func TestBlackboard_TypeIsFixedByFirstWrite(t *testing.T) {
	t.Parallel()

	bb := NewBlackboard(nil)
	require.NoError(t, bb.Set("n", 1))
	require.NoError(t, bb.Set("n", 2))

	err := bb.Set("n", "two")
	require.ErrorIs(t, err, ErrPortType)
	require.ErrorIs(t, err, ErrLogic)

	v, err := GetValue[int](bb, "n")
	require.NoError(t, err)
	require.Equal(t, 2, v)

	_, err = GetValue[string](bb, "n")
	require.ErrorIs(t, err, ErrPortType)

	require.ErrorIs(t, bb.Set("nil", nil), ErrPortType)
}

func TestBlackboard_Declare(t *testing.T) {
	t.Parallel()

	bb := NewBlackboard(nil)
	require.NoError(t, bb.Declare("goal", reflect.TypeFor[string]()))
	require.False(t, bb.Has("goal"), "declared but never written")

	_, err := GetValue[string](bb, "goal")
	require.ErrorIs(t, err, ErrMissingValue)

	require.ErrorIs(t, bb.Declare("goal", reflect.TypeFor[int]()), ErrPortType)
	require.ErrorIs(t, bb.Set("goal", 3), ErrPortType)

	// interface declarations accept any implementation
	require.NoError(t, bb.Declare("any", reflect.TypeFor[any]()))
	require.NoError(t, bb.Declare("any", reflect.TypeFor[float64]()))

	entry, ok := bb.Entry("goal")
	require.True(t, ok)
	require.Equal(t, reflect.TypeFor[string](), entry.Type())
	require.Zero(t, entry.Sequence())
}

func TestBlackboard_EntryMetadata(t *testing.T) {
	t.Parallel()

	bb := NewBlackboard(nil)
	require.NoError(t, SetValue(bb, "pose", [2]float64{1, 2}))
	require.NoError(t, SetValue(bb, "pose", [2]float64{3, 4}))

	entry, ok := bb.Entry("pose")
	require.True(t, ok)
	require.Equal(t, uint64(2), entry.Sequence())
	require.False(t, entry.Stamp().IsZero())
	v, ok := entry.Value()
	require.True(t, ok)
	require.Equal(t, [2]float64{3, 4}, v)
}

func TestBlackboard_Remap(t *testing.T) {
	t.Parallel()

	parent := NewBlackboard(nil)
	child := NewBlackboard(parent)
	require.Same(t, parent, child.Parent())

	child.Remap("target", "goal")
	require.NoError(t, child.Set("target", "dock"))

	v, ok := parent.Get("goal")
	require.True(t, ok)
	require.Equal(t, "dock", v)
	require.False(t, parent.Has("target"))
	require.Empty(t, child.Keys())

	// unmapped keys stay local
	require.NoError(t, child.Set("scratch", 1))
	require.False(t, parent.Has("scratch"))
}

func TestBlackboard_AutoRemap(t *testing.T) {
	t.Parallel()

	parent := NewBlackboard(nil)
	child := NewBlackboard(parent)
	child.SetAutoRemap(true)

	require.NoError(t, child.Set("battery", 80))
	require.NoError(t, child.Set("_private", true))

	require.True(t, parent.Has("battery"))
	require.False(t, parent.Has("_private"))
	require.True(t, child.Has("battery"))
	require.Equal(t, []string{"_private"}, child.Keys())
}

func TestBlackboard_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	bb := NewBlackboard(nil)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%2)
			for j := range 200 {
				_ = bb.Set(key, j)
				_, _ = bb.Get(key)
				_ = bb.Snapshot()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 2, bb.Len())
}
