package bt

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// Blackboard provides a thread-safe, typed key-value store shared by the
// nodes of a tree and by their background workers.
//
// Usage: Create with NewBlackboard(nil), or new(Blackboard). The internal
// map is lazily initialized on the first write.
//
// A child blackboard (NewBlackboard(parent)) can route keys to its parent:
// Remap binds a local name to a parent key, and SetAutoRemap forwards every
// key that is not private (prefixed with "_").
//
// The first write or declaration of a key fixes its type, and a later write
// of another type is a logic error. Reads of a key that was declared but
// never written report ErrMissingValue.
type Blackboard struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	parent    *Blackboard
	remap     map[string]string
	autoRemap bool
}

// Entry is a single blackboard slot. Nodes bound to the same key share the
// same Entry.
type Entry struct {
	mu       sync.RWMutex
	value    any
	set      bool
	typ      reflect.Type
	sequence uint64
	stamp    time.Time
}

// NewBlackboard creates a blackboard, optionally scoped under parent.
func NewBlackboard(parent *Blackboard) *Blackboard {
	return &Blackboard{parent: parent}
}

// Parent returns the parent blackboard, or nil.
func (b *Blackboard) Parent() *Blackboard {
	return b.parent
}

// Remap routes the local key internal to the key external of the parent
// blackboard. It has no effect on a blackboard without a parent.
func (b *Blackboard) Remap(internal, external string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remap == nil {
		b.remap = make(map[string]string)
	}
	b.remap[internal] = external
}

// SetAutoRemap makes every non-private key resolve in the parent.
func (b *Blackboard) SetAutoRemap(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoRemap = enabled
}

// init initializes the blackboard's internal map if needed.
// Callers must hold the write lock.
func (b *Blackboard) init() {
	if b.entries == nil {
		b.entries = make(map[string]*Entry)
	}
}

// resolve follows remapping to the blackboard and key that own the entry.
func (b *Blackboard) resolve(key string) (*Blackboard, string) {
	b.mu.RLock()
	external, remapped := b.remap[key]
	parent := b.parent
	auto := b.autoRemap
	b.mu.RUnlock()
	if parent != nil {
		if remapped {
			return parent.resolve(external)
		}
		if auto && !strings.HasPrefix(key, "_") {
			return parent.resolve(key)
		}
	}
	return b, key
}

// Entry returns the entry for key, following remapping.
func (b *Blackboard) Entry(key string) (*Entry, bool) {
	owner, key := b.resolve(key)
	owner.mu.RLock()
	defer owner.mu.RUnlock()
	e, ok := owner.entries[key]
	return e, ok
}

// entry returns the entry for key, creating it in the owning blackboard.
func (b *Blackboard) entry(key string) *Entry {
	owner, key := b.resolve(key)
	owner.mu.Lock()
	defer owner.mu.Unlock()
	owner.init()
	e, ok := owner.entries[key]
	if !ok {
		e = new(Entry)
		owner.entries[key] = e
	}
	return e
}

// Declare creates key with type typ, without a value. Declaring an existing
// key with an incompatible type is a logic error.
func (b *Blackboard) Declare(key string, typ reflect.Type) error {
	return b.entry(key).declare(key, typ)
}

// Get retrieves a value from the blackboard.
// Returns false if the key doesn't exist or has not been written.
func (b *Blackboard) Get(key string) (any, bool) {
	e, ok := b.Entry(key)
	if !ok {
		return nil, false
	}
	return e.Value()
}

// Set stores a value in the blackboard. Last write wins.
func (b *Blackboard) Set(key string, value any) error {
	if value == nil {
		return logicError("blackboard", ErrPortType, "nil value for key %q", key)
	}
	return b.entry(key).store(key, value)
}

// Has returns true if the key exists and holds a value.
func (b *Blackboard) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Delete removes a key, following remapping.
func (b *Blackboard) Delete(key string) {
	owner, key := b.resolve(key)
	owner.mu.Lock()
	defer owner.mu.Unlock()
	if owner.entries == nil {
		return
	}
	delete(owner.entries, key)
}

// Keys returns all keys stored locally in the blackboard.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.entries == nil {
		return nil
	}
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of local keys.
func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Clear removes all local entries.
func (b *Blackboard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]*Entry)
}

// Snapshot returns a shallow copy of the local values that have been
// written. Mutable values (slices, maps, pointers) are shared with the
// blackboard.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	entries := make(map[string]*Entry, len(b.entries))
	for k, e := range b.entries {
		entries[k] = e
	}
	b.mu.RUnlock()

	result := make(map[string]any, len(entries))
	for k, e := range entries {
		if v, ok := e.Value(); ok {
			result[k] = v
		}
	}
	return result
}

// GetValue reads key as a T. A missing key reports ErrMissingValue, a value
// of another type is a logic error.
func GetValue[T any](b *Blackboard, key string) (T, error) {
	var zero T
	v, ok := b.Get(key)
	if !ok {
		return zero, fmt.Errorf("%w: key %q", ErrMissingValue, key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, logicError("blackboard", ErrPortType, "key %q holds %T, not %v", key, v, reflect.TypeFor[T]())
	}
	return t, nil
}

// SetValue declares key as T, then writes v.
func SetValue[T any](b *Blackboard, key string, v T) error {
	if err := b.Declare(key, reflect.TypeFor[T]()); err != nil {
		return err
	}
	return b.Set(key, v)
}

// Value returns the current value, and false if it was never written.
func (e *Entry) Value() (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value, e.set
}

// Type returns the type fixed for the entry, or nil.
func (e *Entry) Type() reflect.Type {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.typ
}

// Sequence is incremented on every write.
func (e *Entry) Sequence() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sequence
}

// Stamp returns the time of the last write.
func (e *Entry) Stamp() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stamp
}

func (e *Entry) declare(key string, typ reflect.Type) error {
	if typ == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.typ == nil:
		if e.set && !assignable(e.value, typ) {
			return logicError("blackboard", ErrPortType, "key %q holds %T, cannot declare as %v", key, e.value, typ)
		}
		e.typ = typ
	case e.typ != typ && typ.Kind() != reflect.Interface && e.typ.Kind() != reflect.Interface:
		return logicError("blackboard", ErrPortType, "key %q is %v, cannot declare as %v", key, e.typ, typ)
	}
	return nil
}

func (e *Entry) store(key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ == nil {
		e.typ = reflect.TypeOf(value)
	} else if !assignable(value, e.typ) {
		return logicError("blackboard", ErrPortType, "key %q is %v, cannot store %T", key, e.typ, value)
	}
	e.value = value
	e.set = true
	e.sequence++
	e.stamp = time.Now()
	return nil
}

func assignable(v any, typ reflect.Type) bool {
	vt := reflect.TypeOf(v)
	if vt == nil {
		return false
	}
	if typ.Kind() == reflect.Interface {
		return vt.Implements(typ)
	}
	return vt == typ
}
