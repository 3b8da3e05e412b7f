package domain

import (
	"fmt"
	"maps"
	"slices"
)

// Attributes is a mutable attribute map. Every scope in a flow execution is an Attributes value.
// The zero value is a nil map: reads work, writes panic. Use NewAttributes.
type Attributes map[string]any

// NewAttributes returns an empty attribute map.
func NewAttributes() Attributes {
	return make(Attributes)
}

// Get returns the value for key, or nil.
func (a Attributes) Get(key string) any {
	return a[key]
}

// GetString returns the value for key formatted as a string, or "" when absent.
func (a Attributes) GetString(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetBool returns the boolean value for key. The second result reports whether
// the key held a boolean (or the strings "true"/"false").
func (a Attributes) GetBool(key string) (bool, bool) {
	switch v := a[key].(type) {
	case bool:
		return v, true
	case string:
		switch v {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Contains reports whether key is present.
func (a Attributes) Contains(key string) bool {
	_, ok := a[key]
	return ok
}

// Put stores value under key and returns the previous value.
func (a Attributes) Put(key string, value any) any {
	old := a[key]
	a[key] = value
	return old
}

// Remove deletes key and returns the removed value.
func (a Attributes) Remove(key string) any {
	old := a[key]
	delete(a, key)
	return old
}

// Clear removes all entries.
func (a Attributes) Clear() {
	clear(a)
}

// Clone returns a shallow copy. Cloning a nil map yields an empty one.
func (a Attributes) Clone() Attributes {
	c := make(Attributes, len(a))
	maps.Copy(c, a)
	return c
}

// Union returns a new map holding a's entries overlaid by other's.
func (a Attributes) Union(other Attributes) Attributes {
	c := a.Clone()
	maps.Copy(c, other)
	return c
}

// Keys returns the keys in sorted order.
func (a Attributes) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}
