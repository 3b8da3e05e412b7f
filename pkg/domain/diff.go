package domain

import (
	"reflect"
)

// DiffAttributes calculates the entries of next that differ from prev.
// Added and modified keys carry their new value; deleted keys are present with a nil value.
// If prev is nil, every entry of next is part of the delta. It returns nil when nothing changed.
func DiffAttributes(prev, next Attributes) Attributes {
	delta := make(Attributes)

	if prev == nil {
		for k, v := range next {
			delta[k] = v
		}
	} else {
		// Added or modified
		for k, v := range next {
			old, exists := prev[k]
			if !exists || !reflect.DeepEqual(old, v) {
				delta[k] = v
			}
		}
		// Deleted
		for k := range prev {
			if _, exists := next[k]; !exists {
				delta[k] = nil
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}
