// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

package store

import (
	"encoding/json"
	"reflect"
)

// MatchesFilter reports whether payload satisfies every key/value pair in
// filter. Numeric values are compared by value regardless of their dynamic
// type, so a payload that round-tripped through JSON (where an int comes
// back as float64) still matches a filter built from the original value.
// All backends must use this so a filter behaves identically whichever
// backend serves the search.
func MatchesFilter(payload, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := payload[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	af, aNum := numericValue(a)
	bf, bNum := numericValue(b)
	if aNum || bNum {
		return aNum && bNum && af == bf
	}
	// DeepEqual handles uncomparable values (slices, maps) without panicking.
	return reflect.DeepEqual(a, b)
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
