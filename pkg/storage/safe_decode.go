package storage

import "encoding/json"

// safeDecodeLabels implements spec.md §4.5's corrupted-JSON policy: any
// decode failure (malformed text, wrong JSON type, embedded NUL/BOM,
// truncation, unquoted keys, trailing comma, undefined/NaN/Infinity tokens,
// null input) returns an empty slice rather than propagating an error. This
// mirrors the teacher's badger_serialization.go guard, moved from a KV value
// decode to a SQL TEXT column decode.
func safeDecodeLabels(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return []string{}
	}
	if labels == nil {
		return []string{}
	}
	return labels
}

// safeDecodeProperties is safeDecodeLabels' counterpart for the properties
// column: any decode failure returns an empty map.
func safeDecodeProperties(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var props map[string]interface{}
	if err := json.Unmarshal(raw, &props); err != nil {
		return map[string]interface{}{}
	}
	if props == nil {
		return map[string]interface{}{}
	}
	return props
}

// encodeLabels and encodeProperties never fail in practice (the input is
// always an in-memory []string/map[string]interface{} built by this
// package), but still default to the empty-JSON-container forms used by the
// on-disk layout's NOT NULL DEFAULT clauses (spec.md §4.5).
func encodeLabels(labels []string) string {
	if labels == nil {
		labels = []string{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func encodeProperties(props map[string]interface{}) string {
	if props == nil {
		props = map[string]interface{}{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
