package util

import "encoding/json"

// CanonicalJSON serialises v deterministically: encoding/json already sorts
// map[string]any keys and walks struct fields in declaration order, so a
// plain Marshal is canonical here — no extra dependency needed.
func CanonicalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
