package academyclient

import (
	"encoding/json"
	"strings"
)

// The detail endpoint has returned movetext under different names across
// backend revisions. Candidates are probed in this fixed priority order;
// the first non-empty match wins.
var pgnFieldOrder = []string{"pgn_content", "pgn", "content"}

// ExtractPGNField pulls the PGN movetext out of a detail response body,
// checking top-level fields first and then the nested "game"/"data"
// objects. Returns "" when no candidate holds a non-empty string.
func ExtractPGNField(raw []byte) string {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	if s := firstPGNField(doc); s != "" {
		return s
	}
	for _, nested := range []string{"game", "data"} {
		sub, ok := doc[nested]
		if !ok {
			continue
		}
		var subDoc map[string]json.RawMessage
		if err := json.Unmarshal(sub, &subDoc); err != nil {
			continue
		}
		if s := firstPGNField(subDoc); s != "" {
			return s
		}
	}
	return ""
}

func firstPGNField(doc map[string]json.RawMessage) string {
	for _, key := range pgnFieldOrder {
		raw, ok := doc[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
