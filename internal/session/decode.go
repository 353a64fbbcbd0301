package session

import (
	"encoding/json"
	"strings"
)

// DecodeResult is the tagged outcome of decoding a stored answer string.
type DecodeResult struct {
	Label string
	OK    bool
}

// DecodeStoredAnswer tolerates both raw labels ("B") and JSON-encoded
// labels ("\"b\"") as persisted by earlier clients. Anything that does not
// land on a legal choice label is rejected.
func DecodeStoredAnswer(raw string) DecodeResult {
	s := strings.TrimSpace(raw)
	var unquoted string
	if err := json.Unmarshal([]byte(s), &unquoted); err == nil {
		s = unquoted
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if isChoiceLabel(s) {
		return DecodeResult{Label: s, OK: true}
	}
	return DecodeResult{}
}
