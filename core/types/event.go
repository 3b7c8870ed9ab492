package types

// Event represents a typed event emitted during a marketplace state
// transition. Attributes carry the human-readable audit trail for the
// transition (action name, parties, amounts, identifiers).
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attribute returns the named attribute or an empty string when unset.
func (e *Event) Attribute(key string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}
