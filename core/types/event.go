package types

// Event represents a typed event emitted during marketplace state transitions.
// Attributes carry string-encoded payload fields so the event stream stays
// stable regardless of the internal representation.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
