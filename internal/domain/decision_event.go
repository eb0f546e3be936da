package domain

import "time"

// DecisionEvent is one LLM decision as it was acted on, kept in the
// append-only decision log for the dashboard stream.
type DecisionEvent struct {
	Timestamp  time.Time `json:"ts"`
	Pair       string    `json:"pair"`
	Action     string    `json:"action"`
	Reason     string    `json:"reason"`
	Confidence float64   `json:"confidence"`
	Price      string    `json:"price,omitempty"`
	Executed   bool      `json:"executed"`
}

// DecisionEventRecord bundles an event with its log index.
type DecisionEventRecord struct {
	Index uint64        `json:"index"`
	Event DecisionEvent `json:"event"`
}
