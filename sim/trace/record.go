// Package trace provides decision-trace recording for selection rounds.
// This package has no dependencies on sim/ — it stores pure data types.
package trace

// Decision reasons.
const (
	ReasonBootstrap      = "bootstrap"
	ReasonAccepted       = "accepted"
	ReasonBelowThreshold = "below-threshold"
	ReasonGuessPrimed    = "guess-primed"
	ReasonGuessClosed    = "guess-closed"
)

// DecisionRecord captures what happened to one stream item under one
// candidate set (the DMGT set, or one SIEVE guess).
type DecisionRecord struct {
	Trial     int     `json:"trial"`
	Lineage   string  `json:"lineage,omitempty"`
	Round     int     `json:"round"`
	Algorithm string  `json:"algorithm"`
	Tier      string  `json:"tier"`
	Agent     int     `json:"agent"`
	Position  int     `json:"position"` // index in the scanned stream
	ItemID    int     `json:"item_id"`
	Label     int     `json:"label"`
	Guess     int     `json:"guess"` // SIEVE exponent j; 0 for other algorithms
	Marginal  float64 `json:"marginal"`
	Threshold float64 `json:"threshold"`
	Accepted  bool    `json:"accepted"`
	Reason    string  `json:"reason"`
}

// GuessRecord captures the final state of one SIEVE guess.
type GuessRecord struct {
	Trial    int     `json:"trial"`
	Lineage  string  `json:"lineage,omitempty"`
	Round    int     `json:"round"`
	Tier     string  `json:"tier"`
	Agent    int     `json:"agent"`
	Exponent int     `json:"exponent"`
	Value    float64 `json:"value"`
	Size     int     `json:"size"`
	Coverage float64 `json:"coverage"`
	Closed   bool    `json:"closed"`
	Chosen   bool    `json:"chosen"`
}
