package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every threshold test and guess outcome.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SelectionTrace collects decision records during selection rounds.
// A nil *SelectionTrace is valid and records nothing. Not safe for concurrent
// use: give each agent its own trace and Merge them in agent order.
type SelectionTrace struct {
	Config    TraceConfig
	Decisions []DecisionRecord
	Guesses   []GuessRecord
}

// NewSelectionTrace creates a SelectionTrace ready for recording.
func NewSelectionTrace(config TraceConfig) *SelectionTrace {
	return &SelectionTrace{
		Config:    config,
		Decisions: make([]DecisionRecord, 0),
		Guesses:   make([]GuessRecord, 0),
	}
}

// Enabled reports whether records are kept.
func (st *SelectionTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// Fork returns an empty trace with the same config, or nil when disabled.
func (st *SelectionTrace) Fork() *SelectionTrace {
	if !st.Enabled() {
		return nil
	}
	return NewSelectionTrace(st.Config)
}

// RecordDecision appends a decision record.
func (st *SelectionTrace) RecordDecision(record DecisionRecord) {
	if !st.Enabled() {
		return
	}
	st.Decisions = append(st.Decisions, record)
}

// RecordGuess appends a guess outcome record.
func (st *SelectionTrace) RecordGuess(record GuessRecord) {
	if !st.Enabled() {
		return
	}
	st.Guesses = append(st.Guesses, record)
}

// Merge appends the records of others in argument order. Nil entries are skipped.
func (st *SelectionTrace) Merge(others ...*SelectionTrace) {
	if !st.Enabled() {
		return
	}
	for _, o := range others {
		if o == nil {
			continue
		}
		st.Decisions = append(st.Decisions, o.Decisions...)
		st.Guesses = append(st.Guesses, o.Guesses...)
	}
}

// Stamp sets the trial and lineage of every record collected so far.
// Selectors do not know which experiment lineage they serve, so the
// orchestrator stamps a lineage's trace before merging it.
func (st *SelectionTrace) Stamp(trial int, lineage string) {
	if !st.Enabled() {
		return
	}
	for i := range st.Decisions {
		st.Decisions[i].Trial = trial
		st.Decisions[i].Lineage = lineage
	}
	for i := range st.Guesses {
		st.Guesses[i].Trial = trial
		st.Guesses[i].Lineage = lineage
	}
}
