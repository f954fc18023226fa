package domain

// Intent kinds the classifier can produce.
const (
	IntentReminder = "reminder"
	IntentGoal     = "goal"
)

// Intent is the optional classification of a conversation turn: a request to
// create a recurring reminder or a goal, or nothing actionable. Detected
// intents are logged but not yet persisted downstream.
type Intent struct {
	Type    string `json:"type,omitempty"`
	Content string `json:"content,omitempty"`
}

// None reports whether no actionable task was detected.
func (i Intent) None() bool { return i.Type == "" }
