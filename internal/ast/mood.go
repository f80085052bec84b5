package ast

// Mood is the grammatical form a call site was written in. It selects
// between overloads of the same name but has no effect on memory flow.
type Mood uint8

const (
	// MoodImperative is a plain call.
	MoodImperative Mood = iota
	// MoodInterrogative is a question-form call (predicates).
	MoodInterrogative
)

func (m Mood) String() string {
	switch m {
	case MoodImperative:
		return "imperative"
	case MoodInterrogative:
		return "interrogative"
	}
	return "unknown"
}
