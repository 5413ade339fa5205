package parser

// Outcome tells the progression loop what to do after a resolution or
// interaction step. It is a value, not an error: only the loop decides
// whether a condition skips the question, reloads the page or neither.
type Outcome struct {
	// Skip asks the loop to press the skip control instead of answering.
	Skip bool
	// Reload asks the loop to reload the page and retry the same question.
	Reload bool
	// Unfound marks the question as a resolution miss. It feeds the
	// artificial-error budget, so transient page trouble must leave it
	// unset.
	Unfound bool
	// Message describes the condition for the run log.
	Message string
}

// Answered is the zero outcome: the answer is filled in and the loop may
// submit it.
func Answered() Outcome { return Outcome{} }

// SkipUnfound skips the question and counts it as a resolution miss.
func SkipUnfound(msg string) Outcome {
	return Outcome{Skip: true, Unfound: true, Message: msg}
}

// Retry reloads the page without counting anything. Used for transient
// page states such as missing controls after a partial render.
func Retry(msg string) Outcome { return Outcome{Reload: true, Message: msg} }

// OK reports whether the loop should proceed to submit.
func (o Outcome) OK() bool { return !o.Skip && !o.Reload }
