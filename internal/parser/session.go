package parser

import "time"

// PendingAnswer is an AI-produced response whose correctness is unknown
// until the results table of the test confirms or refutes it.
type PendingAnswer struct {
	Discipline string
	Question   string
	Type       QuestionType
	Response   string
	At         time.Time
}

// SessionState is the mutable state of one test run. It resets whenever a
// new test is entered.
type SessionState struct {
	// Discipline is the title of the current course, used as the block
	// scope and as the key for persisted answers.
	Discipline string
	// BlockID scopes store lookups to the current discipline. Zero means
	// unscoped; the first unambiguous hit adopts the scope.
	BlockID int64
	// UnfoundAnswers counts resolution misses in this test. The skipped
	// count itself is not tracked here: the page header reports it and
	// stays authoritative even when a test is joined halfway through.
	UnfoundAnswers int
	// CompleteTest is set when the last question has been answered and
	// the next cycle must press finish.
	CompleteTest bool
	// ManualOverride suspends the skip, answer and finish clicks until
	// toggled back. Reading and resolution keep running.
	ManualOverride bool
	// AIPending queues AI answers awaiting verification.
	AIPending []PendingAnswer
	// AIStreak counts consecutive questions resolved by the model. Two in
	// a row suggest the store does not know this test at all.
	AIStreak int
	// LogPath is the per-test run log file, created lazily.
	LogPath string
}

// ResetForTest clears the per-test counters while keeping session-wide
// fields (manual override, pending queue) intact. The pending queue is
// flushed separately by the verifier.
func (s *SessionState) ResetForTest() {
	s.BlockID = 0
	s.UnfoundAnswers = 0
	s.CompleteTest = false
	s.AIStreak = 0
	s.LogPath = ""
}
