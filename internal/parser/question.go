// Package parser drives a single test session on the learning platform:
// it reads the current question from the page, classifies it, resolves an
// answer through the local store or an AI model, fills the answer in and
// moves the test forward.
package parser

// QuestionType identifies the interaction model of a question. The values
// match the questionType column of the answer store, so stored rows written
// by older runs keep working.
type QuestionType string

const (
	TypeChoice         QuestionType = "choice"
	TypeChoiceMultiple QuestionType = "choiceMultiple"
	TypeTextEntry      QuestionType = "textEntry"
	TypeOrder          QuestionType = "order"
	TypeMatch          QuestionType = "match"
	TypeMatchMultiple  QuestionType = "matchMultiple"
	TypeSequence       QuestionType = "sequence"

	// TypeUnknown means the classifier could not recognize the question,
	// usually because the page has not finished rendering.
	TypeUnknown QuestionType = ""
)

// Question is a snapshot of the question currently shown on the page.
type Question struct {
	// RawHTML is the inner HTML of the question node. Stored answers key
	// on it, so it is kept verbatim.
	RawHTML string
	// Plain is the visible text of the question node.
	Plain string
	// Candidates are the search phrases produced by the normalizer,
	// strongest first. For image questions these are the image paths.
	Candidates []string
	// Images holds src paths of images embedded in the question, if any.
	Images []string
	Type   QuestionType
}

// HasImages reports whether the question embeds pictures. Such questions
// cannot be sent to a text model.
func (q *Question) HasImages() bool { return len(q.Images) > 0 }

// TestInfo is the progress header of the running test.
type TestInfo struct {
	// Item is the 1-based number of the current question.
	Item int
	// QuestionsCount is the total number of questions in the test.
	QuestionsCount int
	// QuestionsUnanswered counts questions skipped so far.
	QuestionsUnanswered int
}

// Remaining returns how many questions are left after the current one.
func (ti TestInfo) Remaining() int { return ti.QuestionsCount - ti.Item }
