package parser

import (
	"context"
	"time"
)

// PageDriver is the minimal surface the parser needs from a browser page.
// Selectors are plain CSS. Implementations wait for the first match on
// read operations and fail with an error on timeout; Count and HasText
// never wait.
type PageDriver interface {
	// Count returns how many elements currently match the selector.
	Count(selector string) (int, error)
	// HasText reports whether an element matching the selector contains
	// the exact text.
	HasText(selector, text string) (bool, error)

	Text(selector string) (string, error)
	TextAll(selector string) ([]string, error)
	HTML(selector string) (string, error)
	Attribute(selector, name string) (string, error)
	AttributeAll(selector, name string) ([]string, error)
	// RowsHTML returns, per element matching rowSelector, the inner HTML
	// of its children matching cellSelector.
	RowsHTML(rowSelector, cellSelector string) ([][]string, error)

	Click(selector string) error
	// ClickLast clicks the last element matching the selector.
	ClickLast(selector string) error
	// Input replaces the content of a text control.
	Input(selector, text string) error
	// DragTo drags the first element onto the second.
	DragTo(srcSelector, dstSelector string) error

	Reload() error
}

// AnswerRecord is one stored answer matched during a lookup.
type AnswerRecord struct {
	// Response is the stored correct response in wire format: element ids
	// joined per question type.
	Response   string
	QuestionID int64
	BlockID    int64
}

// ResolvedAnswer is a correct or incorrect response ready to be persisted.
type ResolvedAnswer struct {
	Block    string
	Question string
	Type     QuestionType
	Response string
	Created  time.Time
}

// AnswerStore is the persistence layer of the resolver.
type AnswerStore interface {
	// LookupByText finds answers whose question text contains the phrase.
	// A zero blockID searches across all blocks.
	LookupByText(phrase string, qt QuestionType, blockID int64) ([]AnswerRecord, error)
	// LookupTextValue resolves a stored text-entry identifier to the
	// literal answer text.
	LookupTextValue(id string, questionID int64) (string, error)
	SaveCorrect(ans ResolvedAnswer) error
	SaveIncorrect(ans ResolvedAnswer) error
	// ClearResponse blanks a stored correct response that turned out to
	// be wrong.
	ClearResponse(question string, qt QuestionType, block string, response string) error
	// GetOrCreateBlockID maps a discipline title to its block id.
	GetOrCreateBlockID(title string) (int64, error)
}

// Resolver produces a model completion for a prompt. Implementations live
// in internal/ai.
type Resolver interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
