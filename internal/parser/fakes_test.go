package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// fakePage is a scriptable PageDriver. Selectors without an entry count as
// absent; read operations on absent selectors fail like a timeout would.
type fakePage struct {
	counts  map[string]int
	texts   map[string]string
	textAll map[string][]string
	htmls   map[string]string
	attrAll map[string][]string // key: selector + "\x00" + attribute
	rows    [][]string

	clicked   []string
	inputs    map[string]string
	drags     [][2]string
	reloads   int
	failClick map[string]bool
	failDrag  bool
}

func newFakePage() *fakePage {
	return &fakePage{
		counts:    map[string]int{},
		texts:     map[string]string{},
		textAll:   map[string][]string{},
		htmls:     map[string]string{},
		attrAll:   map[string][]string{},
		inputs:    map[string]string{},
		failClick: map[string]bool{},
	}
}

func (f *fakePage) Count(sel string) (int, error) { return f.counts[sel], nil }

func (f *fakePage) HasText(sel, text string) (bool, error) {
	return strings.Contains(f.texts[sel], text), nil
}

func (f *fakePage) Text(sel string) (string, error) {
	t, ok := f.texts[sel]
	if !ok {
		return "", fmt.Errorf("no element %s", sel)
	}
	return t, nil
}

func (f *fakePage) TextAll(sel string) ([]string, error) { return f.textAll[sel], nil }

func (f *fakePage) HTML(sel string) (string, error) {
	h, ok := f.htmls[sel]
	if !ok {
		return "", fmt.Errorf("no element %s", sel)
	}
	return h, nil
}

func (f *fakePage) Attribute(sel, name string) (string, error) {
	vals := f.attrAll[sel+"\x00"+name]
	if len(vals) == 0 {
		return "", fmt.Errorf("no element %s", sel)
	}
	return vals[0], nil
}

func (f *fakePage) AttributeAll(sel, name string) ([]string, error) {
	return f.attrAll[sel+"\x00"+name], nil
}

func (f *fakePage) RowsHTML(rowSel, cellSel string) ([][]string, error) { return f.rows, nil }

func (f *fakePage) Click(sel string) error {
	if f.failClick[sel] || f.counts[sel] == 0 {
		return fmt.Errorf("no element %s", sel)
	}
	f.clicked = append(f.clicked, sel)
	return nil
}

func (f *fakePage) ClickLast(sel string) error { return f.Click(sel) }

func (f *fakePage) Input(sel, text string) error {
	if f.counts[sel] == 0 {
		return fmt.Errorf("no element %s", sel)
	}
	f.inputs[sel] = text
	return nil
}

func (f *fakePage) DragTo(src, dst string) error {
	if f.failDrag {
		return errors.New("drag rejected")
	}
	f.drags = append(f.drags, [2]string{src, dst})
	return nil
}

func (f *fakePage) Reload() error {
	f.reloads++
	return nil
}

// addInput registers an answer control so both the presence check and the
// click succeed.
func (f *fakePage) addInput(id string) { f.counts[inputByValue(id)] = 1 }

type lookupCall struct {
	phrase  string
	qt      QuestionType
	blockID int64
}

// fakeStore is an in-memory AnswerStore recording every call.
type fakeStore struct {
	records    map[string][]AnswerRecord // phrase -> rows, insertion order
	textValues map[string]string
	blocks     map[string]int64

	lookups   []lookupCall
	correct   []ResolvedAnswer
	incorrect []ResolvedAnswer
	cleared   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:    map[string][]AnswerRecord{},
		textValues: map[string]string{},
		blocks:     map[string]int64{},
	}
}

func (f *fakeStore) LookupByText(phrase string, qt QuestionType, blockID int64) ([]AnswerRecord, error) {
	f.lookups = append(f.lookups, lookupCall{phrase, qt, blockID})
	var out []AnswerRecord
	for _, rec := range f.records[phrase] {
		if blockID == 0 || rec.BlockID == blockID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) LookupTextValue(id string, questionID int64) (string, error) {
	v, ok := f.textValues[id]
	if !ok {
		return "", ErrTextValueNotFound
	}
	return v, nil
}

func (f *fakeStore) SaveCorrect(ans ResolvedAnswer) error {
	f.correct = append(f.correct, ans)
	return nil
}

func (f *fakeStore) SaveIncorrect(ans ResolvedAnswer) error {
	if ans.Type == TypeTextEntry {
		return nil
	}
	f.incorrect = append(f.incorrect, ans)
	return nil
}

func (f *fakeStore) ClearResponse(question string, qt QuestionType, block, response string) error {
	f.cleared = append(f.cleared, response)
	return nil
}

func (f *fakeStore) GetOrCreateBlockID(title string) (int64, error) {
	if id, ok := f.blocks[title]; ok {
		return id, nil
	}
	id := int64(len(f.blocks) + 1)
	f.blocks[title] = id
	return id, nil
}

// fakeResolver replays a scripted completion.
type fakeResolver struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeResolver) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}
