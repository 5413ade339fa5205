package parser

import "fmt"

// answerOptions are the selectable elements of the current question,
// keyed by element id, with their visible text as values. Match questions
// carry two sides.
type answerOptions struct {
	Single map[string]string
	Left   map[string]string
	Right  map[string]string
}

// collectOptions reads the answer options of the page for the given
// question type. Text questions have none.
func collectOptions(d PageDriver, qt QuestionType) (*answerOptions, error) {
	switch qt {
	case TypeChoice:
		m, err := choiceOptions(d, selChoiceInputs)
		return &answerOptions{Single: m}, err
	case TypeChoiceMultiple:
		m, err := choiceOptions(d, selChoiceMultInputs)
		return &answerOptions{Single: m}, err
	case TypeTextEntry:
		return &answerOptions{}, nil
	case TypeOrder:
		m, err := elementOptions(d, selOrderItems, "id")
		return &answerOptions{Single: m}, err
	case TypeSequence:
		m, err := elementOptions(d, selSequenceItems, "data")
		return &answerOptions{Single: m}, err
	case TypeMatch:
		left, err := elementOptions(d, selMatchLeftCells, "id")
		if err != nil {
			return nil, err
		}
		right, err := elementOptions(d, selMatchRightCells, "id")
		if err != nil {
			return nil, err
		}
		return &answerOptions{Left: left, Right: right}, nil
	case TypeMatchMultiple:
		left, err := elementOptions(d, selMatchTopSlots, "data")
		if err != nil {
			return nil, err
		}
		right, err := elementOptions(d, selMatchBottomItems, "data")
		if err != nil {
			return nil, err
		}
		return &answerOptions{Left: left, Right: right}, nil
	default:
		return nil, fmt.Errorf("no options for question type %q", qt)
	}
}

// choiceOptions pairs each radio or checkbox value with its label text.
func choiceOptions(d PageDriver, inputSel string) (map[string]string, error) {
	ids, err := d.AttributeAll(inputSel, "value")
	if err != nil {
		return nil, err
	}
	opts := make(map[string]string, len(ids))
	for _, id := range ids {
		label, err := d.Text(labelFor(id))
		if err != nil {
			return nil, err
		}
		opts[id] = label
	}
	return opts, nil
}

// elementOptions pairs an attribute of each matching element with its
// visible text.
func elementOptions(d PageDriver, sel, attr string) (map[string]string, error) {
	ids, err := d.AttributeAll(sel, attr)
	if err != nil {
		return nil, err
	}
	texts, err := d.TextAll(sel)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(texts) {
		return nil, fmt.Errorf("page changed during read: %d ids, %d texts", len(ids), len(texts))
	}
	opts := make(map[string]string, len(ids))
	for i, id := range ids {
		opts[id] = texts[i]
	}
	return opts, nil
}
