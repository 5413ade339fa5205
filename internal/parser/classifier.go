package parser

// typeLabels are the headings the player prints above a question. Checked
// in order; the first label found on the form wins.
var typeLabels = []struct {
	label string
	qt    QuestionType
}{
	{"Одиночный выбор • с выбором одного правильного ответа из нескольких предложенных вариантов", TypeChoice},
	{"Множественный выбор • с выбором нескольких правильных ответов из предложенных вариантов", TypeChoiceMultiple},
	{"Текcтовый ответ", TypeTextEntry}, // the platform misspells "Текстовый" with a latin "c"
	{"Сортировка", TypeOrder},
	{"Последовательность", TypeSequence},
	{"Сопоставление", TypeMatch},
}

// Classify determines the interaction model of the question on the page.
// A match question with the separate bottom pane of draggable answers is a
// matchMultiple: one left cell can take several answers there.
func Classify(d PageDriver) (QuestionType, error) {
	for _, tl := range typeLabels {
		ok, err := d.HasText(selAssessForm, tl.label)
		if err != nil {
			return TypeUnknown, err
		}
		if !ok {
			continue
		}
		if tl.qt == TypeMatch {
			cnt, err := d.Count(selMatchBottomPane)
			if err != nil {
				return TypeUnknown, err
			}
			if cnt > 0 {
				return TypeMatchMultiple, nil
			}
		}
		return tl.qt, nil
	}
	return TypeUnknown, nil
}
