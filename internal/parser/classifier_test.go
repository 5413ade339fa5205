package parser

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		formText  string
		hasBottom bool
		want      QuestionType
	}{
		{
			"single choice",
			"Одиночный выбор • с выбором одного правильного ответа из нескольких предложенных вариантов",
			false, TypeChoice,
		},
		{
			"multiple choice",
			"Множественный выбор • с выбором нескольких правильных ответов из предложенных вариантов",
			false, TypeChoiceMultiple,
		},
		// The platform writes the label with a latin "c".
		{"text entry", "Текcтовый ответ", false, TypeTextEntry},
		{"order", "Сортировка", false, TypeOrder},
		{"sequence", "Последовательность", false, TypeSequence},
		{"match", "Сопоставление", false, TypeMatch},
		{"match with bottom pane", "Сопоставление", true, TypeMatchMultiple},
		{"unrecognized", "что-то новое", false, TypeUnknown},
		{"empty form", "", false, TypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage()
			page.texts[selAssessForm] = tt.formText
			if tt.hasBottom {
				page.counts[selMatchBottomPane] = 1
			}
			got, err := Classify(page)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify = %q, want %q", got, tt.want)
			}
		})
	}
}
