package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanModelOutput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"42", "42"},
		{"```json\n42\n```", "42"},
		{"`42`", "42"},
		{"\"42\"", "42"},
		{"  42  ", "42"},
	}
	for _, tt := range tests {
		if got := cleanModelOutput(tt.in); got != tt.want {
			t.Errorf("cleanModelOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseModelResponse(t *testing.T) {
	single := &answerOptions{Single: map[string]string{"a1": "один", "a2": "два", "a3": "три"}}
	match := &answerOptions{
		Left:  map[string]string{"l1": "лево", "l2": "лево два"},
		Right: map[string]string{"r1": "право", "r2": "право два"},
	}

	tests := []struct {
		name string
		qt   QuestionType
		raw  string
		opts *answerOptions
		want string
		fail bool
	}{
		{"choice ok", TypeChoice, "a2", single, "a2", false},
		{"choice fenced", TypeChoice, "```json\na2\n```", single, "a2", false},
		{"choice unknown id", TypeChoice, "a9", single, "", true},
		{"choice prose", TypeChoice, "правильный ответ a2", single, "", true},
		{"multi ok", TypeChoiceMultiple, "a1, a3", single, "a1,a3", false},
		{"multi unknown id", TypeChoiceMultiple, "a1,a9", single, "", true},
		{"order ok", TypeOrder, "a3,a1,a2", single, "a3,a1,a2", false},
		{"order incomplete", TypeOrder, "a3,a1", single, "", true},
		{"sequence ok", TypeSequence, "a2,a3,a1", single, "a2,a3,a1", false},
		{"match ok", TypeMatch, "l1|r1,l2|r2", match, "l1|r1,l2|r2", false},
		{"match unknown left", TypeMatch, "l9|r1", match, "", true},
		{"match multi ok", TypeMatchMultiple, "l1|r1;r2,l2|r1", match, "l1|r1;r2,l2|r1", false},
		{"text ok", TypeTextEntry, " менеджмент ", &answerOptions{}, "менеджмент", false},
		{"empty", TypeChoice, "", single, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, out := parseModelResponse(tt.qt, tt.raw, tt.opts)
			if tt.fail {
				assert.True(t, out.Skip, "expected rejection, got %q", got)
				assert.True(t, out.Unfound)
				return
			}
			require.True(t, out.OK(), "outcome: %+v", out)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPromptStableAndComplete(t *testing.T) {
	q := &Question{Type: TypeChoice, Plain: "Столица Франции?"}
	opts := &answerOptions{Single: map[string]string{"b": "Лион", "a": "Париж", "c": "Марсель"}}

	first, err := buildPrompt(q, opts)
	require.NoError(t, err)
	second, err := buildPrompt(q, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second, "prompt must not depend on map iteration order")

	assert.Contains(t, first, "Столица Франции?")
	assert.Contains(t, first, `"a":"Париж"`)
	assert.True(t, strings.Contains(first, "идентификатор"))
}

func TestBuildPromptMatchCarriesBothSides(t *testing.T) {
	q := &Question{Type: TypeMatch, Plain: "Сопоставьте"}
	opts := &answerOptions{
		Left:  map[string]string{"l1": "страна"},
		Right: map[string]string{"r1": "столица"},
	}
	prompt, err := buildPrompt(q, opts)
	require.NoError(t, err)
	assert.Contains(t, prompt, `"l1":"страна"`)
	assert.Contains(t, prompt, `"r1":"столица"`)
	assert.Contains(t, prompt, "левый|правый")
}
