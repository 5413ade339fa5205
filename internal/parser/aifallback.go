package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// reAnswerID accepts the element ids the platform generates. Anything
// outside this set in a model answer is hallucinated markup.
var reAnswerID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// buildPrompt renders the model request for a question. The options are
// serialized as JSON with the element ids as keys, so a valid answer is
// just ids in the wire format the store already uses. json.Marshal sorts
// map keys, which keeps the prompt identical between retries.
func buildPrompt(q *Question, opts *answerOptions) (string, error) {
	var b strings.Builder
	b.WriteString("Вопрос теста:\n")
	b.WriteString(q.Plain)
	b.WriteString("\n\n")

	writeJSON := func(title string, m map[string]string) error {
		enc, err := json.Marshal(m)
		if err != nil {
			return err
		}
		b.WriteString(title)
		b.Write(enc)
		b.WriteString("\n")
		return nil
	}

	switch q.Type {
	case TypeChoice:
		if err := writeJSON("Варианты ответа (ключ - идентификатор, значение - текст): ", opts.Single); err != nil {
			return "", err
		}
		b.WriteString("\nВыбери единственный правильный вариант. Верни только его идентификатор, без пояснений.")
	case TypeChoiceMultiple:
		if err := writeJSON("Варианты ответа (ключ - идентификатор, значение - текст): ", opts.Single); err != nil {
			return "", err
		}
		b.WriteString("\nВыбери все правильные варианты. Верни только их идентификаторы через запятую, без пояснений.")
	case TypeTextEntry:
		b.WriteString("Дай краткий ответ одной фразой, без пояснений и знаков препинания в конце.")
	case TypeOrder, TypeSequence:
		if err := writeJSON("Элементы (ключ - идентификатор, значение - текст): ", opts.Single); err != nil {
			return "", err
		}
		b.WriteString("\nРасставь элементы в правильном порядке. Верни только идентификаторы через запятую, без пояснений.")
	case TypeMatch:
		if err := writeJSON("Левая колонка (ключ - идентификатор, значение - текст): ", opts.Left); err != nil {
			return "", err
		}
		if err := writeJSON("Правая колонка (ключ - идентификатор, значение - текст): ", opts.Right); err != nil {
			return "", err
		}
		b.WriteString("\nСопоставь элементы колонок. Верни пары в формате левый|правый через запятую, без пояснений.")
	case TypeMatchMultiple:
		if err := writeJSON("Категории (ключ - идентификатор, значение - текст): ", opts.Left); err != nil {
			return "", err
		}
		if err := writeJSON("Элементы (ключ - идентификатор, значение - текст): ", opts.Right); err != nil {
			return "", err
		}
		b.WriteString("\nРаспредели элементы по категориям. Верни пары в формате категория|элемент;элемент через запятую, без пояснений.")
	default:
		return "", fmt.Errorf("no prompt for question type %q", q.Type)
	}
	return b.String(), nil
}

// parseModelResponse validates a raw model answer against the options on
// the page and converts it to the store wire format. An answer naming an
// id that does not exist is rejected wholesale: submitting half of a
// hallucinated answer is worse than skipping.
func parseModelResponse(qt QuestionType, raw string, opts *answerOptions) (string, Outcome) {
	clean := cleanModelOutput(raw)
	if clean == "" {
		return "", SkipUnfound("модель вернула пустой ответ")
	}

	reject := func(why string) (string, Outcome) {
		return "", SkipUnfound("модель вернула некорректный ответ: " + why)
	}

	switch qt {
	case TypeTextEntry:
		return clean, Answered()

	case TypeChoice:
		if _, ok := opts.Single[clean]; !ok {
			return reject(clean)
		}
		return clean, Answered()

	case TypeChoiceMultiple:
		ids, err := splitIDs(clean, opts.Single)
		if err != nil {
			return reject(err.Error())
		}
		return strings.Join(ids, ","), Answered()

	case TypeOrder, TypeSequence:
		ids, err := splitIDs(clean, opts.Single)
		if err != nil {
			return reject(err.Error())
		}
		if len(ids) != len(opts.Single) {
			return reject(fmt.Sprintf("%d элементов вместо %d", len(ids), len(opts.Single)))
		}
		return strings.Join(ids, ","), Answered()

	case TypeMatch, TypeMatchMultiple:
		split := reMatchSplit
		if qt == TypeMatchMultiple {
			split = reMatchMultiSplit
		}
		pairs, err := parseMatchPairs(clean, split)
		if err != nil {
			return reject(err.Error())
		}
		for _, p := range pairs {
			if _, ok := opts.Left[p.left]; !ok {
				return reject(p.left)
			}
			for _, r := range p.rights {
				if _, ok := opts.Right[r]; !ok {
					return reject(r)
				}
			}
		}
		return clean, Answered()

	default:
		return reject("неизвестный тип вопроса")
	}
}

// cleanModelOutput strips the code-fence noise chat models wrap short
// answers in.
func cleanModelOutput(raw string) string {
	s := strings.ReplaceAll(raw, "`", "")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "json")
	s = strings.Trim(s, "\"'")
	return strings.TrimSpace(s)
}

// splitIDs splits a comma-separated id list and checks every id against
// the known options.
func splitIDs(list string, known map[string]string) ([]string, error) {
	var ids []string
	for _, id := range strings.Split(list, ",") {
		id = strings.TrimSpace(id)
		if !reAnswerID.MatchString(id) {
			return nil, fmt.Errorf("недопустимый идентификатор %q", id)
		}
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("неизвестный идентификатор %q", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
