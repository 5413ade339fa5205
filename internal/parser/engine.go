package parser

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrTextValueNotFound is returned by AnswerStore.LookupTextValue when no
// literal text is filed under the identifier.
var ErrTextValueNotFound = errors.New("text value not found")

var (
	reMatchSplit      = regexp.MustCompile(`[|,]`)
	reMatchMultiSplit = regexp.MustCompile(`[|;,]`)
)

// EngineConfig tunes the resolution engine.
type EngineConfig struct {
	// OnlyAI skips store lookups entirely and asks the model for every
	// question.
	OnlyAI bool
	// AIStreakLimit is how many consecutive model resolutions switch the
	// engine into model-only mode for the rest of the test. The store
	// clearly does not know the test by then, and each failed lookup
	// costs a full candidate scan.
	AIStreakLimit int
}

// Engine resolves the answer for a question: first against the local
// store, then against the model, and fills it into the page.
type Engine struct {
	store AnswerStore
	ai    Resolver
	norm  *Normalizer
	log   *zap.SugaredLogger
	cfg   EngineConfig
}

// NewEngine wires a resolution engine. ai may be nil, which disables the
// model fallback.
func NewEngine(store AnswerStore, ai Resolver, log *zap.SugaredLogger, cfg EngineConfig) *Engine {
	if cfg.AIStreakLimit <= 0 {
		cfg.AIStreakLimit = 2
	}
	return &Engine{store: store, ai: ai, norm: NewNormalizer(), log: log, cfg: cfg}
}

// ReadQuestion snapshots the question node and prepares its search
// candidates. For image questions the image paths are the candidates: the
// platform serves stable asset paths, so they work as lookup keys.
func (e *Engine) ReadQuestion(d PageDriver) (*Question, error) {
	raw, err := d.HTML(selQuestionText)
	if err != nil {
		return nil, err
	}
	q := &Question{
		RawHTML: raw,
		Plain:   plainText(raw),
		Images:  imageSources(raw),
	}
	if q.HasImages() {
		q.Candidates = q.Images
	} else {
		q.Candidates = e.norm.Candidates(q.RawHTML, q.Plain)
	}
	return q, nil
}

// Resolve finds the answer for q and fills it into the page. The returned
// outcome tells the progression loop whether to submit, skip or reload.
func (e *Engine) Resolve(ctx context.Context, d PageDriver, st *SessionState, q *Question) Outcome {
	modelOnly := e.ai != nil && (e.cfg.OnlyAI || st.AIStreak >= e.cfg.AIStreakLimit)
	if !modelOnly {
		if rec, ok := e.findRecord(d, st, q); ok {
			st.AIStreak = 0
			return e.applyStored(d, q, rec)
		}
	}
	if e.ai == nil {
		return SkipUnfound("ответ не найден в базе")
	}
	if q.HasImages() {
		return SkipUnfound("вопрос содержит изображение, запрос к модели невозможен")
	}
	return e.resolveWithModel(ctx, d, st, q)
}

// findRecord runs the candidate scan, first under the current block scope
// and once more unscoped if the scoped pass misses. A scoped miss also
// drops the scope: the answer may be filed under a sibling block.
func (e *Engine) findRecord(d PageDriver, st *SessionState, q *Question) (AnswerRecord, bool) {
	if rec, ok := e.scanCandidates(d, st, q, st.BlockID); ok {
		return rec, true
	}
	if st.BlockID != 0 {
		st.BlockID = 0
		return e.scanCandidates(d, st, q, 0)
	}
	return AnswerRecord{}, false
}

// scanCandidates tries every candidate phrase in rank order. When a phrase
// matches several stored rows, insertion order breaks the tie and a row
// only wins if every element id it names is present on the page. That
// check is what keeps a stale row for a reworded question from being
// clicked blindly.
func (e *Engine) scanCandidates(d PageDriver, st *SessionState, q *Question, blockID int64) (AnswerRecord, bool) {
	for _, phrase := range q.Candidates {
		recs, err := e.store.LookupByText(phrase, q.Type, blockID)
		if err != nil {
			e.log.Warnw("store lookup failed", "phrase", phrase, "error", err)
			continue
		}
		for _, rec := range recs {
			ok, err := e.responseOnPage(d, q.Type, rec.Response)
			if err != nil {
				e.log.Warnw("page check failed", "response", rec.Response, "error", err)
				continue
			}
			if ok {
				st.BlockID = rec.BlockID
				return rec, true
			}
		}
	}
	return AnswerRecord{}, false
}

// responseOnPage reports whether every element id named by a stored
// response exists on the current page.
func (e *Engine) responseOnPage(d PageDriver, qt QuestionType, response string) (bool, error) {
	present := func(ids []string, sel func(string) string) (bool, error) {
		for _, id := range ids {
			if id == "" {
				return false, nil
			}
			cnt, err := d.Count(sel(id))
			if err != nil {
				return false, err
			}
			if cnt == 0 {
				return false, nil
			}
		}
		return true, nil
	}

	switch qt {
	case TypeChoice:
		return present([]string{response}, inputByValue)
	case TypeChoiceMultiple:
		return present(strings.Split(response, ","), inputByValue)
	case TypeTextEntry:
		// Text answers are typed, not clicked; nothing to verify here.
		return true, nil
	case TypeOrder:
		return present(strings.Split(response, ","), orderItemByID)
	case TypeMatch:
		return present(reMatchSplit.Split(response, -1), matchCellByID)
	case TypeMatchMultiple:
		pairs, err := parseMatchPairs(response, reMatchMultiSplit)
		if err != nil {
			return false, nil
		}
		for _, p := range pairs {
			if ok, err := present([]string{p.left}, matchSlotByData); err != nil || !ok {
				return ok, err
			}
			if ok, err := present(p.rights, draggableByData); err != nil || !ok {
				return ok, err
			}
		}
		return true, nil
	case TypeSequence:
		return present(strings.Split(response, ","), sequenceItemByData)
	default:
		return false, nil
	}
}

// applyStored fills a store-resolved answer into the page.
func (e *Engine) applyStored(d PageDriver, q *Question, rec AnswerRecord) Outcome {
	switch q.Type {
	case TypeTextEntry:
		return e.applyTextEntry(d, rec)
	case TypeOrder:
		return e.applyOrder(d, rec.Response)
	default:
		return e.applyIDs(d, q.Type, rec.Response)
	}
}

// applyIDs performs the click or drag interactions for an id-based
// response. Click targets that vanished mean a half-rendered page, so the
// loop should reload; a failed drag means the answer cannot be placed and
// the question is lost.
func (e *Engine) applyIDs(d PageDriver, qt QuestionType, response string) Outcome {
	switch qt {
	case TypeChoice:
		if err := d.Click(inputByValue(response)); err != nil {
			return Retry("вариант ответа не найден: " + err.Error())
		}
	case TypeChoiceMultiple:
		for _, id := range strings.Split(response, ",") {
			if err := d.Click(inputByValue(id)); err != nil {
				return Retry("вариант ответа не найден: " + err.Error())
			}
		}
	case TypeMatch:
		pairs, err := parseMatchPairs(response, reMatchSplit)
		if err != nil {
			return SkipUnfound("ответ сопоставления повреждён: " + err.Error())
		}
		for _, p := range pairs {
			for _, right := range p.rights {
				if err := d.DragTo(matchCellByID(right), matchCellByID(p.left)); err != nil {
					return SkipUnfound("перетаскивание не удалось: " + err.Error())
				}
			}
		}
	case TypeMatchMultiple:
		pairs, err := parseMatchPairs(response, reMatchMultiSplit)
		if err != nil {
			return SkipUnfound("ответ сопоставления повреждён: " + err.Error())
		}
		for _, p := range pairs {
			for _, right := range p.rights {
				if err := d.DragTo(draggableByData(right), matchSlotByData(p.left)); err != nil {
					return SkipUnfound("перетаскивание не удалось: " + err.Error())
				}
			}
		}
	case TypeSequence:
		for _, id := range strings.Split(response, ",") {
			if err := d.DragTo(sequenceItemByData(id), selSequenceTarget); err != nil {
				return SkipUnfound("перетаскивание не удалось: " + err.Error())
			}
		}
	default:
		return SkipUnfound("неизвестный тип вопроса")
	}
	return Answered()
}

// applyTextEntry resolves the stored identifier to the literal text and
// types it. Identifiers may carry a trailing comma-joined tail from older
// store versions; only the part before the first comma is the id. Model
// answers are stored as literal text, so a missing id row falls back to
// the response itself.
func (e *Engine) applyTextEntry(d PageDriver, rec AnswerRecord) Outcome {
	id, _, _ := strings.Cut(rec.Response, ",")
	text, err := e.store.LookupTextValue(id, rec.QuestionID)
	switch {
	case errors.Is(err, ErrTextValueNotFound):
		text = rec.Response
	case err != nil:
		return SkipUnfound("текст ответа недоступен: " + err.Error())
	}
	text = fixTextAnswer(text)
	if text == "" {
		return SkipUnfound("текст ответа пуст")
	}
	if err := d.Input(selTextEntryArea, text); err != nil {
		return Retry("поле ответа не найдено: " + err.Error())
	}
	return Answered()
}

// applyOrder trusts the order the page already shows. The player shuffles
// variants server-side and submitting keeps the shown order, so the only
// useful action is to flag a divergence from the stored response.
func (e *Engine) applyOrder(d PageDriver, response string) Outcome {
	ids, err := d.AttributeAll(selOrderItems, "id")
	if err != nil {
		return Retry("список сортировки не найден: " + err.Error())
	}
	if current := strings.Join(ids, ","); current != response {
		e.log.Warnw("order on page differs from stored response",
			"page", current, "stored", response)
		return Outcome{Message: "порядок на странице отличается от сохранённого"}
	}
	return Answered()
}

// resolveWithModel collects the answer options, asks the model and applies
// a validated response. Every accepted answer is queued for verification
// against the results table of the test.
func (e *Engine) resolveWithModel(ctx context.Context, d PageDriver, st *SessionState, q *Question) Outcome {
	opts, err := collectOptions(d, q.Type)
	if err != nil {
		return Retry("варианты ответа не прочитаны: " + err.Error())
	}
	prompt, err := buildPrompt(q, opts)
	if err != nil {
		return SkipUnfound("запрос к модели не собран: " + err.Error())
	}
	raw, err := e.ai.Complete(ctx, prompt)
	if err != nil {
		return SkipUnfound("запрос к модели не удался: " + err.Error())
	}
	response, out := parseModelResponse(q.Type, raw, opts)
	if !out.OK() {
		return out
	}

	var apply Outcome
	if q.Type == TypeTextEntry {
		if err := d.Input(selTextEntryArea, response); err != nil {
			apply = Retry("поле ответа не найдено: " + err.Error())
		}
	} else {
		apply = e.applyIDs(d, q.Type, response)
	}
	if !apply.OK() {
		return apply
	}

	st.AIStreak++
	st.AIPending = append(st.AIPending, PendingAnswer{
		Discipline: st.Discipline,
		Question:   q.RawHTML,
		Type:       q.Type,
		Response:   response,
		At:         time.Now(),
	})
	return apply
}

type matchPair struct {
	left   string
	rights []string
}

// parseMatchPairs splits a stored match response. The wire format is
// "left|right" pairs joined by commas; the multiple-match variant joins
// several rights with semicolons, which is why the splitter is a
// parameter.
func parseMatchPairs(response string, split *regexp.Regexp) ([]matchPair, error) {
	var pairs []matchPair
	for _, chunk := range strings.Split(response, ",") {
		fields := split.Split(chunk, -1)
		if len(fields) < 2 {
			return nil, errors.New("pair without answer: " + chunk)
		}
		p := matchPair{left: strings.TrimSpace(fields[0])}
		for _, r := range fields[1:] {
			r = strings.TrimSpace(r)
			if r == "" {
				return nil, errors.New("empty id in pair: " + chunk)
			}
			p.rights = append(p.rights, r)
		}
		if p.left == "" {
			return nil, errors.New("empty id in pair: " + chunk)
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return nil, errors.New("empty response")
	}
	return pairs, nil
}

// fixTextAnswer cleans artifacts seen in stored text answers: an
// explanation glued after a semicolon and the whole answer doubled back to
// back.
func fixTextAnswer(text string) string {
	text, _, _ = strings.Cut(text, ";")
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if n := len(runes); n > 0 && n%2 == 0 && string(runes[:n/2]) == string(runes[n/2:]) {
		text = strings.TrimSpace(string(runes[:n/2]))
	}
	return text
}
