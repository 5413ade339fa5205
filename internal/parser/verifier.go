package parser

import (
	"strings"

	"go.uber.org/zap"
)

// Verifier settles model-produced answers against the results table the
// platform shows for a finished test.
type Verifier struct {
	store AnswerStore
	log   *zap.SugaredLogger
}

func NewVerifier(store AnswerStore, log *zap.SugaredLogger) *Verifier {
	return &Verifier{store: store, log: log}
}

// FetchResults opens the statistics of the most recent attempt and reads
// the verdict table, keyed by the question HTML exactly as the pending
// queue stores it. The verdict cell is reduced to its visible text, so
// markup around the verdict cannot leak into the negation check.
func FetchResults(d PageDriver) (map[string]string, error) {
	if err := d.ClickLast(selStatisticLink); err != nil {
		return nil, err
	}
	rows, err := d.RowsHTML(selResultRows, selResultCells)
	if err != nil {
		return nil, err
	}
	results := make(map[string]string, len(rows))
	for _, cells := range rows {
		if len(cells) < 4 {
			continue
		}
		results[strings.TrimSpace(cells[1])] = plainText(cells[3])
	}
	return results, nil
}

// Flush persists the verdict for every pending answer present in the
// results. A negative verdict clears any stale positive record before the
// incorrect response is filed, so the next run will not repeat it. Pending
// answers missing from the table are dropped: they cannot be settled later
// either.
func (v *Verifier) Flush(results map[string]string, pending []PendingAnswer) {
	for _, p := range pending {
		verdict, ok := results[p.Question]
		if !ok {
			v.log.Debugw("pending answer not in results", "question", p.Question)
			continue
		}
		if strings.Contains(strings.ToLower(verdict), "не") {
			if err := v.store.ClearResponse(p.Question, p.Type, p.Discipline, p.Response); err != nil {
				v.log.Warnw("clearing stale response failed", "error", err)
			}
			if err := v.store.SaveIncorrect(v.resolved(p)); err != nil {
				v.log.Warnw("saving incorrect response failed", "error", err)
			}
			continue
		}
		if err := v.store.SaveCorrect(v.resolved(p)); err != nil {
			v.log.Warnw("saving correct response failed", "error", err)
		}
	}
}

func (v *Verifier) resolved(p PendingAnswer) ResolvedAnswer {
	return ResolvedAnswer{
		Block:    p.Discipline,
		Question: p.Question,
		Type:     p.Type,
		Response: p.Response,
		Created:  p.At,
	}
}
