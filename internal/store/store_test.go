package store

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xacan1/SynergyFuckingSystem/internal/parser"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func answer(block, question, response string) parser.ResolvedAnswer {
	return parser.ResolvedAnswer{
		Block:    block,
		Question: question,
		Type:     parser.TypeChoice,
		Response: response,
		Created:  time.Now(),
	}
}

func TestSaveCorrectAndLookup(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveCorrect(answer("Менеджмент", "Что такое менеджмент организации", "42")); err != nil {
		t.Fatalf("save: %v", err)
	}

	recs, err := s.LookupByText("менеджмент организации", parser.TypeChoice, 0)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Response != "42" {
		t.Errorf("response = %q, want %q", recs[0].Response, "42")
	}
}

func TestLookupIsSubstringAndCaseSensitive(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveCorrect(answer("Менеджмент", "Что такое Менеджмент организации", "42")); err != nil {
		t.Fatalf("save: %v", err)
	}

	tests := []struct {
		phrase string
		hits   int
	}{
		{"Менеджмент организации", 1},
		{"такое Менеджмент", 1},
		{"менеджмент организации", 0}, // GLOB is case-sensitive
		{"другой вопрос", 0},
	}
	for _, tt := range tests {
		recs, err := s.LookupByText(tt.phrase, parser.TypeChoice, 0)
		if err != nil {
			t.Fatalf("lookup %q: %v", tt.phrase, err)
		}
		if len(recs) != tt.hits {
			t.Errorf("lookup %q: %d hits, want %d", tt.phrase, len(recs), tt.hits)
		}
	}
}

func TestLookupScopedByBlock(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveCorrect(answer("Менеджмент", "общий вопрос дисциплин", "1")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveCorrect(answer("Право", "общий вопрос дисциплин", "2")); err != nil {
		t.Fatal(err)
	}
	blockID, err := s.GetOrCreateBlockID("Право")
	if err != nil {
		t.Fatal(err)
	}

	recs, err := s.LookupByText("общий вопрос", parser.TypeChoice, blockID)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Response != "2" {
		t.Errorf("scoped lookup = %+v, want the Право row only", recs)
	}

	recs, err = s.LookupByText("общий вопрос", parser.TypeChoice, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("unscoped lookup found %d rows, want 2", len(recs))
	}
}

func TestSaveCorrectIsIdempotentPerQuestion(t *testing.T) {
	s := newTestStore(t)
	for _, resp := range []string{"41", "42"} {
		if err := s.SaveCorrect(answer("Менеджмент", "повторный вопрос теста", resp)); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.LookupByText("повторный вопрос", parser.TypeChoice, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d rows, want 1 (updated in place)", len(recs))
	}
	if recs[0].Response != "42" {
		t.Errorf("response = %q, want the newer %q", recs[0].Response, "42")
	}
}

func TestClearedResponsesInvisibleToLookup(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveCorrect(answer("Менеджмент", "спорный вопрос теста", "42")); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearResponse("спорный вопрос теста", parser.TypeChoice, "Менеджмент", "42"); err != nil {
		t.Fatal(err)
	}

	recs, err := s.LookupByText("спорный вопрос", parser.TypeChoice, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("cleared row still surfaced: %+v", recs)
	}
}

func TestClearResponseKeepsForeignResponse(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveCorrect(answer("Менеджмент", "вопрос с новым ответом", "43")); err != nil {
		t.Fatal(err)
	}
	// Clearing an outdated response must not touch the fresher row.
	if err := s.ClearResponse("вопрос с новым ответом", parser.TypeChoice, "Менеджмент", "42"); err != nil {
		t.Fatal(err)
	}
	recs, err := s.LookupByText("вопрос с новым", parser.TypeChoice, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("fresher row was cleared")
	}
}

func TestSaveIncorrect(t *testing.T) {
	s := newTestStore(t)
	ans := answer("Менеджмент", "вопрос с неверным ответом", "13")

	for i := 0; i < 2; i++ {
		if err := s.SaveIncorrect(ans); err != nil {
			t.Fatal(err)
		}
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM incorrect_responses`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("incorrect responses = %d, want 1 (deduplicated)", n)
	}

	// The question row created for the blacklist has no correct response
	// and must stay invisible to lookups.
	recs, err := s.LookupByText("вопрос с неверным", parser.TypeChoice, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("blacklist-only row surfaced: %+v", recs)
	}
}

func TestSaveIncorrectSkipsTextEntry(t *testing.T) {
	s := newTestStore(t)
	ans := parser.ResolvedAnswer{
		Block: "Право", Question: "определение", Type: parser.TypeTextEntry, Response: "текст",
	}
	if err := s.SaveIncorrect(ans); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM incorrect_responses`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("text entry entered the blacklist")
	}
}

func TestTextValues(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LookupTextValue("id1", 0); !errors.Is(err, parser.ErrTextValueNotFound) {
		t.Fatalf("expected ErrTextValueNotFound, got %v", err)
	}
	if err := s.SaveTextValue("id1", 5, "менеджмент"); err != nil {
		t.Fatal(err)
	}
	got, err := s.LookupTextValue("id1", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got != "менеджмент" {
		t.Errorf("text value = %q", got)
	}
}

func TestGetOrCreateBlockID(t *testing.T) {
	s := newTestStore(t)
	first, err := s.GetOrCreateBlockID("Менеджмент")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.GetOrCreateBlockID("Менеджмент")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("same title produced two blocks: %d, %d", first, second)
	}
	other, err := s.GetOrCreateBlockID("Право")
	if err != nil {
		t.Fatal(err)
	}
	if other == first {
		t.Errorf("different titles share a block id")
	}
}

func TestProxyPool(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AcquireProxy(); !errors.Is(err, ErrNoProxy) {
		t.Fatalf("empty pool: expected ErrNoProxy, got %v", err)
	}

	if err := s.AddProxy(Proxy{IP: "10.0.0.1", Port: 3128, User: "u", Password: "p"}); err != nil {
		t.Fatal(err)
	}

	var leased []*Proxy
	for i := 0; i < 4; i++ {
		p, err := s.AcquireProxy()
		if err != nil {
			t.Fatalf("lease %d: %v", i, err)
		}
		leased = append(leased, p)
	}
	if _, err := s.AcquireProxy(); !errors.Is(err, ErrNoProxy) {
		t.Fatalf("lease past the limit must fail, got %v", err)
	}

	if err := s.ReleaseProxy(leased[0]); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AcquireProxy(); err != nil {
		t.Fatalf("lease after release: %v", err)
	}
}

func TestProxyAddr(t *testing.T) {
	p := Proxy{IP: "10.0.0.1", Port: 3128}
	if p.Addr() != "10.0.0.1:3128" {
		t.Errorf("Addr() = %q", p.Addr())
	}
}
