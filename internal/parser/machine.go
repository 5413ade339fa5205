package parser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// How long a page-load handler waits for the previous cycle before it
// assumes that cycle died holding the slot.
const inflightWaitSeconds = 10

const (
	minAnswerPause = 10 * time.Second
	maxAnswerPause = 29 * time.Second
)

var reDigits = regexp.MustCompile(`\d+`)

// RunLogger receives the human-readable event trail of one test. The file
// lives next to the answers and is what gets sent around when a test goes
// wrong.
type RunLogger interface {
	Line(format string, args ...any)
	Close() error
}

// RunLogFunc opens the event trail for one test, named after the student
// and the discipline, and returns it with its path. Nil disables trails.
type RunLogFunc func(student, discipline string) (RunLogger, string, error)

// MachineConfig tunes the progression loop.
type MachineConfig struct {
	// FakeErrors makes the loop deliberately skip questions near the end
	// of a test so the attempt does not score a suspicious 100%. The
	// budget is a tenth of the test; genuine misses consume it first.
	FakeErrors bool
	// AnswerPause is the total thinking time per question, spent half
	// before the lookup and half before pressing answer.
	AnswerPause time.Duration
}

// Machine is the test progression loop. Every page load runs one cycle:
// read the state of the page, decide what it is, and either answer, skip,
// finish or wait.
type Machine struct {
	d        PageDriver
	engine   *Engine
	verifier *Verifier
	log      *zap.SugaredLogger
	openLog  RunLogFunc
	cfg      MachineConfig

	st       SessionState
	runLog   RunLogger
	inflight chan struct{}
	toggles  <-chan struct{}
}

// NewMachine wires the loop. toggles delivers manual-override flips and
// may be nil.
func NewMachine(d PageDriver, engine *Engine, verifier *Verifier, log *zap.SugaredLogger,
	openLog RunLogFunc, toggles <-chan struct{}, cfg MachineConfig) *Machine {
	return &Machine{
		d:        d,
		engine:   engine,
		verifier: verifier,
		log:      log,
		openLog:  openLog,
		toggles:  toggles,
		cfg:      cfg,
		inflight: make(chan struct{}, 1),
	}
}

// ClampAnswerPause bounds the configured pause to the answer rhythm the
// platform considers human.
func ClampAnswerPause(d time.Duration) time.Duration {
	if d < minAnswerPause {
		return minAnswerPause
	}
	if d > maxAnswerPause {
		return maxAnswerPause
	}
	return d
}

// State exposes the session state for inspection. Not safe against a
// concurrently running cycle.
func (m *Machine) State() *SessionState { return &m.st }

// OnPageLoad is the entry point, invoked by the browser session for every
// load event. It decides what kind of page appeared and reacts. Handlers
// for consecutive loads serialize on the in-flight slot so two cycles
// never drive the page at once.
func (m *Machine) OnPageLoad(ctx context.Context) {
	m.drainToggles()

	if n, err := m.d.Count(selLoginPopup); err == nil && n > 0 {
		m.log.Info("login form shown, waiting for the user")
		return
	}
	if n, err := m.d.Count(selServerError); err == nil && n > 0 {
		m.log.Warn("server error page, reloading")
		if err := m.d.Reload(); err != nil {
			m.log.Errorw("reload failed", "error", err)
		}
		return
	}
	if n, err := m.d.Count(selIdentifyBtn); err == nil && n > 0 {
		m.beginTest()
		return
	}
	if n, err := m.d.Count(selTimer); err != nil || n == 0 {
		return // not a test page
	}

	if !m.acquire(ctx) {
		return
	}
	defer m.release()
	m.runCycle(ctx)
}

// beginTest handles the identification page that precedes every test: the
// previous test is settled and the per-test state starts fresh. The
// identification button itself is for the student, not for us.
func (m *Machine) beginTest() {
	if len(m.st.AIPending) > 0 {
		results, err := FetchResults(m.d)
		if err != nil {
			m.log.Warnw("results table unavailable, pending answers dropped", "error", err)
		} else {
			m.verifier.Flush(results, m.st.AIPending)
		}
		m.st.AIPending = nil
	}
	m.closeRunLog()
	m.st.ResetForTest()
	m.log.Info("identification page, state reset")
}

// runCycle processes the question page currently shown.
func (m *Machine) runCycle(ctx context.Context) {
	m.pause(ctx)

	info, err := m.readTestInfo()
	if err != nil {
		m.reload("данные теста не прочитаны: " + err.Error())
		return
	}

	if m.st.CompleteTest {
		m.finishTest(info)
		return
	}
	if info.Item == info.QuestionsCount {
		m.st.CompleteTest = true
	}

	if err := m.ensureContext(); err != nil {
		m.reload("страница теста не прочитана: " + err.Error())
		return
	}

	if m.needArtificialSkip(info) {
		m.pause(ctx)
		m.skip("искусственная ошибка")
		return
	}

	q, err := m.engine.ReadQuestion(m.d)
	if err != nil {
		m.reload("вопрос не прочитан: " + err.Error())
		return
	}
	qt, err := Classify(m.d)
	if err != nil || qt == TypeUnknown {
		m.reload("тип вопроса не распознан")
		return
	}
	q.Type = qt
	m.logLine("вопрос %d/%d (%s)", info.Item, info.QuestionsCount, qt)

	out := m.engine.Resolve(ctx, m.d, &m.st, q)
	switch {
	case out.Reload:
		m.reload(out.Message)
	case out.Skip:
		if out.Unfound {
			m.st.UnfoundAnswers++
		}
		m.skip(out.Message)
	default:
		if out.Message != "" {
			m.logLine("%s", out.Message)
		}
		m.pause(ctx)
		m.submit()
	}
}

// needArtificialSkip says whether this question should be sacrificed to
// the error budget. Skipping starts only once the remaining questions
// would not suffice to fill the budget naturally.
func (m *Machine) needArtificialSkip(info TestInfo) bool {
	if !m.cfg.FakeErrors {
		return false
	}
	budget := info.QuestionsCount / 10
	need := budget - m.st.UnfoundAnswers - info.QuestionsUnanswered
	return need > 0 && info.Remaining() <= budget
}

// finishTest presses finish, unless so much was skipped that submitting
// would bury the attempt anyway. The skipped count comes from the page
// header, so a test joined halfway through is judged on what the platform
// sees, not on what this session did.
func (m *Machine) finishTest(info TestInfo) {
	if m.st.ManualOverride {
		m.logLine("ручной режим: завершение теста оставлено пользователю")
		return
	}
	if info.QuestionsUnanswered > info.QuestionsCount/2 {
		m.logLine("пропущено %d из %d, тест не будет завершён",
			info.QuestionsUnanswered, info.QuestionsCount)
		m.closeRunLog()
		m.st.ResetForTest()
		return
	}
	m.logLine("тест завершён, пропущено %d из %d",
		info.QuestionsUnanswered, info.QuestionsCount)
	if err := m.d.Click(selFinishBtn); err != nil {
		m.log.Errorw("finish button not clicked", "error", err)
	}
	m.closeRunLog()
	m.st.ResetForTest()
}

// readTestInfo parses the progress header of the test page.
func (m *Machine) readTestInfo() (TestInfo, error) {
	var info TestInfo
	item, err := m.readInt(selTestItem)
	if err != nil {
		return info, err
	}
	count, err := m.readInt(selTestCount)
	if err != nil {
		return info, err
	}
	info.Item, info.QuestionsCount = item, count

	// The skipped counter only renders after the first skip.
	if n, err := m.d.Count(selTestSkipped); err == nil && n > 0 {
		if skipped, err := m.readInt(selTestSkipped); err == nil {
			info.QuestionsUnanswered = skipped
		}
	}
	return info, nil
}

func (m *Machine) readInt(sel string) (int, error) {
	text, err := m.d.Text(sel)
	if err != nil {
		return 0, err
	}
	digits := reDigits.FindString(text)
	if digits == "" {
		return 0, fmt.Errorf("no number in %q", text)
	}
	return strconv.Atoi(digits)
}

// ensureContext reads the discipline title and opens the run log on the
// first question of a test.
func (m *Machine) ensureContext() error {
	if m.st.Discipline == "" || m.st.LogPath == "" {
		title, err := m.d.Text(selDiscipline)
		if err != nil {
			return err
		}
		m.st.Discipline = strings.TrimSpace(title)
	}
	if m.runLog == nil && m.openLog != nil {
		student := "unknown"
		if s, err := m.d.Text(selProfile); err == nil {
			student = strings.TrimSpace(s)
		}
		rl, path, err := m.openLog(student, m.st.Discipline)
		if err != nil {
			m.log.Warnw("run log not opened", "error", err)
			return nil
		}
		m.runLog = rl
		m.st.LogPath = path
	}
	return nil
}

func (m *Machine) skip(reason string) {
	m.logLine("вопрос пропущен: %s", reason)
	if m.st.ManualOverride {
		m.logLine("ручной режим: пропуск оставлен пользователю")
		return
	}
	if err := m.d.Click(selSkipBtn); err != nil {
		m.log.Errorw("skip button not clicked", "error", err)
		m.reload("кнопка пропуска не найдена")
	}
}

func (m *Machine) submit() {
	if m.st.ManualOverride {
		m.logLine("ручной режим: ответ оставлен пользователю")
		return
	}
	if err := m.d.Click(selSubmitBtn); err != nil {
		m.reload("кнопка ответа не найдена: " + err.Error())
	}
}

func (m *Machine) reload(reason string) {
	m.logLine("перезагрузка страницы: %s", reason)
	if err := m.d.Reload(); err != nil {
		m.log.Errorw("reload failed", "error", err)
	}
}

// pause spends half of the thinking time. It is called twice per cycle.
func (m *Machine) pause(ctx context.Context) {
	if m.cfg.AnswerPause <= 0 {
		return
	}
	select {
	case <-time.After(m.cfg.AnswerPause / 2):
	case <-ctx.Done():
	}
}

// acquire takes the in-flight slot, waiting a bounded time for the
// previous cycle. A cycle that still holds the slot after the wait is
// stuck on a dead page; its slot is reclaimed so the loop keeps moving.
func (m *Machine) acquire(ctx context.Context) bool {
	for i := 0; i < inflightWaitSeconds; i++ {
		select {
		case m.inflight <- struct{}{}:
			return true
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}
	m.log.Warn("previous cycle never released the page, reclaiming")
	select {
	case <-m.inflight:
	default:
	}
	select {
	case m.inflight <- struct{}{}:
		return true
	default:
		return false
	}
}

func (m *Machine) release() {
	select {
	case <-m.inflight:
	default:
	}
}

func (m *Machine) drainToggles() {
	for {
		select {
		case _, ok := <-m.toggles:
			if !ok {
				m.toggles = nil
				return
			}
			m.st.ManualOverride = !m.st.ManualOverride
			m.log.Infow("manual override toggled", "active", m.st.ManualOverride)
			m.logLine("ручной режим: %v", m.st.ManualOverride)
		default:
			return
		}
	}
}

func (m *Machine) logLine(format string, args ...any) {
	m.log.Infof(format, args...)
	if m.runLog != nil {
		m.runLog.Line(format, args...)
	}
}

func (m *Machine) closeRunLog() {
	if m.runLog != nil {
		if err := m.runLog.Close(); err != nil {
			m.log.Warnw("run log close failed", "error", err)
		}
		m.runLog = nil
	}
}
