// Package store persists answers, their verdicts and the proxy pool in a
// single sqlite database shared between runs.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/xacan1/SynergyFuckingSystem/internal/parser"
)

const schema = `
CREATE TABLE IF NOT EXISTS question_blocks (
    questionBlockId INTEGER PRIMARY KEY AUTOINCREMENT,
    title           TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS question_answers (
    questionId      INTEGER PRIMARY KEY AUTOINCREMENT,
    questionBlockId INTEGER NOT NULL,
    question        TEXT NOT NULL,
    questionType    TEXT NOT NULL,
    correctResponse TEXT NOT NULL DEFAULT '',
    created         TEXT NOT NULL,
    FOREIGN KEY (questionBlockId) REFERENCES question_blocks(questionBlockId)
);

CREATE INDEX IF NOT EXISTS idx_answers_type_block
    ON question_answers(questionType, questionBlockId);

CREATE TABLE IF NOT EXISTS incorrect_responses (
    responseId        INTEGER PRIMARY KEY AUTOINCREMENT,
    questionId        INTEGER NOT NULL,
    incorrectResponse TEXT NOT NULL,
    FOREIGN KEY (questionId) REFERENCES question_answers(questionId)
);

CREATE TABLE IF NOT EXISTS text_answers (
    identifier TEXT NOT NULL,
    questionId INTEGER NOT NULL DEFAULT 0,
    answer     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_text_answers_identifier
    ON text_answers(identifier);

CREATE TABLE IF NOT EXISTS proxies (
    ip       TEXT NOT NULL,
    port     INTEGER NOT NULL,
    user     TEXT NOT NULL DEFAULT '',
    password TEXT NOT NULL DEFAULT '',
    used     INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (ip, port)
);
`

// Store wraps the sqlite database. It keeps a single connection: sqlite
// serializes writers anyway and one connection avoids busy errors from the
// page-load handlers.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open creates or opens the database at path and ensures the schema.
// ":memory:" gives an ephemeral store for tests.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// LookupByText finds answers whose question text contains the phrase,
// oldest first so earlier knowledge wins collisions. A zero blockID
// searches across all blocks. GLOB is used instead of LIKE: it is
// case-sensitive, and the stored HTML is case-exact.
func (s *Store) LookupByText(phrase string, qt parser.QuestionType, blockID int64) ([]parser.AnswerRecord, error) {
	query := `SELECT correctResponse, questionId, questionBlockId
	          FROM question_answers
	          WHERE correctResponse != '' AND questionType = ? AND question GLOB ?`
	args := []any{string(qt), "*" + phrase + "*"}
	if blockID != 0 {
		query += " AND questionBlockId = ?"
		args = append(args, blockID)
	}
	query += " ORDER BY questionId"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup by text: %w", err)
	}
	defer rows.Close()

	var recs []parser.AnswerRecord
	for rows.Next() {
		var rec parser.AnswerRecord
		if err := rows.Scan(&rec.Response, &rec.QuestionID, &rec.BlockID); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// LookupTextValue resolves a text-entry identifier to its literal answer.
func (s *Store) LookupTextValue(id string, questionID int64) (string, error) {
	var answer string
	err := s.db.QueryRow(
		`SELECT answer FROM text_answers WHERE identifier = ? LIMIT 1`, id,
	).Scan(&answer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", parser.ErrTextValueNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup text value: %w", err)
	}
	return answer, nil
}

// SaveCorrect stores a verified answer. A row already filed for the same
// question, type and block is updated in place, so re-verification after a
// platform rewording replaces the response instead of duplicating it.
func (s *Store) SaveCorrect(ans parser.ResolvedAnswer) error {
	blockID, err := s.GetOrCreateBlockID(ans.Block)
	if err != nil {
		return err
	}
	qid, err := s.findQuestion(ans.Question, ans.Type, blockID)
	if err != nil {
		return err
	}
	created := ans.Created
	if created.IsZero() {
		created = time.Now()
	}
	if qid != 0 {
		_, err = s.db.Exec(
			`UPDATE question_answers SET correctResponse = ? WHERE questionId = ?`,
			ans.Response, qid)
		if err != nil {
			return fmt.Errorf("update answer: %w", err)
		}
		return nil
	}
	_, err = s.db.Exec(
		`INSERT INTO question_answers (questionBlockId, question, questionType, correctResponse, created)
		 VALUES (?, ?, ?, ?, ?)`,
		blockID, ans.Question, string(ans.Type), ans.Response, created.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

// SaveIncorrect files a refuted response so it is never repeated. Text
// answers are excluded: free text has too many near-identical spellings
// for a blacklist to mean anything.
func (s *Store) SaveIncorrect(ans parser.ResolvedAnswer) error {
	if ans.Type == parser.TypeTextEntry {
		return nil
	}
	blockID, err := s.GetOrCreateBlockID(ans.Block)
	if err != nil {
		return err
	}
	qid, err := s.findQuestion(ans.Question, ans.Type, blockID)
	if err != nil {
		return err
	}
	if qid == 0 {
		created := ans.Created
		if created.IsZero() {
			created = time.Now()
		}
		res, err := s.db.Exec(
			`INSERT INTO question_answers (questionBlockId, question, questionType, correctResponse, created)
			 VALUES (?, ?, ?, '', ?)`,
			blockID, ans.Question, string(ans.Type), created.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		if qid, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("question id: %w", err)
		}
	}

	var exists int
	err = s.db.QueryRow(
		`SELECT 1 FROM incorrect_responses WHERE questionId = ? AND incorrectResponse = ?`,
		qid, ans.Response,
	).Scan(&exists)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check incorrect response: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO incorrect_responses (questionId, incorrectResponse) VALUES (?, ?)`,
		qid, ans.Response)
	if err != nil {
		return fmt.Errorf("insert incorrect response: %w", err)
	}
	return nil
}

// ClearResponse blanks a stored correct response that the results table
// refuted. Matching on the response too keeps a concurrent run's fresher
// answer intact.
func (s *Store) ClearResponse(question string, qt parser.QuestionType, block string, response string) error {
	var blockID int64
	err := s.db.QueryRow(
		`SELECT questionBlockId FROM question_blocks WHERE title = ?`, block,
	).Scan(&blockID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find block: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE question_answers SET correctResponse = ''
		 WHERE question = ? AND questionType = ? AND questionBlockId = ? AND correctResponse = ?`,
		question, string(qt), blockID, response)
	if err != nil {
		return fmt.Errorf("clear response: %w", err)
	}
	return nil
}

// GetOrCreateBlockID maps a discipline title to its block id, creating the
// block on first sight.
func (s *Store) GetOrCreateBlockID(title string) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		`SELECT questionBlockId FROM question_blocks WHERE title = ?`, title,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find block: %w", err)
	}
	res, err := s.db.Exec(`INSERT INTO question_blocks (title) VALUES (?)`, title)
	if err != nil {
		return 0, fmt.Errorf("create block: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("block id: %w", err)
	}
	return id, nil
}

// SaveTextValue files the literal text behind a text-entry identifier.
func (s *Store) SaveTextValue(id string, questionID int64, answer string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT 1 FROM text_answers WHERE identifier = ?`, id,
	).Scan(&exists)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check text value: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO text_answers (identifier, questionId, answer) VALUES (?, ?, ?)`,
		id, questionID, answer)
	if err != nil {
		return fmt.Errorf("insert text value: %w", err)
	}
	return nil
}

func (s *Store) findQuestion(question string, qt parser.QuestionType, blockID int64) (int64, error) {
	var qid int64
	err := s.db.QueryRow(
		`SELECT questionId FROM question_answers
		 WHERE question = ? AND questionType = ? AND questionBlockId = ?`,
		question, string(qt), blockID,
	).Scan(&qid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find question: %w", err)
	}
	return qid, nil
}
