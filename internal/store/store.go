package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/casesim/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		case_id TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		percentage INTEGER NOT NULL DEFAULT 0,
		category TEXT NOT NULL,
		expired INTEGER NOT NULL DEFAULT 0,
		elapsed_seconds INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		FOREIGN KEY (case_id) REFERENCES cases(id)
	);

	CREATE TABLE IF NOT EXISTS result_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		step_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		answered INTEGER NOT NULL DEFAULT 0,
		option_id TEXT NOT NULL DEFAULT '',
		correct INTEGER NOT NULL DEFAULT 0,
		text TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 0,
		max_points INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (result_id) REFERENCES results(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertCase validates and stores a case, replacing any case with the same id.
func (s *Store) UpsertCase(c model.Case) error {
	if err := c.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal case %s: %w", c.ID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO cases (id, title, body) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = ?, body = ?`,
		c.ID, c.Title, string(body), c.Title, string(body),
	)
	return err
}

// GetCase returns a case by id, or nil if it does not exist.
func (s *Store) GetCase(id string) (*model.Case, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM cases WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c model.Case
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return nil, fmt.Errorf("decode case %s: %w", id, err)
	}
	return &c, nil
}

// ListCases returns all cases ordered by id.
func (s *Store) ListCases() ([]model.Case, error) {
	rows, err := s.db.Query(`SELECT id, body FROM cases ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cases []model.Case
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		var c model.Case
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return nil, fmt.Errorf("decode case %s: %w", id, err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// CaseCount returns the number of stored cases.
func (s *Store) CaseCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cases`).Scan(&count)
	return count, err
}

// GetImportedFileHash returns the sha256 recorded for path, or "" if the file
// was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records the sha256 of an imported file.
func (s *Store) SetImportedFileHash(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, hash) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?`,
		path, hash, hash,
	)
	return err
}
