package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pavelanni/casesim/internal/model"
)

// ImportCases stores every case in a JSON array read from the file called name.
// A file whose sha256 matches the last import is skipped and reports 0 cases.
func (s *Store) ImportCases(name string, data []byte) (int, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	storedHash, err := s.GetImportedFileHash(name)
	if err != nil {
		return 0, fmt.Errorf("check import status for %s: %w", name, err)
	}
	if storedHash == hash {
		slog.Info("cases file unchanged, skipping", "path", name)
		return 0, nil
	}

	var cases []model.Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	for _, c := range cases {
		if err := c.Validate(); err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	for _, c := range cases {
		body, err := json.Marshal(c)
		if err != nil {
			return 0, fmt.Errorf("marshal case %s: %w", c.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO cases (id, title, body) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET title = ?, body = ?`,
			c.ID, c.Title, string(body), c.Title, string(body),
		); err != nil {
			return 0, fmt.Errorf("insert case %s from %s: %w", c.ID, name, err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO imported_files (path, hash) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?`,
		name, hash, hash,
	); err != nil {
		return 0, fmt.Errorf("record import for %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	slog.Info("imported cases", "path", name, "count", len(cases))
	return len(cases), nil
}
