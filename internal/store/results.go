package store

import (
	"database/sql"
	"fmt"

	"github.com/pavelanni/casesim/internal/model"
)

const resultColumns = `id, session_id, case_id, mode, score, total, percentage, category,
	expired, elapsed_seconds, started_at, finished_at`

// SaveResult persists a finished session with its per-step rows. Saving the
// same session again replaces its earlier result and keeps the result id.
func (s *Store) SaveResult(r model.CaseResult) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var resultID int64
	err = tx.QueryRow(`SELECT id FROM results WHERE session_id = ?`, r.SessionID).Scan(&resultID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			`INSERT INTO results (session_id, case_id, mode, score, total, percentage, category,
				expired, elapsed_seconds, started_at, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.SessionID, r.CaseID, r.Mode, r.Score, r.Total, r.Percentage, r.Category,
			r.Expired, r.ElapsedSeconds, r.StartedAt, r.FinishedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert result: %w", err)
		}
		if resultID, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	case err != nil:
		return 0, fmt.Errorf("look up result for %s: %w", r.SessionID, err)
	default:
		if _, err := tx.Exec(
			`UPDATE results SET case_id = ?, mode = ?, score = ?, total = ?, percentage = ?,
				category = ?, expired = ?, elapsed_seconds = ?, started_at = ?, finished_at = ?
			 WHERE id = ?`,
			r.CaseID, r.Mode, r.Score, r.Total, r.Percentage, r.Category,
			r.Expired, r.ElapsedSeconds, r.StartedAt, r.FinishedAt, resultID,
		); err != nil {
			return 0, fmt.Errorf("update result: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM result_steps WHERE result_id = ?`, resultID); err != nil {
			return 0, fmt.Errorf("clear result steps: %w", err)
		}
	}

	for i, st := range r.Steps {
		_, err := tx.Exec(
			`INSERT INTO result_steps (result_id, position, step_id, kind, answered, option_id,
				correct, text, points, max_points)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			resultID, i, st.StepID, st.Kind, st.Answered, st.OptionID,
			st.Correct, st.Text, st.Points, st.Max,
		)
		if err != nil {
			return 0, fmt.Errorf("insert result step %s: %w", st.StepID, err)
		}
	}

	return resultID, tx.Commit()
}

// GetResult returns the result of a session, or nil if none was saved.
func (s *Store) GetResult(sessionID string) (*model.CaseResult, error) {
	r, err := scanResult(s.db.QueryRow(`SELECT `+resultColumns+` FROM results WHERE session_id = ?`, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.Steps, err = s.getResultSteps(r.ID); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResults returns all results, newest first, without their steps.
func (s *Store) ListResults() ([]model.CaseResult, error) {
	rows, err := s.db.Query(`SELECT ` + resultColumns + ` FROM results ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.CaseResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) getResultSteps(resultID int64) ([]model.StepResult, error) {
	rows, err := s.db.Query(
		`SELECT step_id, kind, answered, option_id, correct, text, points, max_points
		 FROM result_steps WHERE result_id = ? ORDER BY position`, resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var steps []model.StepResult
	for rows.Next() {
		var st model.StepResult
		if err := rows.Scan(&st.StepID, &st.Kind, &st.Answered, &st.OptionID, &st.Correct,
			&st.Text, &st.Points, &st.Max); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (model.CaseResult, error) {
	var r model.CaseResult
	err := row.Scan(&r.ID, &r.SessionID, &r.CaseID, &r.Mode, &r.Score, &r.Total, &r.Percentage,
		&r.Category, &r.Expired, &r.ElapsedSeconds, &r.StartedAt, &r.FinishedAt)
	return r, err
}
