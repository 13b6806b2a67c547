package model

import "time"

// ResultExport is the top-level JSON structure for result export.
type ResultExport struct {
	ExportedAt time.Time    `json:"exported_at"`
	Results    []CaseResult `json:"results"`
}

// CaseResult holds one finished session as persisted by the store.
type CaseResult struct {
	ID             int64        `json:"id"`
	SessionID      string       `json:"session_id"`
	CaseID         string       `json:"case_id"`
	CaseTitle      string       `json:"case_title,omitempty"`
	Mode           Mode         `json:"mode"`
	Score          int          `json:"score"`
	Total          int          `json:"total"`
	Percentage     int          `json:"percentage"`
	Category       string       `json:"category"`
	Expired        bool         `json:"expired"`
	ElapsedSeconds int          `json:"elapsed_seconds"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	Steps          []StepResult `json:"steps"`
}

// StepResult holds per-step data for export.
type StepResult struct {
	StepID   string   `json:"step_id"`
	Kind     StepKind `json:"kind"`
	Answered bool     `json:"answered"`
	OptionID string   `json:"option_id,omitempty"`
	Correct  bool     `json:"correct,omitempty"`
	Text     string   `json:"text,omitempty"`
	Points   int      `json:"points"`
	Max      int      `json:"max"`
}
