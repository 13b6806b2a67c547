package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pavelanni/casesim/internal/model"
	"github.com/pavelanni/casesim/internal/store"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestGradeCommand(t *testing.T) {
	out := execute(t, "grade",
		"--answer", "Paciente con fiebre, dolor abdominal y nauseas intensas",
		"--criteria", "fiebre alta",
		"--criteria", "dolor abdominal",
		"--criteria", "náuseas y vómitos",
		"--criteria", "leucocitosis",
	)
	if !strings.Contains(out, "points: 2/2") {
		t.Errorf("expected full credit, got:\n%s", out)
	}
	if !strings.Contains(out, "[x] náuseas y vómitos  (keywords: nauseas, vomitos)") {
		t.Errorf("expected matched criterion with folded keywords, got:\n%s", out)
	}
	if !strings.Contains(out, "[ ] leucocitosis") {
		t.Errorf("expected unmatched criterion, got:\n%s", out)
	}
}

func TestGradeCommandReflective(t *testing.T) {
	out := execute(t, "grade", "--answer", "corta", "--max-points", "3")
	if !strings.Contains(out, "points: 0/3") {
		t.Errorf("short answer should earn nothing, got:\n%s", out)
	}
	if !strings.Contains(out, "reflective step") {
		t.Errorf("expected reflective note, got:\n%s", out)
	}
}

func TestExportCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "casesim.db")
	db, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	c := model.Case{ID: "c1", Title: "Caso", Steps: []model.Step{{ID: "s1", Kind: model.StepFreeText}}}
	if err := db.UpsertCase(c); err != nil {
		t.Fatalf("UpsertCase: %v", err)
	}
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, err := db.SaveResult(model.CaseResult{
		SessionID: "sess-1", CaseID: "c1", Mode: model.ModeUntimedStudy,
		Score: 2, Total: 2, Percentage: 100, Category: "Excellent",
		StartedAt: now.Add(-time.Minute), FinishedAt: now,
		Steps: []model.StepResult{{StepID: "s1", Kind: model.StepFreeText, Answered: true, Points: 2, Max: 2}},
	}); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	db.Close()

	out := execute(t, "export", "--db", dbPath, "--log-level", "error")
	var export model.ResultExport
	if err := json.Unmarshal([]byte(out), &export); err != nil {
		t.Fatalf("unmarshal export: %v\n%s", err, out)
	}
	if len(export.Results) != 1 || export.Results[0].CaseTitle != "Caso" {
		t.Fatalf("unexpected export: %+v", export)
	}
	if export.Results[0].Category != "Excellent" || len(export.Results[0].Steps) != 1 {
		t.Errorf("unexpected result: %+v", export.Results[0])
	}
}
