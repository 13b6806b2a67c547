package store

import (
	"fmt"

	"github.com/pavelanni/casesim/internal/model"
)

// ExportResults builds export-ready results, oldest first, with steps and case titles.
func (s *Store) ExportResults() ([]model.CaseResult, error) {
	results, err := s.ListResults()
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	titles := make(map[string]string)
	exported := make([]model.CaseResult, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]

		r.Steps, err = s.getResultSteps(r.ID)
		if err != nil {
			return nil, fmt.Errorf("get steps of result %d: %w", r.ID, err)
		}

		title, ok := titles[r.CaseID]
		if !ok {
			c, err := s.GetCase(r.CaseID)
			if err != nil {
				return nil, fmt.Errorf("get case %s: %w", r.CaseID, err)
			}
			if c != nil {
				title = c.Title
			}
			titles[r.CaseID] = title
		}
		r.CaseTitle = title

		exported = append(exported, r)
	}

	return exported, nil
}
