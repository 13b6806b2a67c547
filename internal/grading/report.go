package grading

import "github.com/pavelanni/casesim/internal/model"

// StepScore is one step's contribution to a Summary.
type StepScore struct {
	StepID   string         `json:"step_id"`
	Kind     model.StepKind `json:"kind"`
	Answered bool           `json:"answered"`
	Points   int            `json:"points"`
	Max      int            `json:"max"`
}

// Summary is the aggregated outcome of a session.
type Summary struct {
	Score      int         `json:"score"`
	Total      int         `json:"total"`
	Percentage int         `json:"percentage"`
	Category   Category    `json:"category"`
	Steps      []StepScore `json:"steps"`
}

// Summarize sums raw points over the answered steps of c and rounds once.
// Unanswered steps count toward the total with zero points.
func Summarize(c model.Case, answers []model.AnswerRecord) Summary {
	byStep := make(map[string]model.AnswerRecord, len(answers))
	for _, a := range answers {
		byStep[a.StepID] = a
	}

	var sum Summary
	for _, step := range c.Steps {
		ss := StepScore{StepID: step.ID, Kind: step.Kind, Max: step.Points()}
		if a, ok := byStep[step.ID]; ok {
			ss.Answered = true
			ss.Points = a.Score()
		}
		sum.Score += ss.Points
		sum.Total += ss.Max
		sum.Steps = append(sum.Steps, ss)
	}
	sum.Percentage = Percentage(sum.Score, sum.Total)
	sum.Category = Categorize(sum.Percentage)
	return sum
}
