// Package session drives one student through a case: navigation gating,
// first-answer-wins capture, exam timing and forced completion.
//
// A Controller is single-writer. Callers that share one across goroutines must
// serialize access themselves.
package session

import (
	"github.com/pavelanni/casesim/internal/grading"
	"github.com/pavelanni/casesim/internal/model"
)

// ExamTimeLimit is the time limit of a timed exam, in seconds.
const ExamTimeLimit = 720

// Submission is the input to RecordAnswer. Build one with Choice, Text or ScoredText.
type Submission struct {
	OptionID string
	Text     string
	Points   int

	scored bool
}

// Choice submits an option of a choice step.
func Choice(optionID string) Submission {
	return Submission{OptionID: optionID}
}

// Text submits a free-text answer to be graded against the step's criteria.
func Text(text string) Submission {
	return Submission{Text: text}
}

// ScoredText submits a free-text answer with an externally decided point value.
func ScoredText(text string, points int) Submission {
	return Submission{Text: text, Points: points, scored: true}
}

type answerOptions struct {
	skipAdvance bool
}

// AnswerOption modifies RecordAnswer.
type AnswerOption func(*answerOptions)

// SkipAdvance lets RecordAnswer replace the point value of an existing free-text
// record instead of ignoring the call.
func SkipAdvance() AnswerOption {
	return func(o *answerOptions) { o.skipAdvance = true }
}

// State is a read-only projection of a session.
type State struct {
	CaseID         string               `json:"case_id"`
	Index          int                  `json:"index"`
	Steps          int                  `json:"steps"`
	Answers        []model.AnswerRecord `json:"answers"`
	Mode           model.Mode           `json:"mode"`
	TimeLimit      *int                 `json:"time_limit"`
	ElapsedSeconds int                  `json:"elapsed_seconds"`
	Expired        bool                 `json:"expired"`
	Completed      bool                 `json:"completed"`
}

// Controller owns the state of one session over one case.
type Controller struct {
	c         model.Case
	index     int
	answers   []model.AnswerRecord
	mode      model.Mode
	timeLimit *int
	elapsed   int
	expired   bool
}

// New starts a session over c at step 0 with no answers and mode unset.
func New(c model.Case) *Controller {
	return &Controller{c: c}
}

// Case returns the case the session runs over.
func (s *Controller) Case() model.Case { return s.c }

// Index returns the current step index. len(Case().Steps) is the results view.
func (s *Controller) Index() int { return s.index }

// Terminal returns the index of the results pseudo-step.
func (s *Controller) Terminal() int { return len(s.c.Steps) }

// Completed reports whether the session sits on the terminal index.
func (s *Controller) Completed() bool { return s.index == s.Terminal() }

// Expired reports whether AutoSubmit has run.
func (s *Controller) Expired() bool { return s.expired }

// Mode returns the current mode.
func (s *Controller) Mode() model.Mode { return s.mode }

// Answers returns a copy of the answer records in answer order.
func (s *Controller) Answers() []model.AnswerRecord {
	out := make([]model.AnswerRecord, len(s.answers))
	copy(out, s.answers)
	return out
}

// Answer returns the record for stepID, if any.
func (s *Controller) Answer(stepID string) (model.AnswerRecord, bool) {
	if i := s.find(stepID); i >= 0 {
		return s.answers[i], true
	}
	return model.AnswerRecord{}, false
}

// SetMode switches the mode. A timed exam gets ExamTimeLimit; any other mode has
// no limit. Answers and position are untouched.
func (s *Controller) SetMode(mode model.Mode) {
	s.mode = mode
	if mode == model.ModeTimedExam {
		limit := ExamTimeLimit
		s.timeLimit = &limit
		return
	}
	s.timeLimit = nil
}

// TimeLimit returns the time limit in seconds, or nil when untimed.
func (s *Controller) TimeLimit() *int {
	if s.timeLimit == nil {
		return nil
	}
	limit := *s.timeLimit
	return &limit
}

// Elapsed returns the elapsed time in seconds.
func (s *Controller) Elapsed() int { return s.elapsed }

// Remaining returns the seconds left before expiry, or nil when untimed.
func (s *Controller) Remaining() *int {
	if s.timeLimit == nil {
		return nil
	}
	left := max(*s.timeLimit-s.elapsed, 0)
	return &left
}

// Tick adds seconds of elapsed time. When a time limit is set and reached the
// session is auto-submitted. It returns true if this tick expired the session.
func (s *Controller) Tick(seconds int) bool {
	if s.expired || seconds <= 0 {
		return false
	}
	s.elapsed += seconds
	if s.timeLimit != nil && s.elapsed >= *s.timeLimit {
		s.AutoSubmit()
		return true
	}
	return false
}

// RecordAnswer stores the first answer given to stepID. Later calls for the same
// step are ignored unless SkipAdvance is given, in which case the point value of
// an existing free-text record is replaced. Nothing changes once expired, or when
// stepID or the chosen option does not belong to the case.
func (s *Controller) RecordAnswer(stepID string, sub Submission, opts ...AnswerOption) {
	if s.expired {
		return
	}
	var o answerOptions
	for _, opt := range opts {
		opt(&o)
	}

	step, ok := s.c.Step(stepID)
	if !ok {
		return
	}

	if i := s.find(stepID); i >= 0 {
		if o.skipAdvance {
			s.adjust(i, step, sub.Points)
		}
		return
	}

	rec := model.AnswerRecord{StepID: stepID, Kind: step.Kind}
	switch step.Kind {
	case model.StepChoice:
		opt, ok := step.Option(sub.OptionID)
		if !ok {
			return
		}
		rec.OptionID = opt.ID
		rec.Correct = opt.Correct
	case model.StepFreeText:
		rec.Text = sub.Text
		if sub.scored {
			if !grading.ValidateScore(sub.Points, step.Points()) {
				return
			}
			rec.Points = sub.Points
		} else {
			rec.Points = grading.ScoreShortAnswer(sub.Text, step.Criteria, step.Points())
		}
	default:
		return
	}
	s.answers = append(s.answers, rec)
}

// AdjustPoints replaces the point value of an already answered free-text step.
func (s *Controller) AdjustPoints(stepID string, points int) {
	if s.find(stepID) < 0 {
		return
	}
	s.RecordAnswer(stepID, Submission{Points: points, scored: true}, SkipAdvance())
}

func (s *Controller) adjust(i int, step model.Step, points int) {
	if step.Kind != model.StepFreeText {
		return
	}
	if !grading.ValidateScore(points, step.Points()) {
		return
	}
	s.answers[i].Points = points
}

// GoToNextStep moves forward by one step, never past the answered frontier.
func (s *Controller) GoToNextStep() {
	next := s.index + 1
	if next > len(s.answers) || next > s.Terminal() {
		return
	}
	s.index = next
}

// NavigateTo moves to index when it is at or before the number of answered
// steps. The terminal index is reachable only once every step is answered.
func (s *Controller) NavigateTo(index int) {
	if s.expired {
		return
	}
	if index < 0 || index > len(s.answers) || index > s.Terminal() {
		return
	}
	s.index = index
}

// AutoSubmit ends the session: it marks it expired and jumps to the terminal
// index regardless of how many steps are answered.
func (s *Controller) AutoSubmit() {
	s.expired = true
	s.index = s.Terminal()
}

// State returns a snapshot of the session.
func (s *Controller) State() State {
	return State{
		CaseID:         s.c.ID,
		Index:          s.index,
		Steps:          s.Terminal(),
		Answers:        s.Answers(),
		Mode:           s.mode,
		TimeLimit:      s.TimeLimit(),
		ElapsedSeconds: s.elapsed,
		Expired:        s.expired,
		Completed:      s.Completed(),
	}
}

// Summary aggregates the current answers into a score report.
func (s *Controller) Summary() grading.Summary {
	return grading.Summarize(s.c, s.answers)
}

func (s *Controller) find(stepID string) int {
	for i, a := range s.answers {
		if a.StepID == stepID {
			return i
		}
	}
	return -1
}
