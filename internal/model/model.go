package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleInstructor can read persisted results.
	UserRoleInstructor UserRole = "instructor"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents an instructor or admin account.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

// StepKind distinguishes choice steps from free-text steps.
type StepKind string

const (
	StepChoice   StepKind = "choice"
	StepFreeText StepKind = "free_text"
)

// DefaultMaxPoints is the value of a free-text step that does not set max_points.
const DefaultMaxPoints = 2

// Mode is the session mode.
type Mode string

const (
	ModeUnset        Mode = ""
	ModeUntimedStudy Mode = "untimed_study"
	ModeTimedExam    Mode = "timed_exam"
)

// IsValid reports whether m is one of the known modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeUnset, ModeUntimedStudy, ModeTimedExam:
		return true
	}
	return false
}

// Option is one selectable answer of a choice step.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Rationale string `json:"rationale,omitempty"`
	Correct   bool   `json:"correct"`
}

// Step is one question within a case.
type Step struct {
	ID     string   `json:"id"`
	Kind   StepKind `json:"kind"`
	Prompt string   `json:"prompt"`

	// Choice steps.
	Options []Option `json:"options,omitempty"`

	// Free-text steps. Zero MaxPoints means DefaultMaxPoints.
	MaxPoints int      `json:"max_points,omitempty"`
	Criteria  []string `json:"criteria,omitempty"`
}

// Points returns the number of points the step is worth.
func (s Step) Points() int {
	if s.Kind == StepChoice {
		return 1
	}
	if s.MaxPoints <= 0 {
		return DefaultMaxPoints
	}
	return s.MaxPoints
}

// Reflective reports whether a free-text step has no grading criteria.
func (s Step) Reflective() bool {
	return s.Kind == StepFreeText && len(s.Criteria) == 0
}

// Option returns the option with the given id.
func (s Step) Option(id string) (Option, bool) {
	for _, o := range s.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Case is the ordered list of steps a student works through.
type Case struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Steps []Step `json:"steps"`
}

// Step returns the step with the given id.
func (c Case) Step(id string) (Step, bool) {
	for _, s := range c.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// TotalPoints returns the sum of the possible points of all steps.
func (c Case) TotalPoints() int {
	total := 0
	for _, s := range c.Steps {
		total += s.Points()
	}
	return total
}

// Validate checks the authoring invariants a case must satisfy before it can be served.
func (c Case) Validate() error {
	if c.ID == "" {
		return errors.New("case id is empty")
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("case %s has no steps", c.ID)
	}
	seen := make(map[string]bool, len(c.Steps))
	for i, s := range c.Steps {
		if s.ID == "" {
			return fmt.Errorf("case %s: step %d has no id", c.ID, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("case %s: duplicate step id %q", c.ID, s.ID)
		}
		seen[s.ID] = true

		switch s.Kind {
		case StepChoice:
			if len(s.Options) == 0 {
				return fmt.Errorf("case %s: choice step %q has no options", c.ID, s.ID)
			}
			opts := make(map[string]bool, len(s.Options))
			for _, o := range s.Options {
				if o.ID == "" || opts[o.ID] {
					return fmt.Errorf("case %s: step %q has an empty or duplicate option id %q", c.ID, s.ID, o.ID)
				}
				opts[o.ID] = true
			}
		case StepFreeText:
			if s.MaxPoints < 0 {
				return fmt.Errorf("case %s: step %q has negative max_points", c.ID, s.ID)
			}
		default:
			return fmt.Errorf("case %s: step %q has unknown kind %q", c.ID, s.ID, s.Kind)
		}
	}
	return nil
}

// AnswerRecord is the stored outcome of answering one step.
type AnswerRecord struct {
	StepID   string   `json:"step_id"`
	Kind     StepKind `json:"kind"`
	OptionID string   `json:"option_id,omitempty"`
	Correct  bool     `json:"correct,omitempty"`
	Text     string   `json:"text,omitempty"`
	Points   int      `json:"points"`
}

// Score returns the points the record contributes to the session total.
func (a AnswerRecord) Score() int {
	if a.Kind == StepChoice {
		if a.Correct {
			return 1
		}
		return 0
	}
	return a.Points
}
