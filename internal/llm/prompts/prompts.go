package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/casesim/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxAnswerRunes = 10000

// PromptVariant represents a review prompt variant.
type PromptVariant string

const (
	// PromptStrict credits only explicit, correct findings.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default review variant.
	PromptStandard PromptVariant = "standard"
	// PromptLenient credits sound but incomplete reasoning.
	PromptLenient PromptVariant = "lenient"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
	PromptLenient:  true,
}

var (
	loadOnce        sync.Once
	loadErr         error
	reviewTemplates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// ReviewData holds template data for review prompts.
type ReviewData struct {
	Prompt    string
	MaxPoints int
	Criteria  []string
	Answer    string
}

// Load parses the embedded review templates once.
func Load() error {
	loadOnce.Do(func() {
		reviewTemplates, loadErr = parse(templateFS)
	})
	return loadErr
}

func parse(fsys fs.FS) (map[PromptVariant]*template.Template, error) {
	tmpls := make(map[PromptVariant]*template.Template, len(validVariants))
	for v := range validVariants {
		name := "templates/review_" + string(v) + ".txt"
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read prompt file %s: %w", name, err)
		}
		tmpl, err := template.New(string(v)).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
		}
		tmpls[v] = tmpl
	}
	return tmpls, nil
}

// BuildReviewPrompt renders the review prompt of a variant for one free-text answer.
func BuildReviewPrompt(variant PromptVariant, step model.Step, answer string) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	tmpl, ok := reviewTemplates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data := ReviewData{
		Prompt:    step.Prompt,
		MaxPoints: step.Points(),
		Criteria:  step.Criteria,
		Answer:    sanitizeAnswer(answer),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
