package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pavelanni/casesim/internal/grading"
	"github.com/pavelanni/casesim/internal/model"
)

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Score one free-text answer against criteria",
		Long: `Score one free-text answer the way a session would, and show which
criteria matched and which keywords each criterion contributes.

Example:
  casesim grade --answer "Fiebre alta y leucocitosis" \
    --criteria "fiebre alta" --criteria "leucocitosis"`,
		RunE: runGrade,
	}
	f := cmd.Flags()
	f.String("answer", "", "Answer text to grade")
	f.StringArray("criteria", nil, "Grading criterion (repeatable; none means a reflective step)")
	f.Int("max-points", model.DefaultMaxPoints, "Points the step is worth")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	_ = cmd.MarkFlagRequired("answer")
	return cmd
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	answer := v.GetString("answer")
	criteria, _ := cmd.Flags().GetStringArray("criteria")
	maxPoints := v.GetInt("max-points")
	if maxPoints <= 0 {
		return fmt.Errorf("max-points must be positive, got %d", maxPoints)
	}

	points := grading.ScoreShortAnswer(answer, criteria, maxPoints)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "points: %d/%d\n", points, maxPoints)
	fmt.Fprintf(out, "normalized: %s\n", grading.Normalize(answer))
	if len(criteria) == 0 {
		fmt.Fprintln(out, "reflective step: any answer of at least", grading.MinAnswerLength, "characters earns full points")
		return nil
	}

	matched := grading.MatchedCriteria(answer, criteria)
	for i, c := range criteria {
		mark := " "
		if matched[i] {
			mark = "x"
		}
		fmt.Fprintf(out, "[%s] %s  (keywords: %s)\n", mark, c, strings.Join(grading.ExtractKeywords(c), ", "))
	}
	return nil
}
