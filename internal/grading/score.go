package grading

import (
	"math"
	"strings"
	"unicode/utf8"
)

// MinAnswerLength is the shortest free-text answer that can earn points, in runes.
const MinAnswerLength = 20

// Thresholds on the satisfied-criteria fraction, in percent.
const (
	fullCreditPercent = 70
	halfCreditPercent = 40
)

// Category is the outcome band of a percentage.
type Category string

const (
	Excellent Category = "Excellent"
	Passed    Category = "Passed"
	Failed    Category = "Failed"
)

// MatchedCriteria reports, for each criterion, whether at least one of its
// keywords occurs in the normalized answer.
func MatchedCriteria(answer string, criteria []string) []bool {
	normalized := Normalize(answer)
	matched := make([]bool, len(criteria))
	for i, c := range criteria {
		for _, kw := range ExtractKeywords(c) {
			if strings.Contains(normalized, kw) {
				matched[i] = true
				break
			}
		}
	}
	return matched
}

// ScoreShortAnswer grades a free-text answer against instructor criteria.
//
// Answers shorter than MinAnswerLength earn nothing. With no criteria the step is
// reflective and a long enough answer earns maxPoints. Otherwise the share of
// satisfied criteria maps to full credit (>= 70%), half credit rounded up
// (>= 40%) or zero.
func ScoreShortAnswer(answer string, criteria []string, maxPoints int) int {
	answer = strings.TrimSpace(answer)
	if answer == "" || utf8.RuneCountInString(answer) < MinAnswerLength {
		return 0
	}
	if len(criteria) == 0 {
		return maxPoints
	}

	satisfied := 0
	for _, ok := range MatchedCriteria(answer, criteria) {
		if ok {
			satisfied++
		}
	}

	total := len(criteria)
	switch {
	case satisfied*100 >= total*fullCreditPercent:
		return maxPoints
	case satisfied*100 >= total*halfCreditPercent:
		return halfCredit(maxPoints)
	default:
		return 0
	}
}

// halfCredit is ceil(maxPoints / 2).
func halfCredit(maxPoints int) int {
	if maxPoints <= 0 {
		return 0
	}
	return (maxPoints + 1) / 2
}

// Percentage returns score/total as a percentage rounded half up. A total of zero
// or less yields 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	// round(score/total*100) == floor((200*score + total) / (2*total)), exact in integers.
	return int(math.Floor(float64(200*score+total) / float64(2*total)))
}

// Categorize maps a percentage onto its outcome band. Lower edges are inclusive.
func Categorize(percentage int) Category {
	switch {
	case percentage >= 90:
		return Excellent
	case percentage >= 70:
		return Passed
	default:
		return Failed
	}
}

// ValidateScore reports whether 0 <= score <= total.
func ValidateScore(score, total int) bool {
	return score >= 0 && score <= total
}
