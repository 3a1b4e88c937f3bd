package scholarships

import (
	"fmt"
	"strings"
	"time"
)

// Match weights. They sum to 100; a scholarship matching on everything
// with a far-out deadline scores the full 100.
const (
	weightCategory       = 25
	weightEducationLevel = 20
	weightFieldOfStudy   = 20
	weightTargetType     = 15
	weightAmount         = 10
	weightDeadline       = 10
)

// Deadline tiers, in whole days from now.
const (
	deadlineFullBonusDays = 30
	deadlineHalfBonusDays = 14
)

// MatchResult is the outcome of scoring one scholarship against one set
// of preferences.
type MatchResult struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// CalculateMatchScore scores a scholarship against the user's search
// preferences. Pure and deterministic apart from the clock.
func CalculateMatchScore(s *Scholarship, prefs *SearchPreferences) MatchResult {
	return CalculateMatchScoreAt(s, prefs, time.Now())
}

// CalculateMatchScoreAt is CalculateMatchScore with an explicit clock.
// Each signal contributes only when both sides carry a value; the result
// is a plain weighted sum, never rescaled against the achievable
// maximum.
func CalculateMatchScoreAt(s *Scholarship, prefs *SearchPreferences, now time.Time) MatchResult {
	result := MatchResult{Reasons: []string{}}

	if prefs != nil {
		if bothSet(s.Category, prefs.Category) && *s.Category == *prefs.Category {
			result.Score += weightCategory
			result.Reasons = append(result.Reasons, fmt.Sprintf("matches your preferred category %q", *prefs.Category))
		}
		if bothSet(s.EducationLevel, prefs.EducationLevel) && *s.EducationLevel == *prefs.EducationLevel {
			result.Score += weightEducationLevel
			result.Reasons = append(result.Reasons, fmt.Sprintf("open to %s students", *prefs.EducationLevel))
		}
		if bothSet(s.FieldOfStudy, prefs.FieldOfStudy) && fieldsOverlap(*s.FieldOfStudy, *prefs.FieldOfStudy) {
			result.Score += weightFieldOfStudy
			result.Reasons = append(result.Reasons, fmt.Sprintf("related to your field of study %q", *prefs.FieldOfStudy))
		}
		if bothSet(s.TargetType, prefs.TargetType) && *s.TargetType == *prefs.TargetType {
			result.Score += weightTargetType
			result.Reasons = append(result.Reasons, fmt.Sprintf("%s-based award", *prefs.TargetType))
		}
		if award := bestAward(s); award != nil && prefs.MinAmount != nil && *award >= *prefs.MinAmount {
			result.Score += weightAmount
			result.Reasons = append(result.Reasons, fmt.Sprintf("award of $%.0f meets your minimum", *award))
		}
	}

	if s.Deadline != nil && !s.Deadline.IsZero() {
		days := daysUntil(now, s.Deadline.Time())
		switch {
		case days > deadlineFullBonusDays:
			result.Score += weightDeadline
			result.Reasons = append(result.Reasons, "plenty of time before the deadline")
		case days > deadlineHalfBonusDays:
			result.Score += weightDeadline / 2
			result.Reasons = append(result.Reasons, "deadline is coming up")
		}
	}

	return result
}

func bothSet(a, b *string) bool {
	return a != nil && *a != "" && b != nil && *b != ""
}

// fieldsOverlap reports a case-insensitive substring match in either
// direction, so "Computer Science" meets "science".
func fieldsOverlap(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// bestAward prefers the maximum award and falls back to the minimum.
func bestAward(s *Scholarship) *float64 {
	if s.MaxAward != nil {
		return s.MaxAward
	}
	return s.MinAward
}

func daysUntil(now, deadline time.Time) int {
	return int(deadline.Sub(now).Hours() / 24)
}
