package scholarships

import (
	"time"

	"github.com/scholarship-finder/backend/internal/dates"
)

// TargetType classifies what a scholarship rewards.
const (
	TargetNeed  = "need"
	TargetMerit = "merit"
	TargetBoth  = "both"
)

// Scholarship is one catalog entry. Most fields are optional: scraped
// sources rarely fill the whole record.
type Scholarship struct {
	ID                     int64       `json:"id"`
	Title                  string      `json:"title"`
	Description            *string     `json:"description,omitempty"`
	Organization           *string     `json:"organization,omitempty"`
	OrgWebsite             *string     `json:"org_website,omitempty"`
	Category               *string     `json:"category,omitempty"`
	TargetType             *string     `json:"target_type,omitempty"`
	FieldOfStudy           *string     `json:"field_of_study,omitempty"`
	SubjectAreas           []string    `json:"subject_areas,omitempty"`
	EducationLevel         *string     `json:"education_level,omitempty"`
	MinAward               *float64    `json:"min_award,omitempty"`
	MaxAward               *float64    `json:"max_award,omitempty"`
	Deadline               *dates.Date `json:"deadline,omitempty"`
	Eligibility            []string    `json:"eligibility,omitempty"`
	EssayRequired          *bool       `json:"essay_required,omitempty"`
	RecommendationRequired *bool       `json:"recommendation_required,omitempty"`
	Renewable              *bool       `json:"renewable,omitempty"`
	GeographicRestrictions []string    `json:"geographic_restrictions,omitempty"`
	MinGPA                 *float64    `json:"min_gpa,omitempty"`
	ApplyURL               *string     `json:"apply_url,omitempty"`
	SourceURL              *string     `json:"source_url,omitempty"`
	Source                 *string     `json:"source,omitempty"`
	Country                *string     `json:"country,omitempty"`
	Active                 bool        `json:"active"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}

// SearchPreferences holds a user's stated matching preferences. At most
// one row per user.
type SearchPreferences struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Category       *string   `json:"category,omitempty"`
	EducationLevel *string   `json:"education_level,omitempty"`
	FieldOfStudy   *string   `json:"field_of_study,omitempty"`
	TargetType     *string   `json:"target_type,omitempty"`
	MinAmount      *float64  `json:"min_amount,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PreferencesInput holds the writable preference fields.
type PreferencesInput struct {
	Category       *string  `json:"category"`
	EducationLevel *string  `json:"education_level"`
	FieldOfStudy   *string  `json:"field_of_study"`
	TargetType     *string  `json:"target_type"`
	MinAmount      *float64 `json:"min_amount"`
}

// Interaction records that a user acted on a scholarship (saved,
// dismissed, applied). Any interaction excludes the scholarship from
// future recommendations.
type Interaction struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	ScholarshipID int64     `json:"scholarship_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Recommendation is a scholarship annotated with its match score.
type Recommendation struct {
	Scholarship
	MatchScore   int      `json:"match_score"`
	MatchReasons []string `json:"match_reasons"`
}

// SearchFilter narrows a catalog search.
type SearchFilter struct {
	Query          string
	Category       string
	TargetType     string
	EducationLevel string
	MinAmount      *float64
	Limit          int
}
