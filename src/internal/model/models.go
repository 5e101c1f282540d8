package model

import "time"

type TransactionType string

const (
	TxEarnedReview    TransactionType = "EARNED_REVIEW"
	TxSpentSubmission TransactionType = "SPENT_SUBMISSION"
	TxBonus           TransactionType = "BONUS"
	TxRefund          TransactionType = "REFUND"
	TxAdminAdjustment TransactionType = "ADMIN_ADJUSTMENT"
)

type ProjectStatus string

const (
	ProjectDraft         ProjectStatus = "DRAFT"
	ProjectPendingReview ProjectStatus = "PENDING_REVIEW"
	ProjectActive        ProjectStatus = "ACTIVE"
	ProjectArchived      ProjectStatus = "ARCHIVED"
)

type AssignmentStatus string

const (
	AssignmentAssigned   AssignmentStatus = "ASSIGNED"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentSubmitted  AssignmentStatus = "SUBMITTED"
	AssignmentExpired    AssignmentStatus = "EXPIRED"
)

// Terminal reports whether no further transition is legal from s.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentSubmitted || s == AssignmentExpired
}

type User struct {
	UserID              string    `json:"user_id"`
	Username            string    `json:"username"`
	Skills              []string  `json:"skills"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	CreatedAt           time.Time `json:"created_at"`
}

type CreditTransaction struct {
	TransactionID    string          `json:"transaction_id"`
	UserID           string          `json:"user_id"`
	Amount           int64           `json:"amount"`
	Type             TransactionType `json:"transaction_type"`
	Description      string          `json:"description"`
	RelatedProjectID *string         `json:"related_project_id,omitempty"`
	RelatedReviewID  *string         `json:"related_review_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type Project struct {
	ProjectID       string        `json:"project_id"`
	OwnerID         string        `json:"owner_id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	TechStack       []string      `json:"tech_stack"`
	ScreenshotURL   string        `json:"screenshot_url,omitempty"`
	Status          ProjectStatus `json:"status"`
	Version         string        `json:"version"`
	ReviewsReceived int           `json:"reviews_received"`
	ReviewsRequired int           `json:"reviews_required"`
	CreditsSpent    int64         `json:"credits_spent"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ProjectPatch carries the mutable fields of UpdateProject.
// Nil means "leave unchanged".
type ProjectPatch struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	TechStack     []string `json:"tech_stack,omitempty"`
	ScreenshotURL *string  `json:"screenshot_url,omitempty"`
	Version       *string  `json:"version,omitempty"`
}

type ReviewAssignment struct {
	AssignmentID string           `json:"assignment_id"`
	ProjectID    string           `json:"project_id"`
	ReviewerID   string           `json:"reviewer_id"`
	Status       AssignmentStatus `json:"status"`
	ExpiresAt    time.Time        `json:"expires_at"`
	CreatedAt    time.Time        `json:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// ReviewSections is the reviewer-authored content of a review or draft.
type ReviewSections struct {
	WhatsGood             string `json:"whats_good"`
	WhatsUnclear          string `json:"whats_unclear"`
	ImprovementSuggestion string `json:"improvement_suggestion"`
}

type Review struct {
	ReviewID              string    `json:"review_id"`
	ProjectID             string    `json:"project_id"`
	ReviewerID            string    `json:"reviewer_id"`
	WhatsGood             string    `json:"whats_good"`
	WhatsUnclear          string    `json:"whats_unclear"`
	ImprovementSuggestion string    `json:"improvement_suggestion"`
	IsHelpful             *bool     `json:"is_helpful,omitempty"`
	OwnerReply            *string   `json:"owner_reply,omitempty"`
	CreditsEarned         int64     `json:"credits_earned"`
	SubmittedAt           time.Time `json:"submitted_at"`
}

type ReviewDraft struct {
	AssignmentID          string    `json:"assignment_id"`
	WhatsGood             string    `json:"whats_good"`
	WhatsUnclear          string    `json:"whats_unclear"`
	ImprovementSuggestion string    `json:"improvement_suggestion"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type CreditStats struct {
	Balance           int64 `json:"balance"`
	TotalEarned       int64 `json:"total_earned"`
	TotalSpent        int64 `json:"total_spent"`
	ReviewsCompleted  int   `json:"reviews_completed"`
	ProjectsSubmitted int   `json:"projects_submitted"`
}
