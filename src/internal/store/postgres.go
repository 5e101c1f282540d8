package store

import (
	"context"
	"database/sql"

	"github.com/peerloop/feedback-market/src/internal/model"

	"go.uber.org/zap"
)

type Repository interface {
	UpsertUser(ctx context.Context, u model.User, signupBonus int64) (model.User, bool, error)
	GetUser(ctx context.Context, userID string) (model.User, error)

	RecordTransaction(ctx context.Context, t model.CreditTransaction) (model.CreditTransaction, error)
	SpendCredits(ctx context.Context, userID string, amount int64, txType model.TransactionType, description string, projectID *string) (model.CreditTransaction, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	GetCreditHistory(ctx context.Context, userID string, limit, offset int) ([]model.CreditTransaction, error)
	GetCreditStats(ctx context.Context, userID string) (model.CreditStats, error)

	CreateProjectPaid(ctx context.Context, p model.Project, cost int64) (model.Project, error)
	GetProject(ctx context.Context, projectID string) (model.Project, error)
	PatchProject(ctx context.Context, p model.Project) error
	UpgradeProjectPaid(ctx context.Context, p model.Project, cost int64) error

	GetReviewerCandidates(ctx context.Context, projectID, ownerID string) ([]model.User, error)
	CreateAssignments(ctx context.Context, assignments []model.ReviewAssignment) ([]model.ReviewAssignment, error)
	GetAssignment(ctx context.Context, assignmentID string) (model.ReviewAssignment, error)
	GetAssignmentsForReviewer(ctx context.Context, reviewerID string) ([]model.ReviewAssignment, error)
	GetAssignmentsForProject(ctx context.Context, projectID string) ([]model.ReviewAssignment, error)
	ExpireOverdue(ctx context.Context) (int64, error)

	SubmitReview(ctx context.Context, assignmentID, reviewerID string, sections model.ReviewSections, earn int64) (model.Review, error)
	GetReview(ctx context.Context, reviewID string) (model.Review, error)
	SetReviewHelpful(ctx context.Context, reviewID string, helpful *bool) error
	SetReviewReply(ctx context.Context, reviewID, reply string) error
	SaveReviewDraft(ctx context.Context, d model.ReviewDraft) (model.ReviewDraft, error)
	GetReviewDraft(ctx context.Context, assignmentID string) (model.ReviewDraft, error)
}

type Repositories struct {
	DB          *sql.DB
	Log         *zap.Logger
	Users       *UserRepo
	Ledger      *LedgerRepo
	Projects    *ProjectRepo
	Assignments *AssignmentRepo
	Reviews     *ReviewRepo
}

func NewRepositories(db *sql.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		DB:          db,
		Log:         logger,
		Users:       NewUserRepo(db, logger),
		Ledger:      NewLedgerRepo(db, logger),
		Projects:    NewProjectRepo(db, logger),
		Assignments: NewAssignmentRepo(db, logger),
		Reviews:     NewReviewRepo(db, logger),
	}
}

func (r *Repositories) BeginTx(ctx context.Context) (*sql.Tx, error) {
	r.Log.Debug("BeginTx called")
	return r.DB.BeginTx(ctx, &sql.TxOptions{})
}
