package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/peerloop/feedback-market/src/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewReviewRepo(db *sql.DB, logger *zap.Logger) *ReviewRepo {
	return &ReviewRepo{db: db, log: logger}
}

// SubmitReview finalizes an assignment. Inside one transaction it re-reads
// the assignment FOR UPDATE, rejects terminal or foreign rows, treats an
// overdue deadline as expiry (flipping the row so the outcome is recorded),
// then commits the review insert, the assignment flip, the project counter
// increment, the ledger credit and the draft delete as a unit.
func (r *Repositories) SubmitReview(ctx context.Context, assignmentID, reviewerID string, sections model.ReviewSections, earn int64) (model.Review, error) {
	r.Log.Debug("SubmitReview: start", zap.String("assignment", assignmentID), zap.String("reviewer", reviewerID))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("SubmitReview: begin tx failed", zap.Error(err))
		return model.Review{}, err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("SubmitReview: rollback failed", zap.Error(err))
		}
	}()

	a, err := r.getAssignmentForUpdate(ctx, tx, assignmentID)
	if err != nil {
		return model.Review{}, err
	}
	if a.ReviewerID != reviewerID {
		r.Log.Debug("SubmitReview: reviewer mismatch", zap.String("assignment", assignmentID), zap.String("reviewer", reviewerID))
		return model.Review{}, model.ErrNotFound
	}

	if a.Status.Terminal() {
		if a.Status == model.AssignmentSubmitted {
			return model.Review{}, model.ErrAlreadySubmitted
		}
		return model.Review{}, model.ErrExpired
	}

	now := time.Now().UTC()
	if a.ExpiresAt.Before(now) {
		// The deadline passed before the sweep got here; expiry still wins.
		if _, err := tx.ExecContext(ctx,
			`UPDATE review_assignments SET status='EXPIRED' WHERE assignment_id=$1`, assignmentID); err != nil {
			r.Log.Error("SubmitReview: expire overdue failed", zap.Error(err))
			return model.Review{}, err
		}
		if err := tx.Commit(); err != nil {
			r.Log.Error("SubmitReview: commit expiry failed", zap.Error(err))
			return model.Review{}, err
		}
		r.Log.Info("SubmitReview: rejected overdue assignment", zap.String("assignment", assignmentID))
		return model.Review{}, model.ErrExpired
	}

	rv := model.Review{
		ReviewID:              uuid.New().String(),
		ProjectID:             a.ProjectID,
		ReviewerID:            reviewerID,
		WhatsGood:             sections.WhatsGood,
		WhatsUnclear:          sections.WhatsUnclear,
		ImprovementSuggestion: sections.ImprovementSuggestion,
		CreditsEarned:         earn,
	}
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO reviews(review_id, project_id, reviewer_id, whats_good, whats_unclear, improvement_suggestion, credits_earned, submitted_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,now())
		 RETURNING submitted_at`,
		rv.ReviewID, rv.ProjectID, rv.ReviewerID, rv.WhatsGood, rv.WhatsUnclear, rv.ImprovementSuggestion, rv.CreditsEarned).
		Scan(&rv.SubmittedAt); err != nil {
		r.Log.Error("SubmitReview: insert review failed", zap.Error(err))
		return model.Review{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE review_assignments SET status='SUBMITTED', completed_at=$2 WHERE assignment_id=$1`,
		assignmentID, now); err != nil {
		r.Log.Error("SubmitReview: update assignment failed", zap.Error(err))
		return model.Review{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET reviews_received = reviews_received + 1, updated_at=now() WHERE project_id=$1`,
		a.ProjectID); err != nil {
		r.Log.Error("SubmitReview: increment project counter failed", zap.Error(err))
		return model.Review{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO credit_transactions(transaction_id, user_id, amount, transaction_type, description, related_project_id, related_review_id, created_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,now())`,
		uuid.New().String(), reviewerID, earn, model.TxEarnedReview, "review completed", a.ProjectID, rv.ReviewID); err != nil {
		r.Log.Error("SubmitReview: ledger credit failed", zap.Error(err))
		return model.Review{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM review_drafts WHERE assignment_id=$1`, assignmentID); err != nil {
		r.Log.Error("SubmitReview: delete draft failed", zap.Error(err))
		return model.Review{}, err
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("SubmitReview: commit failed", zap.Error(err))
		return model.Review{}, err
	}

	r.Log.Info("SubmitReview: success", zap.String("assignment", assignmentID), zap.String("review", rv.ReviewID))
	return rv, nil
}

func (r *Repositories) GetReview(ctx context.Context, reviewID string) (model.Review, error) {
	r.Log.Debug("GetReview: start", zap.String("review", reviewID))
	var rv model.Review
	if err := r.DB.QueryRowContext(ctx,
		`SELECT review_id, project_id, reviewer_id, whats_good, whats_unclear, improvement_suggestion, is_helpful, owner_reply, credits_earned, submitted_at
		 FROM reviews WHERE review_id=$1`, reviewID).
		Scan(&rv.ReviewID, &rv.ProjectID, &rv.ReviewerID, &rv.WhatsGood, &rv.WhatsUnclear, &rv.ImprovementSuggestion,
			&rv.IsHelpful, &rv.OwnerReply, &rv.CreditsEarned, &rv.SubmittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetReview: not found", zap.String("review", reviewID))
			return model.Review{}, model.ErrNotFound
		}
		r.Log.Error("GetReview: query failed", zap.Error(err))
		return model.Review{}, err
	}
	r.Log.Debug("GetReview: success", zap.String("review", reviewID))
	return rv, nil
}

func (r *Repositories) SetReviewHelpful(ctx context.Context, reviewID string, helpful *bool) error {
	r.Log.Debug("SetReviewHelpful: start", zap.String("review", reviewID))
	res, err := r.DB.ExecContext(ctx, `UPDATE reviews SET is_helpful=$2 WHERE review_id=$1`, reviewID, helpful)
	if err != nil {
		r.Log.Error("SetReviewHelpful: update failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	r.Log.Info("SetReviewHelpful: success", zap.String("review", reviewID))
	return nil
}

func (r *Repositories) SetReviewReply(ctx context.Context, reviewID, reply string) error {
	r.Log.Debug("SetReviewReply: start", zap.String("review", reviewID))
	res, err := r.DB.ExecContext(ctx, `UPDATE reviews SET owner_reply=$2 WHERE review_id=$1`, reviewID, reply)
	if err != nil {
		r.Log.Error("SetReviewReply: update failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	r.Log.Info("SetReviewReply: success", zap.String("review", reviewID))
	return nil
}

// SaveReviewDraft upserts the scratch draft for an assignment. The first
// save moves an ASSIGNED assignment to IN_PROGRESS; drafts themselves are
// not gated by the lifecycle, submission is the sole gate.
func (r *Repositories) SaveReviewDraft(ctx context.Context, d model.ReviewDraft) (model.ReviewDraft, error) {
	r.Log.Debug("SaveReviewDraft: start", zap.String("assignment", d.AssignmentID))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("SaveReviewDraft: begin tx failed", zap.Error(err))
		return model.ReviewDraft{}, err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("SaveReviewDraft: rollback failed", zap.Error(err))
		}
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM review_assignments WHERE assignment_id=$1)`, d.AssignmentID).Scan(&exists); err != nil {
		r.Log.Error("SaveReviewDraft: check assignment failed", zap.Error(err))
		return model.ReviewDraft{}, err
	}
	if !exists {
		return model.ReviewDraft{}, model.ErrNotFound
	}

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO review_drafts(assignment_id, whats_good, whats_unclear, improvement_suggestion, updated_at)
		 VALUES($1,$2,$3,$4,now())
		 ON CONFLICT (assignment_id) DO UPDATE
		 SET whats_good=EXCLUDED.whats_good, whats_unclear=EXCLUDED.whats_unclear,
		     improvement_suggestion=EXCLUDED.improvement_suggestion, updated_at=now()
		 RETURNING updated_at`,
		d.AssignmentID, d.WhatsGood, d.WhatsUnclear, d.ImprovementSuggestion).
		Scan(&d.UpdatedAt); err != nil {
		r.Log.Error("SaveReviewDraft: upsert failed", zap.Error(err))
		return model.ReviewDraft{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE review_assignments SET status='IN_PROGRESS' WHERE assignment_id=$1 AND status='ASSIGNED'`,
		d.AssignmentID); err != nil {
		r.Log.Error("SaveReviewDraft: progress assignment failed", zap.Error(err))
		return model.ReviewDraft{}, err
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("SaveReviewDraft: commit failed", zap.Error(err))
		return model.ReviewDraft{}, err
	}

	r.Log.Debug("SaveReviewDraft: success", zap.String("assignment", d.AssignmentID))
	return d, nil
}

func (r *Repositories) GetReviewDraft(ctx context.Context, assignmentID string) (model.ReviewDraft, error) {
	r.Log.Debug("GetReviewDraft: start", zap.String("assignment", assignmentID))
	var d model.ReviewDraft
	if err := r.DB.QueryRowContext(ctx,
		`SELECT assignment_id, whats_good, whats_unclear, improvement_suggestion, updated_at
		 FROM review_drafts WHERE assignment_id=$1`, assignmentID).
		Scan(&d.AssignmentID, &d.WhatsGood, &d.WhatsUnclear, &d.ImprovementSuggestion, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetReviewDraft: not found", zap.String("assignment", assignmentID))
			return model.ReviewDraft{}, model.ErrNotFound
		}
		r.Log.Error("GetReviewDraft: query failed", zap.Error(err))
		return model.ReviewDraft{}, err
	}
	r.Log.Debug("GetReviewDraft: success", zap.String("assignment", assignmentID))
	return d, nil
}
