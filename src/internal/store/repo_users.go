package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/peerloop/feedback-market/src/internal/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type UserRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewUserRepo(db *sql.DB, logger *zap.Logger) *UserRepo {
	return &UserRepo{db: db, log: logger}
}

// UpsertUser inserts or updates a user profile. On first insert a signup
// bonus is credited in the same transaction; the returned bool reports
// whether the row was created.
func (r *Repositories) UpsertUser(ctx context.Context, u model.User, signupBonus int64) (model.User, bool, error) {
	r.Log.Debug("UpsertUser: start", zap.String("user", u.UserID))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("UpsertUser: begin tx failed", zap.Error(err))
		return model.User{}, false, err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("UpsertUser: rollback failed", zap.Error(err))
		}
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_id=$1)`, u.UserID).Scan(&exists); err != nil {
		r.Log.Error("UpsertUser: check exists failed", zap.Error(err))
		return model.User{}, false, err
	}

	if exists {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET username=$2, skills=$3, onboarding_completed=$4 WHERE user_id=$1`,
			u.UserID, u.Username, pq.Array(u.Skills), u.OnboardingCompleted); err != nil {
			r.Log.Error("UpsertUser: update failed", zap.Error(err))
			return model.User{}, false, err
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users(user_id, username, skills, onboarding_completed, created_at) VALUES($1,$2,$3,$4,now())`,
			u.UserID, u.Username, pq.Array(u.Skills), u.OnboardingCompleted); err != nil {
			r.Log.Error("UpsertUser: insert failed", zap.Error(err))
			return model.User{}, false, err
		}
		if signupBonus > 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO credit_transactions(transaction_id, user_id, amount, transaction_type, description, created_at)
				 VALUES($1,$2,$3,$4,$5,now())`,
				uuid.New().String(), u.UserID, signupBonus, model.TxBonus, "signup bonus"); err != nil {
				r.Log.Error("UpsertUser: signup bonus failed", zap.Error(err))
				return model.User{}, false, err
			}
		}
	}

	var out model.User
	if err := tx.QueryRowContext(ctx,
		`SELECT user_id, username, skills, onboarding_completed, created_at FROM users WHERE user_id=$1`, u.UserID).
		Scan(&out.UserID, &out.Username, pq.Array(&out.Skills), &out.OnboardingCompleted, &out.CreatedAt); err != nil {
		r.Log.Error("UpsertUser: fetch failed", zap.Error(err))
		return model.User{}, false, err
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("UpsertUser: commit failed", zap.Error(err))
		return model.User{}, false, err
	}

	r.Log.Info("UpsertUser: success", zap.String("user", out.UserID), zap.Bool("created", !exists))
	return out, !exists, nil
}

func (r *Repositories) GetUser(ctx context.Context, userID string) (model.User, error) {
	r.Log.Debug("GetUser: start", zap.String("user", userID))
	var u model.User
	if err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, username, skills, onboarding_completed, created_at FROM users WHERE user_id=$1`, userID).
		Scan(&u.UserID, &u.Username, pq.Array(&u.Skills), &u.OnboardingCompleted, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetUser: not found", zap.String("user", userID))
			return model.User{}, model.ErrNotFound
		}
		r.Log.Error("GetUser: query failed", zap.Error(err))
		return model.User{}, err
	}
	r.Log.Debug("GetUser: success", zap.String("user", userID))
	return u, nil
}

// GetReviewerCandidates returns onboarded users eligible to review the
// project: not the owner, no non-terminal assignment for this project, no
// review ever submitted for this project id. Ordered by account age then id
// so the caller's ranking has a stable base.
func (r *Repositories) GetReviewerCandidates(ctx context.Context, projectID, ownerID string) ([]model.User, error) {
	r.Log.Debug("GetReviewerCandidates: start", zap.String("project", projectID), zap.String("owner", ownerID))
	rows, err := r.DB.QueryContext(ctx, `
		SELECT u.user_id, u.username, u.skills, u.onboarding_completed, u.created_at
		FROM users u
		WHERE u.onboarding_completed = true
		  AND u.user_id <> $2
		  AND NOT EXISTS (
			SELECT 1 FROM review_assignments a
			WHERE a.project_id = $1 AND a.reviewer_id = u.user_id
			  AND a.status IN ('ASSIGNED','IN_PROGRESS')
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM reviews rv
			WHERE rv.project_id = $1 AND rv.reviewer_id = u.user_id
		  )
		ORDER BY u.created_at, u.user_id
	`, projectID, ownerID)
	if err != nil {
		r.Log.Error("GetReviewerCandidates: query failed", zap.Error(err))
		return nil, err
	}

	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Error("GetReviewerCandidates: close rows failed", zap.Error(err))
		}
	}(rows)

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.UserID, &u.Username, pq.Array(&u.Skills), &u.OnboardingCompleted, &u.CreatedAt); err != nil {
			r.Log.Error("GetReviewerCandidates: scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("GetReviewerCandidates: rows error", zap.Error(err))
		return nil, err
	}

	r.Log.Debug("GetReviewerCandidates: success", zap.Int("count", len(out)))
	return out, nil
}
