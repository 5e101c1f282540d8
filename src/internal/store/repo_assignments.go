package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/peerloop/feedback-market/src/internal/model"

	"go.uber.org/zap"
)

type AssignmentRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewAssignmentRepo(db *sql.DB, logger *zap.Logger) *AssignmentRepo {
	return &AssignmentRepo{db: db, log: logger}
}

// CreateAssignments inserts the matcher's picks in one transaction. The
// partial unique index on non-terminal (project_id, reviewer_id) pairs is
// the backstop against a race between candidate selection and insert;
// conflicting rows are skipped, not errors. Returns the rows actually
// created.
func (r *Repositories) CreateAssignments(ctx context.Context, assignments []model.ReviewAssignment) ([]model.ReviewAssignment, error) {
	r.Log.Debug("CreateAssignments: start", zap.Int("count", len(assignments)))
	if len(assignments) == 0 {
		return nil, nil
	}

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("CreateAssignments: begin tx failed", zap.Error(err))
		return nil, err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("CreateAssignments: rollback failed", zap.Error(err))
		}
	}()

	var created []model.ReviewAssignment
	for _, a := range assignments {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO review_assignments(assignment_id, project_id, reviewer_id, status, expires_at, created_at)
			 VALUES($1,$2,$3,$4,$5,now())
			 ON CONFLICT (project_id, reviewer_id) WHERE status IN ('ASSIGNED','IN_PROGRESS') DO NOTHING
			 RETURNING created_at`,
			a.AssignmentID, a.ProjectID, a.ReviewerID, a.Status, a.ExpiresAt).
			Scan(&a.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("CreateAssignments: skipped conflicting row", zap.String("project", a.ProjectID), zap.String("reviewer", a.ReviewerID))
			continue
		}
		if err != nil {
			r.Log.Error("CreateAssignments: insert failed", zap.String("reviewer", a.ReviewerID), zap.Error(err))
			return nil, err
		}
		created = append(created, a)
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("CreateAssignments: commit failed", zap.Error(err))
		return nil, err
	}

	r.Log.Info("CreateAssignments: success", zap.Int("created", len(created)))
	return created, nil
}

func (r *Repositories) GetAssignment(ctx context.Context, assignmentID string) (model.ReviewAssignment, error) {
	r.Log.Debug("GetAssignment: start", zap.String("assignment", assignmentID))
	var a model.ReviewAssignment
	var completedAt sql.NullTime
	if err := r.DB.QueryRowContext(ctx,
		`SELECT assignment_id, project_id, reviewer_id, status, expires_at, created_at, completed_at
		 FROM review_assignments WHERE assignment_id=$1`, assignmentID).
		Scan(&a.AssignmentID, &a.ProjectID, &a.ReviewerID, &a.Status, &a.ExpiresAt, &a.CreatedAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetAssignment: not found", zap.String("assignment", assignmentID))
			return model.ReviewAssignment{}, model.ErrNotFound
		}
		r.Log.Error("GetAssignment: query failed", zap.Error(err))
		return model.ReviewAssignment{}, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	r.Log.Debug("GetAssignment: success", zap.String("assignment", assignmentID))
	return a, nil
}

// getAssignmentForUpdate locks the assignment row for the duration of the
// caller's transaction so a concurrent sweep or submission serializes
// behind it.
func (r *Repositories) getAssignmentForUpdate(ctx context.Context, tx *sql.Tx, assignmentID string) (model.ReviewAssignment, error) {
	var a model.ReviewAssignment
	var completedAt sql.NullTime
	if err := tx.QueryRowContext(ctx,
		`SELECT assignment_id, project_id, reviewer_id, status, expires_at, created_at, completed_at
		 FROM review_assignments WHERE assignment_id=$1 FOR UPDATE`, assignmentID).
		Scan(&a.AssignmentID, &a.ProjectID, &a.ReviewerID, &a.Status, &a.ExpiresAt, &a.CreatedAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ReviewAssignment{}, model.ErrNotFound
		}
		r.Log.Error("getAssignmentForUpdate: select for update failed", zap.Error(err))
		return model.ReviewAssignment{}, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	return a, nil
}

func (r *Repositories) GetAssignmentsForReviewer(ctx context.Context, reviewerID string) ([]model.ReviewAssignment, error) {
	r.Log.Debug("GetAssignmentsForReviewer: start", zap.String("reviewer", reviewerID))
	rows, err := r.DB.QueryContext(ctx, `
		SELECT assignment_id, project_id, reviewer_id, status, expires_at, created_at, completed_at
		FROM review_assignments
		WHERE reviewer_id = $1
		ORDER BY created_at DESC
	`, reviewerID)
	if err != nil {
		r.Log.Error("GetAssignmentsForReviewer: query failed", zap.Error(err))
		return nil, err
	}

	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Error("GetAssignmentsForReviewer: close rows failed", zap.Error(err))
		}
	}(rows)

	var out []model.ReviewAssignment
	for rows.Next() {
		var a model.ReviewAssignment
		var completedAt sql.NullTime
		if err := rows.Scan(&a.AssignmentID, &a.ProjectID, &a.ReviewerID, &a.Status, &a.ExpiresAt, &a.CreatedAt, &completedAt); err != nil {
			r.Log.Error("GetAssignmentsForReviewer: scan failed", zap.Error(err))
			return nil, err
		}
		if completedAt.Valid {
			t := completedAt.Time
			a.CompletedAt = &t
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("GetAssignmentsForReviewer: rows error", zap.Error(err))
		return nil, err
	}

	r.Log.Debug("GetAssignmentsForReviewer: success", zap.Int("count", len(out)))
	return out, nil
}

func (r *Repositories) GetAssignmentsForProject(ctx context.Context, projectID string) ([]model.ReviewAssignment, error) {
	r.Log.Debug("GetAssignmentsForProject: start", zap.String("project", projectID))
	rows, err := r.DB.QueryContext(ctx, `
		SELECT assignment_id, project_id, reviewer_id, status, expires_at, created_at, completed_at
		FROM review_assignments
		WHERE project_id = $1
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		r.Log.Error("GetAssignmentsForProject: query failed", zap.Error(err))
		return nil, err
	}

	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Error("GetAssignmentsForProject: close rows failed", zap.Error(err))
		}
	}(rows)

	var out []model.ReviewAssignment
	for rows.Next() {
		var a model.ReviewAssignment
		var completedAt sql.NullTime
		if err := rows.Scan(&a.AssignmentID, &a.ProjectID, &a.ReviewerID, &a.Status, &a.ExpiresAt, &a.CreatedAt, &completedAt); err != nil {
			r.Log.Error("GetAssignmentsForProject: scan failed", zap.Error(err))
			return nil, err
		}
		if completedAt.Valid {
			t := completedAt.Time
			a.CompletedAt = &t
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("GetAssignmentsForProject: rows error", zap.Error(err))
		return nil, err
	}

	r.Log.Debug("GetAssignmentsForProject: success", zap.Int("count", len(out)))
	return out, nil
}

// ExpireOverdue flips every non-terminal assignment past its deadline to
// EXPIRED. A single UPDATE, so re-running over already-expired rows is a
// no-op and the sweep may overlap request handling safely.
func (r *Repositories) ExpireOverdue(ctx context.Context) (int64, error) {
	r.Log.Debug("ExpireOverdue: start")
	res, err := r.DB.ExecContext(ctx, `
		UPDATE review_assignments
		SET status = 'EXPIRED'
		WHERE status IN ('ASSIGNED','IN_PROGRESS') AND expires_at < now()
	`)
	if err != nil {
		r.Log.Error("ExpireOverdue: update failed", zap.Error(err))
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.Log.Info("ExpireOverdue: expired assignments", zap.Int64("count", n))
	}
	return n, nil
}
