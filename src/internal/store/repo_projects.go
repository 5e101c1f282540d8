package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peerloop/feedback-market/src/internal/model"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type ProjectRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewProjectRepo(db *sql.DB, logger *zap.Logger) *ProjectRepo {
	return &ProjectRepo{db: db, log: logger}
}

// CreateProjectPaid charges the submission cost and inserts the project in
// one transaction. If the owner cannot afford the cost nothing is written.
func (r *Repositories) CreateProjectPaid(ctx context.Context, p model.Project, cost int64) (model.Project, error) {
	r.Log.Debug("CreateProjectPaid: start", zap.String("project", p.ProjectID), zap.String("owner", p.OwnerID), zap.Int64("cost", cost))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("CreateProjectPaid: begin tx failed", zap.Error(err))
		return model.Project{}, err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("CreateProjectPaid: rollback failed", zap.Error(err))
		}
	}()

	desc := fmt.Sprintf("submission of project %q", p.Name)
	if _, err := r.spendInTx(ctx, tx, p.OwnerID, cost, model.TxSpentSubmission, desc, &p.ProjectID); err != nil {
		return model.Project{}, err
	}

	p.Status = model.ProjectPendingReview
	p.ReviewsReceived = 0
	p.CreditsSpent = cost
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO projects(project_id, owner_id, name, description, tech_stack, screenshot_url, status, version, reviews_received, reviews_required, credits_spent, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
		 RETURNING created_at, updated_at`,
		p.ProjectID, p.OwnerID, p.Name, p.Description, pq.Array(p.TechStack), p.ScreenshotURL,
		p.Status, p.Version, p.ReviewsReceived, p.ReviewsRequired, p.CreditsSpent).
		Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		r.Log.Error("CreateProjectPaid: insert failed", zap.Error(err))
		return model.Project{}, err
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("CreateProjectPaid: commit failed", zap.Error(err))
		return model.Project{}, err
	}

	r.Log.Info("CreateProjectPaid: success", zap.String("project", p.ProjectID), zap.String("owner", p.OwnerID))
	return p, nil
}

func (r *Repositories) GetProject(ctx context.Context, projectID string) (model.Project, error) {
	r.Log.Debug("GetProject: start", zap.String("project", projectID))
	var p model.Project
	if err := r.DB.QueryRowContext(ctx,
		`SELECT project_id, owner_id, name, description, tech_stack, screenshot_url, status, version, reviews_received, reviews_required, credits_spent, created_at, updated_at
		 FROM projects WHERE project_id=$1`, projectID).
		Scan(&p.ProjectID, &p.OwnerID, &p.Name, &p.Description, pq.Array(&p.TechStack), &p.ScreenshotURL,
			&p.Status, &p.Version, &p.ReviewsReceived, &p.ReviewsRequired, &p.CreditsSpent, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetProject: not found", zap.String("project", projectID))
			return model.Project{}, model.ErrNotFound
		}
		r.Log.Error("GetProject: query failed", zap.Error(err))
		return model.Project{}, err
	}
	r.Log.Debug("GetProject: success", zap.String("project", projectID))
	return p, nil
}

// PatchProject persists a project whose fields were patched without a
// version upgrade. No ledger side effects.
func (r *Repositories) PatchProject(ctx context.Context, p model.Project) error {
	r.Log.Debug("PatchProject: start", zap.String("project", p.ProjectID))
	res, err := r.DB.ExecContext(ctx,
		`UPDATE projects
		 SET name=$2, description=$3, tech_stack=$4, screenshot_url=$5, updated_at=now()
		 WHERE project_id=$1`,
		p.ProjectID, p.Name, p.Description, pq.Array(p.TechStack), p.ScreenshotURL)
	if err != nil {
		r.Log.Error("PatchProject: update failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	r.Log.Info("PatchProject: success", zap.String("project", p.ProjectID))
	return nil
}

// UpgradeProjectPaid applies a version-upgrade patch: the submission cost is
// spent, the patch fields and the new version are written, the review cycle
// is reset to PENDING_REVIEW with zero reviews received. One transaction; a
// failed spend leaves the project untouched.
func (r *Repositories) UpgradeProjectPaid(ctx context.Context, p model.Project, cost int64) error {
	r.Log.Debug("UpgradeProjectPaid: start", zap.String("project", p.ProjectID), zap.String("version", p.Version), zap.Int64("cost", cost))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("UpgradeProjectPaid: begin tx failed", zap.Error(err))
		return err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("UpgradeProjectPaid: rollback failed", zap.Error(err))
		}
	}()

	desc := fmt.Sprintf("version upgrade of project %q to %s", p.Name, p.Version)
	if _, err := r.spendInTx(ctx, tx, p.OwnerID, cost, model.TxSpentSubmission, desc, &p.ProjectID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE projects
		 SET name=$2, description=$3, tech_stack=$4, screenshot_url=$5, version=$6,
		     status=$7, reviews_received=0, credits_spent=credits_spent+$8, updated_at=now()
		 WHERE project_id=$1`,
		p.ProjectID, p.Name, p.Description, pq.Array(p.TechStack), p.ScreenshotURL,
		p.Version, model.ProjectPendingReview, cost)
	if err != nil {
		r.Log.Error("UpgradeProjectPaid: update failed", zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("UpgradeProjectPaid: commit failed", zap.Error(err))
		return err
	}

	r.Log.Info("UpgradeProjectPaid: success", zap.String("project", p.ProjectID), zap.String("version", p.Version))
	return nil
}
