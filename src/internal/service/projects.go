package service

import (
	"context"
	"errors"
	"strings"

	"github.com/peerloop/feedback-market/src/internal/api/apiErrors"
	"github.com/peerloop/feedback-market/src/internal/model"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateProjectRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	TechStack     []string `json:"tech_stack"`
	ScreenshotURL string   `json:"screenshot_url"`
	Version       string   `json:"version"`
}

// CreateProject admits a project into the marketplace: the submission cost
// is spent and the project inserted atomically, then reviewers are matched
// once for the new submission.
func (s *Service) CreateProject(ctx context.Context, ownerID string, req CreateProjectRequest) (model.Project, []model.ReviewAssignment, error) {
	if strings.TrimSpace(req.Name) == "" {
		return model.Project{}, nil, validationError("name is required")
	}
	version := req.Version
	if version == "" {
		version = "1.0.0"
	}
	if _, err := semver.NewVersion(version); err != nil {
		return model.Project{}, nil, validationError("version must be a semantic version")
	}

	p := model.Project{
		ProjectID:       uuid.New().String(),
		OwnerID:         ownerID,
		Name:            req.Name,
		Description:     req.Description,
		TechStack:       req.TechStack,
		ScreenshotURL:   req.ScreenshotURL,
		Version:         version,
		ReviewsRequired: s.cfg.ReviewsRequired,
	}

	created, err := s.repo.CreateProjectPaid(ctx, p, s.cfg.CostPerSubmission)
	if err != nil {
		s.noteSpendFailure(err)
		return model.Project{}, nil, svcError(err)
	}
	s.metrics.CreditsSpent.Add(float64(s.cfg.CostPerSubmission))

	assignments, err := s.assignReviewers(ctx, created, created.ReviewsRequired)
	if err != nil {
		// The project is admitted and paid for; matching can be retried
		// via the explicit assignment endpoint.
		s.log.Error("CreateProject: matching failed after admission",
			zap.String("project", created.ProjectID), zap.Error(err))
		return created, nil, nil
	}
	return created, assignments, nil
}

func (s *Service) GetProject(ctx context.Context, projectID string) (model.Project, error) {
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return model.Project{}, svcError(err)
	}
	return p, nil
}

func (s *Service) GetProjectAssignments(ctx context.Context, projectID string) ([]model.ReviewAssignment, error) {
	return s.repo.GetAssignmentsForProject(ctx, projectID)
}

// UpdateProject applies a patch. A strictly greater version re-enters paid
// admission: the spend, the patch and the review-cycle reset commit
// together, and matching re-runs once afterwards. An equal or absent
// version patches fields with no side effects; a lower version is rejected.
func (s *Service) UpdateProject(ctx context.Context, userID, projectID string, patch model.ProjectPatch) (model.Project, bool, error) {
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return model.Project{}, false, svcError(err)
	}
	if p.OwnerID != userID {
		return model.Project{}, false, svcError(model.ErrNotFound)
	}

	upgraded := false
	if patch.Version != nil && *patch.Version != p.Version {
		newVer, err := semver.NewVersion(*patch.Version)
		if err != nil {
			return model.Project{}, false, validationError("version must be a semantic version")
		}
		oldVer, err := semver.NewVersion(p.Version)
		if err != nil {
			// Stored versions are validated on write; treat corruption as
			// an upgrade base of 0.0.0.
			oldVer = semver.MustParse("0.0.0")
		}
		switch newVer.Compare(oldVer) {
		case 1:
			upgraded = true
		case 0:
			// Same triple spelled differently; no side effects.
		default:
			return model.Project{}, false, apiErrors.APIError{
				Code:    apiErrors.VersionDowngrade,
				Message: "version downgrade is not allowed",
			}
		}
	}

	applyPatch(&p, patch)

	if !upgraded {
		if err := s.repo.PatchProject(ctx, p); err != nil {
			return model.Project{}, false, svcError(err)
		}
		updated, err := s.repo.GetProject(ctx, projectID)
		if err != nil {
			return model.Project{}, false, svcError(err)
		}
		return updated, false, nil
	}

	p.Version = *patch.Version
	if err := s.repo.UpgradeProjectPaid(ctx, p, s.cfg.CostPerSubmission); err != nil {
		s.noteSpendFailure(err)
		return model.Project{}, false, svcError(err)
	}
	s.metrics.CreditsSpent.Add(float64(s.cfg.CostPerSubmission))

	updated, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return model.Project{}, true, svcError(err)
	}

	if _, err := s.assignReviewers(ctx, updated, updated.ReviewsRequired); err != nil {
		s.log.Error("UpdateProject: matching failed after upgrade",
			zap.String("project", projectID), zap.Error(err))
	}
	return updated, true, nil
}

func applyPatch(p *model.Project, patch model.ProjectPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.TechStack != nil {
		p.TechStack = patch.TechStack
	}
	if patch.ScreenshotURL != nil {
		p.ScreenshotURL = *patch.ScreenshotURL
	}
}

func (s *Service) noteSpendFailure(err error) {
	var insufficient model.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		s.metrics.SpendRejections.Inc()
	}
}
