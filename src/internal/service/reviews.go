package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/peerloop/feedback-market/src/internal/model"

	"go.uber.org/zap"
)

// SubmitReview validates the sections, finalizes the assignment and credits
// the reviewer. Length gating happens here; status and expiry are
// re-checked inside the store transaction so a sweep that lands first
// always wins.
func (s *Service) SubmitReview(ctx context.Context, assignmentID, reviewerID string, sections model.ReviewSections) (model.Review, error) {
	if err := s.validateSections(sections); err != nil {
		return model.Review{}, err
	}

	rv, err := s.repo.SubmitReview(ctx, assignmentID, reviewerID, sections, s.cfg.EarnPerReview)
	if err != nil {
		return model.Review{}, svcError(err)
	}
	s.metrics.ReviewsSubmitted.Inc()
	s.metrics.CreditsEarned.Add(float64(rv.CreditsEarned))

	// Owner notification is best-effort and stays outside the commit.
	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		p, err := s.repo.GetProject(nctx, rv.ProjectID)
		if err != nil {
			s.log.Warn("SubmitReview: owner lookup for notification failed", zap.Error(err))
			return
		}
		s.notifier.ReviewReceived(nctx, p.OwnerID, rv.ProjectID, rv.ReviewID)
	}()

	return rv, nil
}

func (s *Service) validateSections(sections model.ReviewSections) error {
	for _, section := range []struct {
		name string
		text string
	}{
		{"whats_good", sections.WhatsGood},
		{"whats_unclear", sections.WhatsUnclear},
		{"improvement_suggestion", sections.ImprovementSuggestion},
	} {
		if utf8.RuneCountInString(section.text) < s.cfg.MinReviewLength {
			return validationError(fmt.Sprintf("%s must be at least %d characters", section.name, s.cfg.MinReviewLength))
		}
	}
	return nil
}

// SaveReviewDraft upserts scratch content for the reviewer's assignment.
// Idempotent and free of lifecycle gating; submission is the sole gate.
func (s *Service) SaveReviewDraft(ctx context.Context, assignmentID, reviewerID string, sections model.ReviewSections) (model.ReviewDraft, error) {
	a, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return model.ReviewDraft{}, svcError(err)
	}
	if a.ReviewerID != reviewerID {
		return model.ReviewDraft{}, svcError(model.ErrNotFound)
	}

	d, err := s.repo.SaveReviewDraft(ctx, model.ReviewDraft{
		AssignmentID:          assignmentID,
		WhatsGood:             sections.WhatsGood,
		WhatsUnclear:          sections.WhatsUnclear,
		ImprovementSuggestion: sections.ImprovementSuggestion,
	})
	if err != nil {
		return model.ReviewDraft{}, svcError(err)
	}
	return d, nil
}

func (s *Service) GetReviewDraft(ctx context.Context, assignmentID, reviewerID string) (model.ReviewDraft, error) {
	a, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return model.ReviewDraft{}, svcError(err)
	}
	if a.ReviewerID != reviewerID {
		return model.ReviewDraft{}, svcError(model.ErrNotFound)
	}
	d, err := s.repo.GetReviewDraft(ctx, assignmentID)
	if err != nil {
		return model.ReviewDraft{}, svcError(err)
	}
	return d, nil
}

func (s *Service) GetAssignmentsForReviewer(ctx context.Context, reviewerID string) ([]model.ReviewAssignment, error) {
	return s.repo.GetAssignmentsForReviewer(ctx, reviewerID)
}

// MarkReviewHelpful records the owner's tri-state verdict on a review.
func (s *Service) MarkReviewHelpful(ctx context.Context, ownerID, reviewID string, helpful *bool) (model.Review, error) {
	rv, err := s.ownedReview(ctx, ownerID, reviewID)
	if err != nil {
		return model.Review{}, err
	}
	if err := s.repo.SetReviewHelpful(ctx, rv.ReviewID, helpful); err != nil {
		return model.Review{}, svcError(err)
	}
	rv.IsHelpful = helpful
	return rv, nil
}

// ReplyToReview records the owner's reply on a review.
func (s *Service) ReplyToReview(ctx context.Context, ownerID, reviewID, reply string) (model.Review, error) {
	if strings.TrimSpace(reply) == "" {
		return model.Review{}, validationError("reply is required")
	}
	rv, err := s.ownedReview(ctx, ownerID, reviewID)
	if err != nil {
		return model.Review{}, err
	}
	if err := s.repo.SetReviewReply(ctx, rv.ReviewID, reply); err != nil {
		return model.Review{}, svcError(err)
	}
	rv.OwnerReply = &reply
	return rv, nil
}

func (s *Service) ownedReview(ctx context.Context, ownerID, reviewID string) (model.Review, error) {
	rv, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return model.Review{}, svcError(err)
	}
	p, err := s.repo.GetProject(ctx, rv.ProjectID)
	if err != nil {
		return model.Review{}, svcError(err)
	}
	if p.OwnerID != ownerID {
		return model.Review{}, svcError(model.ErrNotFound)
	}
	return rv, nil
}
