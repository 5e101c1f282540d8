package service

import (
	"context"
	"sort"
	"time"

	"github.com/peerloop/feedback-market/src/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AutoAssignReviewers selects up to desiredCount reviewers for the project
// and creates ASSIGNED rows for them. Fewer eligible candidates than asked
// for is partial fulfillment, not an error. Callers invoke this exactly
// once per triggering event; re-invoking with fresh candidates creates
// additional assignments.
func (s *Service) AutoAssignReviewers(ctx context.Context, projectID string, desiredCount int) ([]model.ReviewAssignment, error) {
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, svcError(err)
	}
	if desiredCount <= 0 {
		desiredCount = p.ReviewsRequired
	}
	return s.assignReviewers(ctx, p, desiredCount)
}

func (s *Service) assignReviewers(ctx context.Context, p model.Project, desiredCount int) ([]model.ReviewAssignment, error) {
	candidates, err := s.repo.GetReviewerCandidates(ctx, p.ProjectID, p.OwnerID)
	if err != nil {
		return nil, err
	}

	ranked := rankBySkillOverlap(candidates, p.TechStack)
	if len(ranked) > desiredCount {
		ranked = ranked[:desiredCount]
	}

	expiresAt := time.Now().UTC().Add(s.cfg.AssignmentTTL)
	assignments := make([]model.ReviewAssignment, 0, len(ranked))
	for _, c := range ranked {
		assignments = append(assignments, model.ReviewAssignment{
			AssignmentID: uuid.New().String(),
			ProjectID:    p.ProjectID,
			ReviewerID:   c.UserID,
			Status:       model.AssignmentAssigned,
			ExpiresAt:    expiresAt,
		})
	}

	created, err := s.repo.CreateAssignments(ctx, assignments)
	if err != nil {
		return nil, err
	}
	s.metrics.AssignmentsCreated.Add(float64(len(created)))
	s.log.Info("assigned reviewers",
		zap.String("project", p.ProjectID),
		zap.Int("desired", desiredCount),
		zap.Int("assigned", len(created)))

	for _, a := range created {
		go func(reviewerID string) {
			nctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.notifier.ReviewerAssigned(nctx, reviewerID, p.ProjectID)
		}(a.ReviewerID)
	}
	return created, nil
}

// rankBySkillOverlap orders candidates by the size of the intersection of
// their skills with the project's tech stack, descending. Ties keep the
// incoming order, which the store fixes to account creation time then user
// id, so ranking is deterministic.
func rankBySkillOverlap(candidates []model.User, techStack []string) []model.User {
	stack := make(map[string]struct{}, len(techStack))
	for _, t := range techStack {
		stack[t] = struct{}{}
	}

	ranked := append([]model.User(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return skillOverlap(ranked[i].Skills, stack) > skillOverlap(ranked[j].Skills, stack)
	})
	return ranked
}

func skillOverlap(skills []string, stack map[string]struct{}) int {
	seen := make(map[string]struct{}, len(skills))
	n := 0
	for _, sk := range skills {
		if _, dup := seen[sk]; dup {
			continue
		}
		seen[sk] = struct{}{}
		if _, ok := stack[sk]; ok {
			n++
		}
	}
	return n
}
