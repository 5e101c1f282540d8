package service

import (
	"context"
	"sync"
	"time"

	"github.com/peerloop/feedback-market/src/internal/config"
	"github.com/peerloop/feedback-market/src/internal/metrics"
	"github.com/peerloop/feedback-market/src/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockRepositories struct {
	mock.Mock
}

func (m *MockRepositories) UpsertUser(ctx context.Context, u model.User, signupBonus int64) (model.User, bool, error) {
	args := m.Called(ctx, u, signupBonus)
	return args.Get(0).(model.User), args.Bool(1), args.Error(2)
}

func (m *MockRepositories) GetUser(ctx context.Context, userID string) (model.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockRepositories) RecordTransaction(ctx context.Context, t model.CreditTransaction) (model.CreditTransaction, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.CreditTransaction), args.Error(1)
}

func (m *MockRepositories) SpendCredits(ctx context.Context, userID string, amount int64, txType model.TransactionType, description string, projectID *string) (model.CreditTransaction, error) {
	args := m.Called(ctx, userID, amount, txType, description, projectID)
	return args.Get(0).(model.CreditTransaction), args.Error(1)
}

func (m *MockRepositories) GetBalance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepositories) GetCreditHistory(ctx context.Context, userID string, limit, offset int) ([]model.CreditTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]model.CreditTransaction), args.Error(1)
}

func (m *MockRepositories) GetCreditStats(ctx context.Context, userID string) (model.CreditStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.CreditStats), args.Error(1)
}

func (m *MockRepositories) CreateProjectPaid(ctx context.Context, p model.Project, cost int64) (model.Project, error) {
	args := m.Called(ctx, p, cost)
	return args.Get(0).(model.Project), args.Error(1)
}

func (m *MockRepositories) GetProject(ctx context.Context, projectID string) (model.Project, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(model.Project), args.Error(1)
}

func (m *MockRepositories) PatchProject(ctx context.Context, p model.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepositories) UpgradeProjectPaid(ctx context.Context, p model.Project, cost int64) error {
	args := m.Called(ctx, p, cost)
	return args.Error(0)
}

func (m *MockRepositories) GetReviewerCandidates(ctx context.Context, projectID, ownerID string) ([]model.User, error) {
	args := m.Called(ctx, projectID, ownerID)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockRepositories) CreateAssignments(ctx context.Context, assignments []model.ReviewAssignment) ([]model.ReviewAssignment, error) {
	args := m.Called(ctx, assignments)
	return args.Get(0).([]model.ReviewAssignment), args.Error(1)
}

func (m *MockRepositories) GetAssignment(ctx context.Context, assignmentID string) (model.ReviewAssignment, error) {
	args := m.Called(ctx, assignmentID)
	return args.Get(0).(model.ReviewAssignment), args.Error(1)
}

func (m *MockRepositories) GetAssignmentsForReviewer(ctx context.Context, reviewerID string) ([]model.ReviewAssignment, error) {
	args := m.Called(ctx, reviewerID)
	return args.Get(0).([]model.ReviewAssignment), args.Error(1)
}

func (m *MockRepositories) GetAssignmentsForProject(ctx context.Context, projectID string) ([]model.ReviewAssignment, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]model.ReviewAssignment), args.Error(1)
}

func (m *MockRepositories) ExpireOverdue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepositories) SubmitReview(ctx context.Context, assignmentID, reviewerID string, sections model.ReviewSections, earn int64) (model.Review, error) {
	args := m.Called(ctx, assignmentID, reviewerID, sections, earn)
	return args.Get(0).(model.Review), args.Error(1)
}

func (m *MockRepositories) GetReview(ctx context.Context, reviewID string) (model.Review, error) {
	args := m.Called(ctx, reviewID)
	return args.Get(0).(model.Review), args.Error(1)
}

func (m *MockRepositories) SetReviewHelpful(ctx context.Context, reviewID string, helpful *bool) error {
	args := m.Called(ctx, reviewID, helpful)
	return args.Error(0)
}

func (m *MockRepositories) SetReviewReply(ctx context.Context, reviewID, reply string) error {
	args := m.Called(ctx, reviewID, reply)
	return args.Error(0)
}

func (m *MockRepositories) SaveReviewDraft(ctx context.Context, d model.ReviewDraft) (model.ReviewDraft, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(model.ReviewDraft), args.Error(1)
}

func (m *MockRepositories) GetReviewDraft(ctx context.Context, assignmentID string) (model.ReviewDraft, error) {
	args := m.Called(ctx, assignmentID)
	return args.Get(0).(model.ReviewDraft), args.Error(1)
}

// testNotifier records notifications without blocking the goroutines that
// deliver them.
type testNotifier struct {
	mu       sync.Mutex
	assigned []string
	received []string
}

func (n *testNotifier) ReviewerAssigned(_ context.Context, reviewerID, projectID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned = append(n.assigned, reviewerID)
}

func (n *testNotifier) ReviewReceived(_ context.Context, ownerID, projectID, reviewID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, reviewID)
}

func testConfig() *config.Config {
	return &config.Config{
		CostPerSubmission: 1,
		EarnPerReview:     1,
		SignupBonus:       3,
		ReviewsRequired:   3,
		AssignmentTTL:     48 * time.Hour,
		MinReviewLength:   100,
	}
}

func createTestService() (*Service, *MockRepositories) {
	mockRepo := new(MockRepositories)
	svc := NewService(mockRepo, zap.NewNop(), &testNotifier{}, metrics.New(prometheus.NewRegistry()), testConfig())
	return svc, mockRepo
}
