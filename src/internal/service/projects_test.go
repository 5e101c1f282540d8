package service

import (
	"context"
	"testing"

	"github.com/peerloop/feedback-market/src/internal/api/apiErrors"
	"github.com/peerloop/feedback-market/src/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func strPtr(s string) *string { return &s }

func TestCreateProject_Success(t *testing.T) {
	svc, mockRepo := createTestService()

	mockRepo.On("CreateProjectPaid", mock.Anything, mock.MatchedBy(func(p model.Project) bool {
		return p.OwnerID == "owner" && p.Name == "My App" && p.Version == "1.0.0" && p.ReviewsRequired == 3
	}), int64(1)).Return(model.Project{
		ProjectID:       "p1",
		OwnerID:         "owner",
		Name:            "My App",
		TechStack:       []string{"Go"},
		Status:          model.ProjectPendingReview,
		Version:         "1.0.0",
		ReviewsRequired: 3,
		CreditsSpent:    1,
	}, nil)
	mockRepo.On("GetReviewerCandidates", mock.Anything, "p1", "owner").Return([]model.User{user("u1", "Go")}, nil)
	mockRepo.On("CreateAssignments", mock.Anything, mock.Anything).Return([]model.ReviewAssignment{
		{AssignmentID: "a1", ProjectID: "p1", ReviewerID: "u1", Status: model.AssignmentAssigned},
	}, nil)

	p, assignments, err := svc.CreateProject(context.Background(), "owner", CreateProjectRequest{
		Name:      "My App",
		TechStack: []string{"Go"},
	})

	assert.NoError(t, err)
	assert.Equal(t, model.ProjectPendingReview, p.Status)
	assert.Equal(t, int64(1), p.CreditsSpent)
	assert.Len(t, assignments, 1)
	mockRepo.AssertExpectations(t)
}

func TestCreateProject_InsufficientCredits(t *testing.T) {
	svc, mockRepo := createTestService()

	mockRepo.On("CreateProjectPaid", mock.Anything, mock.Anything, int64(1)).
		Return(model.Project{}, model.InsufficientCreditsError{Have: 0, Need: 1})

	_, _, err := svc.CreateProject(context.Background(), "owner", CreateProjectRequest{Name: "My App"})

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.InsufficientCredits, apiErr.Code)
	mockRepo.AssertNotCalled(t, "CreateAssignments")
}

func TestCreateProject_NameRequired(t *testing.T) {
	svc, mockRepo := createTestService()

	_, _, err := svc.CreateProject(context.Background(), "owner", CreateProjectRequest{Name: "  "})

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.ValidationError, apiErr.Code)
	mockRepo.AssertNotCalled(t, "CreateProjectPaid")
}

func TestCreateProject_BadVersion(t *testing.T) {
	svc, _ := createTestService()

	_, _, err := svc.CreateProject(context.Background(), "owner", CreateProjectRequest{
		Name:    "My App",
		Version: "not-a-version",
	})

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.ValidationError, apiErr.Code)
}

func TestUpdateProject_VersionUpgrade(t *testing.T) {
	svc, mockRepo := createTestService()

	stored := model.Project{
		ProjectID:       "p1",
		OwnerID:         "owner",
		Name:            "My App",
		Version:         "1.0.0",
		Status:          model.ProjectActive,
		ReviewsReceived: 3,
		ReviewsRequired: 3,
	}
	upgraded := stored
	upgraded.Version = "1.0.1"
	upgraded.Status = model.ProjectPendingReview
	upgraded.ReviewsReceived = 0
	upgraded.CreditsSpent = 2

	mockRepo.On("GetProject", mock.Anything, "p1").Return(stored, nil).Once()
	mockRepo.On("UpgradeProjectPaid", mock.Anything, mock.MatchedBy(func(p model.Project) bool {
		return p.ProjectID == "p1" && p.Version == "1.0.1"
	}), int64(1)).Return(nil)
	mockRepo.On("GetProject", mock.Anything, "p1").Return(upgraded, nil)
	mockRepo.On("GetReviewerCandidates", mock.Anything, "p1", "owner").Return([]model.User(nil), nil)
	mockRepo.On("CreateAssignments", mock.Anything, mock.Anything).Return([]model.ReviewAssignment(nil), nil)

	p, versionUpgraded, err := svc.UpdateProject(context.Background(), "owner", "p1", model.ProjectPatch{
		Version: strPtr("1.0.1"),
	})

	assert.NoError(t, err)
	assert.True(t, versionUpgraded)
	assert.Equal(t, "1.0.1", p.Version)
	assert.Equal(t, model.ProjectPendingReview, p.Status)
	assert.Equal(t, 0, p.ReviewsReceived)
	mockRepo.AssertExpectations(t)
}

func TestUpdateProject_EqualVersionNoSideEffects(t *testing.T) {
	svc, mockRepo := createTestService()

	stored := model.Project{
		ProjectID: "p1",
		OwnerID:   "owner",
		Name:      "My App",
		Version:   "1.0.0",
		Status:    model.ProjectActive,
	}

	mockRepo.On("GetProject", mock.Anything, "p1").Return(stored, nil)
	mockRepo.On("PatchProject", mock.Anything, mock.MatchedBy(func(p model.Project) bool {
		return p.Name == "Renamed"
	})).Return(nil)

	_, versionUpgraded, err := svc.UpdateProject(context.Background(), "owner", "p1", model.ProjectPatch{
		Name:    strPtr("Renamed"),
		Version: strPtr("1.0.0"),
	})

	assert.NoError(t, err)
	assert.False(t, versionUpgraded)
	mockRepo.AssertNotCalled(t, "UpgradeProjectPaid")
	mockRepo.AssertNotCalled(t, "CreateAssignments")
}

func TestUpdateProject_AbsentVersionNoSideEffects(t *testing.T) {
	svc, mockRepo := createTestService()

	stored := model.Project{ProjectID: "p1", OwnerID: "owner", Name: "My App", Version: "1.0.0"}

	mockRepo.On("GetProject", mock.Anything, "p1").Return(stored, nil)
	mockRepo.On("PatchProject", mock.Anything, mock.Anything).Return(nil)

	_, versionUpgraded, err := svc.UpdateProject(context.Background(), "owner", "p1", model.ProjectPatch{
		Description: strPtr("new description"),
	})

	assert.NoError(t, err)
	assert.False(t, versionUpgraded)
	mockRepo.AssertNotCalled(t, "UpgradeProjectPaid")
}

func TestUpdateProject_Downgrade(t *testing.T) {
	svc, mockRepo := createTestService()

	stored := model.Project{ProjectID: "p1", OwnerID: "owner", Version: "2.1.0"}
	mockRepo.On("GetProject", mock.Anything, "p1").Return(stored, nil)

	_, _, err := svc.UpdateProject(context.Background(), "owner", "p1", model.ProjectPatch{
		Version: strPtr("2.0.9"),
	})

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.VersionDowngrade, apiErr.Code)
	mockRepo.AssertNotCalled(t, "UpgradeProjectPaid")
	mockRepo.AssertNotCalled(t, "PatchProject")
}

func TestUpdateProject_UpgradeSpendFailureAbortsEverything(t *testing.T) {
	svc, mockRepo := createTestService()

	stored := model.Project{ProjectID: "p1", OwnerID: "owner", Version: "1.0.0"}
	mockRepo.On("GetProject", mock.Anything, "p1").Return(stored, nil)
	mockRepo.On("UpgradeProjectPaid", mock.Anything, mock.Anything, int64(1)).
		Return(model.InsufficientCreditsError{Have: 0, Need: 1})

	_, _, err := svc.UpdateProject(context.Background(), "owner", "p1", model.ProjectPatch{
		Version: strPtr("1.0.1"),
	})

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.InsufficientCredits, apiErr.Code)
	mockRepo.AssertNotCalled(t, "PatchProject")
	mockRepo.AssertNotCalled(t, "CreateAssignments")
}

func TestUpdateProject_NotOwner(t *testing.T) {
	svc, mockRepo := createTestService()

	stored := model.Project{ProjectID: "p1", OwnerID: "owner", Version: "1.0.0"}
	mockRepo.On("GetProject", mock.Anything, "p1").Return(stored, nil)

	_, _, err := svc.UpdateProject(context.Background(), "intruder", "p1", model.ProjectPatch{
		Name: strPtr("hijacked"),
	})

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.NotFound, apiErr.Code)
}

func TestUpdateProject_TwoComponentVersionUpgrades(t *testing.T) {
	svc, mockRepo := createTestService()

	// "1.1" parses as 1.1.0, strictly above 1.0.9.
	stored := model.Project{ProjectID: "p1", OwnerID: "owner", Version: "1.0.9"}
	upgraded := stored
	upgraded.Version = "1.1"

	mockRepo.On("GetProject", mock.Anything, "p1").Return(stored, nil).Once()
	mockRepo.On("UpgradeProjectPaid", mock.Anything, mock.Anything, int64(1)).Return(nil)
	mockRepo.On("GetProject", mock.Anything, "p1").Return(upgraded, nil)
	mockRepo.On("GetReviewerCandidates", mock.Anything, "p1", "owner").Return([]model.User(nil), nil)
	mockRepo.On("CreateAssignments", mock.Anything, mock.Anything).Return([]model.ReviewAssignment(nil), nil)

	_, versionUpgraded, err := svc.UpdateProject(context.Background(), "owner", "p1", model.ProjectPatch{
		Version: strPtr("1.1"),
	})

	assert.NoError(t, err)
	assert.True(t, versionUpgraded)
}
