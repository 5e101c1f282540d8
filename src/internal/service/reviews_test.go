package service

import (
	"context"
	"strings"
	"testing"

	"github.com/peerloop/feedback-market/src/internal/api/apiErrors"
	"github.com/peerloop/feedback-market/src/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func validSections() model.ReviewSections {
	return model.ReviewSections{
		WhatsGood:             strings.Repeat("g", 100),
		WhatsUnclear:          strings.Repeat("u", 120),
		ImprovementSuggestion: strings.Repeat("i", 150),
	}
}

func TestSubmitReview_Success(t *testing.T) {
	svc, mockRepo := createTestService()
	sections := validSections()

	mockRepo.On("SubmitReview", mock.Anything, "a1", "reviewer", sections, int64(1)).Return(model.Review{
		ReviewID:      "r1",
		ProjectID:     "p1",
		ReviewerID:    "reviewer",
		CreditsEarned: 1,
	}, nil)
	// Owner lookup happens on the async notification path.
	mockRepo.On("GetProject", mock.Anything, "p1").Return(model.Project{ProjectID: "p1", OwnerID: "owner"}, nil).Maybe()

	rv, err := svc.SubmitReview(context.Background(), "a1", "reviewer", sections)

	assert.NoError(t, err)
	assert.Equal(t, "r1", rv.ReviewID)
	assert.Equal(t, int64(1), rv.CreditsEarned)
}

func TestSubmitReview_LengthGate99Fails(t *testing.T) {
	svc, mockRepo := createTestService()

	sections := validSections()
	sections.WhatsGood = strings.Repeat("g", 99)

	_, err := svc.SubmitReview(context.Background(), "a1", "reviewer", sections)

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.ValidationError, apiErr.Code)
	assert.Contains(t, apiErr.Message, "whats_good")
	mockRepo.AssertNotCalled(t, "SubmitReview")
}

func TestSubmitReview_LengthGate100Passes(t *testing.T) {
	svc, mockRepo := createTestService()

	sections := validSections()
	sections.WhatsGood = strings.Repeat("g", 100)

	mockRepo.On("SubmitReview", mock.Anything, "a1", "reviewer", sections, int64(1)).
		Return(model.Review{ReviewID: "r1", ProjectID: "p1"}, nil)
	mockRepo.On("GetProject", mock.Anything, "p1").Return(model.Project{}, nil).Maybe()

	_, err := svc.SubmitReview(context.Background(), "a1", "reviewer", sections)

	assert.NoError(t, err)
}

func TestSubmitReview_MultibyteRunesCountAsCharacters(t *testing.T) {
	svc, mockRepo := createTestService()

	sections := validSections()
	sections.WhatsUnclear = strings.Repeat("ё", 100)

	mockRepo.On("SubmitReview", mock.Anything, "a1", "reviewer", sections, int64(1)).
		Return(model.Review{ReviewID: "r1", ProjectID: "p1"}, nil)
	mockRepo.On("GetProject", mock.Anything, "p1").Return(model.Project{}, nil).Maybe()

	_, err := svc.SubmitReview(context.Background(), "a1", "reviewer", sections)

	assert.NoError(t, err)
}

func TestSubmitReview_ExpiredAssignment(t *testing.T) {
	svc, mockRepo := createTestService()
	sections := validSections()

	mockRepo.On("SubmitReview", mock.Anything, "a1", "reviewer", sections, int64(1)).
		Return(model.Review{}, model.ErrExpired)

	_, err := svc.SubmitReview(context.Background(), "a1", "reviewer", sections)

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.AssignmentExpired, apiErr.Code)
}

func TestSubmitReview_AlreadySubmitted(t *testing.T) {
	svc, mockRepo := createTestService()
	sections := validSections()

	mockRepo.On("SubmitReview", mock.Anything, "a1", "reviewer", sections, int64(1)).
		Return(model.Review{}, model.ErrAlreadySubmitted)

	_, err := svc.SubmitReview(context.Background(), "a1", "reviewer", sections)

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.AlreadySubmitted, apiErr.Code)
}

func TestSubmitReview_ForeignAssignment(t *testing.T) {
	svc, mockRepo := createTestService()
	sections := validSections()

	mockRepo.On("SubmitReview", mock.Anything, "a1", "stranger", sections, int64(1)).
		Return(model.Review{}, model.ErrNotFound)

	_, err := svc.SubmitReview(context.Background(), "a1", "stranger", sections)

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.NotFound, apiErr.Code)
}

func TestSaveReviewDraft_Idempotent(t *testing.T) {
	svc, mockRepo := createTestService()

	assignment := model.ReviewAssignment{AssignmentID: "a1", ReviewerID: "reviewer", Status: model.AssignmentAssigned}
	draft := model.ReviewDraft{AssignmentID: "a1", WhatsGood: "partial thoughts"}

	mockRepo.On("GetAssignment", mock.Anything, "a1").Return(assignment, nil)
	mockRepo.On("SaveReviewDraft", mock.Anything, mock.MatchedBy(func(d model.ReviewDraft) bool {
		return d.AssignmentID == "a1" && d.WhatsGood == "partial thoughts"
	})).Return(draft, nil)

	d, err := svc.SaveReviewDraft(context.Background(), "a1", "reviewer", model.ReviewSections{WhatsGood: "partial thoughts"})
	assert.NoError(t, err)
	assert.Equal(t, "a1", d.AssignmentID)

	// Repeated save with the same content is a plain upsert.
	d, err = svc.SaveReviewDraft(context.Background(), "a1", "reviewer", model.ReviewSections{WhatsGood: "partial thoughts"})
	assert.NoError(t, err)
	assert.Equal(t, "a1", d.AssignmentID)
}

func TestSaveReviewDraft_ForeignAssignment(t *testing.T) {
	svc, mockRepo := createTestService()

	assignment := model.ReviewAssignment{AssignmentID: "a1", ReviewerID: "reviewer"}
	mockRepo.On("GetAssignment", mock.Anything, "a1").Return(assignment, nil)

	_, err := svc.SaveReviewDraft(context.Background(), "a1", "stranger", model.ReviewSections{})

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.NotFound, apiErr.Code)
	mockRepo.AssertNotCalled(t, "SaveReviewDraft")
}

func TestMarkReviewHelpful_OwnerOnly(t *testing.T) {
	svc, mockRepo := createTestService()

	review := model.Review{ReviewID: "r1", ProjectID: "p1"}
	project := model.Project{ProjectID: "p1", OwnerID: "owner"}

	mockRepo.On("GetReview", mock.Anything, "r1").Return(review, nil)
	mockRepo.On("GetProject", mock.Anything, "p1").Return(project, nil)

	helpful := true
	mockRepo.On("SetReviewHelpful", mock.Anything, "r1", &helpful).Return(nil)

	rv, err := svc.MarkReviewHelpful(context.Background(), "owner", "r1", &helpful)
	assert.NoError(t, err)
	assert.NotNil(t, rv.IsHelpful)
	assert.True(t, *rv.IsHelpful)

	_, err = svc.MarkReviewHelpful(context.Background(), "stranger", "r1", &helpful)
	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.NotFound, apiErr.Code)
}

func TestReplyToReview_RequiresContent(t *testing.T) {
	svc, mockRepo := createTestService()

	_, err := svc.ReplyToReview(context.Background(), "owner", "r1", "   ")

	var apiErr apiErrors.APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apiErrors.ValidationError, apiErr.Code)
	mockRepo.AssertNotCalled(t, "SetReviewReply")
}
