package service

import (
	"errors"

	"github.com/peerloop/feedback-market/src/internal/api/apiErrors"
	"github.com/peerloop/feedback-market/src/internal/config"
	"github.com/peerloop/feedback-market/src/internal/metrics"
	"github.com/peerloop/feedback-market/src/internal/model"
	"github.com/peerloop/feedback-market/src/internal/notify"
	"github.com/peerloop/feedback-market/src/internal/store"

	"go.uber.org/zap"
)

type Service struct {
	repo     store.Repository
	log      *zap.Logger
	notifier notify.Notifier
	metrics  *metrics.Metrics
	cfg      *config.Config
}

func NewService(repos store.Repository, logger *zap.Logger, notifier notify.Notifier, m *metrics.Metrics, cfg *config.Config) *Service {
	return &Service{
		repo:     repos,
		log:      logger,
		notifier: notifier,
		metrics:  m,
		cfg:      cfg,
	}
}

// svcError translates store-level errors into the API error taxonomy.
func svcError(err error) error {
	var insufficient model.InsufficientCreditsError
	switch {
	case errors.As(err, &insufficient):
		return apiErrors.APIError{Code: apiErrors.InsufficientCredits, Message: insufficient.Error()}
	case errors.Is(err, model.ErrNotFound):
		return apiErrors.APIError{Code: apiErrors.NotFound, Message: "not found"}
	case errors.Is(err, model.ErrAlreadySubmitted):
		return apiErrors.APIError{Code: apiErrors.AlreadySubmitted, Message: "review already submitted for this assignment"}
	case errors.Is(err, model.ErrExpired):
		return apiErrors.APIError{Code: apiErrors.AssignmentExpired, Message: "assignment has expired"}
	default:
		return err
	}
}

func validationError(msg string) error {
	return apiErrors.APIError{Code: apiErrors.ValidationError, Message: msg}
}
