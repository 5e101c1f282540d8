package service

import (
	"context"
	"strings"

	"github.com/peerloop/feedback-market/src/internal/model"

	"github.com/google/uuid"
)

// UpsertUser registers or updates a participant profile. First-time
// registration grants the signup bonus so new users can fund a submission.
func (s *Service) UpsertUser(ctx context.Context, u model.User) (model.User, bool, error) {
	if strings.TrimSpace(u.Username) == "" {
		return model.User{}, false, validationError("username is required")
	}
	if u.UserID == "" {
		u.UserID = uuid.New().String()
	}
	out, created, err := s.repo.UpsertUser(ctx, u, s.cfg.SignupBonus)
	if err != nil {
		return model.User{}, false, svcError(err)
	}
	return out, created, nil
}

func (s *Service) GetUserCredits(ctx context.Context, userID string) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

// CanAfford is a non-mutating gate for UI use only. Correctness always
// comes from the atomic spend inside admission.
func (s *Service) CanAfford(ctx context.Context, userID string, amount int64) (bool, error) {
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

func (s *Service) GetCreditHistory(ctx context.Context, userID string, limit, offset int) ([]model.CreditTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetCreditHistory(ctx, userID, limit, offset)
}

func (s *Service) GetCreditStats(ctx context.Context, userID string) (model.CreditStats, error) {
	return s.repo.GetCreditStats(ctx, userID)
}

// AdjustCredits applies a manual correction. Positive amounts append
// directly; negative amounts go through the atomic spend path so a
// correction can never push a balance below zero.
func (s *Service) AdjustCredits(ctx context.Context, userID string, amount int64, txType model.TransactionType, description string) (model.CreditTransaction, error) {
	switch txType {
	case model.TxAdminAdjustment, model.TxRefund, model.TxBonus:
	default:
		return model.CreditTransaction{}, validationError("transaction_type must be ADMIN_ADJUSTMENT, REFUND or BONUS")
	}
	if amount == 0 {
		return model.CreditTransaction{}, validationError("amount must be non-zero")
	}

	if amount < 0 {
		t, err := s.repo.SpendCredits(ctx, userID, -amount, txType, description, nil)
		if err != nil {
			s.noteSpendFailure(err)
			return model.CreditTransaction{}, svcError(err)
		}
		return t, nil
	}

	t, err := s.repo.RecordTransaction(ctx, model.CreditTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
	})
	if err != nil {
		return model.CreditTransaction{}, svcError(err)
	}
	return t, nil
}
