package store

import (
	"context"

	"github.com/peerloop/feedback-market/src/internal/model"

	"go.uber.org/zap"
)

// GetCreditStats aggregates the user's ledger and activity. Balance, earned
// and spent all derive from the same append-only rows, so the three figures
// are consistent by construction.
func (r *Repositories) GetCreditStats(ctx context.Context, userID string) (model.CreditStats, error) {
	r.Log.Debug("GetCreditStats: start", zap.String("user", userID))

	var s model.CreditStats
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount),0),
		       COALESCE(SUM(amount) FILTER (WHERE amount > 0),0),
		       COALESCE(-SUM(amount) FILTER (WHERE amount < 0),0)
		FROM credit_transactions
		WHERE user_id = $1
	`, userID).Scan(&s.Balance, &s.TotalEarned, &s.TotalSpent); err != nil {
		r.Log.Error("GetCreditStats: ledger query failed", zap.Error(err))
		return model.CreditStats{}, err
	}

	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE reviewer_id=$1`, userID).Scan(&s.ReviewsCompleted); err != nil {
		r.Log.Error("GetCreditStats: reviews query failed", zap.Error(err))
		return model.CreditStats{}, err
	}

	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE owner_id=$1`, userID).Scan(&s.ProjectsSubmitted); err != nil {
		r.Log.Error("GetCreditStats: projects query failed", zap.Error(err))
		return model.CreditStats{}, err
	}

	r.Log.Debug("GetCreditStats: success", zap.String("user", userID), zap.Int64("balance", s.Balance))
	return s, nil
}
