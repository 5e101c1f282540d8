package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/peerloop/feedback-market/src/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LedgerRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewLedgerRepo(db *sql.DB, logger *zap.Logger) *LedgerRepo {
	return &LedgerRepo{db: db, log: logger}
}

// RecordTransaction appends a row to the ledger. Rows are never updated or
// deleted; the sign of Amount encodes direction.
func (r *Repositories) RecordTransaction(ctx context.Context, t model.CreditTransaction) (model.CreditTransaction, error) {
	r.Log.Debug("RecordTransaction: start", zap.String("user", t.UserID), zap.Int64("amount", t.Amount), zap.String("type", string(t.Type)))

	if t.TransactionID == "" {
		t.TransactionID = uuid.New().String()
	}
	if err := r.DB.QueryRowContext(ctx,
		`INSERT INTO credit_transactions(transaction_id, user_id, amount, transaction_type, description, related_project_id, related_review_id, created_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,now())
		 RETURNING created_at`,
		t.TransactionID, t.UserID, t.Amount, t.Type, t.Description, t.RelatedProjectID, t.RelatedReviewID).
		Scan(&t.CreatedAt); err != nil {
		r.Log.Error("RecordTransaction: insert failed", zap.Error(err))
		return model.CreditTransaction{}, err
	}

	r.Log.Info("RecordTransaction: success", zap.String("tx", t.TransactionID), zap.String("user", t.UserID), zap.Int64("amount", t.Amount))
	return t, nil
}

// spendInTx performs the atomic afford-check-then-spend against an open
// transaction: the user row is locked FOR UPDATE so concurrent spends for
// the same user serialize on the check, then the negative row is inserted.
func (r *Repositories) spendInTx(ctx context.Context, tx *sql.Tx, userID string, amount int64, txType model.TransactionType, description string, projectID *string) (model.CreditTransaction, error) {
	var locked string
	if err := tx.QueryRowContext(ctx, `SELECT user_id FROM users WHERE user_id=$1 FOR UPDATE`, userID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CreditTransaction{}, model.ErrNotFound
		}
		r.Log.Error("spendInTx: lock user failed", zap.Error(err))
		return model.CreditTransaction{}, err
	}

	var balance int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount),0) FROM credit_transactions WHERE user_id=$1`, userID).Scan(&balance); err != nil {
		r.Log.Error("spendInTx: balance query failed", zap.Error(err))
		return model.CreditTransaction{}, err
	}

	if balance < amount {
		r.Log.Debug("spendInTx: insufficient credits", zap.String("user", userID), zap.Int64("have", balance), zap.Int64("need", amount))
		return model.CreditTransaction{}, model.InsufficientCreditsError{Have: balance, Need: amount}
	}

	t := model.CreditTransaction{
		TransactionID:    uuid.New().String(),
		UserID:           userID,
		Amount:           -amount,
		Type:             txType,
		Description:      description,
		RelatedProjectID: projectID,
	}
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO credit_transactions(transaction_id, user_id, amount, transaction_type, description, related_project_id, created_at)
		 VALUES($1,$2,$3,$4,$5,$6,now())
		 RETURNING created_at`,
		t.TransactionID, t.UserID, t.Amount, t.Type, t.Description, t.RelatedProjectID).
		Scan(&t.CreatedAt); err != nil {
		r.Log.Error("spendInTx: insert failed", zap.Error(err))
		return model.CreditTransaction{}, err
	}
	return t, nil
}

// SpendCredits is the standalone spend path (admin deductions, refund
// reversals). Project submission and upgrade run the same check inside
// their own transactions.
func (r *Repositories) SpendCredits(ctx context.Context, userID string, amount int64, txType model.TransactionType, description string, projectID *string) (model.CreditTransaction, error) {
	r.Log.Debug("SpendCredits: start", zap.String("user", userID), zap.Int64("amount", amount))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("SpendCredits: begin tx failed", zap.Error(err))
		return model.CreditTransaction{}, err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("SpendCredits: rollback failed", zap.Error(err))
		}
	}()

	t, err := r.spendInTx(ctx, tx, userID, amount, txType, description, projectID)
	if err != nil {
		return model.CreditTransaction{}, err
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("SpendCredits: commit failed", zap.Error(err))
		return model.CreditTransaction{}, err
	}

	r.Log.Info("SpendCredits: success", zap.String("user", userID), zap.Int64("amount", amount))
	return t, nil
}

// GetBalance derives the balance from the ledger. Linear in transaction
// count; the ledger stays the source of truth.
func (r *Repositories) GetBalance(ctx context.Context, userID string) (int64, error) {
	r.Log.Debug("GetBalance: start", zap.String("user", userID))
	var balance int64
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount),0) FROM credit_transactions WHERE user_id=$1`, userID).Scan(&balance); err != nil {
		r.Log.Error("GetBalance: query failed", zap.Error(err))
		return 0, err
	}
	r.Log.Debug("GetBalance: success", zap.String("user", userID), zap.Int64("balance", balance))
	return balance, nil
}

func (r *Repositories) GetCreditHistory(ctx context.Context, userID string, limit, offset int) ([]model.CreditTransaction, error) {
	r.Log.Debug("GetCreditHistory: start", zap.String("user", userID), zap.Int("limit", limit), zap.Int("offset", offset))
	rows, err := r.DB.QueryContext(ctx, `
		SELECT transaction_id, user_id, amount, transaction_type, description, related_project_id, related_review_id, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, transaction_id
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		r.Log.Error("GetCreditHistory: query failed", zap.Error(err))
		return nil, err
	}

	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Error("GetCreditHistory: close rows failed", zap.Error(err))
		}
	}(rows)

	var out []model.CreditTransaction
	for rows.Next() {
		var t model.CreditTransaction
		if err := rows.Scan(&t.TransactionID, &t.UserID, &t.Amount, &t.Type, &t.Description, &t.RelatedProjectID, &t.RelatedReviewID, &t.CreatedAt); err != nil {
			r.Log.Error("GetCreditHistory: scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("GetCreditHistory: rows error", zap.Error(err))
		return nil, err
	}

	r.Log.Debug("GetCreditHistory: success", zap.Int("count", len(out)))
	return out, nil
}
