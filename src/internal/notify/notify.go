// Package notify is the outbound notification collaborator. Sends are
// best-effort: failures are logged and never propagated, and callers must
// invoke it outside their transactions.
package notify

import (
	"context"

	"go.uber.org/zap"
)

type Notifier interface {
	ReviewerAssigned(ctx context.Context, reviewerID, projectID string)
	ReviewReceived(ctx context.Context, ownerID, projectID, reviewID string)
}

// LogNotifier records notifications in the service log. It stands in for a
// real email/push sender; swapping the implementation does not touch the
// core.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{log: logger}
}

func (n *LogNotifier) ReviewerAssigned(_ context.Context, reviewerID, projectID string) {
	n.log.Info("notify: reviewer assigned", zap.String("reviewer", reviewerID), zap.String("project", projectID))
}

func (n *LogNotifier) ReviewReceived(_ context.Context, ownerID, projectID, reviewID string) {
	n.log.Info("notify: review received", zap.String("owner", ownerID), zap.String("project", projectID), zap.String("review", reviewID))
}
