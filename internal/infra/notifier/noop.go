package notifier

import (
	"context"

	"werss-client/internal/domain/entity"
)

// NoOpNotifier is a no-operation implementation of the Notifier interface.
// It is used when a channel is disabled to avoid nil checks.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier instance.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// NotifyAlert does nothing and returns nil immediately.
func (n *NoOpNotifier) NotifyAlert(context.Context, entity.ArticleAlert) error {
	return nil
}
