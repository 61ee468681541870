package desktop

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gen2brain/beeep"

	"werss-client/internal/domain/entity"
)

// PermissionKey is the preference key holding the OS notification consent.
const PermissionKey = "notification.permission"

// PermissionPolicy decides how an undecided permission is resolved.
type PermissionPolicy string

const (
	// PolicyAllow grants the permission on first request.
	PolicyAllow PermissionPolicy = "allow"
	// PolicyDeny denies the permission on first request.
	PolicyDeny PermissionPolicy = "deny"
)

// Preferences is the subset of prefs.Store used by the notifier.
type Preferences interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Notifier raises OS notifications through beeep. Terminals have no consent
// prompt, so the decision is taken by policy and persisted like a browser
// would remember it.
type Notifier struct {
	prefs  Preferences
	policy PermissionPolicy
	logger *slog.Logger

	notify func(title, body, icon string) error
}

// NewNotifier creates a Notifier. An empty policy means PolicyAllow.
func NewNotifier(prefs Preferences, policy PermissionPolicy, logger *slog.Logger) *Notifier {
	if policy == "" {
		policy = PolicyAllow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		prefs:  prefs,
		policy: policy,
		logger: logger,
		notify: func(title, body, icon string) error {
			return beeep.Notify(title, body, icon)
		},
	}
}

// Permission returns the persisted permission. A read error is logged and
// reported as undecided.
func (n *Notifier) Permission(ctx context.Context) entity.Permission {
	value, ok, err := n.prefs.Get(ctx, PermissionKey)
	if err != nil {
		n.logger.Warn("failed to read notification permission", slog.Any("error", err))
		return entity.PermissionDefault
	}
	if !ok {
		return entity.PermissionDefault
	}
	return entity.ParsePermission(value)
}

// RequestPermission resolves an undecided permission according to the policy
// and persists the outcome. A decided permission is returned unchanged.
func (n *Notifier) RequestPermission(ctx context.Context) (entity.Permission, error) {
	current := n.Permission(ctx)
	if current != entity.PermissionDefault {
		return current, nil
	}

	decision := entity.PermissionGranted
	if n.policy == PolicyDeny {
		decision = entity.PermissionDenied
	}
	if err := n.prefs.Set(ctx, PermissionKey, string(decision)); err != nil {
		return entity.PermissionDefault, fmt.Errorf("persist notification permission: %w", err)
	}

	n.logger.Info("notification permission decided", slog.String("permission", string(decision)))
	return decision, nil
}

// Notify raises an OS notification.
func (n *Notifier) Notify(title, body, icon string) error {
	if err := n.notify(title, body, icon); err != nil {
		desktopNotificationsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("desktop notification: %w", err)
	}
	desktopNotificationsTotal.WithLabelValues("success").Inc()
	return nil
}
