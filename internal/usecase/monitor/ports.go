package monitor

import (
	"context"

	"werss-client/internal/domain/entity"
)

// ArticleCounter reports the total number of articles stored by the backend.
// *api.Client satisfies it.
type ArticleCounter interface {
	CountArticles(ctx context.Context) (int, error)
}

// PreferenceStore is durable key-value storage for the enabled flag.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// TitleSurface reads and writes the title shown to the user.
// Implementations must be safe for concurrent use.
type TitleSurface interface {
	Title() string
	SetTitle(title string)
}

// SoundPlayer plays the notification chime. Play must not block on playback.
type SoundPlayer interface {
	Play(ctx context.Context) error
}

// DesktopNotifier raises OS level notifications.
type DesktopNotifier interface {
	Permission(ctx context.Context) entity.Permission
	RequestPermission(ctx context.Context) (entity.Permission, error)
	Notify(title, body, icon string) error
}

// AlertDispatcher forwards detections to remote channels such as webhooks.
// notify.Service satisfies it.
type AlertDispatcher interface {
	NotifyNewArticles(ctx context.Context, alert entity.ArticleAlert) error
}

type noopSound struct{}

func (noopSound) Play(context.Context) error { return nil }

// noopDesktop reports a denied permission so no request or notification is attempted.
type noopDesktop struct{}

func (noopDesktop) Permission(context.Context) entity.Permission { return entity.PermissionDenied }

func (noopDesktop) RequestPermission(context.Context) (entity.Permission, error) {
	return entity.PermissionDenied, nil
}

func (noopDesktop) Notify(string, string, string) error { return nil }
