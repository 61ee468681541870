package desktop

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werss-client/internal/domain/entity"
)

type memPrefs struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newMemPrefs() *memPrefs { return &memPrefs{values: map[string]string{}} }

func (m *memPrefs) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memPrefs) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func TestNotifier_Permission(t *testing.T) {
	tests := []struct {
		name   string
		stored *string
		getErr error
		want   entity.Permission
	}{
		{name: "nothing stored", want: entity.PermissionDefault},
		{name: "granted", stored: ptr("granted"), want: entity.PermissionGranted},
		{name: "denied", stored: ptr("denied"), want: entity.PermissionDenied},
		{name: "garbage", stored: ptr("maybe"), want: entity.PermissionDefault},
		{name: "read error", getErr: errors.New("disk"), want: entity.PermissionDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			prefs := newMemPrefs()
			prefs.getErr = tt.getErr
			if tt.stored != nil {
				prefs.values[PermissionKey] = *tt.stored
			}
			n := NewNotifier(prefs, "", nil)

			// Act
			got := n.Permission(context.Background())

			// Assert
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNotifier_RequestPermission(t *testing.T) {
	t.Run("allow policy grants and persists", func(t *testing.T) {
		prefs := newMemPrefs()
		n := NewNotifier(prefs, PolicyAllow, nil)

		got, err := n.RequestPermission(context.Background())

		require.NoError(t, err)
		assert.Equal(t, entity.PermissionGranted, got)
		assert.Equal(t, "granted", prefs.values[PermissionKey])
	})

	t.Run("deny policy denies and persists", func(t *testing.T) {
		prefs := newMemPrefs()
		n := NewNotifier(prefs, PolicyDeny, nil)

		got, err := n.RequestPermission(context.Background())

		require.NoError(t, err)
		assert.Equal(t, entity.PermissionDenied, got)
		assert.Equal(t, "denied", prefs.values[PermissionKey])
	})

	t.Run("decided permission is not re-asked", func(t *testing.T) {
		prefs := newMemPrefs()
		prefs.values[PermissionKey] = "denied"
		n := NewNotifier(prefs, PolicyAllow, nil)

		got, err := n.RequestPermission(context.Background())

		require.NoError(t, err)
		assert.Equal(t, entity.PermissionDenied, got)
	})

	t.Run("persist failure", func(t *testing.T) {
		prefs := newMemPrefs()
		prefs.setErr = errors.New("read-only")
		n := NewNotifier(prefs, PolicyAllow, nil)

		got, err := n.RequestPermission(context.Background())

		require.Error(t, err)
		assert.Equal(t, entity.PermissionDefault, got)
	})
}

func TestNotifier_Notify(t *testing.T) {
	// Arrange
	var gotTitle, gotBody, gotIcon string
	n := NewNotifier(newMemPrefs(), "", nil)
	n.notify = func(title, body, icon string) error {
		gotTitle, gotBody, gotIcon = title, body, icon
		return nil
	}

	// Act
	err := n.Notify("WeRSS - New articles", "Detected 2 new articles", "/icons/logo.png")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "WeRSS - New articles", gotTitle)
	assert.Equal(t, "Detected 2 new articles", gotBody)
	assert.Equal(t, "/icons/logo.png", gotIcon)
}

func TestNotifier_NotifyError(t *testing.T) {
	n := NewNotifier(newMemPrefs(), "", nil)
	boom := errors.New("no dbus")
	n.notify = func(string, string, string) error { return boom }

	err := n.Notify("t", "b", "")

	assert.ErrorIs(t, err, boom)
}

func ptr(s string) *string { return &s }
