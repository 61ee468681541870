package entity

import "strings"

// Permission is the state of the user's consent to desktop notifications.
type Permission string

const (
	// PermissionDefault means the user has not decided yet.
	PermissionDefault Permission = "default"
	// PermissionGranted allows desktop notifications to be raised.
	PermissionGranted Permission = "granted"
	// PermissionDenied suppresses desktop notifications. It is not an error.
	PermissionDenied Permission = "denied"
)

// ParsePermission converts a stored value into a Permission.
// Unknown or empty values map to PermissionDefault.
func ParsePermission(s string) Permission {
	switch Permission(strings.ToLower(strings.TrimSpace(s))) {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	default:
		return PermissionDefault
	}
}
