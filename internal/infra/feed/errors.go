package feed

import "errors"

// Sentinel errors for feed and article page fetching.
var (
	// ErrInvalidURL indicates a malformed URL or a scheme other than http(s).
	ErrInvalidURL = errors.New("invalid url")

	// ErrPrivateIP indicates that the host resolves to a private, loopback or
	// link-local address while private addresses are denied.
	ErrPrivateIP = errors.New("url resolves to a private ip address")

	// ErrTooManyRedirects indicates that the redirect limit was exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates a response larger than the configured limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates that the page did not load within the timeout.
	ErrTimeout = errors.New("content fetch timed out")

	// ErrReadabilityFailed indicates that no readable content was extracted.
	ErrReadabilityFailed = errors.New("readability extraction failed")

	// ErrInvalidFeed indicates a body that is neither RSS, Atom nor JSON Feed.
	ErrInvalidFeed = errors.New("invalid feed format")
)
