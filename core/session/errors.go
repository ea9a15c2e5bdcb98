package session

import "errors"

var (
	// ErrNoSession is returned when an operation requires a current session
	// and none exists.
	ErrNoSession = errors.New("no current session")
	// ErrDecodeSession is returned when a persisted session blob cannot be
	// deserialized.
	ErrDecodeSession = errors.New("failed to decode session blob")
	// ErrRefreshFailed is returned when the remote refresh operation errors.
	ErrRefreshFailed = errors.New("session refresh failed")
	// ErrStaleRefresh is returned when a refresh succeeds but the returned
	// token is already expired, meaning the refresh credential itself is
	// spent.
	ErrStaleRefresh = errors.New("refreshed session is already expired")
	// ErrAnonymousRefresh is returned when a refresh is attempted on an
	// anonymous session.
	ErrAnonymousRefresh = errors.New("anonymous sessions cannot be refreshed")
)
