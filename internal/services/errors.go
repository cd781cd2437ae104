// Package services defines the business logic for chat turns, conversations,
// users/XP, and notes. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import "errors"

var (
	// ErrEmptyMessage is returned when a chat request contains no message text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a chat message exceeds the configured
	// maximum length.
	ErrTooLong = errors.New("message too long")

	// ErrNotOwner indicates the supplied conversation exists under a
	// different owner (or not at all); callers map it to a forbidden error.
	ErrNotOwner = errors.New("conversation not owned by caller")

	// ErrConversationNotFound indicates that the requested conversation does
	// not exist or is not accessible to the current user.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrNoteNotFound indicates that the requested note does not exist or is
	// not accessible to the current user.
	ErrNoteNotFound = errors.New("note not found")

	// ErrUserNotFound indicates that the authenticated user row is missing.
	ErrUserNotFound = errors.New("user not found")
)
