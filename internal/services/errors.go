// Package services defines the business logic for ticket intake, answering,
// and manager administration. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler/bot layer.
package services

import "errors"

var (
	// ErrQuestionEmpty is returned when an intake request carries no question
	// text after trimming.
	ErrQuestionEmpty = errors.New("question is empty")

	// ErrQuestionTooLong is returned when a question exceeds the configured
	// maximum length.
	ErrQuestionTooLong = errors.New("question too long")

	// ErrTicketNotFound indicates that the requested ticket does not exist.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrManagerNotFound indicates that no manager row exists for the given
	// chat id.
	ErrManagerNotFound = errors.New("manager not found")

	// ErrManagerExists is returned when adding a manager whose chat id is
	// already registered and active.
	ErrManagerExists = errors.New("manager already active")

	// ErrBadNickname is returned when a manager nickname is outside the
	// accepted 2..100 character range.
	ErrBadNickname = errors.New("nickname must be between 2 and 100 characters")
)
