// Package services defines the business logic for clauses, amendments, chat,
// and authentication. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import "errors"

var (
	// ErrUnknownCommittee is returned when a request names a committee that
	// is not part of this conference.
	ErrUnknownCommittee = errors.New("unknown committee")

	// ErrUnsupportedFile is returned when an uploaded document is not a type
	// the converter accepts.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrClauseNotFound indicates the requested clause does not exist.
	ErrClauseNotFound = errors.New("clause not found")

	// ErrClausePublished is returned when publishing a clause while another
	// clause already occupies the committee's publish slot.
	ErrClausePublished = errors.New("another clause is already published for this committee")

	// ErrNoPublishedClause indicates a committee currently has no published
	// clause.
	ErrNoPublishedClause = errors.New("no published clause")

	// ErrAmendmentNotFound indicates the requested amendment does not exist.
	ErrAmendmentNotFound = errors.New("amendment not found")

	// ErrEmptyMessage is returned when a chat message carries neither text
	// nor files.
	ErrEmptyMessage = errors.New("message requires text or at least one file")

	// ErrGroupNotFound indicates the requested chat group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrDelegateNotFound indicates the requested delegate does not exist.
	ErrDelegateNotFound = errors.New("delegate not found")

	// ErrInvalidDelegates is returned when a group invitation names delegate
	// IDs that do not all exist.
	ErrInvalidDelegates = errors.New("some delegate ids are invalid")

	// ErrMessageNotFound indicates the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidCredentials is returned for failed delegate or chair logins.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmptyContent is returned when a content update carries no content.
	ErrEmptyContent = errors.New("content is required")
)
