package service

import "errors"

// ErrNotFound indicates the requested resource is missing or soft-deleted
// and not visible to the caller.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized indicates no principal was supplied where one is required.
var ErrUnauthorized = errors.New("authentication required")

// ErrForbidden indicates the principal is present but does not own the
// target template.
var ErrForbidden = errors.New("forbidden")

// ValidationError represents a bad-request condition (HTTP 400).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError represents a conflict or transient storage failure that
// survived the ledger's retry budget (HTTP 409).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
