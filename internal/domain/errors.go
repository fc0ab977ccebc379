package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrRebuildInProgress signals that a bulk import or a reparent holds
	// the tree writer gate; the caller should retry later.
	ErrRebuildInProgress = errors.New("tree rebuild in progress")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (assignment, user)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode maps the conflict onto HTTP
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidTreeError wraps a fatal tree-input condition (cycle, duplicate id,
// invalid reparent target) with the underlying cause preserved for the
// response detail.
type InvalidTreeError struct {
	Cause error
}

func (e *InvalidTreeError) Error() string {
	return fmt.Sprintf("invalid tree operation: %v", e.Cause)
}

func (e *InvalidTreeError) Unwrap() error { return e.Cause }

// Is allows errors.Is() to match against ErrValidation
func (e *InvalidTreeError) Is(target error) bool {
	return target == ErrValidation
}
