package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrCycle         = errors.New("move would create a cycle")
	ErrTransport     = errors.New("store unavailable")
	ErrSuperseded    = errors.New("superseded by a newer request")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates the node id is no longer present (or is soft-deleted)
	NotFoundError struct {
		Message string
		ID      string
	}

	// ValidationError indicates invalid input, detected before any store call
	ValidationError struct {
		Message string
		Field   string
	}

	// CycleError indicates a move that would place a node inside its own subtree
	CycleError struct {
		DraggedID string
		TargetID  string
	}

	// TransportError indicates the external store was unreachable or returned a failure
	TransportError struct {
		Op  string
		Err error
	}
)

// NewNotFound builds a NotFoundError for the given node id.
func NewNotFound(id string) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf("node %s not found", id), ID: id}
}

// NewValidation builds a ValidationError for a field.
func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Field: field}
}

// Error implementations
func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }
func (e *CycleError) Error() string {
	if e.DraggedID == e.TargetID {
		return fmt.Sprintf("cannot move node %s into itself", e.DraggedID)
	}
	return fmt.Sprintf("cannot move node %s into its own descendant %s", e.DraggedID, e.TargetID)
}
func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: store unavailable", e.Op)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *CycleError) StatusCode() int      { return http.StatusUnprocessableEntity }
func (e *TransportError) StatusCode() int  { return http.StatusBadGateway }

// Is allows errors.Is() to match the typed errors against their sentinels
func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *CycleError) Is(target error) bool      { return target == ErrCycle }
func (e *TransportError) Is(target error) bool  { return target == ErrTransport }

// Unwrap exposes the underlying store failure
func (e *TransportError) Unwrap() error { return e.Err }

// ConflictError represents a duplicate sibling folder name with details about the existing folder
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (folder)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict. A duplicate name is also a
// validation failure, so ErrValidation matches too.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict || target == ErrValidation
}

// IsLocal reports whether err was produced by local checks (never reached the store).
func IsLocal(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrCycle)
}
