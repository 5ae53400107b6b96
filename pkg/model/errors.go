package model

import "errors"

var (
	// ErrNotFound is returned when a document, peer or revision is not found
	ErrNotFound = errors.New("not found")
	// ErrBadRequest is returned when a request body or parameter is malformed
	ErrBadRequest = errors.New("bad request")
	// ErrConflict is returned when a revision mismatch is detected on apply
	ErrConflict = errors.New("revision conflict")
	// ErrUnavailable is returned when the storage engine fails
	ErrUnavailable = errors.New("storage unavailable")
	// ErrForbidden is returned for operations the gateway never allows
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicatePrefix is returned when two bindings register the same type prefix
	ErrDuplicatePrefix = errors.New("duplicate document type prefix")
	// ErrNotImplemented is returned for protocol features the gateway does not support
	ErrNotImplemented = errors.New("not implemented")
)
