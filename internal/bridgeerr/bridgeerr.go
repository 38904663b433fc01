// Package bridgeerr defines the error taxonomy the core raises (spec.md
// §7), collapsed from the ~45-variant ApiError enum in the reference
// implementation's src/error.rs down to the subset that actually
// originates in the core (store, translation, protocol, entertainment)
// rather than in the HTTP/TLS/discovery layers this system does not
// implement.
package bridgeerr

import "errors"

// Store errors (spec.md §4.1, §7 "Store errors... local to the request;
// never fatal").
var (
	ErrNotFound      = errors.New("resource not found")
	ErrWrongType     = errors.New("resource has a different type")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidLink   = errors.New("resource link is invalid or dangling")
)

// Translation errors (spec.md §7 "Translation errors... returned to the
// caller as a typed error; never propagated into the store").
var (
	ErrUnknownResource         = errors.New("unknown resource id")
	ErrForwardReferenceDeleted = errors.New("forward reference to a deleted resource")
	ErrUnsupportedEffectParam  = errors.New("unsupported vendor effect parameter")
)

// Protocol errors (spec.md §7 "bad frame header, oversized payload, unknown
// message type").
var (
	ErrBadHeader        = errors.New("bad entertainment stream header")
	ErrUnknownMessage   = errors.New("unknown back-end message type")
	ErrOversizedPayload = errors.New("oversized payload")
)

// Entertainment-session errors.
var (
	ErrSessionNotActive = errors.New("entertainment session not active")
	ErrSessionConflict  = errors.New("entertainment session already active")
)

// Fatal errors (spec.md §7 "state file unreadable and non-empty, cannot
// bind sockets"). The process exits with diagnostic on these.
var (
	ErrStateFileCorrupt  = errors.New("state file unreadable and non-empty")
	ErrCannotBindSocket  = errors.New("cannot bind socket")
)
