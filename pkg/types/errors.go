package types

import (
	"errors"
	"fmt"
)

// Store operation errors.
var (
	ErrNotFound        = errors.New("node not found")
	ErrInvalidID       = errors.New("invalid node ID")
	ErrInvalidData     = errors.New("invalid node data")
	ErrDuplicateID     = errors.New("node ID already exists")
	ErrBulkUnsupported = errors.New("store does not support bulk updates")
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Engine errors.
var (
	ErrConfiguration      = errors.New("configuration error")
	ErrDepthCacheDisabled = fmt.Errorf("%w: depth cache is not enabled", ErrConfiguration)
	ErrInvalidFormat      = errors.New("invalid path format")
	ErrIntegrity          = errors.New("integrity violation")
	ErrRestrictedDeletion = errors.New("cannot delete node with children")
	ErrNotPersisted       = errors.New("node is not persisted")
	ErrSelfAncestor       = errors.New("node cannot be its own ancestor")
)

// ValidationError reports a field of a single node that failed validation.
// Format failures surface this way instead of as engine errors.
type ValidationError struct {
	NodeID ID
	Field  string
	Value  string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("node %s: %s %q: %v", e.NodeID, e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Violation kinds reported by the integrity checker.
const (
	ViolationInvalidFormat     = "invalid_format"
	ViolationDanglingAncestor  = "dangling_ancestor"
	ViolationCyclicAncestry    = "cyclic_ancestry"
	ViolationConflictingParent = "conflicting_parent"
)

// Violation is one integrity problem found on a node.
type Violation struct {
	Kind   string `json:"kind"`
	NodeID ID     `json:"node_id"`
	Detail string `json:"detail"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s on node %s: %s", v.Kind, v.NodeID, v.Detail)
}

func (v Violation) Unwrap() error { return ErrIntegrity }
