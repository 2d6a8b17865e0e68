package services

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map these to response codes; everything else is an
// internal failure.
var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUpstream            = errors.New("upstream failure")
	ErrPersistence         = errors.New("persistence failure")
)

var (
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrProjectNotFound   = fmt.Errorf("project %w", ErrNotFound)
	ErrVersionNotFound   = fmt.Errorf("version %w", ErrNotFound)
	ErrUserAlreadyExists = fmt.Errorf("user with this username already exists: %w", ErrConflict)
	ErrOptimisticLock    = fmt.Errorf("data has been modified by another user, please refresh and try again: %w", ErrConflict)
	ErrProjectBusy       = fmt.Errorf("project is already being changed: %w", ErrConflict)
	ErrJobFinished       = errors.New("generation job already finished")
)

// Stage is a state of the generation workflow.
type Stage string

const (
	StageValidating   Stage = "validating"
	StageDebited      Stage = "debited"
	StageEnhancing    Stage = "enhancing"
	StageGenerating   Stage = "generating"
	StageSanitizing   Stage = "sanitizing"
	StagePersisting   Stage = "persisting"
	StageCompleted    Stage = "completed"
	StageCompensating Stage = "compensating"
	StageFailed       Stage = "failed"
)

// WorkflowError records where a workflow failed and what kind of failure it was.
// errors.Is matches both the kind and the underlying cause.
type WorkflowError struct {
	Stage Stage
	Kind  error
	Err   error
}

func (e *WorkflowError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *WorkflowError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newWorkflowError(stage Stage, kind, err error) *WorkflowError {
	return &WorkflowError{Stage: stage, Kind: kind, Err: err}
}

// classify returns the kind for err, defaulting to kind when err carries none.
func classify(err, fallback error) error {
	for _, kind := range []error{
		ErrUnauthenticated, ErrInvalidInput, ErrInsufficientCredits,
		ErrNotFound, ErrConflict, ErrUpstream, ErrPersistence,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return fallback
}

// upstream marks an enhancer or generator error as an upstream failure unless
// it already carries a kind.
func upstream(err error) error {
	if classify(err, nil) != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
