// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package models

import (
	"errors"
	"fmt"
)

// Error taxonomy for the analytics engines.
//
// Per-record validation failures are never surfaced through these types;
// the pipeline collects them into an error report instead. Everything here
// is a call-level failure that aborts immediately and is not retried by
// the engine.

// ErrNotTrained indicates a prediction was requested against an untrained
// model. Wrapped by ModelError; match with errors.Is.
var ErrNotTrained = errors.New("model has not been trained")

// ErrInvalidState indicates persisted model state failed its integrity
// checks on restore. Wrapped by ModelError; match with errors.Is.
var ErrInvalidState = errors.New("invalid model state")

// FeatureError indicates the input violates the feature contract: a required
// field set is missing or the batch is structurally unusable. This is a
// caller bug, not a data-quality issue.
type FeatureError struct {
	Reason string
	Err    error
}

func (e *FeatureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feature error: %s: %v", e.Reason, e.Err)
	}
	return "feature error: " + e.Reason
}

func (e *FeatureError) Unwrap() error { return e.Err }

// NewFeatureError creates a FeatureError with a formatted reason.
func NewFeatureError(format string, args ...any) *FeatureError {
	return &FeatureError{Reason: fmt.Sprintf(format, args...)}
}

// TransformationError indicates a batch-level transform failure, e.g. zero
// valid records after normalization.
type TransformationError struct {
	Reason string
	Err    error
}

func (e *TransformationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transformation error: %s: %v", e.Reason, e.Err)
	}
	return "transformation error: " + e.Reason
}

func (e *TransformationError) Unwrap() error { return e.Err }

// NewTransformationError creates a TransformationError with a formatted reason.
func NewTransformationError(format string, args ...any) *TransformationError {
	return &TransformationError{Reason: fmt.Sprintf(format, args...)}
}

// ModelError indicates a model state-contract violation: predicting before
// training, or corrupt persisted state.
type ModelError struct {
	Reason string
	Err    error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model error: %s: %v", e.Reason, e.Err)
	}
	return "model error: " + e.Reason
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError creates a ModelError wrapping an underlying cause.
func NewModelError(reason string, err error) *ModelError {
	return &ModelError{Reason: reason, Err: err}
}

// IsNotTrained reports whether err is (or wraps) ErrNotTrained.
func IsNotTrained(err error) bool {
	return errors.Is(err, ErrNotTrained)
}
