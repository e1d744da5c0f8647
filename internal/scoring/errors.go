// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package scoring

import (
	"errors"
	"fmt"
)

// ValidationError indicates malformed or missing request input.
type ValidationError struct {
	// Field is the offending input field.
	Field string

	// Reason describes why the value was rejected.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// DependencyTimeoutError indicates a downstream dependency (interaction
// store, feature lookup) did not answer within its deadline.
type DependencyTimeoutError struct {
	// Dependency names the dependency that timed out.
	Dependency string

	// Err is the underlying error, if any.
	Err error
}

func (e *DependencyTimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dependency %s timed out: %v", e.Dependency, e.Err)
	}
	return fmt.Sprintf("dependency %s timed out", e.Dependency)
}

func (e *DependencyTimeoutError) Unwrap() error {
	return e.Err
}

// InsufficientDataError indicates scoring had no data to work with,
// such as an empty candidate set on a single-strategy path.
type InsufficientDataError struct {
	// Reason describes what was missing.
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

// IsTimeout reports whether err is (or wraps) a DependencyTimeoutError.
func IsTimeout(err error) bool {
	var t *DependencyTimeoutError
	return errors.As(err, &t)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsInsufficientData reports whether err is (or wraps) an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var i *InsufficientDataError
	return errors.As(err, &i)
}
