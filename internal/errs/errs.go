// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package errs holds the exhaustive error-kind taxonomy from spec.md §7.
// Components return these wherever the spec calls for a typed failure;
// only DetectError and IntegrityError are locally recoverable, everything
// else propagates to the job orchestrator.
package errs

import "fmt"

// Kind is one of the exhaustive error kinds from spec.md §7.
type Kind string

const (
	InputError     Kind = "input_error"
	FormatError    Kind = "format_error"
	SynthError     Kind = "synth_error"
	DetectError    Kind = "detect_error"
	IntegrityError Kind = "integrity_error"
	ConfigError    Kind = "config_error"
	InvariantError Kind = "invariant_error"
)

// Recoverable reports whether the kind has a specified local fallback
// (spec.md §7 propagation policy).
func (k Kind) Recoverable() bool {
	return k == DetectError || k == IntegrityError
}

// Error is a structured failure identifying a kind plus context: segment
// text prefix, file path, or batch fingerprint (spec.md §7).
type Error struct {
	Kind    Kind
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an Error, wrapping an underlying cause when present.
func New(kind Kind, context string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Err: cause}
}

func textPrefix(s string) string {
	const max = 40
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// ForSegment builds an error whose context is a segment text prefix.
func ForSegment(kind Kind, text string, cause error) *Error {
	return New(kind, "segment="+textPrefix(text), cause)
}

// ForFile builds an error whose context is a file path.
func ForFile(kind Kind, path string, cause error) *Error {
	return New(kind, "file="+path, cause)
}

// ForBatch builds an error whose context is a batch fingerprint.
func ForBatch(kind Kind, fingerprint string, cause error) *Error {
	return New(kind, "batch="+fingerprint, cause)
}
