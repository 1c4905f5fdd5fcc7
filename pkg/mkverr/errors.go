// Package mkverr defines the error taxonomy shared by the EBML/MKV parsing
// and streaming engine, per the propagation rules of the container
// specification: format violations are scoped to the element that raised
// them, unsupported features are skipped with a diagnostic, and a handful
// of sentinels drive the streaming controller's internal read loop.
package mkverr

import (
	"errors"
	"fmt"
)

// Sentinel control-flow errors. NeedMoreData and EndOfStream are expected,
// recoverable signals rather than failures; callers should check for them
// with errors.Is before treating an error as fatal.
var (
	// ErrNeedMoreData signals that an element's declared size exceeds the
	// bytes currently held in the read window; the caller must request
	// more data and retry rather than treat this as a parse failure.
	ErrNeedMoreData = errors.New("mkverr: need more data")

	// ErrEndOfStream is returned once the byte source has reported EOF and
	// the frame descriptor ring has been fully drained.
	ErrEndOfStream = errors.New("mkverr: end of stream")

	// ErrCancelled is returned when a shutdown signal preempts a
	// suspension point (a pending read or seek).
	ErrCancelled = errors.New("mkverr: cancelled")

	// ErrRingCapacityExceeded is returned when a laced block would yield
	// more frame descriptors than the ring can hold. Fatal to streaming.
	ErrRingCapacityExceeded = errors.New("mkverr: frame descriptor ring capacity exceeded")

	// ErrInvalidState is returned when a Consumer contract operation is
	// called from a state the controller's state machine does not allow
	// it from (e.g. NextFrame before Start).
	ErrInvalidState = errors.New("mkverr: invalid controller state")
)

// FormatError reports a violation of the EBML or Matroska invariants:
// an impossible VINT, a mismatched master size, a missing required field.
// It is fatal to the element that raised it; whether it is fatal to the
// whole stream depends on where that element sits, which each caller
// decides (see IsRecoverable).
type FormatError struct {
	// Context names the component or element that detected the violation,
	// e.g. "vint", "Cluster", "SimpleBlock".
	Context string
	Err     error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("mkverr: format error in %s: %v", e.Context, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// NewFormatError wraps err as a FormatError attributed to context.
func NewFormatError(context string, err error) error {
	return &FormatError{Context: context, Err: err}
}

// UnsupportedFeature reports a recognized-but-unhandled construct: Xiph
// lacing, a non-standard float width, an encrypted block whose signature
// this engine does not validate. Non-fatal: the affected element is
// skipped and parsing continues.
type UnsupportedFeature struct {
	Feature string
}

func (e *UnsupportedFeature) Error() string {
	return fmt.Sprintf("mkverr: unsupported feature: %s", e.Feature)
}

// NewUnsupportedFeature reports a skipped, non-fatal construct.
func NewUnsupportedFeature(feature string) error {
	return &UnsupportedFeature{Feature: feature}
}

// IOError wraps a failure surfaced from the ByteSource. Always fatal and
// always propagates to the top of the controller.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("mkverr: io error: %v", e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// NewIOError wraps err as an IOError.
func NewIOError(err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Err: err}
}

// IsRecoverable reports whether err is a kind the containing master (or
// Cluster) can recover from by skipping the offending element and
// continuing at the parent: every FormatError and every
// UnsupportedFeature is reported recoverable, wherever it was raised.
// IOError, ErrCancelled and the other sentinels are never recoverable.
func IsRecoverable(err error) bool {
	var fe *FormatError
	var uf *UnsupportedFeature
	if errors.As(err, &fe) {
		return true
	}
	if errors.As(err, &uf) {
		return true
	}
	return false
}
