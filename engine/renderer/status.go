package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
	// OutcomeContextLost is reported when the context was lost during or
	// before the draw. Nothing drawn against the context can succeed again.
	OutcomeContextLost
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeContextLost:
		return "context lost"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// DrawStatus is the result of a draw call.
type DrawStatus struct {
	Outcome Outcome
	Code    metadata.ErrorCode
	Message string
	// cause is set when the failure did not come from a driver flag.
	cause error
}

func StatusSuccess() DrawStatus {
	return DrawStatus{Outcome: OutcomeSuccess}
}

// StatusFromCode maps a driver error flag to a status.
func StatusFromCode(code metadata.ErrorCode) DrawStatus {
	switch code {
	case metadata.ErrorNone:
		return StatusSuccess()
	case metadata.ErrorContextLost:
		return StatusContextLost()
	}
	return DrawStatus{Outcome: OutcomeFailed, Code: code, Message: code.Message()}
}

func StatusContextLost() DrawStatus {
	return DrawStatus{
		Outcome: OutcomeContextLost,
		Code:    metadata.ErrorContextLost,
		Message: metadata.ErrorContextLost.Message(),
	}
}

// StatusFailed reports a failure that did not come from a driver flag, such
// as drawing a destroyed shape.
func StatusFailed(err error) DrawStatus {
	if errors.Is(err, ErrContextLost) {
		return StatusContextLost()
	}
	return DrawStatus{Outcome: OutcomeFailed, Message: err.Error(), cause: err}
}

func (s DrawStatus) OK() bool {
	return s.Outcome == OutcomeSuccess
}

func (s DrawStatus) String() string {
	if s.OK() {
		return "success"
	}
	return fmt.Sprintf("%s: %s", s.Outcome, s.Message)
}

// Err converts a failed status into a *DrawError, nil on success.
func (s DrawStatus) Err() error {
	if s.OK() {
		return nil
	}
	return &DrawError{Status: s}
}

// DrawError wraps a failed DrawStatus. It matches ErrContextLost with
// errors.Is when the context was lost, and the underlying error when the
// draw never reached the driver.
type DrawError struct {
	Status DrawStatus
}

func (e *DrawError) Error() string {
	return "draw " + e.Status.String()
}

func (e *DrawError) Unwrap() error {
	if e.Status.Outcome == OutcomeContextLost {
		return ErrContextLost
	}
	return e.Status.cause
}
