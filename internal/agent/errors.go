package agent

import (
	"errors"
	"fmt"
)

// ErrorKind classifies run and step failures.
type ErrorKind string

const (
	KindNoPlan            ErrorKind = "NoPlan"
	KindParseError        ErrorKind = "ParseError"
	KindUnknownCommand    ErrorKind = "UnknownCommand"
	KindMissingArgument   ErrorKind = "MissingArgument"
	KindElementNotFound   ErrorKind = "ElementNotFound"
	KindNavigationTimeout ErrorKind = "NavigationTimeout"
	KindDriverError       ErrorKind = "DriverError"
	KindPolicyDenied      ErrorKind = "PolicyDenied"
	KindUserAbort         ErrorKind = "UserAbort"
	KindCancelled         ErrorKind = "Cancelled"
)

// Fatal kinds stop the run without reaching the failure decision point.
func (k ErrorKind) Fatal() bool {
	return k == KindNoPlan || k == KindParseError
}

// StepError is the normalized failure of a run or a single step.
type StepError struct {
	Kind      ErrorKind
	Message   string
	StepIndex int
	Retryable bool
	Err       error
}

func (e *StepError) Error() string {
	return e.Message
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErrorf(kind ErrorKind, cause error, format string, args ...any) *StepError {
	retryable := true
	switch kind {
	case KindNoPlan, KindParseError, KindUserAbort, KindCancelled, KindPolicyDenied:
		retryable = false
	}
	return &StepError{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		StepIndex: -1,
		Retryable: retryable,
		Err:       cause,
	}
}

// KindOf extracts the ErrorKind from err, or "" when err is not a StepError.
func KindOf(err error) ErrorKind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// PlanGenerationError is returned when the model output holds no numbered steps.
type PlanGenerationError struct {
	Output string
	Err    error
}

func (e *PlanGenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plan generation failed: %v", e.Err)
	}
	return "plan generation failed: no numbered steps in model output"
}

func (e *PlanGenerationError) Unwrap() error {
	return e.Err
}
