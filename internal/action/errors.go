package action

import (
	"errors"
	"fmt"
)

// ErrInvocation matches every *InvocationError via errors.Is.
var ErrInvocation = errors.New("action: invocation failed")

// InvocationError covers transport failures, function errors and payloads
// that cannot be decoded.
type InvocationError struct {
	APIPath string
	Reason  string
	Err     error
}

func (e *InvocationError) Error() string {
	msg := "action invocation failed"
	if e.APIPath != "" {
		msg += " (" + e.APIPath + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool { return target == ErrInvocation }

// ApplicationError is a failure reported by the remote function in its body.
type ApplicationError struct {
	APIPath string
	Message string
}

func (e *ApplicationError) Error() string {
	if e.APIPath == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.APIPath, e.Message)
}
