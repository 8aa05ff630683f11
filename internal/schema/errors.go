package schema

import (
	"errors"
	"fmt"
)

// Invocation errors. All of them are detected before any request is built.
var (
	ErrUnknownCommand           = errors.New("unknown command")
	ErrMissingCommand           = errors.New("no command given")
	ErrUnknownResolverType      = errors.New("unknown resolver type")
	ErrMissingRequiredParameter = errors.New("missing required parameter")
	ErrUnexpectedParameter      = errors.New("unexpected parameter")
	ErrInvalidEnumValue         = errors.New("invalid enum value")
	ErrMalformedMapping         = errors.New("malformed mapping")
	ErrMalformedList            = errors.New("malformed list")
	ErrInvalidValue             = errors.New("invalid value")
	ErrConflictingParameters    = errors.New("conflicting parameters")
)

// ParameterError ties one of the invocation errors to the parameter that caused it.
type ParameterError struct {
	Err    error
	Param  string
	Detail string
}

func (e *ParameterError) Error() string {
	msg := e.Err.Error()
	if e.Param != "" {
		msg = "--" + e.Param + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}

// NewParameterError builds a ParameterError with a formatted detail message.
func NewParameterError(err error, param string, format string, args ...interface{}) *ParameterError {
	return &ParameterError{
		Err:    err,
		Param:  param,
		Detail: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err is one of the invocation errors above.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrUnknownCommand,
		ErrMissingCommand,
		ErrUnknownResolverType,
		ErrMissingRequiredParameter,
		ErrUnexpectedParameter,
		ErrInvalidEnumValue,
		ErrMalformedMapping,
		ErrMalformedList,
		ErrInvalidValue,
		ErrConflictingParameters,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
