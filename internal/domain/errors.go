package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeLoad       ErrorType = "load"
	ErrorTypePageIndex  ErrorType = "page_index"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeEncode     ErrorType = "encode"
	ErrorTypeSerialize  ErrorType = "serialize"
	ErrorTypeCancelled  ErrorType = "cancelled"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func LoadError(message string, err error) *DomainError {
	return NewError(ErrorTypeLoad, message, err)
}

func PageIndexError(index, pageCount int) *DomainError {
	return NewError(ErrorTypePageIndex, fmt.Sprintf("page %d out of range 1..%d", index, pageCount), nil)
}

func RenderError(message string, err error) *DomainError {
	return NewError(ErrorTypeRender, message, err)
}

func EncodeError(message string, err error) *DomainError {
	return NewError(ErrorTypeEncode, message, err)
}

func SerializeError(message string, err error) *DomainError {
	return NewError(ErrorTypeSerialize, message, err)
}

func CancelledError(err error) *DomainError {
	return NewError(ErrorTypeCancelled, "run cancelled", err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// IsType reports whether any DomainError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var de *DomainError
		if !errors.As(err, &de) {
			return false
		}
		if de.Type == errType {
			return true
		}
		err = de.Err
	}
	return false
}

// TypeOf returns the type of the outermost DomainError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// PipelineError is returned by a compression run that aborted. It records the
// stage that failed and, for per-page stages, the 1-based page number.
type PipelineError struct {
	Stage Stage
	Page  int
	Err   error
}

func (e *PipelineError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("compression failed while %s page %d: %v", e.Stage, e.Page, e.Err)
	}
	return fmt.Sprintf("compression failed while %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
