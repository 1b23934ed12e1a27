package ffi

import (
	"errors"

	"github.com/sandrolain/goreval/pkg/types"
)

// Status is the stable integer code every boundary entry point returns:
// 0 is success, negative codes are parse/validation/boundary failures,
// positive codes are evaluation failures.
type Status int32

const (
	StatusOK Status = 0

	StatusParseError        Status = -1
	StatusNullPointer       Status = -2
	StatusAllocationFailure Status = -3
	StatusValidationError   Status = -4
	// StatusInvalidPointer is the reserved code for a magic-check failure:
	// a freed, foreign, or type-confused handle.
	StatusInvalidPointer Status = -5
	StatusInternal       Status = -6

	StatusUnknownName      Status = 1
	StatusArityMismatch    Status = 2
	StatusRecursionLimit   Status = 3
	StatusIndexOutOfBounds Status = 4
	StatusUnknownAttribute Status = 5
	StatusInvalidIndex     Status = 6
	StatusCapacityExceeded Status = 7
)

// statusOf maps a structured engine error to its boundary status code.
func statusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var e *types.Error
	if !errors.As(err, &e) {
		return StatusInternal
	}
	switch e.Code {
	case types.ErrEmptyExpression, types.ErrInvalidNumber, types.ErrInvalidCharacter,
		types.ErrUnexpectedEnd, types.ErrUnexpectedToken, types.ErrExpectedToken,
		types.ErrUnmatchedDelimiter, types.ErrTrailingInput, types.ErrBadAttribute,
		types.ErrBadIndex, types.ErrTooDeep:
		return StatusParseError
	case types.ErrDuplicateName, types.ErrArityLimit:
		return StatusValidationError
	case types.ErrInvalidIndex:
		return StatusInvalidIndex
	case types.ErrArityMismatch:
		return StatusArityMismatch
	case types.ErrUnknownName, types.ErrUnknownFunction:
		return StatusUnknownName
	case types.ErrUnknownAttribute:
		return StatusUnknownAttribute
	case types.ErrIndexOutOfBounds:
		return StatusIndexOutOfBounds
	case types.ErrRecursionLimit:
		return StatusRecursionLimit
	case types.ErrCapacityExceeded:
		return StatusCapacityExceeded
	case types.ErrNullPointer:
		return StatusNullPointer
	case types.ErrInvalidPointer:
		return StatusInvalidPointer
	case types.ErrAllocationFailure:
		return StatusAllocationFailure
	default:
		return StatusInternal
	}
}
