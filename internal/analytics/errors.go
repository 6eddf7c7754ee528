package analytics

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData matches every *InsufficientDataError through errors.Is
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidParameter matches every *InvalidParameterError through errors.Is
	ErrInvalidParameter = errors.New("invalid parameter")
)

// InsufficientDataError reports a series too short for the requested period or
// horizon, or a stage left with too few defined points.
type InsufficientDataError struct {
	Need   int
	Have   int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s (need %d, have %d)", e.Reason, e.Need, e.Have)
}

// Is reports whether target is ErrInsufficientData
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// InvalidParameterError reports a parameter outside its valid domain.
type InvalidParameterError struct {
	Name   string
	Value  interface{}
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidParameter
func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}
