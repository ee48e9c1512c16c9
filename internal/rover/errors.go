package rover

import (
	"errors"
	"fmt"
	"math"
)

// Validation errors: the configuration itself is malformed.
var (
	// ErrMissingField indicates a required configuration field was not supplied.
	ErrMissingField = errors.New("rover: missing required field")

	// ErrUnsupportedReducer indicates a speed reducer type other than "reverted".
	ErrUnsupportedReducer = errors.New("rover: unsupported speed reducer type")

	// ErrInvalidRecord indicates a record that was never built or is structurally unusable.
	ErrInvalidRecord = errors.New("rover: invalid configuration record")
)

// Domain errors: the configuration is well-formed but physically invalid.
var (
	// ErrAngleRange indicates a terrain angle outside [-MaxTerrainAngle, MaxTerrainAngle].
	ErrAngleRange = errors.New("rover: terrain angle out of range")

	// ErrNonPositiveCrr indicates a rolling resistance coefficient <= 0.
	ErrNonPositiveCrr = errors.New("rover: rolling resistance coefficient must be positive")

	// ErrNonPositive indicates a dimension, speed or gravity value <= 0.
	ErrNonPositive = errors.New("rover: value must be positive")

	// ErrNegative indicates a mass or torque value < 0.
	ErrNegative = errors.New("rover: value must not be negative")

	// ErrShapeMismatch indicates paired array inputs with different shapes.
	ErrShapeMismatch = errors.New("rover: shape mismatch between paired inputs")

	// ErrNonFinite indicates a NaN or Inf input.
	ErrNonFinite = errors.New("rover: value is not finite")
)

// Kind groups errors for callers that only care about the category.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindDomain
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDomain:
		return "domain"
	default:
		return "unknown"
	}
}

// Error wraps a sentinel with the operation and field that produced it.
type Error struct {
	Op    string
	Field string
	Value float64
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Field == "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case math.IsNaN(e.Value):
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Field, e.Err)
	default:
		return fmt.Sprintf("%s: %s=%g: %v", e.Op, e.Field, e.Value, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Kind reports which category the wrapped sentinel belongs to.
func (e *Error) Kind() Kind {
	return kindOfSentinel(e.Err)
}

func newError(op, field string, value float64, err error) *Error {
	return &Error{Op: op, Field: field, Value: value, Err: err}
}

// Missing builds an ErrMissingField error for the named field.
func Missing(op, field string) error {
	return newError(op, field, math.NaN(), ErrMissingField)
}

// KindOf classifies err. Unrelated errors report KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var re *Error
	if errors.As(err, &re) {
		return re.Kind()
	}
	return kindOfSentinel(err)
}

func kindOfSentinel(err error) Kind {
	for _, s := range []error{ErrMissingField, ErrUnsupportedReducer, ErrInvalidRecord} {
		if errors.Is(err, s) {
			return KindValidation
		}
	}
	for _, s := range []error{ErrAngleRange, ErrNonPositiveCrr, ErrNonPositive, ErrNegative, ErrShapeMismatch, ErrNonFinite} {
		if errors.Is(err, s) {
			return KindDomain
		}
	}
	return KindUnknown
}

// IsValidation reports whether err is a malformed-configuration error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsDomain reports whether err is a physically-invalid-input error.
func IsDomain(err error) bool { return KindOf(err) == KindDomain }
