// Package ndarray provides a small shaped numeric array with elementwise
// mapping, so scalar physics kernels can be broadcast over slices and grids
// while preserving the input shape.
package ndarray

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/exp/constraints"
)

// ErrShape indicates that data length and shape disagree, or that two arrays
// combined elementwise have different shapes.
var ErrShape = errors.New("ndarray: shape mismatch")

// Array is a row-major dense array. A zero-dimensional Array holds one scalar.
type Array[T constraints.Float] struct {
	shape []int
	data  []T
}

// New builds an Array over a copy of data.
func New[T constraints.Float](shape []int, data []T) (Array[T], error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return Array[T]{}, fmt.Errorf("%w: negative dimension %d", ErrShape, d)
		}
		n *= d
	}
	if n != len(data) {
		return Array[T]{}, fmt.Errorf("%w: shape %v holds %d values, got %d", ErrShape, shape, n, len(data))
	}
	return Array[T]{shape: slices.Clone(shape), data: slices.Clone(data)}, nil
}

// FromSlice wraps a copy of values as a one-dimensional Array.
func FromSlice[T constraints.Float](values []T) Array[T] {
	return Array[T]{shape: []int{len(values)}, data: slices.Clone(values)}
}

func (a Array[T]) Shape() []int { return slices.Clone(a.shape) }

func (a Array[T]) Len() int { return len(a.data) }

func (a Array[T]) At(i int) T { return a.data[i] }

// Values returns a copy of the flat row-major data.
func (a Array[T]) Values() []T { return slices.Clone(a.data) }

// SameShape reports whether a and b have identical shapes.
func SameShape[T constraints.Float](a, b Array[T]) bool {
	return slices.Equal(a.shape, b.shape)
}

// Map applies fn to every element, preserving shape.
func (a Array[T]) Map(fn func(T) T) Array[T] {
	out := make([]T, len(a.data))
	for i, v := range a.data {
		out[i] = fn(v)
	}
	return Array[T]{shape: slices.Clone(a.shape), data: out}
}

// MapErr applies fn to every element and stops at the first error.
func (a Array[T]) MapErr(fn func(T) (T, error)) (Array[T], error) {
	out := make([]T, len(a.data))
	for i, v := range a.data {
		r, err := fn(v)
		if err != nil {
			return Array[T]{}, err
		}
		out[i] = r
	}
	return Array[T]{shape: slices.Clone(a.shape), data: out}, nil
}

// Zip combines two arrays of identical shape elementwise.
func Zip[T constraints.Float](a, b Array[T], fn func(x, y T) (T, error)) (Array[T], error) {
	if !SameShape(a, b) {
		return Array[T]{}, fmt.Errorf("%w: %v vs %v", ErrShape, a.shape, b.shape)
	}
	out := make([]T, len(a.data))
	for i := range a.data {
		r, err := fn(a.data[i], b.data[i])
		if err != nil {
			return Array[T]{}, err
		}
		out[i] = r
	}
	return Array[T]{shape: slices.Clone(a.shape), data: out}, nil
}

// Scale multiplies every element by factor.
func (a Array[T]) Scale(factor T) Array[T] {
	return a.Map(func(v T) T { return v * factor })
}
