// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines the value types used to describe a global array and its partitions:
//
//   - Shape: the static dimensions of an array.
//   - DynamicShape: dimensions where some axes are only known at execution time, bounded by a maximum.
//   - Index and IndexDomain: a coordinate, and a rectangular sub-region (origin + shape) of an array.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of an array.
//   - Axis: is the index of a dimension on a multidimensional array. Here we try to refer to a dimension
//     index as "axis" (plural axes), and its size as its dimension.
//   - Dimension: the size of a multi-dimensions array in one of its axes.
//   - Scalar: is a shape where there are no axes (or dimensions), only a single value.
//
// Example: the array `[][]int32{{0, 1, 2}, {3, 4, 5}}` has shape `[2 3]`: rank 2, axis 0 has
// dimension 2, and axis 1 has dimension 3. It could be created with `shapes.Make(2, 3)`.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Shape holds the dimensions of an array. Dimensions can be 0 (an empty array), but never negative.
//
// Shapes are values: the methods never modify the receiver, and the ones returning a Shape return a copy.
// Use Make or New to create a new shape.
type Shape struct {
	Dimensions []int
}

// Make returns a Shape with the given dimensions.
//
// It panics (with exceptions.Panicf) if any dimension is negative. See New for a version that returns an error.
func Make(dimensions ...int) Shape {
	s, err := New(dimensions...)
	if err != nil {
		exceptions.Panicf("shapes.Make(%v): %v", dimensions, err)
	}
	return s
}

// New returns a Shape with the given dimensions, or an error if any of them is negative.
func New(dimensions ...int) (Shape, error) {
	for axis, dim := range dimensions {
		if dim < 0 {
			return Shape{}, errors.Errorf("cannot create a shape with axis #%d with negative dimension %d", axis, dim)
		}
	}
	return Shape{Dimensions: slices.Clone(dimensions)}, nil
}

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Rank() == 0 }

// IsZeroSize returns whether any of the axes has dimension 0.
func (s Shape) IsZeroSize() bool {
	return slices.Contains(s.Dimensions, 0)
}

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	return fmt.Sprintf("%v", s.Dimensions)
}

// Size returns the number of elements of the shape. It's the product of all dimensions, 1 for a scalar.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// ByteSize returns the memory used to store an array of the given shape with elements of the given dtype.
func (s Shape) ByteSize(dtype dtypes.DType) uintptr {
	return dtype.Memory() * uintptr(s.Size())
}

// Equal compares the dimensions of two shapes.
func (s Shape) Equal(s2 Shape) bool {
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{Dimensions: slices.Clone(s.Dimensions)}
}
