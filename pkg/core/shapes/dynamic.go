// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// DynamicAxis describes one axis of a DynamicShape.
//
// A static axis has exactly Bound elements. A dynamic axis has an unknown number of elements,
// at most Bound, and can optionally be named so its value can be given with AxisBindings.
type DynamicAxis struct {
	Bound   int
	Dynamic bool
	Name    string
}

// StaticAxis returns a DynamicAxis with a known dimension.
func StaticAxis(dim int) DynamicAxis {
	return DynamicAxis{Bound: dim}
}

// DynamicAxisOf returns a dynamic axis with the given name (it can be empty) and upper bound.
func DynamicAxisOf(name string, bound int) DynamicAxis {
	return DynamicAxis{Bound: bound, Dynamic: true, Name: name}
}

// String returns "8" for a static axis, "<=8" for an unnamed dynamic axis and "batch<=8" for a named one.
func (a DynamicAxis) String() string {
	if !a.Dynamic {
		return strconv.Itoa(a.Bound)
	}
	return a.Name + "<=" + strconv.Itoa(a.Bound)
}

// DynamicShape is the shape of an array whose dimensions may only be known at execution time.
// Each axis holds either its exact dimension or an upper bound.
//
// Like Shape it is a value: methods never modify the receiver.
type DynamicShape struct {
	Axes []DynamicAxis
}

// MakeDynamic creates a DynamicShape with the given axes.
//
// It panics (with exceptions.Panicf) if any bound is negative. See NewDynamic for a version that returns an error.
func MakeDynamic(axes ...DynamicAxis) DynamicShape {
	s, err := NewDynamic(axes...)
	if err != nil {
		exceptions.Panicf("shapes.MakeDynamic(%v): %v", axes, err)
	}
	return s
}

// NewDynamic creates a DynamicShape with the given axes, or returns an error if any bound is negative.
func NewDynamic(axes ...DynamicAxis) (DynamicShape, error) {
	for axis, a := range axes {
		if a.Bound < 0 {
			return DynamicShape{}, errors.Errorf("cannot create a dynamic shape with axis #%d with negative bound %d", axis, a.Bound)
		}
	}
	return DynamicShape{Axes: slices.Clone(axes)}, nil
}

// ToDynamic converts a static shape to a DynamicShape with only static axes.
func ToDynamic(s Shape) DynamicShape {
	axes := make([]DynamicAxis, s.Rank())
	for axis, dim := range s.Dimensions {
		axes[axis] = StaticAxis(dim)
	}
	return DynamicShape{Axes: axes}
}

// Rank returns the number of axes.
func (s DynamicShape) Rank() int { return len(s.Axes) }

// IsDynamic returns whether any of the axes is dynamic.
func (s DynamicShape) IsDynamic() bool {
	for _, a := range s.Axes {
		if a.Dynamic {
			return true
		}
	}
	return false
}

// PaddedShape returns the static Shape formed by the upper bound of each axis.
func (s DynamicShape) PaddedShape() Shape {
	dims := make([]int, s.Rank())
	for axis, a := range s.Axes {
		dims[axis] = a.Bound
	}
	return Shape{Dimensions: dims}
}

// Equal compares the bounds, dynamic flags and names of the axes.
func (s DynamicShape) Equal(s2 DynamicShape) bool {
	return slices.Equal(s.Axes, s2.Axes)
}

// Clone returns a deep copy of the DynamicShape.
func (s DynamicShape) Clone() DynamicShape {
	return DynamicShape{Axes: slices.Clone(s.Axes)}
}

// String implements fmt.Stringer. E.g.: "[8 batch<=4]".
func (s DynamicShape) String() string {
	parts := make([]string, len(s.Axes))
	for axis, a := range s.Axes {
		parts[axis] = a.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Resolve returns the concrete shape, taking the value of the named dynamic axes from bindings.
//
// It returns an error if a dynamic axis has no name or no binding, or if the bound value exceeds the axis bound.
func (s DynamicShape) Resolve(bindings AxisBindings) (Shape, error) {
	dims := make([]int, s.Rank())
	for axis, a := range s.Axes {
		if !a.Dynamic {
			dims[axis] = a.Bound
			continue
		}
		if a.Name == "" {
			return Shape{}, errors.Errorf("cannot resolve unnamed dynamic axis #%d of %s", axis, s)
		}
		value, found := bindings[a.Name]
		if !found {
			return Shape{}, errors.Errorf("no binding for dynamic axis %q (axis #%d) of %s", a.Name, axis, s)
		}
		if value < 0 || value > a.Bound {
			return Shape{}, errors.Errorf("binding %s=%d out of range [0, %d] for axis #%d of %s",
				a.Name, value, a.Bound, axis, s)
		}
		dims[axis] = value
	}
	return Shape{Dimensions: dims}, nil
}

// ParseDynamicAxis parses an axis in the format returned by DynamicAxis.String: "8" for a static axis,
// "<=8" for an unnamed dynamic axis and "batch<=8" for a named one.
func ParseDynamicAxis(s string) (DynamicAxis, error) {
	s = strings.TrimSpace(s)
	name, boundStr, dynamic := strings.Cut(s, "<=")
	if !dynamic {
		boundStr = s
	}
	bound, err := strconv.Atoi(strings.TrimSpace(boundStr))
	if err != nil {
		return DynamicAxis{}, errors.Wrapf(err, "invalid axis %q", s)
	}
	if bound < 0 {
		return DynamicAxis{}, errors.Errorf("invalid axis %q: negative dimension", s)
	}
	if !dynamic {
		return StaticAxis(bound), nil
	}
	return DynamicAxisOf(strings.TrimSpace(name), bound), nil
}
