// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding

import (
	"github.com/gomlx/sharding/pkg/core/shapes"
)

// ceilDiv returns ceil(a/b) for a >= 0 and b > 0.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// validShape returns an error wrapping ErrInvalidArgument if any dimension of the shape is negative.
// Shape fields are exported, so shapes don't necessarily come from shapes.New.
func validShape(name string, shape shapes.Shape) error {
	for axis, dim := range shape.Dimensions {
		if dim < 0 {
			return invalidArgumentf("%s: shape %s has negative dimension %d on axis #%d", name, shape, dim, axis)
		}
	}
	return nil
}

// validDynamicShape is like validShape, for the bounds of a DynamicShape.
func validDynamicShape(name string, shape shapes.DynamicShape) error {
	for axis, a := range shape.Axes {
		if a.Bound < 0 {
			return invalidArgumentf("%s: dynamic shape %s has negative bound %d on axis #%d", name, shape, a.Bound, axis)
		}
	}
	return nil
}

// clippedDomain returns the domain of the tile at origin with the given tile shape, clipped to the global shape,
// so the result always satisfies IndexDomain.WithinBounds(global).
//
// Trailing tiles of an uneven split are truncated, and tiles past the end of an axis become empty, with
// their origin at the end of the axis.
func clippedDomain(global shapes.Shape, origin shapes.Index, tile shapes.Shape) shapes.IndexDomain {
	rank := global.Rank()
	clippedOrigin := make(shapes.Index, rank)
	dims := make([]int, rank)
	for axis := range rank {
		dim := global.Dimensions[axis]
		clippedOrigin[axis] = min(origin[axis], dim)
		dims[axis] = min(tile.Dimensions[axis], dim-clippedOrigin[axis])
	}
	return shapes.IndexDomain{Origin: clippedOrigin, Shape: shapes.Shape{Dimensions: dims}}
}

// domainShapes returns the shapes of the domains.
func domainShapes(domains []shapes.IndexDomain) []shapes.Shape {
	result := make([]shapes.Shape, len(domains))
	for i, d := range domains {
		result[i] = d.Shape
	}
	return result
}

// commonShape returns the shape shared by all the given shapes, or false if they differ.
func commonShape(shardShapes []shapes.Shape) (shapes.Shape, bool) {
	if len(shardShapes) == 0 {
		return shapes.Shape{}, false
	}
	for _, s := range shardShapes[1:] {
		if !s.Equal(shardShapes[0]) {
			return shapes.Shape{}, false
		}
	}
	return shardShapes[0].Clone(), true
}
