// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Index is a coordinate in a multidimensional array, one value per axis.
//
// The arithmetic methods are element-wise and panic if the ranks differ.
type Index []int

// Zeros returns the origin index for the given rank.
func Zeros(rank int) Index {
	return make(Index, rank)
}

func (idx Index) checkRank(op string, other Index) {
	if len(idx) != len(other) {
		exceptions.Panicf("Index.%s(): rank mismatch between %v and %v", op, idx, other)
	}
}

// Add returns idx + other, element-wise.
func (idx Index) Add(other Index) Index {
	idx.checkRank("Add", other)
	result := make(Index, len(idx))
	for i := range idx {
		result[i] = idx[i] + other[i]
	}
	return result
}

// Sub returns idx - other, element-wise.
func (idx Index) Sub(other Index) Index {
	idx.checkRank("Sub", other)
	result := make(Index, len(idx))
	for i := range idx {
		result[i] = idx[i] - other[i]
	}
	return result
}

// Mul returns idx * multiplier, element-wise.
func (idx Index) Mul(multiplier []int) Index {
	idx.checkRank("Mul", multiplier)
	result := make(Index, len(idx))
	for i := range idx {
		result[i] = idx[i] * multiplier[i]
	}
	return result
}

// Equal returns whether both indices have the same values.
func (idx Index) Equal(other Index) bool {
	return slices.Equal(idx, other)
}

// IndexDomain is a rectangular region of an array: it starts at Origin and spans Shape.
//
// It's what a shard of a sharded array occupies in the global (logical) array.
type IndexDomain struct {
	Origin Index
	Shape  Shape
}

// NewIndexDomain returns the domain at origin spanning shape. Both must have the same rank.
func NewIndexDomain(origin Index, shape Shape) (IndexDomain, error) {
	if len(origin) != shape.Rank() {
		return IndexDomain{}, errors.Errorf("IndexDomain origin %v and shape %s have different ranks", origin, shape)
	}
	return IndexDomain{Origin: slices.Clone(origin), Shape: shape.Clone()}, nil
}

// FullIndexDomain returns the domain covering the whole shape: origin at zero.
func FullIndexDomain(shape Shape) IndexDomain {
	return IndexDomain{Origin: Zeros(shape.Rank()), Shape: shape.Clone()}
}

// Rank of the domain.
func (d IndexDomain) Rank() int { return d.Shape.Rank() }

// Limit returns the exclusive upper corner of the domain: Origin + Shape.
func (d IndexDomain) Limit() Index {
	return d.Origin.Add(d.Shape.Dimensions)
}

// Add returns the domain translated by offset.
func (d IndexDomain) Add(offset Index) IndexDomain {
	return IndexDomain{Origin: d.Origin.Add(offset), Shape: d.Shape.Clone()}
}

// Sub returns the domain translated by -offset.
func (d IndexDomain) Sub(offset Index) IndexDomain {
	return IndexDomain{Origin: d.Origin.Sub(offset), Shape: d.Shape.Clone()}
}

// WithinBounds returns whether the domain fits in the global shape:
// 0 <= Origin[i] and Origin[i] + Shape[i] <= global[i] for every axis.
func (d IndexDomain) WithinBounds(global Shape) bool {
	if d.Rank() != global.Rank() || len(d.Origin) != d.Rank() {
		return false
	}
	for axis, origin := range d.Origin {
		if origin < 0 || origin+d.Shape.Dimensions[axis] > global.Dimensions[axis] {
			return false
		}
	}
	return true
}

// Equal returns whether both domains have the same origin and shape.
func (d IndexDomain) Equal(other IndexDomain) bool {
	return d.Origin.Equal(other.Origin) && d.Shape.Equal(other.Shape)
}

// String implements fmt.Stringer.
func (d IndexDomain) String() string {
	return fmt.Sprintf("IndexDomain(origin=%v, shape=%s)", []int(d.Origin), d.Shape)
}
