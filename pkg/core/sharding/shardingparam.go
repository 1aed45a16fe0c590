// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding

import (
	"fmt"
	"math"
	"math/bits"
	"slices"

	"github.com/gomlx/sharding/pkg/core/shapes"
	"github.com/gomlx/sharding/pkg/support/sets"
	"github.com/gomlx/sharding/pkg/support/xslices"
)

// ShardingParam describes how to tile an array over a mesh of devices.
//
// DimShards[d] is the number of tiles axis d of the array is split into. The devices form a mesh with
// axes sizes MinorToMajor.AxisSizes, and MinorToMajor.Permutation gives the order in which the devices
// are assigned to the tiles. If there are more devices than tiles, the remaining factor
// (ReplicationFactor) replicates each tile.
//
// Example: DimShards=[2, 3], Permutation=[1, 0], AxisSizes=[2, 3] splits a [4, 6] array into 6 tiles of
// shape [2, 2], over 6 devices, with device i taking tile i in row-major order.
type ShardingParam struct {
	DimShards    []int
	MinorToMajor MinorToMajor
}

// MinorToMajor describes the device mesh of a ShardingParam, and the order in which its devices are
// assigned to tiles.
//
// AxisSizes are the sizes of the mesh axes, and the logical device ids are laid over the mesh in row-major
// order: for AxisSizes=[2, 3], the devices are [[0 1 2] [3 4 5]].
//
// Permutation lists the mesh axes from minor (changes fastest) to major, defining the device order
// (see DeviceOrder). With Permutation=[1, 0] the order is the row-major one [0 1 2 3 4 5], and with
// Permutation=[0, 1] the order is [0 3 1 4 2 5].
type MinorToMajor struct {
	Permutation []int
	AxisSizes   []int
}

// NumDevices returns the number of devices in the mesh.
func (p ShardingParam) NumDevices() int {
	return xslices.Product(p.MinorToMajor.AxisSizes)
}

// NumTiles returns the number of distinct tiles, the product of DimShards.
func (p ShardingParam) NumTiles() int {
	return xslices.Product(p.DimShards)
}

// ReplicationFactor returns how many devices hold each tile.
// It's only meaningful if the ShardingParam is valid, see Verify.
func (p ShardingParam) ReplicationFactor() int {
	return p.NumDevices() / p.NumTiles()
}

// Rank of the arrays this ShardingParam applies to.
func (p ShardingParam) Rank() int {
	return len(p.DimShards)
}

// Verify returns an error (wrapping ErrInvalidArgument) if the ShardingParam is malformed.
func (p ShardingParam) Verify() error {
	for axis, numShards := range p.DimShards {
		if numShards <= 0 {
			return invalidArgumentf("ShardingParam %s: dim_shards[%d]=%d must be positive", p, axis, numShards)
		}
	}
	m := p.MinorToMajor
	if len(m.Permutation) != len(m.AxisSizes) {
		return invalidArgumentf("ShardingParam %s: permutation and axis_sizes must have the same length, got %d and %d",
			p, len(m.Permutation), len(m.AxisSizes))
	}
	for meshAxis, size := range m.AxisSizes {
		if size <= 0 {
			return invalidArgumentf("ShardingParam %s: axis_sizes[%d]=%d must be positive", p, meshAxis, size)
		}
	}
	seen := sets.Make[int](len(m.Permutation))
	for _, meshAxis := range m.Permutation {
		if meshAxis < 0 || meshAxis >= len(m.AxisSizes) {
			return invalidArgumentf("ShardingParam %s: permutation refers to mesh axis %d out of range [0, %d)",
				p, meshAxis, len(m.AxisSizes))
		}
		if seen.Has(meshAxis) {
			return invalidArgumentf("ShardingParam %s: mesh axis %d is duplicated in permutation", p, meshAxis)
		}
		seen.Insert(meshAxis)
	}
	if _, ok := checkedProduct(p.DimShards); !ok {
		return invalidArgumentf("ShardingParam %s: the number of tiles overflows", p)
	}
	if _, ok := checkedProduct(m.AxisSizes); !ok {
		return invalidArgumentf("ShardingParam %s: the number of devices overflows", p)
	}
	if p.NumDevices()%p.NumTiles() != 0 {
		return invalidArgumentf("ShardingParam %s: the %d devices can't be evenly assigned to %d tiles",
			p, p.NumDevices(), p.NumTiles())
	}
	return nil
}

// checkedProduct returns the product of the positive values, and false if it doesn't fit an int.
func checkedProduct(values []int) (int, bool) {
	product := uint64(1)
	for _, v := range values {
		hi, lo := bits.Mul64(product, uint64(v))
		if hi != 0 || lo > math.MaxInt {
			return 0, false
		}
		product = lo
	}
	return int(product), true
}

// DeviceOrder returns the logical device ids in the order they are assigned to tiles: position k of the
// order holds tile k/ReplicationFactor() (in row-major order over DimShards), so replication is the
// minor-most factor.
//
// It assumes the ShardingParam is valid, see Verify.
func (p ShardingParam) DeviceOrder() []int {
	m := p.MinorToMajor
	numDevices := p.NumDevices()
	if len(m.AxisSizes) == 0 {
		return []int{0}
	}
	meshStrides := shapes.Make(m.AxisSizes...).Strides()
	meshIndex := make([]int, len(m.AxisSizes))
	order := make([]int, numDevices)
	for k := range order {
		// Decompose k with Permutation[0] as the least significant digit.
		rest := k
		for _, meshAxis := range m.Permutation {
			meshIndex[meshAxis] = rest % m.AxisSizes[meshAxis]
			rest /= m.AxisSizes[meshAxis]
		}
		id := 0
		for meshAxis, coord := range meshIndex {
			id += coord * meshStrides[meshAxis]
		}
		order[k] = id
	}
	return order
}

// TileOfDevices returns, for each logical device id, the flat (row-major) index of the tile it holds.
//
// It assumes the ShardingParam is valid, see Verify.
func (p ShardingParam) TileOfDevices() []int {
	replication := p.ReplicationFactor()
	tiles := make([]int, p.NumDevices())
	for k, id := range p.DeviceOrder() {
		tiles[id] = k / replication
	}
	return tiles
}

// Equal returns whether both ShardingParam are the same.
func (p ShardingParam) Equal(other ShardingParam) bool {
	return slices.Equal(p.DimShards, other.DimShards) &&
		slices.Equal(p.MinorToMajor.Permutation, other.MinorToMajor.Permutation) &&
		slices.Equal(p.MinorToMajor.AxisSizes, other.MinorToMajor.AxisSizes)
}

// Clone returns a deep copy.
func (p ShardingParam) Clone() ShardingParam {
	return ShardingParam{
		DimShards: slices.Clone(p.DimShards),
		MinorToMajor: MinorToMajor{
			Permutation: slices.Clone(p.MinorToMajor.Permutation),
			AxisSizes:   slices.Clone(p.MinorToMajor.AxisSizes),
		},
	}
}

// String implements fmt.Stringer. E.g.: "{[2 3] to [1 0] on [2 3]}".
func (p ShardingParam) String() string {
	return fmt.Sprintf("{%v to %v on %v}", p.DimShards, p.MinorToMajor.Permutation, p.MinorToMajor.AxisSizes)
}
