// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributed

import (
	"slices"
	"strings"

	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/shapes"
	"github.com/gomlx/sharding/pkg/core/sharding"
	"github.com/gomlx/sharding/pkg/support/sets"
	"github.com/gomlx/sharding/pkg/support/xslices"
	"github.com/pkg/errors"
)

// ShardingSpec (also known as PartitionSpec in JAX) defines how an array is to be sharded (partitioned) across
// a DeviceMesh.
//
// The definition is per axis of the array, and not per axis of the mesh, a common confusion.
// If not all axes of the array are defined, the tail axes are considered simply to be replicated across the
// whole mesh. Mesh axes not used by any array axis also replicate the array.
//
// Each array axis can be replicated or sharded across one or more mesh axes. When sharded over more than one
// mesh axis, the first one is the major one.
//
// Example:
//
//	mesh, _ := distributed.NewDeviceMesh([]int{2, 2}, []string{"data", "model"})
//
//	// First axis ("batch") is sharded across the "data" axis of the mesh.
//	inputSharding := distributed.BuildSpec(mesh).S("data").Done()
//
//	// First axis is replicated, second is sharded across "model" devices.
//	variableSharding := distributed.BuildSpec(mesh).R().S("model").Done()
//
//	// Second axis is sharded across both "data" and "model" devices.
//	largeWeights := distributed.BuildSpec(mesh).R().S("data", "model").Done()
type ShardingSpec struct {
	Mesh *DeviceMesh
	Axes []AxisSpec
}

// AxisSpec specifies how an array axis is to be sharded (or replicated).
// See details in ShardingSpec.
//
// It's a list of mesh axes names, in order. An empty list means the axis is replicated.
type AxisSpec []string

// ReplicatedAxis is a special AxisSpec that means the array axis is replicated.
var ReplicatedAxis = AxisSpec(nil)

// NewShardingSpec creates a new ShardingSpec for an array, defined over the given mesh axes.
//
// It takes an axisSpec for each axis of the array (omitted axes are assumed to be replicated).
//
// There is also the BuildSpec function for a more ergonomic spec creation.
func NewShardingSpec(mesh *DeviceMesh, axisSpec ...AxisSpec) (*ShardingSpec, error) {
	s := &ShardingSpec{mesh, axisSpec}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewReplicatedShardingSpec creates a new ShardingSpec that is replicated across all mesh axes.
func NewReplicatedShardingSpec(mesh *DeviceMesh) *ShardingSpec {
	return &ShardingSpec{mesh, nil}
}

// Validate the spec returning an error if something is invalid.
func (s *ShardingSpec) Validate() error {
	if s.Mesh == nil {
		return errors.New("ShardingSpec requires a DeviceMesh")
	}
	used := sets.Make[string]()
	for axis, meshAxes := range s.Axes {
		for _, name := range meshAxes {
			if _, ok := s.Mesh.nameToAxis[name]; !ok {
				return errors.Errorf("ShardingSpec axis #%d refers to unknown mesh axis %q", axis, name)
			}
			if used.Has(name) {
				return errors.Errorf("mesh axis %q used more than once in ShardingSpec", name)
			}
			used.Insert(name)
		}
	}
	return nil
}

// Rank returns the number of array axes this ShardingSpec defines. Arrays can have a larger rank, the extra
// axes are replicated.
func (s *ShardingSpec) Rank() int {
	return len(s.Axes)
}

// IsReplicated returns true if the array is fully replicated
// (i.e., not sharded along any axis).
func (s *ShardingSpec) IsReplicated() bool {
	for _, meshAxes := range s.Axes {
		if len(meshAxes) > 0 {
			return false
		}
	}
	return true
}

// String returns a human-readable string representation of the ShardingSpec,
// e.g.: "ShardingSpec{mesh=mesh, axes=[R, S(data,model)]}".
func (s *ShardingSpec) String() string {
	if s == nil {
		return "ShardingSpec<nil>"
	}
	parts := make([]string, len(s.Axes))
	for axis, meshAxes := range s.Axes {
		if len(meshAxes) == 0 {
			parts[axis] = "R"
		} else {
			parts[axis] = "S(" + strings.Join(meshAxes, ",") + ")"
		}
	}
	return "ShardingSpec{mesh=" + s.Mesh.name + ", axes=[" + strings.Join(parts, ", ") + "]}"
}

// SpecBuilder is a more ergonomic way of building SharingSpec.
type SpecBuilder struct {
	spec *ShardingSpec
}

// BuildSpec is a more ergonomic way of building SharingSpec.
//
// Example:
//
//	spec, err := distributed.BuildSpec(mesh).R().S("model").Done()
func BuildSpec(mesh *DeviceMesh) *SpecBuilder {
	return &SpecBuilder{spec: &ShardingSpec{Mesh: mesh}}
}

// R adds a replicated axis to the ShardingSpec being built.
func (b *SpecBuilder) R() *SpecBuilder {
	b.spec.Axes = append(b.spec.Axes, ReplicatedAxis)
	return b
}

// S adds a sharded axis along the meshAxes to the ShardingSpec being built.
func (b *SpecBuilder) S(meshAxes ...string) *SpecBuilder {
	b.spec.Axes = append(b.spec.Axes, meshAxes)
	return b
}

// Done builds the ShardingSpec according to the builder specification.
func (b *SpecBuilder) Done() (*ShardingSpec, error) {
	if err := b.spec.Validate(); err != nil {
		return nil, err
	}
	return b.spec, nil
}

// NumDevicesShardingAxis returns the number of shards of the given array axis: the product of the sizes of the
// mesh axes it is sharded over. If the axis is replicated, it returns 1.
func (s *ShardingSpec) NumDevicesShardingAxis(axis int) int {
	if axis >= len(s.Axes) {
		return 1
	}
	return xslices.Product(s.meshAxesSizes(s.Axes[axis]))
}

// ToShardingParam converts the spec to the ShardingParam of an array of the given rank.
//
// The devices are ordered by the mesh axes used by array axis 0 (major to minor), then those of axis 1, and so on,
// and finally by the unused mesh axes, which become the replication factor. Logical device id i of the returned
// ShardingParam is the flat (row-major) position i of the mesh.
func (s *ShardingSpec) ToShardingParam(rank int) (sharding.ShardingParam, error) {
	if err := s.Validate(); err != nil {
		return sharding.ShardingParam{}, err
	}
	if rank < len(s.Axes) {
		return sharding.ShardingParam{}, errors.Errorf("%s defines %d axes, it can't be used for an array of rank %d",
			s, len(s.Axes), rank)
	}
	dimShards := make([]int, rank)
	meshOrder := make([]int, 0, s.Mesh.Rank())
	used := sets.Make[int](s.Mesh.Rank())
	for axis := range rank {
		dimShards[axis] = s.NumDevicesShardingAxis(axis)
		if axis >= len(s.Axes) {
			continue
		}
		for _, name := range s.Axes[axis] {
			meshAxis := s.Mesh.nameToAxis[name]
			meshOrder = append(meshOrder, meshAxis)
			used.Insert(meshAxis)
		}
	}
	for meshAxis := range s.Mesh.Rank() {
		if !used.Has(meshAxis) {
			meshOrder = append(meshOrder, meshAxis)
		}
	}
	// Permutation lists the mesh axes from minor to major.
	slices.Reverse(meshOrder)
	return sharding.ShardingParam{
		DimShards: dimShards,
		MinorToMajor: sharding.MinorToMajor{
			Permutation: meshOrder,
			AxisSizes:   s.Mesh.AxesSizes(),
		},
	}, nil
}

// NewSharding creates the sharding.ShardingParamSharding of an array of the given rank, over the given devices.
//
// The list must have Mesh.NumDevices() devices. If the mesh has a logical device assignment, the device at mesh
// position j is list.At(assignment[j]), otherwise it's list.At(j).
func (s *ShardingSpec) NewSharding(list devices.List, kind devices.MemoryKind, rank int) (*sharding.ShardingParamSharding, error) {
	param, err := s.ToShardingParam(rank)
	if err != nil {
		return nil, err
	}
	if list.Len() != s.Mesh.NumDevices() {
		return nil, errors.Errorf("%s requires %d devices, got %d", s.Mesh, s.Mesh.NumDevices(), list.Len())
	}
	ordered := make([]devices.Device, list.Len())
	for position := range ordered {
		ordered[position] = list.At(s.Mesh.deviceAt(position))
	}
	return sharding.NewShardingParamSharding(param, devices.NewList(ordered...), kind)
}

// LogicalShapeForShard calculates the logical shape of an array given its shard shape and the sharding
// specification.
//
// The shard shape is assumed to be the shape of the array on a single device.
// The logical shape is the shape of the full array across all devices.
//
// If the sharding spec is nil, or has no axes, it returns the shard shape as is.
func (s *ShardingSpec) LogicalShapeForShard(shardShape shapes.Shape) shapes.Shape {
	if s == nil || len(s.Axes) == 0 {
		return shardShape
	}
	logicalShape := shardShape.Clone()
	// The spec may have fewer axes than the shardShape: the remaining axes are replicated.
	for axis := range min(len(s.Axes), logicalShape.Rank()) {
		logicalShape.Dimensions[axis] *= s.NumDevicesShardingAxis(axis)
	}
	return logicalShape
}

// ShardShape calculates the shard shape of an array given its logical shape and the sharding specification.
//
// If the sharding spec is nil it returns the logical shape as is. It returns an error if the logical shape
// is not evenly divisible by the sharding spec, or if the spec has more axes than the shape.
func (s *ShardingSpec) ShardShape(logicalShape shapes.Shape) (shapes.Shape, error) {
	if s == nil {
		return logicalShape, nil
	}
	if len(s.Axes) > logicalShape.Rank() {
		return shapes.Shape{}, errors.Errorf("%s defines %d axes, shape %s has only rank %d",
			s, len(s.Axes), logicalShape, logicalShape.Rank())
	}
	shardDims := slices.Clone(logicalShape.Dimensions)
	for axis, dim := range shardDims {
		numShards := s.NumDevicesShardingAxis(axis)
		if dim%numShards != 0 {
			return shapes.Shape{}, errors.Errorf("axis #%d of shape %s is not divisible by its %d shards",
				axis, logicalShape, numShards)
		}
		shardDims[axis] = dim / numShards
	}
	return shapes.Make(shardDims...), nil
}

// meshAxesSizes returns the sizes of the named mesh axes.
func (s *ShardingSpec) meshAxesSizes(names []string) []int {
	return xslices.Map(names, func(name string) int { return s.Mesh.axesSizes[s.Mesh.nameToAxis[name]] })
}
