// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package distributed describes shardings in terms of a named device mesh: a DeviceMesh arranges the devices
// in a multidimensional grid with named axes, and a ShardingSpec says, for each axis of an array, which mesh
// axes it is split over.
//
// A ShardingSpec is converted to the tiling description used by the sharding package with
// ShardingSpec.ToShardingParam, or directly to a sharding.ShardingParamSharding with ShardingSpec.NewSharding.
package distributed

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/sharding/pkg/core/shapes"
	"github.com/gomlx/sharding/pkg/support/sets"
	"github.com/gomlx/sharding/pkg/support/xslices"
	"github.com/pkg/errors"
)

// DeviceMesh defines the logical topology of a set of devices.
type DeviceMesh struct {
	name string

	axesNames []string

	// axesSizes is the number of devices along each mesh axis.
	axesSizes []int

	nameToAxis map[string]int

	numDevices int

	// logicalDeviceAssignment[j] is the index (in the list of devices given to ShardingSpec.NewSharding)
	// of the device at the flat (row-major) position j of the mesh. If nil, it's the identity.
	logicalDeviceAssignment []int
}

// DefaultMeshName is the name given to new meshes.
const DefaultMeshName = "mesh"

// IsNameValid checks whether a name is a valid identifier for a mesh name or axis name:
// an ASCII letter or underscore followed by letters, digits or underscores.
func IsNameValid(name string) bool {
	if name == "" {
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return false
	}
	return true
}

// NewDeviceMesh creates a new logical topology of a set of devices.
//
//   - axesSizes: the number of devices along each mesh axis, one value per axis. All must be positive.
//   - axesNames: the names of the mesh axes, one per axis. They must be unique and valid identifiers
//     (see IsNameValid).
//
// Example:
//
//	mesh, err := distributed.NewDeviceMesh([]int{2, 4}, []string{"data", "model"})
func NewDeviceMesh(axesSizes []int, axesNames []string) (*DeviceMesh, error) {
	if len(axesSizes) != len(axesNames) {
		return nil, errors.Errorf("axesSizes and axesNames must have the same length, got %d and %d",
			len(axesSizes), len(axesNames))
	}
	if len(axesSizes) == 0 {
		return nil, errors.New("DeviceMesh axesSizes cannot be empty")
	}
	nameToAxis := make(map[string]int, len(axesSizes))
	for axis, name := range axesNames {
		if !IsNameValid(name) {
			return nil, errors.Errorf(
				"DeviceMesh axis name %q at index %d is not a valid identifier, it must start with a ASCII letter "+
					"and be followed only by letters, numbers or underscore", name, axis)
		}
		if _, found := nameToAxis[name]; found {
			return nil, errors.Errorf("DeviceMesh axis name %q is duplicated", name)
		}
		if axesSizes[axis] <= 0 {
			return nil, errors.Errorf("DeviceMesh axis %q has size %d, it must be positive", name, axesSizes[axis])
		}
		nameToAxis[name] = axis
	}
	return &DeviceMesh{
		name:       DefaultMeshName,
		axesNames:  slices.Clone(axesNames),
		axesSizes:  slices.Clone(axesSizes),
		nameToAxis: nameToAxis,
		numDevices: xslices.Product(axesSizes),
	}, nil
}

// SetName of the mesh.
func (m *DeviceMesh) SetName(name string) {
	m.name = name
}

// Name returns the mesh name.
func (m *DeviceMesh) Name() string {
	return m.name
}

// NumDevices returns the total number of devices in the mesh.
func (m *DeviceMesh) NumDevices() int {
	return m.numDevices
}

// Rank returns the number of axes in the mesh.
func (m *DeviceMesh) Rank() int {
	return len(m.axesSizes)
}

// AxesNames returns a copy of the mesh's axis names.
func (m *DeviceMesh) AxesNames() []string {
	return slices.Clone(m.axesNames)
}

// AxesSizes returns a copy of the mesh's axesSizes.
func (m *DeviceMesh) AxesSizes() []int {
	return slices.Clone(m.axesSizes)
}

// AxisSize returns the number of devices along the given mesh axis.
func (m *DeviceMesh) AxisSize(axisName string) (int, error) {
	axis, found := m.nameToAxis[axisName]
	if !found {
		return 0, errors.Errorf("mesh axis %q not found", axisName)
	}
	return m.axesSizes[axis], nil
}

// String implements the fmt.Stringer interface. E.g.: "DeviceMesh(axesSizes={data: 2, model: 4})".
func (m *DeviceMesh) String() string {
	var sb strings.Builder
	sb.WriteString("DeviceMesh(axesSizes={")
	for axis, name := range m.axesNames {
		if axis > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "%s: %d", name, m.axesSizes[axis])
	}
	sb.WriteString("})")
	return sb.String()
}

// SetLogicalDeviceAssignment sets which device goes on each position of the mesh: devices[j] is the index, in the
// device list given to ShardingSpec.NewSharding, of the device at the flat (row-major) mesh position j.
//
// It must be a permutation of 0...NumDevices()-1. Calling it with no arguments resets it to the identity.
func (m *DeviceMesh) SetLogicalDeviceAssignment(devices ...int) error {
	if len(devices) == 0 {
		m.logicalDeviceAssignment = nil
		return nil
	}
	if len(devices) != m.numDevices {
		return errors.Errorf("devices must have %d elements, got %d", m.numDevices, len(devices))
	}
	seen := sets.Make[int](m.numDevices)
	for _, device := range devices {
		if device < 0 || device >= m.numDevices {
			return errors.Errorf("devices must be between 0 and %d (NumDevices()-1), got device %d",
				m.numDevices-1, device)
		}
		if seen.Has(device) {
			return errors.Errorf("device #%d is duplicated in the assignment", device)
		}
		seen.Insert(device)
	}
	m.logicalDeviceAssignment = slices.Clone(devices)
	return nil
}

// LogicalDeviceAssignment returns the assignment set with SetLogicalDeviceAssignment, or nil if none was set
// (in which case the mesh uses the devices in order).
func (m *DeviceMesh) LogicalDeviceAssignment() []int {
	if m.logicalDeviceAssignment == nil {
		return nil
	}
	return slices.Clone(m.logicalDeviceAssignment)
}

// deviceAt returns the device index at the flat mesh position.
func (m *DeviceMesh) deviceAt(position int) int {
	if m.logicalDeviceAssignment == nil {
		return position
	}
	return m.logicalDeviceAssignment[position]
}

// ComputeReplicaGroups returns the groups of devices participating together in a collective operation performed
// along the given mesh axes.
//
// Each group holds the devices (after the logical device assignment) that differ only in their coordinates on
// the given axes, ordered row-major over those axes. The coordinates on the other axes select the group.
//
// Example:
//
//	m := NewDeviceMesh([]int{2, 2}, []string{"batch", "data"})
//	batchGroups, _ := m.ComputeReplicaGroups([]string{"batch"})  // -> [][]int{{0, 2}, {1, 3}}
//	dataGroups, _ := m.ComputeReplicaGroups([]string{"data"})    // -> [][]int{{0, 1}, {2, 3}}
//	globalGroups, _ := m.ComputeReplicaGroups([]string{"batch", "data"})  // -> [][]int{{0, 1, 2, 3}}
func (m *DeviceMesh) ComputeReplicaGroups(axes []string) ([][]int, error) {
	groupAxes := make([]int, 0, len(axes))
	inGroup := sets.Make[int](len(axes))
	for _, name := range axes {
		axis, found := m.nameToAxis[name]
		if !found {
			return nil, errors.Errorf("axis %q not found in mesh", name)
		}
		if inGroup.Has(axis) {
			return nil, errors.Errorf("axis %q is duplicated: each axis can only appear once", name)
		}
		groupAxes = append(groupAxes, axis)
		inGroup.Insert(axis)
	}
	var otherAxes []int
	for axis := range m.axesSizes {
		if !inGroup.Has(axis) {
			otherAxes = append(otherAxes, axis)
		}
	}

	// Sub-meshes over the group axes (position in group) and over the other axes (group index).
	groupShape := shapes.Make(xslices.Map(groupAxes, func(axis int) int { return m.axesSizes[axis] })...)
	otherShape := shapes.Make(xslices.Map(otherAxes, func(axis int) int { return m.axesSizes[axis] })...)
	groupStrides, otherStrides := groupShape.Strides(), otherShape.Strides()

	groups := make([][]int, otherShape.Size())
	for i := range groups {
		groups[i] = make([]int, groupShape.Size())
	}
	meshShape := shapes.Make(m.axesSizes...)
	for position, coords := range meshShape.Iter() {
		groupIdx, posInGroup := 0, 0
		for i, axis := range otherAxes {
			groupIdx += coords[axis] * otherStrides[i]
		}
		for i, axis := range groupAxes {
			posInGroup += coords[axis] * groupStrides[i]
		}
		groups[groupIdx][posInGroup] = m.deviceAt(position)
	}
	return groups, nil
}
