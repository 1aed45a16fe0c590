// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding

import (
	"fmt"

	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/shapes"
)

// SingleDeviceSharding places the whole array on one device.
type SingleDeviceSharding struct {
	baseSharding
}

var _ Sharding = (*SingleDeviceSharding)(nil)

// NewSingleDeviceSharding creates a sharding of the whole array on the given device.
func NewSingleDeviceSharding(device devices.Device, kind devices.MemoryKind) *SingleDeviceSharding {
	s := &SingleDeviceSharding{
		baseSharding: baseSharding{
			devices:    devices.NewList(device),
			memoryKind: kind,
		},
	}
	// Disassembling a single-device sharding yields itself.
	s.singles = []*SingleDeviceSharding{s}
	return s
}

// Kind implements Sharding.
func (s *SingleDeviceSharding) Kind() Kind { return KindSingleDevice }

// Device returns the only device of the sharding.
func (s *SingleDeviceSharding) Device() devices.Device { return s.devices.At(0) }

// IsFullyReplicated implements Sharding. A single shard always holds the whole array.
func (s *SingleDeviceSharding) IsFullyReplicated() bool { return true }

// ShardShape implements Sharding: it's the shape itself.
func (s *SingleDeviceSharding) ShardShape(shape shapes.Shape) (shapes.Shape, error) {
	if err := validShape("SingleDeviceSharding", shape); err != nil {
		return shapes.Shape{}, err
	}
	return shape.Clone(), nil
}

// Disassemble implements Sharding: it returns the shape itself paired with this sharding.
func (s *SingleDeviceSharding) Disassemble(shape shapes.Shape) ([]Shard, error) {
	if err := validShape("SingleDeviceSharding", shape); err != nil {
		return nil, err
	}
	return s.shards([]shapes.Shape{shape}), nil
}

// DisassembleDynamic implements Sharding: it returns the shape itself paired with this sharding.
func (s *SingleDeviceSharding) DisassembleDynamic(shape shapes.DynamicShape) ([]DynamicShard, error) {
	if err := validDynamicShape("SingleDeviceSharding", shape); err != nil {
		return nil, err
	}
	return s.dynamicShards([]shapes.DynamicShape{shape}), nil
}

// IndexDomains implements Sharding: the only shard covers the whole shape.
func (s *SingleDeviceSharding) IndexDomains(shape shapes.Shape) ([]shapes.IndexDomain, error) {
	if err := validShape("SingleDeviceSharding", shape); err != nil {
		return nil, err
	}
	return []shapes.IndexDomain{shapes.FullIndexDomain(shape)}, nil
}

// WithDevices implements Sharding. The list must have exactly one device.
func (s *SingleDeviceSharding) WithDevices(list devices.List) (Sharding, error) {
	if err := s.checkNumDevices("SingleDeviceSharding", list); err != nil {
		return nil, err
	}
	return NewSingleDeviceSharding(list.At(0), s.memoryKind), nil
}

// WithMemoryKind implements Sharding.
func (s *SingleDeviceSharding) WithMemoryKind(kind devices.MemoryKind) Sharding {
	return NewSingleDeviceSharding(s.Device(), kind)
}

// Equal implements Sharding.
func (s *SingleDeviceSharding) Equal(other Sharding) bool {
	_, ok := other.(*SingleDeviceSharding)
	return ok && s.sameAssignment(other)
}

// String implements Sharding.
func (s *SingleDeviceSharding) String() string {
	return fmt.Sprintf("SingleDeviceSharding(device: %s, memory_kind: %s)", s.Device(), s.memoryKind)
}
