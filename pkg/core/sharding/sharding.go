// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sharding describes how a logical multidimensional array is partitioned across a list of devices,
// and how each partition (shard) relates back to a region of the global array.
//
// Sharding is implemented by a closed set of variants, each a different partitioning semantics:
//
//   - SingleDeviceSharding: the whole array on one device.
//   - OpaqueSharding: only a device/memory-kind association, it declines to define shard shapes.
//   - ConcreteSharding: explicit, possibly different, shard shapes (static or dynamic), one per device.
//   - ConcreteEvenSharding: one shard shape shared by every device, laid out in row-major tile order.
//   - ShardingParamSharding: general tiling described by a ShardingParam, with replication.
//
// Shardings are immutable after construction, and can be shared by any number of arrays and goroutines.
// All the arguments are validated by the constructors, so later queries only fail if the shape given is
// incompatible with the sharding (ErrInvalidArgument), or if the variant doesn't define the operation
// (ErrUnsupported).
//
// Example:
//
//	param := sharding.ShardingParam{
//		DimShards:    []int{2, 1},
//		MinorToMajor: sharding.MinorToMajor{Permutation: []int{0}, AxisSizes: []int{4}},
//	}
//	s, err := sharding.NewShardingParamSharding(param, devices.Range(4), devices.DefaultMemory)
//	...
//	domains, err := s.IndexDomains(shapes.Make(8, 6))
//	// domains[0] and domains[1] are IndexDomain(origin=[0 0], shape=[4 6]), domains[2] and
//	// domains[3] are IndexDomain(origin=[4 0], shape=[4 6]).
package sharding

import (
	"fmt"

	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/shapes"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is wrapped by the errors caused by malformed arguments: to the constructors, or
	// shapes incompatible with a sharding given to its queries.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupported is wrapped by the errors returned by operations a sharding variant intentionally doesn't
	// define, e.g. OpaqueSharding.Disassemble. It is permanent: retrying won't help.
	ErrUnsupported = errors.New("unsupported operation")
)

func invalidArgumentf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func unsupportedf(format string, args ...any) error {
	return errors.Wrapf(ErrUnsupported, format, args...)
}

// Sharding is the common contract of the sharding variants in this package. The set of variants is
// closed: callers can type-switch exhaustively over *SingleDeviceSharding, *OpaqueSharding,
// *ConcreteSharding, *ConcreteEvenSharding and *ShardingParamSharding.
//
// The results of Disassemble, DisassembleDynamic and IndexDomains are indexed in lock-step with Devices().
type Sharding interface {
	// Kind returns the variant of the sharding.
	Kind() Kind

	// Devices returns all devices of this sharding, in shard order. Devices may appear more than once.
	Devices() devices.List

	// MemoryKind returns the memory kind of all shards.
	MemoryKind() devices.MemoryKind

	// IsFullyReplicated returns whether every shard holds the whole array.
	IsFullyReplicated() bool

	// ShardShape returns the shape shared by all shards of an array with the given shape.
	// It fails with ErrInvalidArgument if shards don't share one shape.
	ShardShape(shape shapes.Shape) (shapes.Shape, error)

	// Disassemble breaks the shape into per-device shapes, each paired with the single-device sharding
	// of the device holding it.
	Disassemble(shape shapes.Shape) ([]Shard, error)

	// DisassembleDynamic is the variant of Disassemble for dynamic shapes.
	DisassembleDynamic(shape shapes.DynamicShape) ([]DynamicShard, error)

	// IndexDomains maps each shard to the region of the global array it holds: array[domains[i]] is the
	// shard on Devices().At(i). Several shards may map to equal domains, e.g. a fully replicated sharding
	// returns Devices().Len() copies of the full domain.
	IndexDomains(shape shapes.Shape) ([]shapes.IndexDomain, error)

	// WithDevices returns the same partitioning over a different list of devices, with the same length.
	WithDevices(list devices.List) (Sharding, error)

	// WithMemoryKind returns the same sharding with a different memory kind.
	WithMemoryKind(kind devices.MemoryKind) Sharding

	// Equal returns whether other is the same variant, with the same devices, memory kind and
	// variant-specific state.
	Equal(other Sharding) bool

	// String returns a human-readable description of the sharding.
	String() string

	// base seals the interface to the variants of this package.
	base() *baseSharding
}

// Shard is one element returned by Sharding.Disassemble.
type Shard struct {
	Shape    shapes.Shape
	Sharding Sharding
}

// DynamicShard is one element returned by Sharding.DisassembleDynamic.
type DynamicShard struct {
	Shape    shapes.DynamicShape
	Sharding Sharding
}

// baseSharding holds the state common to all variants.
type baseSharding struct {
	devices    devices.List
	memoryKind devices.MemoryKind

	// singles are the single-device shardings of each device, returned by Disassemble.
	// Built at construction, so they are shared by all calls.
	singles []*SingleDeviceSharding
}

func (b *baseSharding) base() *baseSharding { return b }

// Devices implements Sharding.
func (b *baseSharding) Devices() devices.List { return b.devices }

// MemoryKind implements Sharding.
func (b *baseSharding) MemoryKind() devices.MemoryKind { return b.memoryKind }

// newBaseSharding validates the devices and creates the single-device sub-shardings.
func newBaseSharding(name string, list devices.List, kind devices.MemoryKind) (baseSharding, error) {
	if list.Len() == 0 {
		return baseSharding{}, invalidArgumentf("%s requires at least one device", name)
	}
	b := baseSharding{devices: list, memoryKind: kind}
	b.singles = make([]*SingleDeviceSharding, list.Len())
	for i, device := range list.All() {
		b.singles[i] = NewSingleDeviceSharding(device, kind)
	}
	return b, nil
}

// rebased returns a copy of the base with a different memory kind.
func (b *baseSharding) rebased(kind devices.MemoryKind) baseSharding {
	nb := baseSharding{devices: b.devices, memoryKind: kind}
	nb.singles = make([]*SingleDeviceSharding, len(b.singles))
	for i, device := range b.devices.All() {
		nb.singles[i] = NewSingleDeviceSharding(device, kind)
	}
	return nb
}

// sameAssignment returns whether other has the same devices and memory kind.
func (b *baseSharding) sameAssignment(other Sharding) bool {
	ob := other.base()
	return b.memoryKind == ob.memoryKind && b.devices.Equal(ob.devices)
}

// checkNumDevices is used by WithDevices.
func (b *baseSharding) checkNumDevices(name string, list devices.List) error {
	if list.Len() != b.devices.Len() {
		return invalidArgumentf("%s.WithDevices(): new device list must have %d devices, got %d",
			name, b.devices.Len(), list.Len())
	}
	return nil
}

// shards pairs each shape with the single-device sharding of the corresponding device.
func (b *baseSharding) shards(shardShapes []shapes.Shape) []Shard {
	result := make([]Shard, len(shardShapes))
	for i, shape := range shardShapes {
		result[i] = Shard{Shape: shape.Clone(), Sharding: b.singles[i]}
	}
	return result
}

// dynamicShards pairs each dynamic shape with the single-device sharding of the corresponding device.
func (b *baseSharding) dynamicShards(shardShapes []shapes.DynamicShape) []DynamicShard {
	result := make([]DynamicShard, len(shardShapes))
	for i, shape := range shardShapes {
		result[i] = DynamicShard{Shape: shape.Clone(), Sharding: b.singles[i]}
	}
	return result
}

func (b *baseSharding) describeAssignment() string {
	return fmt.Sprintf("devices: %s, memory_kind: %s", b.devices, b.memoryKind)
}
