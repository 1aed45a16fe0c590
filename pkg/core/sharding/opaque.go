// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding

import (
	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/shapes"
)

// OpaqueSharding only associates an array with a list of devices and a memory kind.
//
// It doesn't define any relationship between the global shape and the shards, so every shape query
// fails with ErrUnsupported: callers must not assume any partitioning.
type OpaqueSharding struct {
	baseSharding
}

var _ Sharding = (*OpaqueSharding)(nil)

// NewOpaqueSharding creates an OpaqueSharding over the given devices.
func NewOpaqueSharding(list devices.List, kind devices.MemoryKind) (*OpaqueSharding, error) {
	base, err := newBaseSharding("OpaqueSharding", list, kind)
	if err != nil {
		return nil, err
	}
	return &OpaqueSharding{baseSharding: base}, nil
}

// Kind implements Sharding.
func (s *OpaqueSharding) Kind() Kind { return KindOpaque }

// IsFullyReplicated implements Sharding. It's always false, since nothing is known about the shards.
func (s *OpaqueSharding) IsFullyReplicated() bool { return false }

// ShardShape implements Sharding. It always fails with ErrUnsupported.
func (s *OpaqueSharding) ShardShape(shape shapes.Shape) (shapes.Shape, error) {
	return shapes.Shape{}, unsupportedf("OpaqueSharding does not have shard shape information (shape=%s)", shape)
}

// Disassemble implements Sharding. It always fails with ErrUnsupported.
func (s *OpaqueSharding) Disassemble(shape shapes.Shape) ([]Shard, error) {
	return nil, unsupportedf("OpaqueSharding does not have shard shape information (shape=%s)", shape)
}

// DisassembleDynamic implements Sharding. It always fails with ErrUnsupported.
func (s *OpaqueSharding) DisassembleDynamic(shape shapes.DynamicShape) ([]DynamicShard, error) {
	return nil, unsupportedf("OpaqueSharding does not have shard shape information (dynamic shape=%s)", shape)
}

// IndexDomains implements Sharding. It always fails with ErrUnsupported.
func (s *OpaqueSharding) IndexDomains(shape shapes.Shape) ([]shapes.IndexDomain, error) {
	return nil, unsupportedf("OpaqueSharding does not have index domain information (shape=%s)", shape)
}

// WithDevices implements Sharding.
func (s *OpaqueSharding) WithDevices(list devices.List) (Sharding, error) {
	if err := s.checkNumDevices("OpaqueSharding", list); err != nil {
		return nil, err
	}
	base, err := newBaseSharding("OpaqueSharding", list, s.memoryKind)
	if err != nil {
		return nil, err
	}
	return &OpaqueSharding{baseSharding: base}, nil
}

// WithMemoryKind implements Sharding.
func (s *OpaqueSharding) WithMemoryKind(kind devices.MemoryKind) Sharding {
	return &OpaqueSharding{baseSharding: s.rebased(kind)}
}

// Equal implements Sharding.
func (s *OpaqueSharding) Equal(other Sharding) bool {
	_, ok := other.(*OpaqueSharding)
	return ok && s.sameAssignment(other)
}

// String implements Sharding.
func (s *OpaqueSharding) String() string {
	return "OpaqueSharding(" + s.describeAssignment() + ")"
}
