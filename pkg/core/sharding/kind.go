// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding

// Kind enumerates the Sharding variants.
//
// Its names, returned by Kind.String and parsed by KindString, are the names of the variant types.
// They are used by Serialize, so they must not change.
type Kind int

const (
	// InvalidKind is the zero value, it's not the kind of any sharding.
	InvalidKind Kind = iota
	KindSingleDevice  // SingleDeviceSharding
	KindOpaque        // OpaqueSharding
	KindConcrete      // ConcreteSharding
	KindConcreteEven  // ConcreteEvenSharding
	KindShardingParam // ShardingParamSharding
)

//go:generate go tool enumer -type=Kind -trimprefix=Kind -linecomment -output=gen_kind_enumer.go kind.go
