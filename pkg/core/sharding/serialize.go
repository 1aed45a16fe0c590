// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// encMode uses CBOR Core Deterministic Encoding: equal shardings always serialize to identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sharding: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("sharding: CBOR decoder initialization failed: " + err.Error())
	}
}

// serializedSharding is the envelope common to all variants. The variant-specific state goes in Payload.
type serializedSharding struct {
	Kind       string          `cbor:"kind"`
	Devices    []int           `cbor:"devices"`
	MemoryKind string          `cbor:"memory_kind,omitempty"`
	Payload    cbor.RawMessage `cbor:"payload,omitempty"`
}

type concretePayload struct {
	Shape              *shapes.Shape         `cbor:"shape,omitempty"`
	ShardShapes        []shapes.Shape        `cbor:"shard_shapes,omitempty"`
	DynamicShape       *shapes.DynamicShape  `cbor:"dynamic_shape,omitempty"`
	ShardDynamicShapes []shapes.DynamicShape `cbor:"shard_dynamic_shapes,omitempty"`
}

type concreteEvenPayload struct {
	Shape      shapes.Shape `cbor:"shape"`
	ShardShape shapes.Shape `cbor:"shard_shape"`
}

type shardingParamPayload struct {
	DimShards   []int `cbor:"dim_shards"`
	Permutation []int `cbor:"permutation"`
	AxisSizes   []int `cbor:"axis_sizes"`
}

// Serialize encodes the sharding into an opaque payload that can be transmitted to another process and decoded
// with Deserialize. Devices are encoded by their ids.
func Serialize(s Sharding) ([]byte, error) {
	b := s.base()
	env := serializedSharding{
		Kind:       s.Kind().String(),
		MemoryKind: string(b.memoryKind),
	}
	for _, id := range b.devices.IDs() {
		env.Devices = append(env.Devices, int(id))
	}
	var payload any
	switch v := s.(type) {
	case *SingleDeviceSharding, *OpaqueSharding:
		// No variant-specific state.
	case *ConcreteSharding:
		p := concretePayload{}
		if v.static != nil {
			p.Shape = &v.static.shape
			p.ShardShapes = v.static.shardShapes
		} else {
			p.DynamicShape = &v.dynamic.shape
			p.ShardDynamicShapes = v.dynamic.shardShapes
		}
		payload = p
	case *ConcreteEvenSharding:
		payload = concreteEvenPayload{Shape: v.shape, ShardShape: v.shardShape}
	case *ShardingParamSharding:
		payload = shardingParamPayload{
			DimShards:   v.param.DimShards,
			Permutation: v.param.MinorToMajor.Permutation,
			AxisSizes:   v.param.MinorToMajor.AxisSizes,
		}
	default:
		return nil, errors.Errorf("Serialize(): unknown sharding type %T", s)
	}
	if payload != nil {
		var err error
		env.Payload, err = encMode.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to serialize %s", s)
		}
	}
	data, err := encMode.Marshal(env)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to serialize %s", s)
	}
	return data, nil
}

// DeserializeOptions configures Deserialize.
type DeserializeOptions struct {
	// LookupDevice maps a serialized device id back to the Device. If nil, the logical devices.ID is used.
	LookupDevice func(id devices.ID) (devices.Device, error)
}

// Deserialize decodes a sharding encoded by Serialize.
//
// The decoded state goes through the same validation as the constructors, so a malformed payload fails
// with ErrInvalidArgument.
func Deserialize(data []byte, opts DeserializeOptions) (Sharding, error) {
	var env serializedSharding
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, invalidArgumentf("failed to decode sharding: %v", err)
	}
	kind, err := KindString(env.Kind)
	if err != nil {
		return nil, invalidArgumentf("failed to decode sharding: %v", err)
	}
	if kind == InvalidKind {
		return nil, invalidArgumentf("failed to decode sharding: %q is not the kind of a sharding", env.Kind)
	}
	deviceList := make([]devices.Device, len(env.Devices))
	for i, id := range env.Devices {
		if opts.LookupDevice == nil {
			deviceList[i] = devices.ID(id)
			continue
		}
		deviceList[i], err = opts.LookupDevice(devices.ID(id))
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to deserialize %s: device #%d", kind, id)
		}
		if deviceList[i] == nil {
			return nil, invalidArgumentf("failed to deserialize %s: device #%d not found", kind, id)
		}
	}
	list := devices.NewList(deviceList...)
	memoryKind := devices.MemoryKind(env.MemoryKind)

	decodePayload := func(payload any) error {
		if err := decMode.Unmarshal(env.Payload, payload); err != nil {
			return invalidArgumentf("failed to decode %s payload: %v", kind, err)
		}
		return nil
	}
	var s Sharding
	switch kind {
	case KindSingleDevice:
		if list.Len() != 1 {
			return nil, invalidArgumentf("SingleDeviceSharding requires exactly one device, got %d", list.Len())
		}
		s = NewSingleDeviceSharding(list.At(0), memoryKind)
	case KindOpaque:
		s, err = asSharding(NewOpaqueSharding(list, memoryKind))
	case KindConcrete:
		var p concretePayload
		if err = decodePayload(&p); err != nil {
			return nil, err
		}
		switch {
		case p.Shape != nil:
			s, err = asSharding(NewConcreteSharding(list, memoryKind, *p.Shape, p.ShardShapes))
		case p.DynamicShape != nil:
			s, err = asSharding(NewDynamicConcreteSharding(list, memoryKind, *p.DynamicShape, p.ShardDynamicShapes))
		default:
			err = invalidArgumentf("ConcreteSharding payload has neither a static nor a dynamic shape")
		}
	case KindConcreteEven:
		var p concreteEvenPayload
		if err = decodePayload(&p); err != nil {
			return nil, err
		}
		s, err = asSharding(NewConcreteEvenSharding(list, memoryKind, p.Shape, p.ShardShape))
	case KindShardingParam:
		var p shardingParamPayload
		if err = decodePayload(&p); err != nil {
			return nil, err
		}
		param := ShardingParam{
			DimShards:    p.DimShards,
			MinorToMajor: MinorToMajor{Permutation: p.Permutation, AxisSizes: p.AxisSizes},
		}
		s, err = asSharding(NewShardingParamSharding(param, list, memoryKind))
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to deserialize sharding")
	}
	if klog.V(2).Enabled() {
		klog.Infof("deserialized %s", s)
	}
	return s, nil
}

// asSharding converts the result of a constructor, making sure a failure returns a nil interface.
func asSharding[S Sharding](s S, err error) (Sharding, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) of a serialized sharding, for debugging.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
