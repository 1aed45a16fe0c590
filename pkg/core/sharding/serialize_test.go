// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding_test

import (
	"fmt"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/sharding"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialize(t *testing.T) {
	for _, s := range sampleShardings(t) {
		t.Run(s.Kind().String(), func(t *testing.T) {
			data := must.M1(sharding.Serialize(s))
			got := must.M1(sharding.Deserialize(data, sharding.DeserializeOptions{}))
			assert.Equal(t, s.Kind(), got.Kind())
			assert.True(t, s.Equal(got), "want %s, got %s", s, got)

			// Deterministic encoding.
			again := must.M1(sharding.Serialize(got))
			assert.Equal(t, data, again)

			diag := must.M1(sharding.Diagnose(data))
			assert.Contains(t, diag, fmt.Sprintf("%q", s.Kind().String()))
		})
	}
}

// namedDevice is a Device implementation other than devices.ID, as a runtime would provide.
type namedDevice struct {
	id   devices.ID
	name string
}

func (d namedDevice) ID() devices.ID  { return d.id }
func (d namedDevice) String() string { return d.name }

func TestDeserializeLookupDevice(t *testing.T) {
	s := must.M1(sharding.NewOpaqueSharding(devices.FromIDs(2, 3), devices.PinnedHostMemory))
	data := must.M1(sharding.Serialize(s))

	lookup := func(id devices.ID) (devices.Device, error) {
		if id == 3 {
			return namedDevice{id: id, name: "tpu:3"}, nil
		}
		return namedDevice{id: id, name: fmt.Sprintf("gpu:%d", id)}, nil
	}
	got := must.M1(sharding.Deserialize(data, sharding.DeserializeOptions{LookupDevice: lookup}))
	assert.True(t, s.Equal(got))
	assert.Equal(t, "[gpu:2, tpu:3]", got.Devices().String())

	errNotFound := errors.New("device not found")
	_, err := sharding.Deserialize(data, sharding.DeserializeOptions{
		LookupDevice: func(id devices.ID) (devices.Device, error) { return nil, errNotFound },
	})
	require.ErrorIs(t, err, errNotFound)

	_, err = sharding.Deserialize(data, sharding.DeserializeOptions{
		LookupDevice: func(id devices.ID) (devices.Device, error) { return nil, nil },
	})
	require.ErrorIs(t, err, sharding.ErrInvalidArgument)
}

func TestDeserializeMalformed(t *testing.T) {
	envelope := func(kind string, ids []int, payload any) []byte {
		m := map[string]any{"kind": kind, "devices": ids}
		if payload != nil {
			m["payload"] = cbor.RawMessage(must.M1(cbor.Marshal(payload)))
		}
		return must.M1(cbor.Marshal(m))
	}
	testCases := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte{0xff, 0x00, 0x13}},
		{"unknown kind", envelope("MagicSharding", []int{0}, nil)},
		{"single device without device", envelope("SingleDeviceSharding", []int{}, nil)},
		{"opaque without devices", envelope("OpaqueSharding", nil, nil)},
		{"param with too many devices", envelope("ShardingParamSharding", []int{0, 1, 2},
			map[string]any{"dim_shards": []int{2}, "permutation": []int{0}, "axis_sizes": []int{3}})},
		{"param with bad permutation", envelope("ShardingParamSharding", []int{0, 1},
			map[string]any{"dim_shards": []int{2}, "permutation": []int{1}, "axis_sizes": []int{2}})},
		{"concrete without shapes", envelope("ConcreteSharding", []int{0}, map[string]any{})},
		{"concrete even with wrong payload", envelope("ConcreteEvenSharding", []int{0}, "not a payload")},
		{"invalid kind", envelope("InvalidKind", []int{0}, nil)},
		{"concrete even with negative dimensions", envelope("ConcreteEvenSharding", []int{0, 1},
			map[string]any{"shape": map[string]any{"Dimensions": []int{-4}}, "shard_shape": map[string]any{"Dimensions": []int{2}}})},
		{"concrete with negative shard dimensions", envelope("ConcreteSharding", []int{0},
			map[string]any{"shape": map[string]any{"Dimensions": []int{4}}, "shard_shapes": []any{map[string]any{"Dimensions": []int{-4}}}})},
		{"param with overflowing tiles", envelope("ShardingParamSharding", []int{0},
			map[string]any{"dim_shards": []int{1<<32 + 1, 1<<32 - 1, 1<<32 + 1, 1<<32 - 1}, "permutation": []int{0}, "axis_sizes": []int{1}})},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := sharding.Deserialize(tc.data, sharding.DeserializeOptions{})
			require.ErrorIs(t, err, sharding.ErrInvalidArgument)
			assert.Nil(t, s)
		})
	}
}
