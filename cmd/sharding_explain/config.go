// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/distributed"
	"github.com/gomlx/sharding/pkg/core/shapes"
	"github.com/gomlx/sharding/pkg/core/sharding"
	"github.com/gomlx/sharding/pkg/support/xslices"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes the sharding to explain. Which fields are used depends on Kind:
//
//   - "single": Devices (one device, default 0).
//   - "opaque": Devices or NumDevices.
//   - "concrete": ShardShapes, one per device.
//   - "concrete_even": ShardShape, and Devices or NumDevices.
//   - "param": DimShards, Permutation and AxisSizes.
//   - "mesh": Mesh and Spec.
//
// Shape (or Axes) and DType describe the global array for all kinds.
type Config struct {
	Kind       string `yaml:"kind" toml:"kind"`
	DType      string `yaml:"dtype" toml:"dtype"`
	Shape      []int  `yaml:"shape" toml:"shape"`
	MemoryKind string `yaml:"memory_kind" toml:"memory_kind"`

	// Axes describe a global array with dynamic axes, used instead of Shape, e.g. ["batch<=16", "512"].
	// The shape explained is resolved with Bindings.
	Axes     []string            `yaml:"axes" toml:"axes"`
	Bindings shapes.AxisBindings `yaml:"bindings" toml:"bindings"`

	// Devices are the device ids. If empty, devices 0...NumDevices-1 are used.
	Devices    []int `yaml:"devices" toml:"devices"`
	NumDevices int   `yaml:"num_devices" toml:"num_devices"`

	ShardShape  []int   `yaml:"shard_shape" toml:"shard_shape"`
	ShardShapes [][]int `yaml:"shard_shapes" toml:"shard_shapes"`

	DimShards   []int `yaml:"dim_shards" toml:"dim_shards"`
	Permutation []int `yaml:"permutation" toml:"permutation"`
	AxisSizes   []int `yaml:"axis_sizes" toml:"axis_sizes"`

	Mesh *MeshConfig `yaml:"mesh" toml:"mesh"`

	// Spec lists, for each axis of the array, the mesh axes it is sharded over. Empty means replicated.
	Spec [][]string `yaml:"spec" toml:"spec"`
}

// MeshConfig describes a distributed.DeviceMesh.
type MeshConfig struct {
	AxesSizes        []int    `yaml:"axes_sizes" toml:"axes_sizes"`
	AxesNames        []string `yaml:"axes_names" toml:"axes_names"`
	DeviceAssignment []int    `yaml:"device_assignment" toml:"device_assignment"`
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sharding description")
	}
	cfg, err := ParseConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.WithMessagef(err, "in %q", path)
	}
	return cfg, nil
}

// ParseConfig parses the description in the given format, given by the file extension.
func ParseConfig(data []byte, ext string) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse YAML")
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse TOML")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Errorf("unknown TOML keys %v", undecoded)
		}
	default:
		return nil, errors.Errorf("unknown sharding description format %q, use .yaml, .yml or .toml", ext)
	}
	return cfg, nil
}

// BindAxes adds bindings of dynamic axes to the ones of the configuration. It fails if they conflict.
func (c *Config) BindAxes(bindings shapes.AxisBindings) error {
	merged, err := c.Bindings.Merge(bindings)
	if err != nil {
		return errors.WithMessage(err, "bindings given don't match the ones in the configuration")
	}
	c.Bindings = merged
	return nil
}

// DynamicShape returns the global dynamic shape given by Axes, and false if the array is described by Shape.
func (c *Config) DynamicShape() (shapes.DynamicShape, bool, error) {
	if len(c.Axes) == 0 {
		return shapes.DynamicShape{}, false, nil
	}
	if len(c.Shape) > 0 {
		return shapes.DynamicShape{}, true, errors.New("only one of shape or axes can be given")
	}
	axes := make([]shapes.DynamicAxis, len(c.Axes))
	for i, axisStr := range c.Axes {
		axis, err := shapes.ParseDynamicAxis(axisStr)
		if err != nil {
			return shapes.DynamicShape{}, true, err
		}
		axes[i] = axis
	}
	dynamicShape, err := shapes.NewDynamic(axes...)
	return dynamicShape, true, err
}

// Array returns the global shape and dtype of the array. Dynamic axes are resolved with the bindings.
func (c *Config) Array() (shapes.Shape, dtypes.DType, error) {
	var shape shapes.Shape
	dynamicShape, isDynamic, err := c.DynamicShape()
	if err == nil {
		if isDynamic {
			shape, err = dynamicShape.Resolve(c.Bindings)
		} else {
			shape, err = shapes.New(c.Shape...)
		}
	}
	if err != nil {
		return shapes.Shape{}, dtypes.InvalidDType, err
	}
	dtypeName := c.DType
	if dtypeName == "" {
		dtypeName = "Float32"
	}
	dtype, err := dtypes.DTypeString(dtypeName)
	if err != nil {
		return shapes.Shape{}, dtypes.InvalidDType, errors.Wrapf(err, "invalid dtype %q", c.DType)
	}
	return shape, dtype, nil
}

// deviceList returns the configured devices, or the first numDevices logical devices if none was given.
func (c *Config) deviceList(numDevices int) (devices.List, error) {
	if len(c.Devices) == 0 {
		if numDevices <= 0 {
			return devices.List{}, errors.Errorf("sharding kind %q requires devices or num_devices", c.Kind)
		}
		return devices.Range(numDevices), nil
	}
	if numDevices > 0 && len(c.Devices) != numDevices {
		return devices.List{}, errors.Errorf("sharding kind %q requires %d devices, got %d",
			c.Kind, numDevices, len(c.Devices))
	}
	return devices.FromIDs(xslices.Map(c.Devices, func(id int) devices.ID { return devices.ID(id) })...), nil
}

// Build creates the described sharding.
func (c *Config) Build() (sharding.Sharding, error) {
	memoryKind := devices.MemoryKind(c.MemoryKind)
	shape, _, err := c.Array()
	if err != nil {
		return nil, err
	}
	switch c.Kind {
	case "single":
		list, err := c.deviceList(1)
		if err != nil {
			return nil, err
		}
		return sharding.NewSingleDeviceSharding(list.At(0), memoryKind), nil

	case "opaque":
		list, err := c.deviceList(c.NumDevices)
		if err != nil {
			return nil, err
		}
		return built(sharding.NewOpaqueSharding(list, memoryKind))

	case "concrete":
		var shardShapes []shapes.Shape
		err := exceptions.TryCatch[error](func() {
			shardShapes = xslices.Map(c.ShardShapes, func(dims []int) shapes.Shape { return shapes.Make(dims...) })
		})
		if err != nil {
			return nil, errors.WithMessage(err, "invalid shard_shapes")
		}
		list, err := c.deviceList(len(shardShapes))
		if err != nil {
			return nil, err
		}
		return built(sharding.NewConcreteSharding(list, memoryKind, shape, shardShapes))

	case "concrete_even":
		shardShape, err := shapes.New(c.ShardShape...)
		if err != nil {
			return nil, errors.WithMessage(err, "invalid shard_shape")
		}
		list, err := c.deviceList(c.NumDevices)
		if err != nil {
			return nil, err
		}
		return built(sharding.NewConcreteEvenSharding(list, memoryKind, shape, shardShape))

	case "param":
		param := sharding.ShardingParam{
			DimShards:    c.DimShards,
			MinorToMajor: sharding.MinorToMajor{Permutation: c.Permutation, AxisSizes: c.AxisSizes},
		}
		if err := param.Verify(); err != nil {
			return nil, err
		}
		list, err := c.deviceList(param.NumDevices())
		if err != nil {
			return nil, err
		}
		return built(sharding.NewShardingParamSharding(param, list, memoryKind))

	case "mesh":
		if c.Mesh == nil {
			return nil, errors.New("sharding kind \"mesh\" requires a mesh")
		}
		mesh, err := distributed.NewDeviceMesh(c.Mesh.AxesSizes, c.Mesh.AxesNames)
		if err != nil {
			return nil, err
		}
		if err := mesh.SetLogicalDeviceAssignment(c.Mesh.DeviceAssignment...); err != nil {
			return nil, err
		}
		axes := xslices.Map(c.Spec, func(meshAxes []string) distributed.AxisSpec { return meshAxes })
		spec, err := distributed.NewShardingSpec(mesh, axes...)
		if err != nil {
			return nil, err
		}
		list, err := c.deviceList(mesh.NumDevices())
		if err != nil {
			return nil, err
		}
		return built(spec.NewSharding(list, memoryKind, shape.Rank()))

	default:
		return nil, errors.Errorf("unknown sharding kind %q, valid kinds are single, opaque, concrete, "+
			"concrete_even, param and mesh", c.Kind)
	}
}

// built returns a nil Sharding on errors.
func built[S sharding.Sharding](s S, err error) (sharding.Sharding, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
