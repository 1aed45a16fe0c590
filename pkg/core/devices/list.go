// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package devices

import (
	"iter"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
)

// List is an ordered sequence of devices. Devices may be repeated.
//
// A List is immutable: it copies the devices given at construction and never exposes its internal slice,
// so it can be shared freely across shardings and goroutines.
type List struct {
	devices []Device
}

// NewList returns a List with the given devices, in order.
// It panics if any of the devices is nil.
func NewList(devices ...Device) List {
	for i, d := range devices {
		if d == nil {
			exceptions.Panicf("devices.NewList(): device #%d is nil", i)
		}
	}
	return List{devices: slices.Clone(devices)}
}

// Range returns a List with the logical devices 0, 1, ..., n-1.
func Range(n int) List {
	devices := make([]Device, n)
	for i := range devices {
		devices[i] = ID(i)
	}
	return List{devices: devices}
}

// FromIDs returns a List of the logical devices with the given ids.
func FromIDs(ids ...ID) List {
	devices := make([]Device, len(ids))
	for i, id := range ids {
		devices[i] = id
	}
	return List{devices: devices}
}

// Len returns the number of entries in the list.
func (l List) Len() int { return len(l.devices) }

// At returns the i-th device.
func (l List) At(i int) Device { return l.devices[i] }

// All iterates over the position and device of each entry.
func (l List) All() iter.Seq2[int, Device] {
	return func(yield func(int, Device) bool) {
		for i, d := range l.devices {
			if !yield(i, d) {
				return
			}
		}
	}
}

// Devices returns a copy of the devices in the list.
func (l List) Devices() []Device {
	return slices.Clone(l.devices)
}

// IDs returns the ids of the devices, in order.
func (l List) IDs() []ID {
	ids := make([]ID, len(l.devices))
	for i, d := range l.devices {
		ids[i] = d.ID()
	}
	return ids
}

// Contains returns whether a device with the given id is in the list.
func (l List) Contains(id ID) bool {
	return slices.ContainsFunc(l.devices, func(d Device) bool { return d.ID() == id })
}

// Equal returns whether both lists hold devices with the same ids, in the same order.
func (l List) Equal(other List) bool {
	return slices.EqualFunc(l.devices, other.devices, func(a, b Device) bool { return a.ID() == b.ID() })
}

// String implements fmt.Stringer.
func (l List) String() string {
	parts := make([]string, len(l.devices))
	for i, d := range l.devices {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
