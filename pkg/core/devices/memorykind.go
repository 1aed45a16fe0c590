// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package devices

// MemoryKind identifies a class of memory space of a device.
// Shardings carry and compare it, but don't interpret it.
//
// The zero value (DefaultMemory) means the device's default memory space.
type MemoryKind string

const (
	DefaultMemory      MemoryKind = ""
	DeviceMemory       MemoryKind = "device"
	PinnedHostMemory   MemoryKind = "pinned_host"
	UnpinnedHostMemory MemoryKind = "unpinned_host"
)

// IsDefault returns whether this is the unspecified default memory kind.
func (k MemoryKind) IsDefault() bool { return k == DefaultMemory }

// Canonicalize resolves DefaultMemory to DeviceMemory, the default memory space of accelerators.
func (k MemoryKind) Canonicalize() MemoryKind {
	if k.IsDefault() {
		return DeviceMemory
	}
	return k
}

// String implements fmt.Stringer.
func (k MemoryKind) String() string {
	if k.IsDefault() {
		return "(default)"
	}
	return string(k)
}
