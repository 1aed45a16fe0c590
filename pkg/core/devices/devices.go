// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package devices defines the device handles consumed by shardings:
//
//   - Device: the identity of one device, owned by the runtime that discovered it.
//   - List: an immutable, ordered sequence of devices. Order is significant (it defines which shard goes
//     where) and a device may appear more than once.
//   - MemoryKind: a tag identifying a memory space of the devices (e.g., device memory vs pinned host memory).
package devices

import (
	"fmt"
)

// ID is the logical number of a device. It implements Device itself, so logical devices can be used
// directly where no runtime device object is available.
type ID int

// Device is the identity of a device. Implementations are owned by the runtime layer, which guarantees
// they outlive any List referencing them.
type Device interface {
	// ID returns the device's logical number. It's what gets serialized.
	ID() ID

	fmt.Stringer
}

// ID implements Device.
func (id ID) ID() ID { return id }

// String implements Device.
func (id ID) String() string {
	return fmt.Sprintf("device#%d", int(id))
}
