// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device exposes the accelerator capability interface used by arrays.
//
// A Backend allocates, frees and copies opaque device memory. The module
// ships an Emulated backend that keeps "device" memory in host RAM (useful in
// tests and on machines without an accelerator), the Unavailable backend that
// fails every device operation, and a WebGPU backend on Windows (import
// github.com/born-ml/mdarray/device/webgpu).
//
// Example:
//
//	gpu, err := device.Open("emulated", 1<<30)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	device.SetDefault(gpu)
package device

import (
	"github.com/born-ml/mdarray/internal/device"
)

// Backend is the device capability interface.
type Backend = device.Backend

// Ptr is an opaque device memory handle.
type Ptr = device.Ptr

// Nil is the null handle.
const Nil = device.Nil

// Opener creates a backend with a capacity in bytes (0 = unbounded).
type Opener = device.Opener

// Emulated keeps device memory in host RAM.
type Emulated = device.Emulated

// Unavailable fails every operation with ErrNoDevice.
type Unavailable = device.Unavailable

// Errors.
var (
	ErrNoDevice       = device.ErrNoDevice
	ErrInvalidPointer = device.ErrInvalidPointer
	ErrOutOfMemory    = device.ErrOutOfMemory
)

// NewEmulated returns an emulated device of the given capacity (0 = unbounded).
func NewEmulated(capacity int) *Emulated { return device.NewEmulated(capacity) }

// Default returns the backend used by arrays that do not name one.
func Default() Backend { return device.Default() }

// SetDefault replaces the default backend and returns the previous one.
func SetDefault(b Backend) Backend { return device.SetDefault(b) }

// Register makes a backend available to Open under name.
func Register(name string, open Opener) { device.Register(name, open) }

// Open creates the backend registered under name.
func Open(name string, capacity int) (Backend, error) { return device.Open(name, capacity) }
