//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package webgpu

import (
	internalwebgpu "github.com/born-ml/mdarray/internal/device/webgpu"
)

// Backend is a device.Backend on a WebGPU adapter.
type Backend = internalwebgpu.Backend

// New opens the default high-performance adapter. capacity bounds the bytes
// handed out; 0 leaves it to the adapter.
func New(capacity int) (*Backend, error) { return internalwebgpu.New(capacity) }

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() bool { return internalwebgpu.IsAvailable() }
