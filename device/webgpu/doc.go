// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU device backend (Windows only).
//
// Importing it registers the "webgpu" backend with device.Open.
//
// Example:
//
//	gpu, err := webgpu.New(0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Release()
//	a, err := mdarray.New[float32, mdarray.R2]([]int{1024, 1024},
//	    mdarray.WithSpace(mdarray.HostDevice), mdarray.WithBackend(gpu))
package webgpu
