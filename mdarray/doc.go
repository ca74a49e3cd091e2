// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mdarray provides dense N-dimensional arrays that live in host
// memory, accelerator memory, or both.
//
// # Overview
//
// An Array[T, R] is a column-major container of rank R (R1 through R6) with
// per-dimension lower bounds. It owns at most one buffer per memory space and
// never synchronizes them implicitly: the caller copies between host and
// device with Copy when it needs to.
//
// # Ownership
//
// Arrays are single-owner. Ownership moves with Move and Assign; contents are
// duplicated only by Clone and CopyFrom. Copying an owning Array by value is
// reported by go vet and panics on first use. Views (Wrap, View) own nothing
// and may be copied freely.
//
// Every buffer is accounted in a Tracker. The process-wide tracker reports
// the exact number of live bytes per memory space at any time, which makes
// leaks visible in tests:
//
//	before := mdarray.DefaultTracker().Allocated(mdarray.Host)
//	a := mdarray.MustNew[float64, mdarray.R2]([]int{100, 100})
//	a.Release()
//	// DefaultTracker().Allocated(Host) == before
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/mdarray/device"
//	    "github.com/born-ml/mdarray/mdarray"
//	)
//
//	func main() {
//	    gpu := device.NewEmulated(0)
//	    a, err := mdarray.New[float64, mdarray.R2]([]int{64, 64},
//	        mdarray.WithSpace(mdarray.HostDevice), mdarray.WithBackend(gpu))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer a.Release()
//
//	    a.Set(1, 0, 0)
//	    if err := a.Copy(mdarray.Host, mdarray.Device); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Bounds checking
//
// At, Set, Ptr and Offset validate indices only when built with the "bounds"
// tag (go test -tags bounds). Release builds index without checks.
package mdarray
