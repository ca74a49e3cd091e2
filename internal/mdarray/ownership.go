package mdarray

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/mdarray/internal/logging"
	"github.com/born-ml/mdarray/internal/memory"
)

// Ownership describes what an array owns.
type Ownership int

// Ownership states.
const (
	NotOwned Ownership = iota
	OwnedHost
	OwnedDevice
	OwnedBoth
)

func (o Ownership) String() string {
	switch o {
	case NotOwned:
		return "not owned"
	case OwnedHost:
		return "owned host"
	case OwnedDevice:
		return "owned device"
	case OwnedBoth:
		return "owned host+device"
	default:
		return fmt.Sprintf("ownership(%d)", int(o))
	}
}

// noCopy makes `go vet` (copylocks) reject copies of structs that embed it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// resources holds the buffers an array references. It is the argument of the
// array's GC cleanup, so it must never point back at the array.
type resources struct {
	host   *memory.Buffer
	device *memory.Buffer
	view   bool
	label  string
}

func (r *resources) buffer(space Space) *memory.Buffer {
	if space == Host {
		return r.host
	}
	return r.device
}

func (r *resources) set(space Space, b *memory.Buffer) {
	if space == Host {
		r.host = b
	} else {
		r.device = b
	}
}

func (r *resources) spaces() Space {
	var s Space
	if r.host != nil {
		s |= Host
	}
	if r.device != nil {
		s |= Device
	}
	return s
}

func (r *resources) ownership() Ownership {
	if r.view {
		return NotOwned
	}
	switch r.spaces() {
	case Host:
		return OwnedHost
	case Device:
		return OwnedDevice
	case HostDevice:
		return OwnedBoth
	default:
		return NotOwned
	}
}

// release frees owned buffers and detaches borrowed ones. The view flag and
// label survive.
func (r *resources) release() {
	if !r.view {
		if r.host != nil {
			r.host.Release()
		}
		if r.device != nil {
			r.device.Release()
		}
	}
	*r = resources{view: r.view, label: r.label}
}

// takeFrom moves every reference out of src, leaving it empty.
func (r *resources) takeFrom(src *resources) {
	*r = *src
	*src = resources{}
}

// reportLeaked is the GC cleanup of an owning array that was never released.
// Slices and device handles taken from the array may still be in use, so the
// buffers stay allocated and tracked; the leak is only logged.
func reportLeaked(r *resources) {
	for _, b := range []*memory.Buffer{r.host, r.device} {
		if b == nil || r.view {
			continue
		}
		logging.L().WithFields(logrus.Fields{
			"label": r.label,
			"space": b.Space(),
			"bytes": b.Size(),
		}).Warn("array leaked without Release")
	}
}
