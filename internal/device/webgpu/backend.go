//go:build windows

package webgpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/sirupsen/logrus"

	"github.com/born-ml/mdarray/internal/device"
	"github.com/born-ml/mdarray/internal/logging"
)

func init() {
	device.Register("webgpu", func(capacity int) (device.Backend, error) {
		b, err := New(capacity)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

// storageUsage is the usage of every array buffer.
const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

type allocation struct {
	buffer *wgpu.Buffer
	size   int    // requested size
	padded uint64 // size rounded up to copy alignment
}

// Backend implements device.Backend on a WebGPU device.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	name     string

	// Staging buffers for device-to-host reads.
	staging *BufferPool

	capacity int64
	mu       sync.Mutex
	next     device.Ptr
	used     int64
	buffers  map[device.Ptr]*allocation
}

// New creates a WebGPU backend. capacity bounds the bytes handed out; 0 means
// the adapter's own limits apply.
// Returns an error if WebGPU is not available or initialization fails.
func New(capacity int) (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: native library not available: %v: %w", r, device.ErrNoDevice)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}
	info := adapter.GetInfo()

	dev, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}
	queue := dev.GetQueue()
	if queue == nil {
		dev.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	b := &Backend{
		instance: instance,
		adapter:  adapter,
		device:   dev,
		queue:    queue,
		name:     fmt.Sprintf("webgpu (%s %s)", info.Name, info.VendorName),
		staging:  NewBufferPool(dev),
		capacity: int64(capacity),
		buffers:  make(map[device.Ptr]*allocation),
	}
	logging.L().WithField("adapter", b.name).Debug("webgpu device opened")
	return b, nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Name returns the backend name including the adapter.
func (b *Backend) Name() string { return b.name }

// Alloc creates a zero-initialized storage buffer of n bytes.
func (b *Backend) Alloc(n int) (device.Ptr, error) {
	padded := align(uint64(n))
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.capacity > 0 && b.used+int64(padded) > b.capacity {
		return device.Nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use",
			device.ErrOutOfMemory, n, b.used, b.capacity)
	}

	buf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: storageUsage,
		Size:  max(padded, 4),
	})
	if buf == nil {
		return device.Nil, fmt.Errorf("webgpu: create buffer of %d bytes failed", n)
	}
	b.next++
	b.buffers[b.next] = &allocation{buffer: buf, size: n, padded: padded}
	b.used += int64(padded)
	return b.next, nil
}

// Free destroys the buffer behind p.
func (b *Backend) Free(p device.Ptr) error {
	b.mu.Lock()
	a, ok := b.buffers[p]
	if ok {
		delete(b.buffers, p)
		b.used -= int64(a.padded)
	}
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %v", device.ErrInvalidPointer, p)
	}
	a.buffer.Release()
	return nil
}

func (b *Backend) lookup(p device.Ptr, off, n int) (*allocation, error) {
	b.mu.Lock()
	a, ok := b.buffers[p]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %v", device.ErrInvalidPointer, p)
	}
	if off < 0 || n < 0 || off+n > a.size {
		return nil, fmt.Errorf("%w: range [%d, %d) outside buffer of %d bytes", device.ErrInvalidPointer, off, off+n, a.size)
	}
	return a, nil
}

// CopyToDevice uploads src into the buffer behind dst at dstOff. Ranges that
// are not 4-byte aligned are widened and merged with the current contents.
func (b *Backend) CopyToDevice(dst device.Ptr, dstOff int, src []byte) error {
	a, err := b.lookup(dst, dstOff, len(src))
	if err != nil {
		return err
	}
	if len(src) == 0 {
		return nil
	}

	lo := uint64(dstOff) &^ 3
	hi := align(uint64(dstOff + len(src)))
	data := src
	if lo != uint64(dstOff) || hi != uint64(dstOff+len(src)) {
		cur, err := b.read(a.buffer, lo, hi-lo)
		if err != nil {
			return err
		}
		copy(cur[uint64(dstOff)-lo:], src)
		data = cur
	}

	upload := b.createBuffer(data, wgpu.BufferUsageCopySrc)
	defer upload.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(upload, 0, a.buffer, lo, hi-lo)
	b.queue.Submit(encoder.Finish(nil))
	return nil
}

// CopyToHost downloads len(dst) bytes from the buffer behind src at srcOff.
func (b *Backend) CopyToHost(dst []byte, src device.Ptr, srcOff int) error {
	a, err := b.lookup(src, srcOff, len(dst))
	if err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	lo := uint64(srcOff) &^ 3
	hi := align(uint64(srcOff + len(dst)))
	data, err := b.read(a.buffer, lo, hi-lo)
	if err != nil {
		return err
	}
	copy(dst, data[uint64(srcOff)-lo:])
	return nil
}

// createBuffer creates a GPU buffer initialized with data (length multiple of 4).
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), size), data)
	buffer.Unmap()
	return buffer
}

// read copies size bytes at off out of src through a pooled staging buffer.
func (b *Backend) read(src *wgpu.Buffer, off, size uint64) ([]byte, error) {
	usage := wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst
	staging, capacity := b.staging.Acquire(size, usage)
	defer b.staging.Release(staging, capacity, usage)

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, off, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		logging.L().WithFields(logrus.Fields{"bytes": size}).WithError(err).Error("webgpu staging map failed")
		return nil, fmt.Errorf("webgpu: map staging buffer: %w", err)
	}
	mappedPtr := staging.GetMappedRange(0, size)
	result := make([]byte, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(result, unsafe.Slice((*byte)(mappedPtr), size))
	staging.Unmap()
	return result, nil
}

// Used returns the bytes currently allocated, including alignment padding.
func (b *Backend) Used() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Release frees every remaining buffer and the device.
// Must be called when the backend is no longer needed.
func (b *Backend) Release() {
	b.mu.Lock()
	for p, a := range b.buffers {
		a.buffer.Release()
		delete(b.buffers, p)
	}
	b.used = 0
	b.mu.Unlock()

	b.staging.Clear()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// align rounds n up to the 4-byte copy alignment WebGPU requires.
func align(n uint64) uint64 { return (n + 3) &^ 3 }
