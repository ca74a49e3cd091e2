// Package webgpu provides a device.Backend on top of WebGPU via go-webgpu
// (zero-CGO bindings to wgpu-native). It is built on Windows only and
// registers itself under the name "webgpu" when imported.
//
// Device memory is a set of storage buffers addressed by opaque handles.
// Transfers go through mapped staging buffers and are complete when the
// copy call returns.
package webgpu
