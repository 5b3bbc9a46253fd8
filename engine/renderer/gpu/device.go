package gpu

import (
	bgp "github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// Device is a surfaceless WebGPU device used to upload skinning matrices.
type Device interface {
	// CreateStorageBuffer creates a buffer usable as a storage binding and as a write destination.
	//
	// Parameters:
	//   - label: the debug label of the buffer
	//   - size: the buffer size in bytes
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: error if the device rejects the buffer
	CreateStorageBuffer(label string, size uint64) (*wgpu.Buffer, error)

	// Writer returns a BufferWriter submitting through the device queue.
	//
	// Returns:
	//   - bgp.BufferWriter: the queue writer
	Writer() bgp.BufferWriter

	// Release releases the queue, device, adapter and instance.
	Release()
}

type device struct {
	label         string
	forceFallback bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
}

var _ Device = &device{}

// NewHeadlessDevice requests an adapter and device without a surface.
//
// Parameters:
//   - options: variadic list of DeviceOption functions to configure the device
//
// Returns:
//   - Device: the device
//   - error: error if no adapter or device is available
func NewHeadlessDevice(options ...DeviceOption) (Device, error) {
	d := &device{label: "Skinning Device"}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
	})
	if err != nil {
		d.Release()
		return nil, errors.Wrap(err, "request adapter")
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{Label: d.label})
	if err != nil {
		d.Release()
		return nil, errors.Wrap(err, "request device")
	}
	d.device = dev
	d.queue = dev.GetQueue()

	return d, nil
}

func (d *device) CreateStorageBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create buffer %s", label)
	}
	return buf, nil
}

func (d *device) Writer() bgp.BufferWriter {
	return bgp.NewQueueWriter(d.queue)
}

func (d *device) Release() {
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
