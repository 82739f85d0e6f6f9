package halgpu

import (
	"errors"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoHALDevice is returned by FromProvider when the provider does not
// expose a HAL device and queue.
var ErrNoHALDevice = errors.New("halgpu: provider does not expose a HAL device")

// halProvider is implemented by providers that hand out HAL objects next
// to their WebGPU ones.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider returns a Device sharing the device and queue of a host
// application. The provider must either implement HalDevice() any and
// HalQueue() any, or return HAL objects from Device and Queue.
func FromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	var dev, queue any = p.Device(), p.Queue()
	if hp, ok := p.(halProvider); ok {
		dev, queue = hp.HalDevice(), hp.HalQueue()
	}
	hd, ok := dev.(hal.Device)
	if !ok || hd == nil {
		return nil, ErrNoHALDevice
	}
	hq, ok := queue.(hal.Queue)
	if !ok || hq == nil {
		return nil, ErrNoHALDevice
	}

	info := p.AdapterInfo()
	slogger().Info("halgpu: using provider device", "adapter", info.Name, "type", info.Type)
	return New(hd, hq, opts...), nil
}
