package scull

import (
	"context"
	"errors"
	"fmt"

	"github.com/containerd/log"
)

// DefaultDevices is the number of devices a [Registry] builds by default.
const DefaultDevices = 4

// Registry is a fixed set of independent devices addressed by minor number.
//
// Devices are built up front by [NewRegistry] and torn down together by
// [Registry.Close]; nothing is registered or removed in between. The devices
// share the allocator from the options, so a [Heap] limit caps the set as a
// whole.
type Registry struct {
	devices []*Device
}

// NewRegistry builds count devices named "<name>0".."<name>N-1" from opts,
// where name is opts.Name or "scull". A count of 0 means [DefaultDevices].
func NewRegistry(ctx context.Context, count int, opts Options) (*Registry, error) {
	if count == 0 {
		count = DefaultDevices
	}

	if count < 0 || count > maxDevices {
		return nil, fmt.Errorf("device count must be in [1, %d], got %d: %w", maxDevices, count, ErrInvalidInput)
	}

	opts = opts.withDefaults()
	base := opts.Name

	r := &Registry{devices: make([]*Device, 0, count)}

	for minor := range count {
		devOpts := opts
		devOpts.Name = fmt.Sprintf("%s%d", base, minor)

		dev, err := New(devOpts)
		if err != nil {
			return nil, err
		}

		r.devices = append(r.devices, dev)

		log.G(ctx).WithFields(log.Fields{
			"device":  dev.name,
			"minor":   minor,
			"quantum": opts.Quantum,
			"qset":    opts.QSet,
		}).Info("scull: initialized device")
	}

	return r, nil
}

// Len returns the number of devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

// Device returns the device with the given minor number.
func (r *Registry) Device(minor int) (*Device, error) {
	if minor < 0 || minor >= len(r.devices) {
		return nil, fmt.Errorf("minor %d: %w", minor, ErrNoDevice)
	}

	return r.devices[minor], nil
}

// Devices returns all devices in minor order.
func (r *Registry) Devices() []*Device {
	return append([]*Device(nil), r.devices...)
}

// Close closes every device, trimming its storage. Devices that are
// already closed are skipped. Other errors are joined and returned after
// every device has been attempted.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error

	for _, dev := range r.devices {
		err := dev.Close(ctx)
		if err != nil && !errors.Is(err, ErrClosed) {
			errs = append(errs, err)

			continue
		}

		log.G(ctx).WithField("device", dev.name).Info("scull: removed device")
	}

	return errors.Join(errs...)
}
