package gpu

// DeviceOption is a functional option used to configure a Device during construction.
type DeviceOption func(*device)

// WithLabel sets the debug label of the device.
func WithLabel(label string) DeviceOption {
	return func(d *device) {
		if label != "" {
			d.label = label
		}
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - DeviceOption: a function that sets the adapter preference
func WithForceFallbackAdapter(force bool) DeviceOption {
	return func(d *device) {
		d.forceFallback = force
	}
}
