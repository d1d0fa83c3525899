package analysis

import (
	"fmt"
	"image"
)

// Device selects where backends run. Resolved once at configuration
// time; backends receive it at construction.
type Device int

const (
	// DeviceCPU runs inference on the CPU.
	DeviceCPU Device = iota

	// DeviceCUDA runs inference on a CUDA accelerator.
	DeviceCUDA
)

// String returns the device name.
func (d Device) String() string {
	switch d {
	case DeviceCUDA:
		return "cuda"
	default:
		return "cpu"
	}
}

// ParseDevice resolves a device name to a Device.
func ParseDevice(name string) (Device, error) {
	switch name {
	case "cpu", "":
		return DeviceCPU, nil
	case "cuda":
		return DeviceCUDA, nil
	default:
		return DeviceCPU, fmt.Errorf("%w: unknown device %q", ErrInvalidConfig, name)
	}
}

// Config holds the tunable parameters of an Analyzer.
type Config struct {
	// TargetSize is the detector input shape images are resized to.
	TargetSize image.Point

	// MaxBatchSize is the largest crop batch dispatched to the
	// embedding and attribute backends per call. Clamped at
	// construction to what the embedding backend declares.
	MaxBatchSize int

	// Threshold is the default detection confidence cutoff.
	Threshold float32

	// Device is where inference runs.
	Device Device
}

// DefaultConfig returns the recommended analyzer configuration.
func DefaultConfig() Config {
	return Config{
		TargetSize:   image.Pt(640, 640),
		MaxBatchSize: 1,
		Threshold:    0.6,
		Device:       DeviceCPU,
	}
}

// Validate checks the configuration for fatal setup errors.
func (c Config) Validate() error {
	if c.TargetSize.X <= 0 || c.TargetSize.Y <= 0 {
		return fmt.Errorf("%w: target size %dx%d", ErrInvalidConfig, c.TargetSize.X, c.TargetSize.Y)
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, c.MaxBatchSize)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold %f", ErrInvalidConfig, c.Threshold)
	}
	return nil
}
