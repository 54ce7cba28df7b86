package camera

import (
	"context"
	"errors"
	"fmt"

	"github.com/cjeanneret/GoLapse/internal/config"
	"github.com/cjeanneret/GoLapse/internal/hw/gpio"
)

var (
	// ErrNotFound is returned when no capture device can be initialized.
	ErrNotFound = errors.New("camera not found")
	// ErrCapture is returned when a single capture fails.
	ErrCapture = errors.New("capture failed")
)

// Frame is the artifact produced by one capture. Ext includes the dot.
type Frame struct {
	Data []byte
	Ext  string
}

// Device is the capture capability used by the session loop. It represents
// an abstract camera, regardless of how it is controlled (USB/PTP, GPIO
// remote connector, ...). Close releases the device.
type Device interface {
	Capture(ctx context.Context) (Frame, error)
	Close() error
}

// Open initializes the device selected by cfg.Camera.Type.
func Open(ctx context.Context, cfg *config.Config) (Device, error) {
	switch cfg.Camera.Type {
	case config.CameraGPhoto2:
		cam, err := OpenGPhoto2(ctx, cfg.Camera.GPhoto2Path)
		if err != nil {
			return nil, err
		}
		return cam, nil
	case config.CameraNikonD90GPIO:
		drv, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		cam, err := NewNikonD90GPIO(drv, cfg.Camera.FocusPin, cfg.Camera.ShutterPin, cfg.FocusDelay(), cfg.ShutterDelay())
		if err != nil {
			return nil, err
		}
		return cam, nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}
