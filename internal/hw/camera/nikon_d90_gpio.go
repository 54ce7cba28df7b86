package camera

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/GoLapse/internal/debug"
	"github.com/cjeanneret/GoLapse/internal/hw/gpio"
	"gopkg.in/yaml.v3"
)

// NikonD90GPIO triggers a Nikon D90 through the 3-pin remote connector:
// - GND: connected to Raspberry Pi ground
// - FOCUS: autofocus (activate by setting to LOW)
// - SHUTTER: trigger (activate by setting to LOW)
//
// The image stays on the camera card; each capture yields a YAML trigger
// record instead so the session still writes one artifact per cycle.
type NikonD90GPIO struct {
	gpio         gpio.Driver
	focusPin     int
	shutterPin   int
	focusDelay   time.Duration // time for autofocus
	shutterDelay time.Duration // shutter hold time
	now          func() time.Time
	closed       bool
}

// TriggerRecord is the content of the artifact written for a GPIO capture.
type TriggerRecord struct {
	Camera         string    `yaml:"camera"`
	TriggeredAt    time.Time `yaml:"triggered_at"`
	FocusPin       int       `yaml:"focus_pin"`
	ShutterPin     int       `yaml:"shutter_pin"`
	FocusDelayMs   int64     `yaml:"focus_delay_ms"`
	ShutterDelayMs int64     `yaml:"shutter_delay_ms"`
}

// NewNikonD90GPIO configures both lines as outputs, idle HIGH.
func NewNikonD90GPIO(g gpio.Driver, focusPin, shutterPin int, focusDelay, shutterDelay time.Duration) (*NikonD90GPIO, error) {
	for _, pin := range []int{focusPin, shutterPin} {
		if err := g.Output(pin); err != nil {
			return nil, errors.Join(fmt.Errorf("%w: setup pin %d: %w", ErrNotFound, pin, err), g.Close())
		}
		if err := g.Write(pin, gpio.High); err != nil {
			return nil, errors.Join(fmt.Errorf("%w: idle pin %d: %w", ErrNotFound, pin, err), g.Close())
		}
	}
	return &NikonD90GPIO{
		gpio:         g,
		focusPin:     focusPin,
		shutterPin:   shutterPin,
		focusDelay:   focusDelay,
		shutterDelay: shutterDelay,
		now:          time.Now,
	}, nil
}

// Capture triggers a photo on the D90.
// Sequence: FOCUS -> wait for AF -> SHUTTER -> hold -> release
func (n *NikonD90GPIO) Capture(ctx context.Context) (Frame, error) {
	if n.closed {
		return Frame{}, fmt.Errorf("%w: camera released", ErrCapture)
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	debug.Verbose("Camera: triggering shot (focus=%d, shutter=%d)", n.focusPin, n.shutterPin)
	triggeredAt := n.now()

	if err := n.gpio.Write(n.focusPin, gpio.Low); err != nil {
		return Frame{}, fmt.Errorf("%w: focus: %w", ErrCapture, err)
	}
	time.Sleep(n.focusDelay)

	if err := n.gpio.Write(n.shutterPin, gpio.Low); err != nil {
		return Frame{}, errors.Join(fmt.Errorf("%w: shutter: %w", ErrCapture, err), n.gpio.Write(n.focusPin, gpio.High))
	}
	time.Sleep(n.shutterDelay)

	if err := n.gpio.Write(n.shutterPin, gpio.High); err != nil {
		return Frame{}, fmt.Errorf("%w: release shutter: %w", ErrCapture, err)
	}
	if err := n.gpio.Write(n.focusPin, gpio.High); err != nil {
		return Frame{}, fmt.Errorf("%w: release focus: %w", ErrCapture, err)
	}

	data, err := yaml.Marshal(TriggerRecord{
		Camera:         "nikon_d90",
		TriggeredAt:    triggeredAt,
		FocusPin:       n.focusPin,
		ShutterPin:     n.shutterPin,
		FocusDelayMs:   n.focusDelay.Milliseconds(),
		ShutterDelayMs: n.shutterDelay.Milliseconds(),
	})
	if err != nil {
		return Frame{}, fmt.Errorf("%w: encode trigger record: %w", ErrCapture, err)
	}
	return Frame{Data: data, Ext: ".yaml"}, nil
}

// Close leaves both lines inactive and closes the GPIO driver.
func (n *NikonD90GPIO) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true
	return errors.Join(
		n.gpio.Write(n.shutterPin, gpio.High),
		n.gpio.Write(n.focusPin, gpio.High),
		n.gpio.Close(),
	)
}
