package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cjeanneret/GoLapse/internal/debug"
)

// runFunc executes a command and returns its stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// GPhoto2 drives a USB/PTP camera through the gphoto2 command line tool.
// Each capture is taken and downloaded in one invocation.
type GPhoto2 struct {
	path   string
	model  string
	run    runFunc
	closed bool
}

// OpenGPhoto2 detects a connected camera.
func OpenGPhoto2(ctx context.Context, path string) (*GPhoto2, error) {
	return openGPhoto2(ctx, path, execRun)
}

func openGPhoto2(ctx context.Context, path string, run runFunc) (*GPhoto2, error) {
	debug.Verbose("Camera: %s --auto-detect", path)
	out, stderr, err := run(ctx, path, "--auto-detect")
	if err != nil {
		return nil, fmt.Errorf("%w: %s --auto-detect: %v %s", ErrNotFound, path, err, strings.TrimSpace(string(stderr)))
	}
	model, ok := parseAutoDetect(string(out))
	if !ok {
		return nil, fmt.Errorf("%w: no camera listed by gphoto2, please check connection and try again", ErrNotFound)
	}
	debug.Value("Camera model", model)

	g := &GPhoto2{path: path, model: model, run: run}
	if summary, _, err := run(ctx, path, "--summary"); err != nil {
		debug.Error(fmt.Errorf("camera summary: %w", err))
	} else {
		debug.Verbose("Camera summary:\n%s", strings.TrimSpace(string(summary)))
	}
	return g, nil
}

// parseAutoDetect returns the model of the first camera listed in the
// `gphoto2 --auto-detect` table (lines after the dashed separator).
func parseAutoDetect(out string) (string, bool) {
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "---") {
			continue
		}
		for _, row := range lines[i+1:] {
			fields := strings.Fields(row)
			if len(fields) < 2 {
				continue
			}
			return strings.Join(fields[:len(fields)-1], " "), true
		}
		return "", false
	}
	return "", false
}

// Model returns the detected camera model.
func (g *GPhoto2) Model() string { return g.model }

// Capture triggers the shutter and downloads the image from the camera.
func (g *GPhoto2) Capture(ctx context.Context) (Frame, error) {
	if g.closed {
		return Frame{}, fmt.Errorf("%w: camera released", ErrCapture)
	}
	debug.Verbose("Camera: %s --capture-image-and-download --stdout", g.path)
	out, stderr, err := g.run(ctx, g.path, "--capture-image-and-download", "--stdout")
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v %s", ErrCapture, err, strings.TrimSpace(string(stderr)))
	}
	if len(out) == 0 {
		return Frame{}, fmt.Errorf("%w: camera returned no image data", ErrCapture)
	}
	return Frame{Data: out, Ext: ".jpg"}, nil
}

// Close releases the camera. gphoto2 holds no connection between
// invocations, so this only marks the device unusable.
func (g *GPhoto2) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	debug.Verbose("Camera: released %s", g.model)
	return nil
}
