package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cjeanneret/GoLapse/internal/config"
	"github.com/cjeanneret/GoLapse/internal/console"
	"github.com/cjeanneret/GoLapse/internal/debug"
	"github.com/cjeanneret/GoLapse/internal/logic/capture"
	"github.com/cjeanneret/GoLapse/internal/logic/plan"
	"github.com/cjeanneret/GoLapse/internal/logic/window"
	"github.com/cjeanneret/GoLapse/internal/storage/journal"
	"github.com/cjeanneret/GoLapse/internal/storage/sessiondir"
	"github.com/cjeanneret/GoLapse/internal/web"
)

// runSession resolves the plan, asks for confirmation and runs the capture
// loop. Declining and interrupting are not errors.
func runSession(ctx context.Context, d deps, opts *options) error {
	cfg, err := loadConfig(d, opts)
	if err != nil {
		return err
	}

	debug.Section("Planning")
	op := console.NewTerminal(d.in, d.out)
	w, err := resolveWindow(ctx, d, cfg, op, opts)
	if errors.Is(err, console.ErrInterrupted) {
		op.Say("Interrupted, exiting.")
		return nil
	}
	if err != nil {
		return err
	}

	p, err := plan.New(w, opts.intervalMins, opts.startOffset, opts.endOffset, cfg.Session.ImgSizeMB)
	if err != nil {
		return err
	}
	debug.PrintStruct("Plan", p)

	fmt.Fprintln(d.out, console.RenderPlan(p, p.Estimate()))
	if !opts.yes {
		ok, err := console.Confirm(ctx, op, "Does this look correct")
		if errors.Is(err, console.ErrInterrupted) {
			op.Say("Interrupted, exiting.")
			return nil
		}
		if err != nil {
			return err
		}
		if !ok {
			op.Say("Aborted, nothing captured.")
			return nil
		}
	}

	debug.Section("Initialization")
	debug.Step(1, "Opening camera")
	dev, err := d.openDevice(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	debug.Value("Camera type", cfg.Camera.Type)

	debug.Step(2, "Allocating session directory")
	started := d.now()
	dir, err := sessiondir.Allocate(cfg.Session.OutputDir, cfg.Session.DirPrefix, started)
	if err != nil {
		return errors.Join(err, dev.Close())
	}
	debug.Value("Session directory", dir.Path)
	clock := plan.NewClock(w, started)

	var observers []capture.Observer
	if j, rec := openRecorder(ctx, cfg, dir.Path, p, started); rec != nil {
		defer func() {
			if err := j.Close(); err != nil {
				debug.Error(fmt.Errorf("close journal: %w", err))
			}
		}()
		observers = append(observers, rec)
	}

	var stopWeb func()
	if port := opts.web.port(); port > 0 {
		tracker, stop := startStatusServer(ctx, d.out, port, p, clock, dir.Path)
		observers = append(observers, tracker)
		stopWeb = stop
	}

	debug.Section("Capturing")
	loop := capture.NewLoop(dev, dir, d.time, observers...)
	res, err := loop.Run(ctx, capture.Params{Plan: p, Clock: clock, FilePrefix: cfg.Session.FilePrefix})
	if stopWeb != nil {
		stopWeb()
	}

	op.Say("Session %s: %d captures in %s", res.Outcome, len(res.Records), dir.Path)
	if err != nil {
		return fmt.Errorf("session failed: %w", err)
	}
	return nil
}

// loadConfig reads the config file and applies the command-line overrides.
func loadConfig(d deps, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	debug.SetOutput(d.out)
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Value("Config path", opts.cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	if opts.imgSizeSet {
		if opts.imgSizeMB <= 0 {
			return nil, fmt.Errorf("img-size must be > 0, got %g", opts.imgSizeMB)
		}
		cfg.Session.ImgSizeMB = opts.imgSizeMB
	}
	if opts.outputDir != "" {
		cfg.Session.OutputDir = opts.outputDir
	}
	if opts.web.port() == 0 && cfg.Web.Port > 0 {
		opts.web.val = cfg.Web.Port
	}
	return cfg, nil
}

// resolveWindow builds the window from explicit hours or, when one is
// missing, from the sun at a place chosen by the operator.
func resolveWindow(ctx context.Context, d deps, cfg *config.Config, op console.Operator, opts *options) (plan.Window, error) {
	var start, end *int
	if opts.startHourSet {
		start = &opts.startHour
	}
	if opts.endHourSet {
		end = &opts.endHour
	}
	if start != nil && end != nil {
		return window.NewResolver(nil, nil).Resolve(ctx, start, end)
	}

	if !d.interactive() {
		return plan.Window{}, errors.New("no terminal to ask for a location: pass both --start-time and --end-time")
	}
	locator, err := d.openLocator(cfg)
	if err != nil {
		return plan.Window{}, fmt.Errorf("load places: %w", err)
	}
	return window.NewResolver(locator, op).Resolve(ctx, start, end)
}

// openRecorder journals the session. A journal that cannot be opened is
// logged and skipped.
func openRecorder(ctx context.Context, cfg *config.Config, dir string, p plan.Plan, started time.Time) (*journal.Journal, *journal.Recorder) {
	if cfg.Journal.Disabled {
		return nil, nil
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		debug.Error(err)
		return nil, nil
	}
	id, err := j.BeginSession(ctx, dir, p, started)
	if err != nil {
		debug.Error(errors.Join(err, j.Close()))
		return nil, nil
	}
	debug.Value("Journal session", id)
	return j, journal.NewRecorder(ctx, j, id)
}

// startStatusServer serves the session status until the returned stop is
// called. Log lines are mirrored on the status stream.
func startStatusServer(ctx context.Context, out io.Writer, port int, p plan.Plan, clock *plan.Clock, dir string) (*web.Tracker, func()) {
	broadcaster := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(out, web.BroadcastWriter(broadcaster)))
	tracker := web.NewTracker(broadcaster, p, clock, dir)
	srv := web.NewServer(fmt.Sprintf(":%d", port), web.NewHandlers(broadcaster, tracker))

	webCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Run(webCtx); err != nil {
			debug.Error(fmt.Errorf("status server: %w", err))
		}
	}()
	return tracker, func() {
		cancel()
		<-done
		debug.SetOutput(out)
	}
}
