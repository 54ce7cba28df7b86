package capture

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cjeanneret/GoLapse/internal/debug"
	"github.com/cjeanneret/GoLapse/internal/hw/camera"
	"github.com/cjeanneret/GoLapse/internal/logic/plan"
)

// State is the position of the loop in its lifecycle.
type State int

const (
	Idle State = iota
	Waiting
	Capturing
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Capturing:
		return "capturing"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome tells which terminal path a session took.
type Outcome int

const (
	Completed   Outcome = iota + 1 // window exhausted
	Interrupted                    // operator cancellation during a wait
	Failed                         // capture or persistence error
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record describes one persisted capture.
type Record struct {
	Sequence  int       `json:"sequence"`
	FileName  string    `json:"file_name"`
	Path      string    `json:"path"`
	Size      int       `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// FileName derives the capture file name from its sequence index.
func FileName(prefix string, seq int, ext string) string {
	return fmt.Sprintf("%s%04d%s", prefix, seq, ext)
}

// Store persists capture data under a name and returns the full path.
type Store interface {
	Write(name string, data []byte) (string, error)
}

// Observer is notified of loop progress. Implementations must not block.
type Observer interface {
	StateChanged(s State)
	Captured(rec Record)
	Finished(res Result, err error)
}

// Result is the summary of a terminated session.
type Result struct {
	Outcome Outcome  `json:"outcome"`
	Records []Record `json:"records"`
}

// Params are the inputs of one run.
type Params struct {
	Plan       plan.Plan
	Clock      *plan.Clock
	FilePrefix string
}

// Loop drives one session: wait for the window, then capture at a fixed
// interval until the window is exhausted, the context is cancelled or a
// capture fails. The device is released exactly once when Run returns.
type Loop struct {
	device    camera.Device
	store     Store
	time      TimeSource
	observers []Observer

	state   State
	next    int // session-scoped sequence counter
	records []Record
}

// NewLoop creates a loop owning device for the duration of Run.
func NewLoop(device camera.Device, store Store, ts TimeSource, observers ...Observer) *Loop {
	return &Loop{
		device:    device,
		store:     store,
		time:      ts,
		observers: observers,
	}
}

// State returns the current state.
func (l *Loop) State() State { return l.state }

// Records returns a copy of the captures persisted so far.
func (l *Loop) Records() []Record { return slices.Clone(l.records) }

// Run executes the session. Interruption is not an error: it yields an
// Interrupted outcome with a nil error.
func (l *Loop) Run(ctx context.Context, p Params) (res Result, err error) {
	if l.state != Idle {
		return Result{}, errors.New("capture loop already ran")
	}
	defer func() {
		l.setState(Terminated)
		if cerr := l.device.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("release device: %w", cerr))
		}
		res.Records = l.Records()
		for _, o := range l.observers {
			o.Finished(res, err)
		}
	}()

	l.setState(Waiting)
	if wait := p.Clock.MinutesUntilStart(l.time.Now()); wait > 0 {
		debug.Info("Not time to start, sleeping for %d minutes (window opens %s)", wait, p.Clock.Opens().Format("15:04"))
		d := time.Duration(wait) * time.Minute
		debug.Wait(d, "until window opens")
		if err := l.time.Sleep(ctx, d); err != nil {
			debug.Info("Woken from sleep, exiting...")
			return Result{Outcome: Interrupted}, nil
		}
	}

	l.setState(Capturing)
	for {
		if ctx.Err() != nil {
			return Result{Outcome: Interrupted}, nil
		}
		now := l.time.Now()
		if p.Clock.IsWindowExhausted(now) {
			debug.Info("Finished taking photos (%d captures). Enjoy!", l.next)
			return Result{Outcome: Completed}, nil
		}

		frame, err := l.device.Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				debug.Info("Capture cancelled, exiting...")
				return Result{Outcome: Interrupted}, nil
			}
			return Result{Outcome: Failed}, fmt.Errorf("capture #%d: %w", l.next, err)
		}

		rec, err := l.persist(p.FilePrefix, frame, now)
		if err != nil {
			return Result{Outcome: Failed}, err
		}
		debug.Capture(rec.Sequence, rec.FileName, rec.Size)
		for _, o := range l.observers {
			o.Captured(rec)
		}

		debug.Wait(p.Plan.Interval(), "until next capture")
		if err := l.time.Sleep(ctx, p.Plan.Interval()); err != nil {
			debug.Info("Detected interruption, exiting...")
			return Result{Outcome: Interrupted}, nil
		}
	}
}

// persist names the frame with the next sequence index and stores it.
func (l *Loop) persist(prefix string, frame camera.Frame, at time.Time) (Record, error) {
	seq := l.next
	name := FileName(prefix, seq, frame.Ext)
	path, err := l.store.Write(name, frame.Data)
	if err != nil {
		return Record{}, fmt.Errorf("persist %s: %w", name, err)
	}
	rec := Record{
		Sequence:  seq,
		FileName:  name,
		Path:      path,
		Size:      len(frame.Data),
		Timestamp: at,
	}
	l.next++
	l.records = append(l.records, rec)
	return rec, nil
}

func (l *Loop) setState(s State) {
	if l.state == s {
		return
	}
	debug.Verbose("Loop: %s -> %s", l.state, s)
	l.state = s
	for _, o := range l.observers {
		o.StateChanged(s)
	}
}
