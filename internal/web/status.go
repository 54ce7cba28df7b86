package web

import (
	"sync"
	"time"

	"github.com/cjeanneret/GoLapse/internal/logic/capture"
	"github.com/cjeanneret/GoLapse/internal/logic/plan"
)

// Snapshot is the JSON body of GET /status.
type Snapshot struct {
	Window    string          `json:"window"`
	Plan      plan.Plan       `json:"plan"`
	Estimate  plan.Estimate   `json:"estimate"`
	Opens     time.Time       `json:"opens"`
	Closes    time.Time       `json:"closes"`
	Dir       string          `json:"dir"`
	State     string          `json:"state"`
	Captures  int             `json:"captures"`
	Last      *capture.Record `json:"last,omitempty"`
	Outcome   string          `json:"outcome,omitempty"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Tracker follows a running loop. It is a capture.Observer and the source
// of both the snapshot and the stream events.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	b    *StatusBroadcaster
	now  func() time.Time
}

// NewTracker starts tracking a session about to run in dir.
func NewTracker(b *StatusBroadcaster, p plan.Plan, clock *plan.Clock, dir string) *Tracker {
	t := &Tracker{b: b, now: time.Now}
	t.snap = Snapshot{
		Window:    p.Window.String(),
		Plan:      p,
		Estimate:  p.Estimate(),
		Opens:     clock.Opens(),
		Closes:    clock.Closes(),
		Dir:       dir,
		State:     capture.Idle.String(),
		UpdatedAt: t.now(),
	}
	return t
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	return s
}

func (t *Tracker) StateChanged(s capture.State) {
	t.mu.Lock()
	t.snap.State = s.String()
	t.snap.UpdatedAt = t.now()
	t.mu.Unlock()
	t.b.Publish(StatusEvent{Kind: KindState, State: s.String()})
}

func (t *Tracker) Captured(rec capture.Record) {
	t.mu.Lock()
	t.snap.Captures++
	t.snap.Last = &rec
	t.snap.UpdatedAt = t.now()
	t.mu.Unlock()
	t.b.Publish(StatusEvent{Kind: KindCapture, Record: &rec})
}

func (t *Tracker) Finished(res capture.Result, err error) {
	evt := StatusEvent{Kind: KindFinished, Outcome: res.Outcome.String()}
	t.mu.Lock()
	t.snap.Outcome = res.Outcome.String()
	if err != nil {
		t.snap.Error = err.Error()
		evt.Level = "error"
		evt.Msg = err.Error()
	}
	t.snap.UpdatedAt = t.now()
	t.mu.Unlock()
	t.b.Publish(evt)
}
