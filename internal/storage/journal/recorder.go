package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/GoLapse/internal/debug"
	"github.com/cjeanneret/GoLapse/internal/logic/capture"
)

// Recorder is a capture.Observer writing loop progress to the journal.
// Write failures are logged and never stop the session.
type Recorder struct {
	ctx     context.Context
	journal *Journal
	id      uuid.UUID
	now     func() time.Time
}

// NewRecorder binds a journaled session to a loop. Writes outlive the
// cancellation of ctx so that an interrupted session still gets its end row.
func NewRecorder(ctx context.Context, j *Journal, id uuid.UUID) *Recorder {
	return &Recorder{
		ctx:     context.WithoutCancel(ctx),
		journal: j,
		id:      id,
		now:     time.Now,
	}
}

// ID returns the journaled session id.
func (r *Recorder) ID() uuid.UUID { return r.id }

func (r *Recorder) StateChanged(s capture.State) {
	debug.Trace("Journal: session %s is %s", r.id, s)
}

func (r *Recorder) Captured(rec capture.Record) {
	if err := r.journal.RecordCapture(r.ctx, r.id, rec); err != nil {
		debug.Error(err)
	}
}

func (r *Recorder) Finished(res capture.Result, _ error) {
	if err := r.journal.EndSession(r.ctx, r.id, r.now(), res.Outcome); err != nil {
		debug.Error(err)
	}
}
