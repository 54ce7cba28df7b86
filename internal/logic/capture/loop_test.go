package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/cjeanneret/GoLapse/internal/hw/camera"
	"github.com/cjeanneret/GoLapse/internal/logic/plan"
	"github.com/cjeanneret/GoLapse/internal/storage/sessiondir"
)

// fakeTime advances instantly on Sleep. When cancelAt > 0 the cancelAt-th
// sleep cancels the context instead of returning.
type fakeTime struct {
	now      time.Time
	sleeps   []time.Duration
	cancelAt int
	cancel   context.CancelFunc
}

func (f *fakeTime) Now() time.Time { return f.now }

func (f *fakeTime) Sleep(ctx context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	if f.cancelAt > 0 && len(f.sleeps) == f.cancelAt {
		f.cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.now = f.now.Add(d)
	return nil
}

// fakeDevice records captures and releases. failAt is the 1-based capture
// that returns an error; 0 never fails.
type fakeDevice struct {
	captures int
	failAt   int
	closes   int
	closeErr error
}

func (d *fakeDevice) Capture(ctx context.Context) (camera.Frame, error) {
	d.captures++
	if d.failAt > 0 && d.captures == d.failAt {
		return camera.Frame{}, fmt.Errorf("%w: usb disconnected", camera.ErrCapture)
	}
	return camera.Frame{Data: []byte(fmt.Sprintf("frame-%d", d.captures)), Ext: ".jpg"}, nil
}

func (d *fakeDevice) Close() error {
	d.closes++
	return d.closeErr
}

type memStore struct {
	files map[string][]byte
	err   error
}

func (m *memStore) Write(name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	if _, ok := m.files[name]; ok {
		return "", fmt.Errorf("%s already exists", name)
	}
	m.files[name] = data
	return "/mem/" + name, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	states   []State
	captured []int
	finished []Result
	errs     []error
}

func (o *recordingObserver) StateChanged(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingObserver) Captured(rec Record) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.captured = append(o.captured, rec.Sequence)
}

func (o *recordingObserver) Finished(res Result, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, res)
	o.errs = append(o.errs, err)
}

func at(hour, minute int) time.Time {
	return time.Date(2024, time.June, 1, hour, minute, 0, 0, time.UTC)
}

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatal(args ...any)
}

func params(t fataler, start, end, interval int, anchor time.Time) Params {
	t.Helper()
	w, err := plan.NewWindow(start, end)
	if err != nil {
		t.Fatal(err)
	}
	p, err := plan.New(w, interval, 0, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	return Params{Plan: p, Clock: plan.NewClock(w, anchor), FilePrefix: "capt_"}
}

// ---------- FileName ----------

func TestFileName(t *testing.T) {
	cases := []struct {
		seq  int
		ext  string
		want string
	}{
		{0, ".jpg", "capt_0000.jpg"},
		{42, ".jpg", "capt_0042.jpg"},
		{9999, ".yaml", "capt_9999.yaml"},
		{12345, ".jpg", "capt_12345.jpg"},
	}
	for _, tc := range cases {
		if got := FileName("capt_", tc.seq, tc.ext); got != tc.want {
			t.Errorf("FileName(%d, %q) = %q, want %q", tc.seq, tc.ext, got, tc.want)
		}
	}
}

// ---------- Run: completion ----------

func TestRun_OvernightWindow(t *testing.T) {
	ft := &fakeTime{now: at(19, 30)}
	dev := &fakeDevice{}
	store := &memStore{}
	obs := &recordingObserver{}

	loop := NewLoop(dev, store, ft, obs)
	res, err := loop.Run(context.Background(), params(t, 20, 6, 60, ft.now))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != Completed {
		t.Errorf("Outcome = %v, want completed", res.Outcome)
	}
	// 20:00 through 06:00 inclusive.
	if len(res.Records) != 11 {
		t.Fatalf("records = %d, want 11", len(res.Records))
	}
	if ft.sleeps[0] != 30*time.Minute {
		t.Errorf("first wait = %v, want 30m", ft.sleeps[0])
	}
	if got := res.Records[0].Timestamp; !got.Equal(at(20, 0)) {
		t.Errorf("first capture at %v, want 20:00", got)
	}
	last := res.Records[len(res.Records)-1]
	if last.FileName != "capt_0010.jpg" || last.Timestamp.Hour() != 6 {
		t.Errorf("last record = %+v, want capt_0010.jpg at 06:00", last)
	}
	if dev.closes != 1 {
		t.Errorf("device released %d times, want 1", dev.closes)
	}
	if loop.State() != Terminated {
		t.Errorf("State = %v, want terminated", loop.State())
	}
	wantStates := []State{Waiting, Capturing, Terminated}
	if fmt.Sprint(obs.states) != fmt.Sprint(wantStates) {
		t.Errorf("states = %v, want %v", obs.states, wantStates)
	}
	if len(obs.finished) != 1 || obs.finished[0].Outcome != Completed {
		t.Errorf("finished = %+v, want one completed result", obs.finished)
	}
	if len(obs.captured) != 11 {
		t.Errorf("observer saw %d captures, want 11", len(obs.captured))
	}
}

func TestRun_SameDayWindowAlreadyPast(t *testing.T) {
	ft := &fakeTime{now: at(15, 0)}
	dev := &fakeDevice{}

	res, err := NewLoop(dev, &memStore{}, ft).Run(context.Background(), params(t, 8, 12, 10, ft.now))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != Completed || len(res.Records) != 0 {
		t.Errorf("got %v with %d records, want completed with 0", res.Outcome, len(res.Records))
	}
	if dev.captures != 0 {
		t.Errorf("captures = %d, want 0", dev.captures)
	}
	if dev.closes != 1 {
		t.Errorf("device released %d times, want 1", dev.closes)
	}
}

func TestRun_WritesFilesToSessionDir(t *testing.T) {
	root := t.TempDir()
	h, err := sessiondir.Allocate(root, "pics_", at(9, 0))
	if err != nil {
		t.Fatal(err)
	}
	ft := &fakeTime{now: at(9, 0)}

	res, err := NewLoop(&fakeDevice{}, h, ft).Run(context.Background(), params(t, 9, 9, 20, ft.now))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 09:00, 09:20, 09:40.
	if len(res.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(res.Records))
	}
	for i, rec := range res.Records {
		if rec.Path != filepath.Join(h.Path, FileName("capt_", i, ".jpg")) {
			t.Errorf("record %d path = %q", i, rec.Path)
		}
		data, err := os.ReadFile(rec.Path)
		if err != nil {
			t.Fatalf("read %s: %v", rec.Path, err)
		}
		if len(data) != rec.Size {
			t.Errorf("record %d size = %d, file has %d bytes", i, rec.Size, len(data))
		}
	}
}

// ---------- Run: interruption ----------

func TestRun_CancelDuringPreStartWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ft := &fakeTime{now: at(18, 0), cancelAt: 1, cancel: cancel}
	dev := &fakeDevice{}

	res, err := NewLoop(dev, &memStore{}, ft).Run(ctx, params(t, 20, 6, 10, ft.now))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != Interrupted {
		t.Errorf("Outcome = %v, want interrupted", res.Outcome)
	}
	if dev.captures != 0 || len(res.Records) != 0 {
		t.Errorf("captures = %d, records = %d, want 0", dev.captures, len(res.Records))
	}
	if dev.closes != 1 {
		t.Errorf("device released %d times, want 1", dev.closes)
	}
}

func TestRun_CancelDuringInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Window already open: sleeps are all inter-capture waits.
	ft := &fakeTime{now: at(21, 0), cancelAt: 3, cancel: cancel}
	dev := &fakeDevice{}

	res, err := NewLoop(dev, &memStore{}, ft).Run(ctx, params(t, 20, 6, 10, ft.now))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != Interrupted {
		t.Errorf("Outcome = %v, want interrupted", res.Outcome)
	}
	if dev.captures != 3 || len(res.Records) != 3 {
		t.Errorf("captures = %d, records = %d, want 3", dev.captures, len(res.Records))
	}
	if dev.closes != 1 {
		t.Errorf("device released %d times, want 1", dev.closes)
	}
}

func TestRun_ContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ft := &fakeTime{now: at(21, 0)}
	dev := &fakeDevice{}

	res, err := NewLoop(dev, &memStore{}, ft).Run(ctx, params(t, 20, 6, 10, ft.now))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outcome != Interrupted || dev.captures != 0 || dev.closes != 1 {
		t.Errorf("outcome=%v captures=%d closes=%d", res.Outcome, dev.captures, dev.closes)
	}
}

// ---------- Run: failure ----------

func TestRun_CaptureFailureOnFifthCycle(t *testing.T) {
	ft := &fakeTime{now: at(21, 0)}
	dev := &fakeDevice{failAt: 5}
	store := &memStore{}
	obs := &recordingObserver{}

	res, err := NewLoop(dev, store, ft, obs).Run(context.Background(), params(t, 20, 6, 10, ft.now))
	if !errors.Is(err, camera.ErrCapture) {
		t.Fatalf("err = %v, want ErrCapture", err)
	}
	if res.Outcome != Failed {
		t.Errorf("Outcome = %v, want failed", res.Outcome)
	}
	if len(res.Records) != 4 || len(store.files) != 4 {
		t.Errorf("records = %d, files = %d, want 4", len(res.Records), len(store.files))
	}
	if dev.closes != 1 {
		t.Errorf("device released %d times, want 1", dev.closes)
	}
	if len(obs.errs) != 1 || !errors.Is(obs.errs[0], camera.ErrCapture) {
		t.Errorf("observer errors = %v", obs.errs)
	}
}

func TestRun_PersistFailure(t *testing.T) {
	ft := &fakeTime{now: at(21, 0)}
	dev := &fakeDevice{}
	diskFull := errors.New("no space left on device")

	res, err := NewLoop(dev, &memStore{err: diskFull}, ft).Run(context.Background(), params(t, 20, 6, 10, ft.now))
	if !errors.Is(err, diskFull) {
		t.Fatalf("err = %v, want disk full", err)
	}
	if res.Outcome != Failed || len(res.Records) != 0 {
		t.Errorf("outcome=%v records=%d", res.Outcome, len(res.Records))
	}
	if dev.closes != 1 {
		t.Errorf("device released %d times, want 1", dev.closes)
	}
}

func TestRun_ReleaseErrorReported(t *testing.T) {
	ft := &fakeTime{now: at(15, 0)}
	dev := &fakeDevice{closeErr: errors.New("busy")}

	_, err := NewLoop(dev, &memStore{}, ft).Run(context.Background(), params(t, 8, 12, 10, ft.now))
	if err == nil || dev.closes != 1 {
		t.Errorf("err = %v, closes = %d; want release error and one release", err, dev.closes)
	}
}

func TestRun_OnlyOnce(t *testing.T) {
	ft := &fakeTime{now: at(15, 0)}
	dev := &fakeDevice{}
	loop := NewLoop(dev, &memStore{}, ft)
	p := params(t, 8, 12, 10, ft.now)

	if _, err := loop.Run(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if _, err := loop.Run(context.Background(), p); err == nil {
		t.Error("second Run should fail")
	}
	if dev.closes != 1 {
		t.Errorf("device released %d times, want 1", dev.closes)
	}
}

// ---------- properties ----------

func TestRun_SequenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n")
		ft := &fakeTime{now: at(0, 0)}
		dev := &fakeDevice{}
		store := &memStore{}

		res, err := NewLoop(dev, store, ft).Run(context.Background(), params(t, 0, n-1, 60, ft.now))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(res.Records) != n {
			t.Fatalf("records = %d, want %d", len(res.Records), n)
		}
		seen := map[string]bool{}
		for i, rec := range res.Records {
			if rec.Sequence != i {
				t.Fatalf("record %d has sequence %d", i, rec.Sequence)
			}
			if seen[rec.FileName] {
				t.Fatalf("duplicate file name %s", rec.FileName)
			}
			seen[rec.FileName] = true
		}
		if dev.closes != 1 {
			t.Fatalf("device released %d times", dev.closes)
		}
	})
}

func TestRun_ReleaseExactlyOnceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		failAt := rapid.IntRange(0, 8).Draw(t, "failAt")
		cancelAt := rapid.IntRange(0, 8).Draw(t, "cancelAt")
		startMinute := rapid.IntRange(0, 59).Draw(t, "startMinute")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ft := &fakeTime{now: at(19, startMinute), cancelAt: cancelAt, cancel: cancel}
		dev := &fakeDevice{failAt: failAt}

		res, _ := NewLoop(dev, &memStore{}, ft).Run(ctx, params(t, 20, 1, 15, ft.now))
		if dev.closes != 1 {
			t.Fatalf("device released %d times (outcome %v)", dev.closes, res.Outcome)
		}
		for i, rec := range res.Records {
			if rec.Sequence != i {
				t.Fatalf("record %d has sequence %d", i, rec.Sequence)
			}
		}
	})
}

// ---------- Sleep ----------

func TestSleep_Elapses(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep: %v", err)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled Sleep should return promptly")
	}
}

func TestSleep_ZeroDuration(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) = %v", err)
	}
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{Completed: "completed", Interrupted: "interrupted", Failed: "failed"} {
		if o.String() != want {
			t.Errorf("%d.String() = %q, want %q", o, o.String(), want)
		}
	}
}
