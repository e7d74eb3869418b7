package transmitter

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dbehnke/jjyd/internal/database"
	"github.com/dbehnke/jjyd/internal/protocol/jjy"
)

const referenceBits = "M01000101M000100111M000001001M001000010M000000100M100000000M"

var jst = time.FixedZone("JST", 9*60*60)

// fakeClock advances instantly on Sleep
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// recordingActuator remembers every level change
type recordingActuator struct {
	levels []bool
	closed bool
}

func (a *recordingActuator) High() error {
	a.levels = append(a.levels, true)
	return nil
}

func (a *recordingActuator) Low() error {
	a.levels = append(a.levels, false)
	return nil
}

func (a *recordingActuator) Close() error {
	a.closed = true
	return nil
}

func (a *recordingActuator) last() bool {
	return a.levels[len(a.levels)-1]
}

type recordingDisplay struct {
	shown []jjy.Signal
	at    []time.Time
}

func (d *recordingDisplay) Show(at time.Time, sig jjy.Signal) {
	d.shown = append(d.shown, sig)
	d.at = append(d.at, at)
}

type recordingSink struct {
	minutes []Minute
}

func (s *recordingSink) FrameSent(ctx context.Context, m Minute) error {
	s.minutes = append(s.minutes, m)
	return nil
}

type countingObserver struct {
	slots   int
	lags    []time.Duration
	onSlot  func(int)
	failure error
}

func (o *countingObserver) SlotSent(sig jjy.Signal, lag time.Duration) {
	o.slots++
	o.lags = append(o.lags, lag)
	if o.onSlot != nil {
		o.onSlot(o.slots)
	}
}

func (o *countingObserver) EncodeFailed(err error) { o.failure = err }

func TestTransmitter_Step(t *testing.T) {
	clock := &fakeClock{now: time.Date(2004, time.April, 1, 17, 25, 0, 500*int(time.Millisecond), jst)}
	act := &recordingActuator{}
	display := &recordingDisplay{}

	tx := New(Options{Clock: clock, Actuator: act, Display: display, Logger: zerolog.Nop()})
	if err := tx.Step(context.Background()); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	// Second 1 carries 40m, which is 0 for minute 25
	if len(display.shown) != 1 || display.shown[0].String() != "40m=0" {
		t.Fatalf("displayed %v, want [40m=0]", display.shown)
	}
	if want := time.Date(2004, time.April, 1, 17, 25, 1, 0, jst); !display.at[0].Equal(want) {
		t.Errorf("displayed at %v, want %v", display.at[0], want)
	}

	wantSleeps := []time.Duration{500 * time.Millisecond, 800 * time.Millisecond}
	if len(clock.sleeps) != len(wantSleeps) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, wantSleeps)
	}
	for i := range wantSleeps {
		if clock.sleeps[i] != wantSleeps[i] {
			t.Errorf("sleep %d = %v, want %v", i, clock.sleeps[i], wantSleeps[i])
		}
	}

	if len(act.levels) != 2 || !act.levels[0] || act.levels[1] {
		t.Errorf("actuator levels = %v, want [true false]", act.levels)
	}
	if tx.SlotsSent() != 1 {
		t.Errorf("SlotsSent() = %d, want 1", tx.SlotsSent())
	}
}

func TestTransmitter_RunFullMinute(t *testing.T) {
	clock := &fakeClock{now: time.Date(2004, time.April, 1, 17, 24, 59, 250*int(time.Millisecond), jst)}
	act := &recordingActuator{}
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := &countingObserver{onSlot: func(n int) {
		if n == 60 {
			cancel()
		}
	}}
	tx := New(Options{
		Clock:    clock,
		Actuator: act,
		Observer: obs,
		Sinks:    []Sink{sink},
		Logger:   zerolog.Nop(),
	})

	if err := tx.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sink.minutes) != 1 {
		t.Fatalf("sink got %d minutes, want 1", len(sink.minutes))
	}
	m := sink.minutes[0]
	if !m.Complete() {
		t.Errorf("minute not complete: %s", m.Bits())
	}
	if got := m.Bits(); got != referenceBits {
		t.Errorf("Bits() = %s, want %s", got, referenceBits)
	}
	if want := time.Date(2004, time.April, 1, 17, 25, 0, 0, jst); !m.Frame.Start.Equal(want) {
		t.Errorf("Start = %v, want %v", m.Frame.Start, want)
	}

	if obs.slots != 60 {
		t.Errorf("observer saw %d slots, want 60", obs.slots)
	}
	for i, lag := range obs.lags {
		if lag != 0 {
			t.Errorf("slot %d lag = %v, want 0", i, lag)
		}
	}
	if act.last() {
		t.Error("carrier left high after Run returned")
	}
	if tx.FramesSent() != 1 {
		t.Errorf("FramesSent() = %d, want 1", tx.FramesSent())
	}
}

func TestTransmitter_FlushesPartialMinute(t *testing.T) {
	clock := &fakeClock{now: time.Date(2004, time.April, 1, 17, 25, 29, 900*int(time.Millisecond), jst)}
	act := &recordingActuator{}
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := &countingObserver{onSlot: func(n int) {
		if n == 5 {
			cancel()
		}
	}}
	tx := New(Options{Clock: clock, Actuator: act, Observer: obs, Sinks: []Sink{sink}, Logger: zerolog.Nop()})

	if err := tx.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sink.minutes) != 1 {
		t.Fatalf("sink got %d minutes, want 1", len(sink.minutes))
	}
	m := sink.minutes[0]
	if m.Complete() || m.SentCount() != 5 {
		t.Errorf("SentCount() = %d, Complete() = %v, want 5 and false", m.SentCount(), m.Complete())
	}
	want := strings.Repeat("-", 30) + "00100" + strings.Repeat("-", 25)
	if got := m.Bits(); got != want {
		t.Errorf("Bits() = %s, want %s", got, want)
	}
}

func TestTransmitter_MinuteSkipDeliversPartial(t *testing.T) {
	clock := &fakeClock{now: time.Date(2004, time.April, 1, 17, 25, 9, 100*int(time.Millisecond), jst)}
	act := &recordingActuator{}
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := &countingObserver{onSlot: func(n int) {
		switch n {
		case 1:
			// Clock stepped forward (e.g. NTP correction) past the rest of the minute
			clock.set(time.Date(2004, time.April, 1, 17, 27, 4, 0, jst))
		case 2:
			cancel()
		}
	}}
	tx := New(Options{Clock: clock, Actuator: act, Observer: obs, Sinks: []Sink{sink}, Logger: zerolog.Nop()})

	if err := tx.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sink.minutes) != 2 {
		t.Fatalf("sink got %d minutes, want 2", len(sink.minutes))
	}
	skipped := sink.minutes[0]
	if want := time.Date(2004, time.April, 1, 17, 25, 0, 0, jst); !skipped.Frame.Start.Equal(want) {
		t.Errorf("first minute Start = %v, want %v", skipped.Frame.Start, want)
	}
	if got := skipped.SentCount(); got != 1 {
		t.Errorf("SentCount() = %d, want 1", got)
	}
	if !skipped.Sent[10] {
		t.Error("slot 10 not marked sent")
	}
	if !sink.minutes[1].Sent[5] || sink.minutes[1].SentCount() != 1 {
		t.Errorf("second minute = %s, want only slot 5 sent", sink.minutes[1].Bits())
	}
}

// stallingSink blocks in FrameSent until released. If it is never released it
// moves the clock on as a stalled wall clock would.
type stallingSink struct {
	clock   *fakeClock
	release chan struct{}
	minutes []Minute
}

func (s *stallingSink) FrameSent(ctx context.Context, m Minute) error {
	select {
	case <-s.release:
	case <-time.After(2 * time.Second):
		s.clock.set(s.clock.Now().Add(5 * time.Second))
	}
	s.minutes = append(s.minutes, m)
	return nil
}

func TestTransmitter_SlowSinkDoesNotDelaySlots(t *testing.T) {
	clock := &fakeClock{now: time.Date(2004, time.April, 1, 17, 25, 58, 500*int(time.Millisecond), jst)}
	act := &recordingActuator{}
	display := &recordingDisplay{}
	sink := &stallingSink{clock: clock, release: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := &countingObserver{onSlot: func(n int) {
		if n == 8 {
			close(sink.release)
			cancel()
		}
	}}
	tx := New(Options{
		Clock:    clock,
		Actuator: act,
		Display:  display,
		Observer: obs,
		Sinks:    []Sink{sink},
		Logger:   zerolog.Nop(),
	})

	if err := tx.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []int{59, 0, 1, 2, 3, 4, 5, 6}
	if len(display.at) != len(want) {
		t.Fatalf("sent %d slots, want %d", len(display.at), len(want))
	}
	for i, at := range display.at {
		if at.Second() != want[i] {
			t.Errorf("slot %d sent at second %d, want %d", i, at.Second(), want[i])
		}
	}
	if display.shown[1].Value != jjy.SignalMarker {
		t.Errorf("second 0 sent %v, want marker", display.shown[1])
	}

	if len(sink.minutes) != 2 {
		t.Errorf("sink got %d minutes, want 2", len(sink.minutes))
	}
}

func TestTransmitter_QueueFullDropsMinute(t *testing.T) {
	tx := New(Options{Actuator: &recordingActuator{}, Logger: zerolog.Nop()})

	for i := 0; i < SINK_QUEUE_SIZE+2; i++ {
		tx.enqueue(Minute{})
	}

	if got := tx.FramesSent(); got != SINK_QUEUE_SIZE {
		t.Errorf("FramesSent() = %d, want %d", got, SINK_QUEUE_SIZE)
	}
	if got := tx.FramesDropped(); got != 2 {
		t.Errorf("FramesDropped() = %d, want 2", got)
	}
}

func TestTransmitter_RunWithoutActuator(t *testing.T) {
	tx := New(Options{Logger: zerolog.Nop()})
	if err := tx.Run(context.Background()); err == nil {
		t.Error("Run() without actuator expected error but got none")
	}
}

func TestTransmitter_CancelDuringPulseDropsCarrier(t *testing.T) {
	clock := &fakeClock{now: time.Date(2004, time.April, 1, 17, 25, 0, 0, jst)}
	act := &recordingActuator{}

	ctx, cancel := context.WithCancel(context.Background())
	display := displayFunc(func(time.Time, jjy.Signal) { cancel() })

	tx := New(Options{Clock: clock, Actuator: act, Display: display, Logger: zerolog.Nop()})
	if err := tx.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if act.last() {
		t.Error("carrier left high after cancellation")
	}
}

type displayFunc func(time.Time, jjy.Signal)

func (f displayFunc) Show(at time.Time, sig jjy.Signal) { f(at, sig) }

func TestHistorySink(t *testing.T) {
	db, err := database.NewDB(database.Config{Path: filepath.Join(t.TempDir(), "jjyd.db")}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	defer db.Close()
	repo := database.NewFrameRepository(db.GetDB())

	frame, err := jjy.EncodeMinute(time.Date(2004, time.April, 1, 17, 25, 0, 0, jst))
	if err != nil {
		t.Fatalf("EncodeMinute() error = %v", err)
	}
	m := Minute{Frame: frame}
	for i := range m.Sent {
		m.Sent[i] = true
	}

	sink := NewHistorySink(repo, "session-1", 24*time.Hour, zerolog.Nop())

	// An old row that the first prune removes
	old := m
	old.Frame.Start = m.Frame.Start.Add(-48 * time.Hour)
	if err := sink.FrameSent(context.Background(), old); err != nil {
		t.Fatalf("FrameSent(old) error = %v", err)
	}
	sink.lastPrune = time.Time{}

	if err := sink.FrameSent(context.Background(), m); err != nil {
		t.Fatalf("FrameSent() error = %v", err)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 after prune", count)
	}

	record, err := repo.GetByMinute(m.Frame.Start)
	if err != nil {
		t.Fatalf("GetByMinute() error = %v", err)
	}
	if record.Bits != referenceBits || !record.Complete {
		t.Errorf("record = %v", record)
	}
	if record.DayOfYear != 92 || record.Weekday != 4 || record.Year != 4 {
		t.Errorf("record fields = %+v", record)
	}
	if record.Timezone != "JST" {
		t.Errorf("Timezone = %q, want JST", record.Timezone)
	}
}

func TestNopActuator(t *testing.T) {
	a := NewNopActuator(zerolog.Nop())
	a.High()
	a.High()
	a.Low()
	if a.IsHigh() {
		t.Error("IsHigh() = true after Low")
	}
	if a.Edges() != 2 {
		t.Errorf("Edges() = %d, want 2", a.Edges())
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSystemClock_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := SystemClock{Location: jst}
	if err := c.Sleep(ctx, time.Hour); err == nil {
		t.Error("Sleep() on cancelled context expected error")
	}
	if c.Now().Location() != jst {
		t.Errorf("Now() location = %v, want JST", c.Now().Location())
	}
}
