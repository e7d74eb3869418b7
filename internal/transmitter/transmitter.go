package transmitter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dbehnke/jjyd/internal/protocol"
	"github.com/dbehnke/jjyd/internal/protocol/jjy"
)

const (
	SINK_QUEUE_SIZE    = 8               // Finished minutes waiting for the sinks
	SINK_FLUSH_TIMEOUT = 5 * time.Second // Wait for the sinks when the transmitter stops
)

// Options wires a transmitter to its collaborators
type Options struct {
	Clock    Clock
	Actuator Actuator
	Display  Display  // Optional
	Observer Observer // Optional
	Sinks    []Sink
	Logger   zerolog.Logger
}

// Transmitter drives the actuator one slot per second. Finished minutes are
// queued and handed to the sinks by a separate goroutine, so a slow sink never
// delays the carrier.
type Transmitter struct {
	clock    Clock
	actuator Actuator
	display  Display
	observer Observer
	sinks    []Sink
	log      zerolog.Logger

	queue chan Minute

	mu      sync.Mutex
	current *Minute
	slots   uint64
	frames  uint64
	dropped uint64
}

// New creates a transmitter
func New(opts Options) *Transmitter {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Transmitter{
		clock:    clock,
		actuator: opts.Actuator,
		display:  opts.Display,
		observer: opts.Observer,
		sinks:    opts.Sinks,
		log:      opts.Logger,
		queue:    make(chan Minute, SINK_QUEUE_SIZE),
	}
}

// Run transmits until ctx is cancelled or a slot cannot be encoded. An
// encode failure is returned as an error: sending a corrupt time code is
// worse than going off the air.
func (t *Transmitter) Run(ctx context.Context) error {
	if t.actuator == nil {
		return fmt.Errorf("transmitter has no actuator")
	}

	sinkCtx, cancelSinks := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSinks()
	stop := make(chan struct{})
	done := make(chan struct{})
	go t.deliverLoop(sinkCtx, stop, done)

	t.log.Info().Msg("transmitter started")

	defer func() {
		if err := t.actuator.Low(); err != nil {
			t.log.Error().Err(err).Msg("failed to drop carrier")
		}

		t.flush()
		close(stop)

		timer := time.NewTimer(SINK_FLUSH_TIMEOUT)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			cancelSinks()
			t.log.Warn().Msg("frame sinks did not finish before shutdown")
		}

		t.log.Info().
			Uint64("slots", t.SlotsSent()).
			Uint64("frames", t.FramesSent()).
			Uint64("dropped", t.FramesDropped()).
			Msg("transmitter stopped")
	}()

	for {
		err := t.Step(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	}
}

// Step waits for the next whole second and sends its slot. A minute it
// finishes is queued for the sinks, which only drain while Run is active.
func (t *Transmitter) Step(ctx context.Context) error {
	wait, next := jjy.NextSecond(t.clock.Now())

	sig, err := jjy.Encode(next)
	if err != nil {
		if t.observer != nil {
			t.observer.EncodeFailed(err)
		}
		return err
	}

	if err := t.clock.Sleep(ctx, wait); err != nil {
		return err
	}
	lag := t.clock.Now().Sub(next)

	if t.display != nil {
		t.display.Show(next, sig)
	}

	pulseErr := t.pulse(ctx, sig.Value.Duration())

	t.record(next, sig)
	if t.observer != nil {
		t.observer.SlotSent(sig, lag)
	}

	return pulseErr
}

// pulse holds the carrier high for d. The carrier is always dropped again,
// even when the wait is cut short.
func (t *Transmitter) pulse(ctx context.Context, d time.Duration) error {
	if err := t.actuator.High(); err != nil {
		return fmt.Errorf("raise carrier: %w", err)
	}

	sleepErr := t.clock.Sleep(ctx, d)

	if err := t.actuator.Low(); err != nil {
		return fmt.Errorf("drop carrier: %w", err)
	}
	return sleepErr
}

// record adds the slot to the current minute, queueing finished minutes for
// the sinks
func (t *Transmitter) record(at time.Time, sig jjy.Signal) {
	start := minuteStart(at)

	t.mu.Lock()
	var done []Minute
	if t.current != nil && !t.current.Frame.Start.Equal(start) {
		done = append(done, *t.current)
		t.current = nil
	}
	if t.current == nil {
		t.current = newMinute(start)
	}
	t.current.record(at.Second(), sig)
	t.slots++
	if at.Second() == protocol.JJY_P0_SECOND {
		done = append(done, *t.current)
		t.current = nil
	}
	t.mu.Unlock()

	for _, m := range done {
		t.enqueue(m)
	}
}

// flush queues a partly sent minute
func (t *Transmitter) flush() {
	t.mu.Lock()
	current := t.current
	t.current = nil
	t.mu.Unlock()

	if current != nil {
		t.enqueue(*current)
	}
}

// enqueue never blocks: when the sinks have fallen behind the minute is dropped
func (t *Transmitter) enqueue(m Minute) {
	select {
	case t.queue <- m:
		t.mu.Lock()
		t.frames++
		t.mu.Unlock()
	default:
		t.mu.Lock()
		t.dropped++
		t.mu.Unlock()
		t.log.Warn().Time("minute", m.Frame.Start).Msg("frame sinks behind, minute dropped")
	}
}

// deliverLoop feeds queued minutes to the sinks until stop is closed, then
// drains whatever is left
func (t *Transmitter) deliverLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case m := <-t.queue:
			t.deliver(ctx, m)
		case <-stop:
			for {
				select {
				case m := <-t.queue:
					t.deliver(ctx, m)
				default:
					return
				}
			}
		}
	}
}

func (t *Transmitter) deliver(ctx context.Context, m Minute) {
	t.log.Debug().
		Time("minute", m.Frame.Start).
		Str("bits", m.Bits()).
		Int("sent", m.SentCount()).
		Msg("frame sent")

	for _, sink := range t.sinks {
		if err := sink.FrameSent(ctx, m); err != nil {
			t.log.Warn().Err(err).Time("minute", m.Frame.Start).Msg("frame sink failed")
		}
	}
}

// SlotsSent returns the number of slots sent since start
func (t *Transmitter) SlotsSent() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots
}

// FramesSent returns the number of minutes queued for the sinks since start
func (t *Transmitter) FramesSent() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}

// FramesDropped returns the number of minutes lost because the sinks fell behind
func (t *Transmitter) FramesDropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
