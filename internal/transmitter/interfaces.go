package transmitter

import (
	"context"
	"time"

	"github.com/dbehnke/jjyd/internal/protocol/jjy"
)

// Actuator keys the carrier. High puts it at full power, Low drops it to the
// reduced level for the rest of the slot.
type Actuator interface {
	High() error
	Low() error
	Close() error
}

// Display receives every slot as it is sent
type Display interface {
	Show(at time.Time, sig jjy.Signal)
}

// Clock supplies local civil time in the station timezone and sleeps
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Sink is told about every minute once its last slot has been sent, or when
// the minute was cut short
type Sink interface {
	FrameSent(ctx context.Context, m Minute) error
}

// Observer is told about every slot and every encode failure
type Observer interface {
	SlotSent(sig jjy.Signal, lag time.Duration)
	EncodeFailed(err error)
}

// SystemClock reads the wall clock in a fixed location
type SystemClock struct {
	Location *time.Location
}

// Now returns the current time in the clock's location
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Sleep blocks for d or until ctx is done
func (c SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
