package jjy

import (
	"fmt"
	"time"

	"github.com/dbehnke/jjyd/internal/protocol"
)

// Encode returns the slot and value transmitted at t. The slot comes from the
// second of t and every data field from the same t, so two calls with the
// same time always agree.
func Encode(t time.Time) (Signal, error) {
	slot := SlotForSecond(t.Second())
	value, err := ResolveValue(slot, FieldsFromTime(t))
	if err != nil {
		return Signal{}, fmt.Errorf("encode %s: %w", t.Format("2006-01-02 15:04:05"), err)
	}
	return Signal{Slot: slot, Value: value}, nil
}

// NextSecond returns the next whole second after now and how long to wait
// for it. A time already on a whole second waits a full second, so the
// result always advances.
//
// Go times never carry an inserted 60th second. A clock that reports one as
// a fractional part of at least a second would make this step over up to two
// physical seconds; that approximation is accepted here.
func NextSecond(now time.Time) (time.Duration, time.Time) {
	last := now.Add(-time.Duration(now.Nanosecond()))
	next := last.Add(protocol.JJY_SLOT_PERIOD)
	return next.Sub(now), next
}

// Frame is the full 60-slot code of one minute
type Frame struct {
	Start   time.Time // Second 0 of the minute
	Fields  Fields
	Signals [protocol.JJY_SLOTS_PER_MINUTE]Signal
}

// EncodeMinute encodes all 60 seconds of the minute containing t
func EncodeMinute(t time.Time) (Frame, error) {
	start := t.Add(-time.Duration(t.Second())*time.Second - time.Duration(t.Nanosecond()))
	frame := Frame{
		Start:  start,
		Fields: FieldsFromTime(start),
	}

	for i := range frame.Signals {
		sig, err := Encode(start.Add(time.Duration(i) * time.Second))
		if err != nil {
			return Frame{}, err
		}
		frame.Signals[i] = sig
	}
	return frame, nil
}

// Bits renders the frame as one character per slot, e.g. "M0100010...M"
func (f Frame) Bits() string {
	buf := make([]byte, 0, len(f.Signals))
	for _, s := range f.Signals {
		buf = append(buf, s.Value.String()...)
	}
	return string(buf)
}

// Table renders one "SS label value" line per slot
func (f Frame) Table() string {
	buf := make([]byte, 0, len(f.Signals)*12)
	for i, s := range f.Signals {
		buf = append(buf, fmt.Sprintf("%02d %4s: %s\n", i, s.Slot, s.Value)...)
	}
	return string(buf)
}
