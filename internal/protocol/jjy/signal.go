package jjy

import (
	"errors"
	"fmt"
	"time"

	"github.com/dbehnke/jjyd/internal/codec"
	"github.com/dbehnke/jjyd/internal/protocol"
)

var (
	// ErrInvalidArgument reports a field value the time code cannot carry.
	ErrInvalidArgument = codec.ErrInvalidArgument

	// ErrUnexpectedSlot reports a slot the value resolver has no rule for in
	// the normal broadcast format.
	ErrUnexpectedSlot = errors.New("unexpected slot")
)

// SignalValue is the transmitted value of one slot: a marker, 0 or 1
type SignalValue uint8

const (
	SignalZero SignalValue = iota
	SignalOne
	SignalMarker
)

// Duration returns how long the carrier stays at full power within the slot
func (v SignalValue) Duration() time.Duration {
	switch v {
	case SignalMarker:
		return protocol.JJY_MARKER_PULSE
	case SignalOne:
		return protocol.JJY_ONE_PULSE
	default:
		return protocol.JJY_ZERO_PULSE
	}
}

// String returns M, 0 or 1
func (v SignalValue) String() string {
	switch v {
	case SignalMarker:
		return "M"
	case SignalOne:
		return "1"
	case SignalZero:
		return "0"
	}
	return fmt.Sprintf("SignalValue(%d)", uint8(v))
}

// ValueFromBit converts a data bit to its signal value
func ValueFromBit(bit uint8) (SignalValue, error) {
	switch bit {
	case 0:
		return SignalZero, nil
	case 1:
		return SignalOne, nil
	}
	return SignalZero, fmt.Errorf("signal bit %d: %w", bit, ErrInvalidArgument)
}

// Signal pairs a slot with the value transmitted for it
type Signal struct {
	Slot  Slot
	Value SignalValue
}

// String returns e.g. "40m=1"
func (s Signal) String() string {
	return s.Slot.String() + "=" + s.Value.String()
}

// Fields holds the calendar values carried by one minute frame
type Fields struct {
	Hour       uint32 // 0-23
	Minute     uint32 // 0-59
	DayOfYear  uint32 // 1-366
	YearMod100 uint32 // 0-99
	Weekday    uint32 // 0-6, Sunday = 0
}

// FieldsFromTime extracts the frame fields from a local civil time
func FieldsFromTime(t time.Time) Fields {
	year := t.Year() % 100
	if year < 0 {
		year += 100
	}
	return Fields{
		Hour:       uint32(t.Hour()),
		Minute:     uint32(t.Minute()),
		DayOfYear:  uint32(t.YearDay()),
		YearMod100: uint32(year),
		Weekday:    uint32(t.Weekday()),
	}
}

// ResolveValue computes the transmitted value of a slot for the given fields.
// A StopAnnounce slot, or a parity flag other than PA1/PA2, means the slot
// table and this resolver disagree and yields ErrUnexpectedSlot.
func ResolveValue(slot Slot, f Fields) (SignalValue, error) {
	switch slot.Kind {
	case SlotMarker, SlotPosition:
		return SignalMarker, nil
	case SlotHour:
		return ValueFromBit(codec.BCDDigit(f.Hour, slot.Index))
	case SlotMinute:
		return ValueFromBit(codec.BCDDigit(f.Minute, slot.Index))
	case SlotDay:
		return ValueFromBit(codec.BCDDigit(f.DayOfYear, slot.Index))
	case SlotYear:
		return ValueFromBit(codec.BCDDigit(f.YearMod100, slot.Index))
	case SlotWeekday:
		return ValueFromBit(codec.BCDDigit(f.Weekday, slot.Index))
	case SlotLeapSecond:
		// Leap second announcements are not sent
		return SignalZero, nil
	case SlotParity:
		return resolveParity(slot, f)
	case SlotReserved, SlotFixedZero:
		return SignalZero, nil
	}
	return SignalZero, fmt.Errorf("resolve %s (%s): %w", slot, slot.Kind, ErrUnexpectedSlot)
}

func resolveParity(slot Slot, f Fields) (SignalValue, error) {
	var field uint32
	switch slot.Index {
	case 1:
		field = f.Hour
	case 2:
		field = f.Minute
	default:
		return SignalZero, fmt.Errorf("resolve %s: %w", slot, ErrUnexpectedSlot)
	}

	bit, err := codec.Parity(field)
	if err != nil {
		return SignalZero, fmt.Errorf("resolve %s: %w", slot, err)
	}
	return ValueFromBit(bit)
}
