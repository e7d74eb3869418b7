package jjy

import (
	"fmt"

	"github.com/dbehnke/jjyd/internal/protocol"
)

// SlotKind identifies what a one-second frame slot carries
type SlotKind uint8

const (
	SlotFixedZero    SlotKind = iota // Filler, always 0
	SlotMarker                       // Minute marker (M)
	SlotPosition                     // Position marker (P1..P5, P0)
	SlotMinute                       // Minute BCD bit
	SlotHour                         // Hour BCD bit
	SlotDay                          // Day-of-year BCD bit
	SlotYear                         // Year (last two digits) BCD bit
	SlotWeekday                      // Day-of-week BCD bit, Sunday = 0
	SlotLeapSecond                   // Leap second information (LS1, LS2)
	SlotParity                       // Parity (PA1 hour, PA2 minute)
	SlotReserved                     // Reserved / summer time (SU1, SU2)
	SlotStopAnnounce                 // Service stop announcement (ST1..ST6)
)

var slotKindNames = map[SlotKind]string{
	SlotFixedZero:    "FixedZero",
	SlotMarker:       "Marker",
	SlotPosition:     "Position",
	SlotMinute:       "MinuteDigit",
	SlotHour:         "HourDigit",
	SlotDay:          "DayDigit",
	SlotYear:         "YearDigit",
	SlotWeekday:      "WeekdayDigit",
	SlotLeapSecond:   "LeapSecondFlag",
	SlotParity:       "ParityFlag",
	SlotReserved:     "Reserved",
	SlotStopAnnounce: "StopAnnounce",
}

// String returns the variant name
func (k SlotKind) String() string {
	if name, ok := slotKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SlotKind(%d)", uint8(k))
}

// Slot describes one second of the minute frame.
//
// Index is the variant payload: the BCD bit index for digit slots (0 = weight 1),
// the marker number for Position (P1..P5, 0 for P0), and the flag number for
// LeapSecond, Parity, Reserved and StopAnnounce. Marker and FixedZero ignore it.
type Slot struct {
	Kind  SlotKind
	Index uint8
}

// Slot constructors
func Marker() Slot                { return Slot{Kind: SlotMarker} }
func FixedZero() Slot             { return Slot{Kind: SlotFixedZero} }
func Position(p uint8) Slot       { return Slot{Kind: SlotPosition, Index: p} }
func MinuteDigit(i uint8) Slot    { return Slot{Kind: SlotMinute, Index: i} }
func HourDigit(i uint8) Slot      { return Slot{Kind: SlotHour, Index: i} }
func DayDigit(i uint8) Slot       { return Slot{Kind: SlotDay, Index: i} }
func YearDigit(i uint8) Slot      { return Slot{Kind: SlotYear, Index: i} }
func WeekdayDigit(i uint8) Slot   { return Slot{Kind: SlotWeekday, Index: i} }
func LeapSecondFlag(n uint8) Slot { return Slot{Kind: SlotLeapSecond, Index: n} }
func ParityFlag(n uint8) Slot     { return Slot{Kind: SlotParity, Index: n} }
func Reserved(n uint8) Slot       { return Slot{Kind: SlotReserved, Index: n} }
func StopAnnounce(n uint8) Slot   { return Slot{Kind: SlotStopAnnounce, Index: n} }

// SlotForSecond maps a second of the minute (0-59) to its slot in the
// normal broadcast format. Call-sign minutes are not produced, so
// StopAnnounce never appears. Seconds outside the table resolve to FixedZero.
//
// TODO: a minute with an inserted 60th second still sends P0 at second 59.
func SlotForSecond(second int) Slot {
	switch {
	case second == protocol.JJY_MARKER_SECOND:
		return Marker()
	case second >= 1 && second <= 3:
		return MinuteDigit(uint8(7 - second)) // 40m, 20m, 10m
	case second == 4:
		return FixedZero()
	case second >= 5 && second <= 8:
		return MinuteDigit(uint8(8 - second)) // 8m, 4m, 2m, 1m
	case second == protocol.JJY_P1_SECOND:
		return Position(1)
	case second == 10 || second == 11:
		return FixedZero()
	case second == 12 || second == 13:
		return HourDigit(uint8(17 - second)) // 20h, 10h
	case second == 14:
		return FixedZero()
	case second >= 15 && second <= 18:
		return HourDigit(uint8(18 - second)) // 8h, 4h, 2h, 1h
	case second == protocol.JJY_P2_SECOND:
		return Position(2)
	case second == 20 || second == 21:
		return FixedZero()
	case second == 22 || second == 23:
		return DayDigit(uint8(31 - second)) // 200d, 100d
	case second == 24:
		return FixedZero()
	case second >= 25 && second <= 28:
		return DayDigit(uint8(32 - second)) // 80d, 40d, 20d, 10d
	case second == protocol.JJY_P3_SECOND:
		return Position(3)
	case second >= 30 && second <= 33:
		return DayDigit(uint8(33 - second)) // 8d, 4d, 2d, 1d
	case second == 34 || second == 35:
		return FixedZero()
	case second == protocol.JJY_PA1_SECOND:
		return ParityFlag(1)
	case second == protocol.JJY_PA2_SECOND:
		return ParityFlag(2)
	case second == protocol.JJY_SU1_SECOND:
		return Reserved(1)
	case second == protocol.JJY_P4_SECOND:
		return Position(4)
	case second == protocol.JJY_SU2_SECOND:
		return Reserved(2)
	case second >= 41 && second <= 48:
		return YearDigit(uint8(48 - second)) // 80y .. 1y
	case second == protocol.JJY_P5_SECOND:
		return Position(5)
	case second >= 50 && second <= 52:
		return WeekdayDigit(uint8(52 - second)) // 4w, 2w, 1w
	case second == protocol.JJY_LS1_SECOND:
		return LeapSecondFlag(1)
	case second == protocol.JJY_LS2_SECOND:
		return LeapSecondFlag(2)
	case second >= 55 && second <= 58:
		return FixedZero()
	case second == protocol.JJY_P0_SECOND:
		return Position(0)
	}
	return FixedZero()
}

// String renders the slot the way the broadcast tables label it: M, P1, 40m,
// 200d, PA1, LS2, 0 and so on.
func (s Slot) String() string {
	switch s.Kind {
	case SlotMarker:
		return "M"
	case SlotPosition:
		return fmt.Sprintf("P%d", s.Index)
	case SlotMinute:
		return weightLabel(s.Index, "m")
	case SlotHour:
		return weightLabel(s.Index, "h")
	case SlotDay:
		return weightLabel(s.Index, "d")
	case SlotYear:
		return weightLabel(s.Index, "y")
	case SlotWeekday:
		return weightLabel(s.Index, "w")
	case SlotLeapSecond:
		return fmt.Sprintf("LS%d", s.Index)
	case SlotParity:
		return fmt.Sprintf("PA%d", s.Index)
	case SlotReserved:
		return fmt.Sprintf("SU%d", s.Index)
	case SlotStopAnnounce:
		return fmt.Sprintf("ST%d", s.Index)
	case SlotFixedZero:
		return "0"
	}
	return s.Kind.String()
}

func weightLabel(i uint8, unit string) string {
	if int(i) >= len(protocol.JJY_BCD_WEIGHTS) {
		return fmt.Sprintf("bit%d%s", i, unit)
	}
	return fmt.Sprintf("%d%s", protocol.JJY_BCD_WEIGHTS[i], unit)
}
