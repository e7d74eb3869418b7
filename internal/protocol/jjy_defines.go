package protocol

import "time"

// JJY time code constants (standard-time broadcast, 40 kHz / 60 kHz)

const (
	// Frame constants
	JJY_SLOTS_PER_MINUTE = 60 // One slot per second
	JJY_SLOT_PERIOD      = time.Second

	// Pulse widths: carrier stays at full power for this long, then drops
	// to reduced power for the rest of the slot
	JJY_MARKER_PULSE = 200 * time.Millisecond
	JJY_ONE_PULSE    = 500 * time.Millisecond
	JJY_ZERO_PULSE   = 800 * time.Millisecond
)

// Marker slot positions
const (
	JJY_MARKER_SECOND = 0
	JJY_P1_SECOND     = 9
	JJY_P2_SECOND     = 19
	JJY_P3_SECOND     = 29
	JJY_P4_SECOND     = 39
	JJY_P5_SECOND     = 49
	JJY_P0_SECOND     = 59
)

// Parity and flag slot positions
const (
	JJY_PA1_SECOND = 36 // Parity of the hour field
	JJY_PA2_SECOND = 37 // Parity of the minute field
	JJY_SU1_SECOND = 38 // Reserved
	JJY_SU2_SECOND = 40 // Reserved (summer time)
	JJY_LS1_SECOND = 53 // Leap second announcement
	JJY_LS2_SECOND = 54 // Leap second sign
)

// BCD field widths in bits
const (
	JJY_MINUTE_BITS  = 7  // 40m 20m 10m 8m 4m 2m 1m
	JJY_HOUR_BITS    = 6  // 20h 10h 8h 4h 2h 1h
	JJY_DAY_BITS     = 10 // 200d 100d 80d 40d 20d 10d 8d 4d 2d 1d
	JJY_YEAR_BITS    = 8  // 80y 40y 20y 10y 8y 4y 2y 1y
	JJY_WEEKDAY_BITS = 3  // 4w 2w 1w
)

// JJY_BCD_WEIGHTS maps a BCD bit index to its decimal weight
var JJY_BCD_WEIGHTS = [...]uint16{1, 2, 4, 8, 10, 20, 40, 80, 100, 200}
