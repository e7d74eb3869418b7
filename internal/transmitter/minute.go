package transmitter

import (
	"time"

	"github.com/dbehnke/jjyd/internal/protocol"
	"github.com/dbehnke/jjyd/internal/protocol/jjy"
)

// Minute is the part of one minute frame that actually went out
type Minute struct {
	Frame jjy.Frame
	Sent  [protocol.JJY_SLOTS_PER_MINUTE]bool
}

func newMinute(start time.Time) *Minute {
	return &Minute{
		Frame: jjy.Frame{
			Start:  start,
			Fields: jjy.FieldsFromTime(start),
		},
	}
}

// minuteStart returns second 0 of the minute containing t
func minuteStart(t time.Time) time.Time {
	return t.Add(-time.Duration(t.Second())*time.Second - time.Duration(t.Nanosecond()))
}

func (m *Minute) record(second int, sig jjy.Signal) {
	if second < 0 || second >= len(m.Sent) {
		return
	}
	m.Frame.Signals[second] = sig
	m.Sent[second] = true
}

// Complete reports whether all 60 slots were sent
func (m Minute) Complete() bool {
	return m.SentCount() == len(m.Sent)
}

// SentCount returns the number of slots sent
func (m Minute) SentCount() int {
	n := 0
	for _, sent := range m.Sent {
		if sent {
			n++
		}
	}
	return n
}

// Bits renders the frame with "-" for slots that were not sent
func (m Minute) Bits() string {
	buf := []byte(m.Frame.Bits())
	for i, sent := range m.Sent {
		if !sent {
			buf[i] = '-'
		}
	}
	return string(buf)
}
