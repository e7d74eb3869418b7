package transmitter

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dbehnke/jjyd/internal/protocol/jjy"
)

// LogDisplay prints every slot as "2004-04-01 17:25:00  40m: 0"
type LogDisplay struct {
	log zerolog.Logger
}

// NewLogDisplay creates a display writing to log at info level
func NewLogDisplay(log zerolog.Logger) *LogDisplay {
	return &LogDisplay{log: log}
}

// Show logs one slot
func (d *LogDisplay) Show(at time.Time, sig jjy.Signal) {
	d.log.Info().Msgf("%s %4s: %s", at.Format("2006-01-02 15:04:05"), sig.Slot, sig.Value)
}
