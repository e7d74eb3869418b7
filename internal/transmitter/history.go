package transmitter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dbehnke/jjyd/internal/database"
)

// How often old history rows are pruned
const HISTORY_PRUNE_INTERVAL = time.Hour

// HistorySink stores every sent minute in the history database
type HistorySink struct {
	repo      *database.FrameRepository
	sessionID string
	retention time.Duration
	log       zerolog.Logger
	lastPrune time.Time
}

// NewHistorySink creates a sink recording under sessionID. A zero retention
// keeps every row.
func NewHistorySink(repo *database.FrameRepository, sessionID string, retention time.Duration, log zerolog.Logger) *HistorySink {
	return &HistorySink{
		repo:      repo,
		sessionID: sessionID,
		retention: retention,
		log:       log,
	}
}

// FrameSent stores the minute and prunes expired rows at most once an hour
func (h *HistorySink) FrameSent(ctx context.Context, m Minute) error {
	f := m.Frame.Fields
	record := &database.FrameRecord{
		SessionID:   h.sessionID,
		MinuteStart: m.Frame.Start,
		Timezone:    m.Frame.Start.Location().String(),
		Bits:        m.Bits(),
		Hour:        uint8(f.Hour),
		Minute:      uint8(f.Minute),
		DayOfYear:   uint16(f.DayOfYear),
		Year:        uint8(f.YearMod100),
		Weekday:     uint8(f.Weekday),
		Complete:    m.Complete(),
	}
	if err := h.repo.Save(record); err != nil {
		return fmt.Errorf("save frame history: %w", err)
	}

	if h.retention > 0 && m.Frame.Start.Sub(h.lastPrune) >= HISTORY_PRUNE_INTERVAL {
		h.lastPrune = m.Frame.Start
		removed, err := h.repo.PruneBefore(m.Frame.Start.Add(-h.retention))
		if err != nil {
			return fmt.Errorf("prune frame history: %w", err)
		}
		if removed > 0 {
			h.log.Info().Int64("removed", removed).Msg("pruned frame history")
		}
	}
	return nil
}
