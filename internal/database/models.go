package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/dbehnke/jjyd/internal/protocol"
)

// FrameRecord is one transmitted minute in the history log
type FrameRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	SessionID   string    `gorm:"size:36;uniqueIndex:idx_session_minute;not null" json:"session_id"`
	MinuteStart time.Time `gorm:"uniqueIndex:idx_session_minute;index;not null" json:"minute_start"`
	Timezone    string    `gorm:"size:64" json:"timezone"`
	Bits        string    `gorm:"size:60;not null" json:"bits"`
	Hour        uint8     `json:"hour"`
	Minute      uint8     `json:"minute"`
	DayOfYear   uint16    `json:"day_of_year"`
	Year        uint8     `json:"year"`
	Weekday     uint8     `json:"weekday"`
	Complete    bool      `json:"complete"` // All 60 slots were sent
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (FrameRecord) TableName() string {
	return "frames"
}

// IsValid checks if the record has required fields
func (r FrameRecord) IsValid() bool {
	if r.SessionID == "" || r.MinuteStart.IsZero() {
		return false
	}
	if len(r.Bits) != protocol.JJY_SLOTS_PER_MINUTE {
		return false
	}
	return strings.Trim(r.Bits, "M01-") == ""
}

// String returns a formatted string representation
func (r FrameRecord) String() string {
	status := "complete"
	if !r.Complete {
		status = "partial"
	}
	return fmt.Sprintf("%s %s (%s)", r.MinuteStart.Format("2006-01-02 15:04"), r.Bits, status)
}
