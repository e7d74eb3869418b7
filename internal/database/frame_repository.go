package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FrameRepository provides database operations for transmitted frames
type FrameRepository struct {
	db *gorm.DB
}

// NewFrameRepository creates a new repository instance
func NewFrameRepository(db *gorm.DB) *FrameRepository {
	return &FrameRepository{db: db}
}

// Save stores a frame, replacing an earlier record of the same minute in the
// same session (a minute cut short and then resumed)
func (r *FrameRepository) Save(record *FrameRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}

	if !record.IsValid() {
		return fmt.Errorf("record is not valid: session=%s, minute=%s, bits=%q",
			record.SessionID, record.MinuteStart.Format(time.RFC3339), record.Bits)
	}

	record.MinuteStart = record.MinuteStart.UTC()

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "minute_start"}},
		DoUpdates: clause.AssignmentColumns([]string{"bits", "complete", "timezone"}),
	}).Create(record).Error
}

// GetByMinute finds the most recent record of the minute starting at t
func (r *FrameRepository) GetByMinute(t time.Time) (*FrameRecord, error) {
	var record FrameRecord
	err := r.db.Where("minute_start = ?", t.UTC()).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecent returns the newest records first
func (r *FrameRepository) ListRecent(limit int) ([]FrameRecord, error) {
	var records []FrameRecord
	err := r.db.Order("minute_start DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// ListSession returns the records of one run in transmission order
func (r *FrameRepository) ListSession(sessionID string) ([]FrameRecord, error) {
	var records []FrameRecord
	err := r.db.Where("session_id = ?", sessionID).
		Order("minute_start ASC").
		Find(&records).Error
	return records, err
}

// Count returns the total number of stored frames
func (r *FrameRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&FrameRecord{}).Count(&count).Error
	return count, err
}

// PruneBefore deletes frames older than t and reports how many were removed
func (r *FrameRepository) PruneBefore(t time.Time) (int64, error) {
	result := r.db.Where("minute_start < ?", t.UTC()).Delete(&FrameRecord{})
	return result.RowsAffected, result.Error
}

// GetStatistics returns basic history statistics
func (r *FrameRepository) GetStatistics() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	count, err := r.Count()
	if err != nil {
		return nil, err
	}
	stats["total_frames"] = count

	var incomplete int64
	if err := r.db.Model(&FrameRecord{}).Where("complete = ?", false).Count(&incomplete).Error; err != nil {
		return nil, err
	}
	stats["partial_frames"] = incomplete

	var sessions int64
	if err := r.db.Model(&FrameRecord{}).Distinct("session_id").Count(&sessions).Error; err != nil {
		return nil, err
	}
	stats["sessions"] = sessions

	var latest FrameRecord
	err = r.db.Order("minute_start DESC").First(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		stats["last_minute"] = latest.MinuteStart
	}

	return stats, nil
}

// HealthCheck verifies the repository is working correctly
func (r *FrameRepository) HealthCheck() error {
	var count int64
	return r.db.Model(&FrameRecord{}).Count(&count).Error
}
