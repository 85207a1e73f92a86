package store

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inbox-scorer-go/internal/model"
)

// RecordStore abstracts the persisted email record store for the pipeline:
// existence/score lookup by identity, and identity-keyed upsert.
type RecordStore interface {
	// Exists reports whether a record with the message identity exists, and
	// if so whether it already carries both classifier scores.
	Exists(messageID string) (found bool, hasScores bool, err error)
	// Upsert inserts or updates the record keyed by its message identity,
	// overwriting only the fields the record supplies.
	Upsert(record *model.Email) error
	// Recent returns the most recently updated records, newest first.
	Recent(limit int) ([]model.Email, error)
}

// GormStore implements RecordStore on a GORM database handle.
type GormStore struct {
	db *gorm.DB
}

// New creates a RecordStore backed by db.
func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Exists looks up the record by message identity.
func (s *GormStore) Exists(messageID string) (bool, bool, error) {
	var email model.Email
	result := s.db.Where("message_id = ?", messageID).First(&email)
	if result.Error == gorm.ErrRecordNotFound {
		return false, false, nil
	}
	if result.Error != nil {
		return false, false, fmt.Errorf("database error checking email %s: %w", messageID, result.Error)
	}
	return true, email.HasScores(), nil
}

// Upsert inserts the record, or on a message_id conflict updates sender and
// body, plus the score columns only when the record carries scores. A
// scoreless record therefore never clobbers scores persisted earlier.
func (s *GormStore) Upsert(record *model.Email) error {
	columns := []string{"sender", "body", "updated_at"}
	if record.HasScores() {
		columns = append(columns, "ai_score", "human_score")
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(record)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert email %s: %w", record.MessageID, result.Error)
	}
	return nil
}

// Recent returns up to limit records ordered by most recent update.
func (s *GormStore) Recent(limit int) ([]model.Email, error) {
	var emails []model.Email
	result := s.db.Order("updated_at DESC").Limit(limit).Find(&emails)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list emails: %w", result.Error)
	}
	return emails, nil
}
