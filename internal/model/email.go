package model

import (
	"time"
)

// Email represents a scored mailbox message in the database. MessageID is
// the stable mailbox identity and the upsert conflict key. AIScore and
// HumanScore are either both set or both nil: a record persisted after a
// classifier rate limit or error carries neither, so a later run can pick
// it up and score it.
type Email struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID  string    `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Sender     string    `json:"sender" gorm:"type:varchar(255)"`
	Body       string    `json:"body" gorm:"type:longtext"`
	AIScore    *float64  `json:"ai_score" gorm:"column:ai_score"`
	HumanScore *float64  `json:"human_score" gorm:"column:human_score"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for Email
func (Email) TableName() string {
	return "emails"
}

// HasScores reports whether the record carries both classifier scores.
func (e *Email) HasScores() bool {
	return e.AIScore != nil && e.HumanScore != nil
}

// SetScores attaches both classifier probabilities to the record.
func (e *Email) SetScores(ai, human float64) {
	e.AIScore = &ai
	e.HumanScore = &human
}
