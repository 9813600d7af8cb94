// Package domain defines the persistence models for tickets and managers.
// These types are mapped with GORM and form the core data layer of the
// support relay.
package domain

import (
	"strings"
	"time"
)

// AnonymousNickname is stored when a submitter exposes no usable identity.
const AnonymousNickname = "anonymous"

// Ticket sources recorded in the provenance column.
const (
	SourceClientBot = "client_bot" // direct chat intake
	SourceWorkflow  = "n8n_ai"     // webhook intake from the external classifier
)

// Ticket represents a single client question and its lifecycle state.
// A ticket is created by intake (chat message or webhook), answered or closed
// exactly once by a manager, and never deleted.
//
// Invariant: IsAnswered is true iff Answer, AnsweredAt, and ManagerChatID are
// all non-nil; repo.AnswerTicket sets the four columns in one statement.
type Ticket struct {
	ID             int64      `json:"id"              gorm:"primaryKey;autoIncrement"`
	ClientChatID   int64      `json:"client_chat_id"  gorm:"not null;index"`
	ClientNickname string     `json:"client_nickname" gorm:"type:varchar(100);not null"`
	Question       string     `json:"question"        gorm:"type:text;not null"`
	CreatedAt      time.Time  `json:"created_at"`
	IsAnswered     bool       `json:"is_answered"     gorm:"not null;default:false;index"`
	Answer         *string    `json:"answer,omitempty"          gorm:"type:text"`
	AnsweredAt     *time.Time `json:"answered_at,omitempty"`
	ManagerChatID  *int64     `json:"manager_chat_id,omitempty"`

	// Provenance for externally sourced tickets.
	Source      string  `json:"source"                gorm:"type:varchar(50);not null;default:''"`
	ExternalID  *string `json:"external_id,omitempty" gorm:"type:varchar(100)"`
	AIProcessed bool    `json:"ai_processed"          gorm:"not null;default:false"`
	AIConfident bool    `json:"ai_confident"          gorm:"not null;default:false"`
}

// TableName returns the database table name for Ticket.
func (Ticket) TableName() string { return "tickets" }

// Manager represents a staff identity authorized to view and answer tickets.
// Removal is a soft-deactivation; re-adding the same chat id reactivates the
// row and overwrites the nickname, so at most one row exists per chat id.
type Manager struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	ChatID    int64     `json:"chat_id"    gorm:"uniqueIndex;not null"`
	Nickname  string    `json:"nickname"   gorm:"type:varchar(100);not null"`
	IsActive  bool      `json:"is_active"  gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Manager.
func (Manager) TableName() string { return "managers" }

// FallbackNickname derives a display name from the identity fields a chat
// platform exposes: username when present, otherwise "first last" (either may
// be empty), otherwise the anonymous placeholder. Every step is trimmed.
func FallbackNickname(username, firstName, lastName string) string {
	if u := strings.TrimSpace(username); u != "" {
		return u
	}
	full := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if full != "" {
		return full
	}
	return AnonymousNickname
}
