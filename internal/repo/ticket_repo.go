// Package repo implements the data persistence layer for tickets and
// managers, backed by GORM. This file provides repository functions for the
// Ticket model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a ticket is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aiflownow/support-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// NewTicket carries everything needed to persist a ticket, including the
// provenance descriptor that unifies the direct-chat and webhook intake
// paths. Validation (length limits, nickname fallback) happens in the
// service layer; this struct is assumed clean.
type NewTicket struct {
	ClientChatID   int64
	ClientNickname string
	Question       string
	CreatedAt      time.Time

	Source      string
	ExternalID  string // empty means none
	AIProcessed bool
	AIConfident bool
}

// CreateTicket inserts a new pending ticket row and returns it with the
// generated id populated.
func CreateTicket(ctx context.Context, db *gorm.DB, in NewTicket) (*domain.Ticket, error) {
	t := &domain.Ticket{
		ClientChatID:   in.ClientChatID,
		ClientNickname: in.ClientNickname,
		Question:       in.Question,
		CreatedAt:      in.CreatedAt,
		Source:         in.Source,
		AIProcessed:    in.AIProcessed,
		AIConfident:    in.AIConfident,
	}
	if in.ExternalID != "" {
		ext := in.ExternalID
		t.ExternalID = &ext
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTicket fetches a single ticket by id, or ErrNotFound if missing.
func GetTicket(ctx context.Context, db *gorm.DB, id int64) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListPendingTickets returns every unanswered ticket ordered by creation
// time ascending (oldest first, FIFO presentation). It returns an empty
// slice when the queue is clear.
func ListPendingTickets(ctx context.Context, db *gorm.DB) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := db.WithContext(ctx).
		Where("is_answered = ?", false).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// AnswerTicket marks a ticket answered: one UPDATE sets is_answered, answer,
// answered_at, and manager_chat_id together, so the answered-implies-fields
// invariant cannot be observed half-applied. Returns ErrNotFound when no row
// has that id. There is deliberately no answered-already guard: two
// near-simultaneous answers race last-write-wins at the storage layer.
func AnswerTicket(ctx context.Context, db *gorm.DB, id int64, answer string, managerChatID int64, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_answered":     true,
			"answer":          answer,
			"answered_at":     at,
			"manager_chat_id": managerChatID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TicketCounts aggregates the ticket table: total rows, pending, answered.
type TicketCounts struct {
	Total    int64
	Pending  int64
	Answered int64
}

// CountTickets returns aggregate ticket counts in a pair of lightweight
// queries (answered is derived, not queried separately).
func CountTickets(ctx context.Context, db *gorm.DB) (TicketCounts, error) {
	var c TicketCounts
	if err := db.WithContext(ctx).Model(&domain.Ticket{}).Count(&c.Total).Error; err != nil {
		return TicketCounts{}, err
	}
	if err := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("is_answered = ?", false).
		Count(&c.Pending).Error; err != nil {
		return TicketCounts{}, err
	}
	c.Answered = c.Total - c.Pending
	return c, nil
}
