// Package repo implements the data persistence layer for tickets and
// managers, backed by GORM. This file provides repository functions for the
// Manager model, including the soft-deactivation lifecycle and per-manager
// activity stats.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/aiflownow/support-bot/internal/domain"
)

// UpsertManager adds a manager by chat id, or reactivates an existing row.
// When a row with that chat id exists (active or not), its active flag is
// raised and the nickname overwritten; otherwise a new row is inserted.
// The chat_id unique index guarantees at most one row per identity.
func UpsertManager(ctx context.Context, db *gorm.DB, chatID int64, nickname string) (*domain.Manager, error) {
	var m domain.Manager
	err := db.WithContext(ctx).First(&m, "chat_id = ?", chatID).Error
	switch {
	case err == nil:
		m.IsActive = true
		m.Nickname = nickname
		if err := db.WithContext(ctx).Save(&m).Error; err != nil {
			return nil, err
		}
		return &m, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		m = domain.Manager{
			ChatID:    chatID,
			Nickname:  nickname,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(&m).Error; err != nil {
			return nil, err
		}
		return &m, nil
	default:
		return nil, err
	}
}

// DeactivateManager soft-removes a manager by chat id. The row is kept so
// answer history stays attributable; ErrNotFound when no such manager exists.
func DeactivateManager(ctx context.Context, db *gorm.DB, chatID int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Manager{}).
		Where("chat_id = ?", chatID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveManagers returns active managers ordered by creation time
// ascending (seniority order, matching the notification fan-out order).
func ListActiveManagers(ctx context.Context, db *gorm.DB) ([]domain.Manager, error) {
	var out []domain.Manager
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// GetManagerByChatID fetches a manager row (active or not) by its natural
// key, or ErrNotFound.
func GetManagerByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Manager, error) {
	var m domain.Manager
	if err := db.WithContext(ctx).First(&m, "chat_id = ?", chatID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// IsActiveManager reports whether an active manager row exists for chatID.
func IsActiveManager(ctx context.Context, db *gorm.DB, chatID int64) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Manager{}).
		Where("chat_id = ? AND is_active = ?", chatID, true).
		Count(&n).Error
	return n > 0, err
}

// ManagerStats summarizes one manager's answering activity. LastActivity is
// nil when the manager has never answered a ticket.
type ManagerStats struct {
	TotalAnswered int64
	LastActivity  *time.Time
}

// GetManagerStats returns the count of tickets answered by chatID and the
// timestamp of the most recent answer.
func GetManagerStats(ctx context.Context, db *gorm.DB, chatID int64) (ManagerStats, error) {
	q := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("manager_chat_id = ? AND is_answered = ?", chatID, true)

	var s ManagerStats
	if err := q.Count(&s.TotalAnswered).Error; err != nil {
		return ManagerStats{}, err
	}
	if s.TotalAnswered == 0 {
		return s, nil
	}

	// Get latest answered_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		AnsweredAt time.Time
	}
	if err := q.Select("answered_at").Order("answered_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return ManagerStats{}, err
	}
	s.LastActivity = &row.AnsweredAt
	return s, nil
}
