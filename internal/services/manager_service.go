// Package services – ManagerService
//
// This file implements manager administration: add-or-reactivate, soft
// removal, listing, per-manager stats, and membership checks against both
// the managers table and the statically configured administrator set.
// Administrators overlap but are distinct from managers: admin identity comes
// from configuration and never expires, while manager rows are data.
package services

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/repo"
)

// AdminSeedNickname is stored for auto-provisioned administrator rows.
const AdminSeedNickname = "Administrator"

// ManagerRepo defines the repository contract required by ManagerService.
type ManagerRepo interface {
	UpsertManager(ctx context.Context, db *gorm.DB, chatID int64, nickname string) (*domain.Manager, error)
	DeactivateManager(ctx context.Context, db *gorm.DB, chatID int64) error
	ListActiveManagers(ctx context.Context, db *gorm.DB) ([]domain.Manager, error)
	GetManagerByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Manager, error)
	IsActiveManager(ctx context.Context, db *gorm.DB, chatID int64) (bool, error)
	GetManagerStats(ctx context.Context, db *gorm.DB, chatID int64) (repo.ManagerStats, error)
}

// ManagerService provides manager administration and authorization checks.
type ManagerService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the manager repository used by this service.
	Repo ManagerRepo
	// Admins is the statically configured administrator identity set.
	Admins []int64
}

// NewManagerService constructs a ManagerService.
func NewManagerService(db *gorm.DB, r ManagerRepo, admins []int64) *ManagerService {
	return &ManagerService{DB: db, Repo: r, Admins: admins}
}

// Add registers (or reactivates) a manager. The nickname must be 2..100
// characters; an already-active manager returns ErrManagerExists.
func (s *ManagerService) Add(ctx context.Context, chatID int64, nickname string) (*domain.Manager, error) {
	if n := utf8.RuneCountInString(nickname); n < 2 || n > 100 {
		return nil, ErrBadNickname
	}

	existing, err := s.Repo.GetManagerByChatID(ctx, s.DB, chatID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsActive {
		return nil, ErrManagerExists
	}

	m, err := s.Repo.UpsertManager(ctx, s.DB, chatID, nickname)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("chat_id", chatID).Str("nickname", nickname).Msg("manager added")
	return m, nil
}

// Remove soft-deactivates a manager, returning ErrManagerNotFound when no
// row exists for chatID.
func (s *ManagerService) Remove(ctx context.Context, chatID int64) error {
	if err := s.Repo.DeactivateManager(ctx, s.DB, chatID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrManagerNotFound
		}
		return err
	}
	log.Info().Int64("chat_id", chatID).Msg("manager deactivated")
	return nil
}

// ListActive returns active managers in creation order.
func (s *ManagerService) ListActive(ctx context.Context) ([]domain.Manager, error) {
	return s.Repo.ListActiveManagers(ctx, s.DB)
}

// Get fetches a manager row by chat id, mapping a missing row to
// ErrManagerNotFound.
func (s *ManagerService) Get(ctx context.Context, chatID int64) (*domain.Manager, error) {
	m, err := s.Repo.GetManagerByChatID(ctx, s.DB, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrManagerNotFound
		}
		return nil, err
	}
	return m, nil
}

// Stats returns a manager's answering activity.
func (s *ManagerService) Stats(ctx context.Context, chatID int64) (repo.ManagerStats, error) {
	return s.Repo.GetManagerStats(ctx, s.DB, chatID)
}

// IsManager reports whether chatID is a registered active manager.
func (s *ManagerService) IsManager(ctx context.Context, chatID int64) bool {
	ok, err := s.Repo.IsActiveManager(ctx, s.DB, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("manager lookup failed")
		return false
	}
	return ok
}

// IsAdmin reports whether chatID is in the configured administrator set.
func (s *ManagerService) IsAdmin(chatID int64) bool {
	for _, id := range s.Admins {
		if id == chatID {
			return true
		}
	}
	return false
}

// IsAuthorized reports whether chatID may use the manager console at all.
func (s *ManagerService) IsAuthorized(ctx context.Context, chatID int64) bool {
	return s.IsManager(ctx, chatID) || s.IsAdmin(chatID)
}

// SeedAdmins auto-provisions a manager row for every configured admin
// identity at process start: missing rows are created with the seed
// nickname, deactivated rows are reactivated keeping their nickname, and
// active rows are left untouched. Seeding failures are logged per identity
// and do not abort startup.
func (s *ManagerService) SeedAdmins(ctx context.Context) {
	for _, id := range s.Admins {
		existing, err := s.Repo.GetManagerByChatID(ctx, s.DB, id)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			if _, err := s.Repo.UpsertManager(ctx, s.DB, id, AdminSeedNickname); err != nil {
				log.Error().Err(err).Int64("chat_id", id).Msg("seeding admin failed")
				continue
			}
			log.Info().Int64("chat_id", id).Msg("default admin created")
		case err != nil:
			log.Error().Err(err).Int64("chat_id", id).Msg("seeding admin lookup failed")
		case !existing.IsActive:
			if _, err := s.Repo.UpsertManager(ctx, s.DB, id, existing.Nickname); err != nil {
				log.Error().Err(err).Int64("chat_id", id).Msg("reactivating admin failed")
				continue
			}
			log.Info().Int64("chat_id", id).Msg("admin reactivated")
		}
	}
}
