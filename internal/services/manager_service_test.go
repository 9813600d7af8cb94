package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/repo"
)

// ----- Fake repo -----

type fakeManagerRepo struct {
	upserts       map[int64]string // chatID -> nickname of last upsert
	upsertErr     error
	deactivated   []int64
	deactivateErr error

	byChatID map[int64]*domain.Manager
	getErr   error

	active    []domain.Manager
	isActive  map[int64]bool
	statsBy   map[int64]repo.ManagerStats
	activeErr error
}

func newFakeManagerRepo() *fakeManagerRepo {
	return &fakeManagerRepo{
		upserts:  map[int64]string{},
		byChatID: map[int64]*domain.Manager{},
		isActive: map[int64]bool{},
		statsBy:  map[int64]repo.ManagerStats{},
	}
}

func (r *fakeManagerRepo) UpsertManager(ctx context.Context, db *gorm.DB, chatID int64, nickname string) (*domain.Manager, error) {
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	r.upserts[chatID] = nickname
	m := &domain.Manager{ID: chatID, ChatID: chatID, Nickname: nickname, IsActive: true}
	r.byChatID[chatID] = m
	return m, nil
}

func (r *fakeManagerRepo) DeactivateManager(ctx context.Context, db *gorm.DB, chatID int64) error {
	if r.deactivateErr != nil {
		return r.deactivateErr
	}
	r.deactivated = append(r.deactivated, chatID)
	return nil
}

func (r *fakeManagerRepo) ListActiveManagers(ctx context.Context, db *gorm.DB) ([]domain.Manager, error) {
	return r.active, r.activeErr
}

func (r *fakeManagerRepo) GetManagerByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Manager, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if m, ok := r.byChatID[chatID]; ok {
		return m, nil
	}
	return nil, repo.ErrNotFound
}

func (r *fakeManagerRepo) IsActiveManager(ctx context.Context, db *gorm.DB, chatID int64) (bool, error) {
	return r.isActive[chatID], nil
}

func (r *fakeManagerRepo) GetManagerStats(ctx context.Context, db *gorm.DB, chatID int64) (repo.ManagerStats, error) {
	return r.statsBy[chatID], nil
}

// ----- Tests -----

func TestAdd_Success(t *testing.T) {
	r := newFakeManagerRepo()
	s := NewManagerService(nil, r, nil)

	m, err := s.Add(context.Background(), 100, "alice")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if m.Nickname != "alice" || !m.IsActive {
		t.Fatalf("manager = %+v", m)
	}
	if r.upserts[100] != "alice" {
		t.Fatalf("upsert not recorded: %v", r.upserts)
	}
}

func TestAdd_NicknameBounds(t *testing.T) {
	r := newFakeManagerRepo()
	s := NewManagerService(nil, r, nil)
	ctx := context.Background()

	for _, bad := range []string{"", "x", strings.Repeat("n", 101)} {
		if _, err := s.Add(ctx, 1, bad); !errors.Is(err, ErrBadNickname) {
			t.Fatalf("Add(%q): expected ErrBadNickname, got %v", bad, err)
		}
	}
	if len(r.upserts) != 0 {
		t.Fatalf("invalid nicknames must not reach the repo")
	}

	// Boundary values are accepted.
	for _, ok := range []string{"ab", strings.Repeat("n", 100)} {
		if _, err := s.Add(ctx, 2, ok); err != nil {
			t.Fatalf("Add(%d runes): %v", len(ok), err)
		}
	}
}

func TestAdd_AlreadyActive(t *testing.T) {
	r := newFakeManagerRepo()
	r.byChatID[7] = &domain.Manager{ChatID: 7, Nickname: "bob", IsActive: true}
	s := NewManagerService(nil, r, nil)

	if _, err := s.Add(context.Background(), 7, "bobby"); !errors.Is(err, ErrManagerExists) {
		t.Fatalf("expected ErrManagerExists, got %v", err)
	}
}

func TestAdd_InactiveRowIsReactivated(t *testing.T) {
	r := newFakeManagerRepo()
	r.byChatID[7] = &domain.Manager{ChatID: 7, Nickname: "bob", IsActive: false}
	s := NewManagerService(nil, r, nil)

	m, err := s.Add(context.Background(), 7, "bobby")
	if err != nil {
		t.Fatalf("Add on inactive row: %v", err)
	}
	if m.Nickname != "bobby" {
		t.Fatalf("nickname not overwritten: %+v", m)
	}
}

func TestRemove_MapsNotFound(t *testing.T) {
	r := newFakeManagerRepo()
	r.deactivateErr = repo.ErrNotFound
	s := NewManagerService(nil, r, nil)

	if err := s.Remove(context.Background(), 404); !errors.Is(err, ErrManagerNotFound) {
		t.Fatalf("expected ErrManagerNotFound, got %v", err)
	}
}

func TestIsAdminAndIsAuthorized(t *testing.T) {
	r := newFakeManagerRepo()
	r.isActive[5] = true
	s := NewManagerService(nil, r, []int64{42})
	ctx := context.Background()

	if !s.IsAdmin(42) || s.IsAdmin(5) {
		t.Fatalf("IsAdmin wrong")
	}
	if !s.IsAuthorized(ctx, 5) { // active manager
		t.Fatalf("active manager must be authorized")
	}
	if !s.IsAuthorized(ctx, 42) { // admin without manager row
		t.Fatalf("admin must be authorized")
	}
	if s.IsAuthorized(ctx, 9) {
		t.Fatalf("stranger must not be authorized")
	}
}

func TestSeedAdmins(t *testing.T) {
	r := newFakeManagerRepo()
	r.byChatID[2] = &domain.Manager{ChatID: 2, Nickname: "kept", IsActive: false}
	r.byChatID[3] = &domain.Manager{ChatID: 3, Nickname: "active", IsActive: true}
	s := NewManagerService(nil, r, []int64{1, 2, 3})

	s.SeedAdmins(context.Background())

	if r.upserts[1] != AdminSeedNickname {
		t.Fatalf("missing admin not seeded: %v", r.upserts)
	}
	if r.upserts[2] != "kept" {
		t.Fatalf("inactive admin must be reactivated with its nickname, got %q", r.upserts[2])
	}
	if _, touched := r.upserts[3]; touched {
		t.Fatalf("active admin must be left untouched")
	}
}
