// Package services – TicketService
//
// This file implements the TicketService, the single internal ticket-creation
// and lifecycle operation behind both intake paths (direct chat and webhook).
// It validates question length, derives the display nickname via the fallback
// chain, stamps the configured display timezone, and coordinates the
// repository for answering and closing. Recording an answer additionally
// fires a best-effort callback to the external workflow engine so the answer
// reaches the originating client; that callback is logged and swallowed,
// never rolled back against the committed answer.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/repo"
)

// ClosePlaceholderAnswer is recorded when a manager closes a ticket without
// writing a reply.
const ClosePlaceholderAnswer = "Ticket closed without an answer"

// TicketRepo defines the repository contract required by TicketService.
type TicketRepo interface {
	CreateTicket(ctx context.Context, db *gorm.DB, in repo.NewTicket) (*domain.Ticket, error)
	GetTicket(ctx context.Context, db *gorm.DB, id int64) (*domain.Ticket, error)
	ListPendingTickets(ctx context.Context, db *gorm.DB) ([]domain.Ticket, error)
	AnswerTicket(ctx context.Context, db *gorm.DB, id int64, answer string, managerChatID int64, at time.Time) error
	CountTickets(ctx context.Context, db *gorm.DB) (repo.TicketCounts, error)
}

// AnswerNotifier delivers a recorded answer to the external workflow engine.
// Implementations must tolerate being called concurrently; a nil notifier
// disables delivery.
type AnswerNotifier interface {
	NotifyAnswer(ctx context.Context, t *domain.Ticket) error
}

// Intake is the provenance-parameterized descriptor of one inbound question.
// Both intake variants build one of these and call Submit, keeping validation
// and ordering rules in a single place.
type Intake struct {
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
	Question  string

	Source      string // domain.SourceClientBot or domain.SourceWorkflow
	ExternalID  string
	AIProcessed bool
	AIConfident bool
}

// TicketService provides ticket lifecycle operations.
type TicketService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the ticket repository used by this service.
	Repo TicketRepo
	// Notifier receives answer callbacks; nil disables them.
	Notifier AnswerNotifier

	// MaxQuestionLen caps submitted questions by rune length.
	MaxQuestionLen int
	// Loc is the fixed display timezone stamped on created/answered times.
	Loc *time.Location
}

// NewTicketService constructs a TicketService with the given limits.
func NewTicketService(db *gorm.DB, r TicketRepo, n AnswerNotifier, maxLen int, loc *time.Location) *TicketService {
	if loc == nil {
		loc = time.UTC
	}
	return &TicketService{DB: db, Repo: r, Notifier: n, MaxQuestionLen: maxLen, Loc: loc}
}

// Submit validates and persists one inbound question as a pending ticket.
// The question is trimmed; empty input returns ErrQuestionEmpty and input
// beyond MaxQuestionLen returns ErrQuestionTooLong — in both cases no ticket
// is created.
func (s *TicketService) Submit(ctx context.Context, in Intake) (*domain.Ticket, error) {
	q := strings.TrimSpace(in.Question)
	if q == "" {
		return nil, ErrQuestionEmpty
	}
	if s.MaxQuestionLen > 0 && utf8.RuneCountInString(q) > s.MaxQuestionLen {
		return nil, ErrQuestionTooLong
	}

	t, err := s.Repo.CreateTicket(ctx, s.DB, repo.NewTicket{
		ClientChatID:   in.ChatID,
		ClientNickname: domain.FallbackNickname(in.Username, in.FirstName, in.LastName),
		Question:       q,
		CreatedAt:      time.Now().In(s.Loc),
		Source:         in.Source,
		ExternalID:     in.ExternalID,
		AIProcessed:    in.AIProcessed,
		AIConfident:    in.AIConfident,
	})
	if err != nil {
		return nil, err
	}
	ticketsCreated.WithLabelValues(t.Source).Inc()
	log.Info().Int64("ticket_id", t.ID).Str("source", t.Source).Msg("ticket created")
	return t, nil
}

// Answer records a manager's reply on a ticket, stamping the manager identity
// and the current time, then attempts the workflow callback. The callback is
// best-effort: failure is logged and the answer stays committed. The returned
// ticket mirrors the committed update from the values in hand; once the
// update lands, no further failure can surface as an error.
func (s *TicketService) Answer(ctx context.Context, id int64, answer string, managerChatID int64) (*domain.Ticket, error) {
	t, err := s.Repo.GetTicket(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	at := time.Now().In(s.Loc)
	if err := s.Repo.AnswerTicket(ctx, s.DB, id, answer, managerChatID, at); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	outcome := "answered"
	if answer == ClosePlaceholderAnswer {
		outcome = "closed"
	}
	ticketsResolved.WithLabelValues(outcome).Inc()
	log.Info().Int64("ticket_id", id).Int64("manager_chat_id", managerChatID).Msg("ticket answered")

	t.IsAnswered = true
	t.Answer = &answer
	t.AnsweredAt = &at
	t.ManagerChatID = &managerChatID

	if s.Notifier != nil {
		if err := s.Notifier.NotifyAnswer(ctx, t); err != nil {
			log.Error().Err(err).Int64("ticket_id", id).Msg("workflow answer callback failed")
		}
	}
	return t, nil
}

// Close records the fixed placeholder answer, marking the ticket resolved
// without a client-visible reply.
func (s *TicketService) Close(ctx context.Context, id int64, managerChatID int64) (*domain.Ticket, error) {
	return s.Answer(ctx, id, ClosePlaceholderAnswer, managerChatID)
}

// Get fetches a ticket by id, mapping a missing row to ErrTicketNotFound.
func (s *TicketService) Get(ctx context.Context, id int64) (*domain.Ticket, error) {
	t, err := s.Repo.GetTicket(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// Pending returns the unanswered queue, oldest first.
func (s *TicketService) Pending(ctx context.Context) ([]domain.Ticket, error) {
	return s.Repo.ListPendingTickets(ctx, s.DB)
}

// Counts returns total/pending/answered aggregates.
func (s *TicketService) Counts(ctx context.Context) (repo.TicketCounts, error) {
	return s.Repo.CountTickets(ctx, s.DB)
}
