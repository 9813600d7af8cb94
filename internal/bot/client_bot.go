// Client-facing intake bot.
//
// Every plain message from a client becomes a pending support ticket; the
// only commands are /start, /help and /status. Ticket creation is
// acknowledged immediately with the ticket number, then the manager fan-out
// runs in the background so one slow alert cannot delay the confirmation.
package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/services"
)

// messageSender is the send surface the client bot needs from the Gateway.
type messageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// ticketIntake is the slice of TicketService the client bot uses.
type ticketIntake interface {
	Submit(ctx context.Context, in services.Intake) (*domain.Ticket, error)
}

// ticketAnnouncer fans new-ticket alerts out to managers.
type ticketAnnouncer interface {
	NotifyNewTicket(ctx context.Context, t *domain.Ticket)
}

// ClientBot serves the client chat.
type ClientBot struct {
	Sender    messageSender
	Tickets   ticketIntake
	Announcer ticketAnnouncer
	// MaxQuestionLen mirrors the service cap for the rejection message text.
	MaxQuestionLen int

	gw *Gateway
}

// NewClientBot wires the client bot onto a connected gateway.
func NewClientBot(gw *Gateway, tickets ticketIntake, announcer ticketAnnouncer, maxQuestionLen int) *ClientBot {
	return &ClientBot{
		Sender:         gw,
		Tickets:        tickets,
		Announcer:      announcer,
		MaxQuestionLen: maxQuestionLen,
		gw:             gw,
	}
}

// Run long-polls the client bot until ctx is canceled.
func (b *ClientBot) Run(ctx context.Context) {
	log.Info().Str("bot", b.gw.Username).Msg("client bot polling started")
	runUpdates(ctx, b.gw.Updates(), b.gw.Stop, b.handleUpdate)
	log.Info().Msg("client bot polling stopped")
}

// handleUpdate processes one client update: the three commands, or free text
// as ticket intake.
func (b *ClientBot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	m := upd.Message
	if m == nil || m.From == nil {
		return
	}
	chatID := m.Chat.ID

	if m.IsCommand() {
		switch m.Command() {
		case "start":
			b.reply(ctx, chatID, clientWelcomeText)
		case "status":
			b.reply(ctx, chatID, clientStatusText)
		default:
			b.reply(ctx, chatID, clientHelpText)
		}
		return
	}

	// Non-text content (stickers, photos) carries no question.
	if m.Text == "" {
		b.reply(ctx, chatID, clientHelpText)
		return
	}

	t, err := b.Tickets.Submit(ctx, services.Intake{
		ChatID:    chatID,
		Username:  m.From.UserName,
		FirstName: m.From.FirstName,
		LastName:  m.From.LastName,
		Question:  m.Text,
		Source:    domain.SourceClientBot,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuestionTooLong):
			b.reply(ctx, chatID, clientRejectTooLong(b.MaxQuestionLen))
		case errors.Is(err, services.ErrQuestionEmpty):
			b.reply(ctx, chatID, clientHelpText)
		default:
			log.Error().Err(err).Int64("chat_id", chatID).Msg("client intake failed")
			b.reply(ctx, chatID, clientInternalErrorText)
		}
		return
	}

	b.reply(ctx, chatID, clientConfirmText(t))

	if b.Announcer != nil {
		go b.Announcer.NotifyNewTicket(context.WithoutCancel(ctx), t)
	}
}

// reply sends best-effort; a failed send is logged, never fatal to the loop.
func (b *ClientBot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.Sender.SendMessage(ctx, chatID, text); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("client bot send failed")
	}
}
