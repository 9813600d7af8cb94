// Package bot implements the two Telegram surfaces of the service: the
// client-facing intake bot and the manager console. Both talk to Telegram
// through the Gateway, a thin wrapper around the Bot API client that the rest
// of the process consumes via narrow interfaces so tests run against fakes.
package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// botAPI is the slice of *tgbotapi.BotAPI the Gateway uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Gateway wraps one Telegram bot connection. It implements notify.Sender for
// the manager bot and the plain send surface for the client bot.
type Gateway struct {
	api      botAPI
	Username string
}

// NewGateway authenticates the bot token against the Telegram API.
func NewGateway(token string) (*Gateway, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info().Str("bot", api.Self.UserName).Msg("telegram bot authorized")
	return &Gateway{api: api, Username: api.Self.UserName}, nil
}

// SendMessage delivers a plain text message to chatID.
func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := g.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendTicketAlert delivers a new-ticket alert with the answer/close keyboard
// attached, satisfying the dispatcher's Sender contract.
func (g *Gateway) SendTicketAlert(ctx context.Context, chatID int64, text string, ticketID int64) error {
	return g.SendWithKeyboard(ctx, chatID, text, ticketKeyboard(ticketID))
}

// SendWithKeyboard delivers a message carrying an inline keyboard.
func (g *Gateway) SendWithKeyboard(ctx context.Context, chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	_, err := g.api.Send(msg)
	return err
}

// EditMessage replaces the text of an already-sent message, dropping any
// inline keyboard it carried.
func (g *Gateway) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := g.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

// AckCallback answers a callback query so the client's spinner stops. An
// empty text shows no toast.
func (g *Gateway) AckCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := g.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// Updates opens the long-polling update channel.
func (g *Gateway) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	return g.api.GetUpdatesChan(u)
}

// Stop terminates long polling; the update channel drains and closes.
func (g *Gateway) Stop() {
	g.api.StopReceivingUpdates()
}

// runUpdates drains the update channel, dispatching each update to handle
// until ctx is canceled or the channel closes. Shared by both bot loops.
func runUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel, stop func(), handle func(ctx context.Context, upd tgbotapi.Update)) {
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case upd, okc := <-updates:
			if !okc {
				return
			}
			handleSafely(ctx, upd, handle)
		}
	}
}

// handleSafely isolates one update: a panicking handler is logged and the
// loop keeps serving.
func handleSafely(ctx context.Context, upd tgbotapi.Update, handle func(ctx context.Context, upd tgbotapi.Update)) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Int("update_id", upd.UpdateID).Msg("update handler panicked")
		}
	}()
	start := time.Now()
	handle(ctx, upd)
	log.Debug().Int("update_id", upd.UpdateID).Dur("took", time.Since(start)).Msg("update handled")
}
