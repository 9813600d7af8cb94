// Manager console bot.
//
// The console is gated on membership: registered managers and configured
// administrators may use it, everyone else gets an access-denied reply on
// explicit commands and silence on free text. Navigation is inline-keyboard
// driven; the only free-text inputs are the multi-step flows tracked by the
// FSM (answering a ticket, adding a manager), and admin-only steps re-check
// admin identity on every message so a stale conversation cannot escalate.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/repo"
	"github.com/aiflownow/support-bot/internal/services"
)

// consoleSender is the send surface the console needs from the Gateway.
type consoleSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendWithKeyboard(ctx context.Context, chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) error
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	AckCallback(ctx context.Context, callbackID, text string) error
}

// ticketOps is the slice of TicketService the console uses.
type ticketOps interface {
	Pending(ctx context.Context) ([]domain.Ticket, error)
	Get(ctx context.Context, id int64) (*domain.Ticket, error)
	Answer(ctx context.Context, id int64, answer string, managerChatID int64) (*domain.Ticket, error)
	Close(ctx context.Context, id int64, managerChatID int64) (*domain.Ticket, error)
	Counts(ctx context.Context) (repo.TicketCounts, error)
}

// managerOps is the slice of ManagerService the console uses.
type managerOps interface {
	Add(ctx context.Context, chatID int64, nickname string) (*domain.Manager, error)
	Remove(ctx context.Context, chatID int64) error
	ListActive(ctx context.Context) ([]domain.Manager, error)
	Get(ctx context.Context, chatID int64) (*domain.Manager, error)
	Stats(ctx context.Context, chatID int64) (repo.ManagerStats, error)
	IsAuthorized(ctx context.Context, chatID int64) bool
	IsAdmin(chatID int64) bool
}

// ManagerConsole serves the staff chat.
type ManagerConsole struct {
	Sender   consoleSender
	Tickets  ticketOps
	Managers managerOps
	FSM      *FSM
	Loc      *time.Location

	gw *Gateway
}

// NewManagerConsole wires the console onto a connected gateway.
func NewManagerConsole(gw *Gateway, tickets ticketOps, managers managerOps, loc *time.Location) *ManagerConsole {
	if loc == nil {
		loc = time.UTC
	}
	return &ManagerConsole{
		Sender:   gw,
		Tickets:  tickets,
		Managers: managers,
		FSM:      NewFSM(),
		Loc:      loc,
		gw:       gw,
	}
}

// Run long-polls the console bot until ctx is canceled.
func (mc *ManagerConsole) Run(ctx context.Context) {
	log.Info().Str("bot", mc.gw.Username).Msg("manager console polling started")
	runUpdates(ctx, mc.gw.Updates(), mc.gw.Stop, mc.handleUpdate)
	log.Info().Msg("manager console polling stopped")
}

func (mc *ManagerConsole) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		mc.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil:
		mc.handleMessage(ctx, upd.Message)
	}
}

// --- messages ---

func (mc *ManagerConsole) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID

	if !mc.Managers.IsAuthorized(ctx, chatID) {
		// Explicit commands from outsiders get a denial; stray text from
		// group noise or forwarded chats is ignored.
		if m.IsCommand() {
			mc.send(ctx, chatID, consoleAccessDeniedText)
		}
		return
	}

	if m.IsCommand() {
		mc.FSM.Clear(chatID)
		switch m.Command() {
		case "help":
			mc.sendKB(ctx, chatID, consoleHelpText, backKeyboard())
		default:
			mc.showMenu(ctx, chatID)
		}
		return
	}

	conv := mc.FSM.Get(chatID)
	switch conv.State {
	case StateAwaitingAnswer:
		mc.completeAnswer(ctx, chatID, conv.TicketID, m.Text)
	case StateAwaitingManagerChatID:
		mc.stepManagerChatID(ctx, chatID, m.Text)
	case StateAwaitingManagerNickname:
		mc.stepManagerNickname(ctx, chatID, conv.PendingChatID, m.Text)
	default:
		mc.showMenu(ctx, chatID)
	}
}

// completeAnswer finishes the answer flow: records the reply, clears the
// conversation, and confirms to the acting manager.
func (mc *ManagerConsole) completeAnswer(ctx context.Context, chatID, ticketID int64, text string) {
	answer := strings.TrimSpace(text)
	if answer == "" {
		mc.sendKB(ctx, chatID, consoleAnswerPromptText, cancelKeyboard())
		return
	}

	t, err := mc.Tickets.Answer(ctx, ticketID, answer, chatID)
	mc.FSM.Clear(chatID)
	if err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			mc.send(ctx, chatID, "❗ That ticket no longer exists.")
			return
		}
		log.Error().Err(err).Int64("ticket_id", ticketID).Msg("recording answer failed")
		mc.send(ctx, chatID, "❗ Could not record the answer, try again.")
		return
	}
	mc.sendKB(ctx, chatID, formatAnswerRecorded(t), backKeyboard())
}

// stepManagerChatID validates the numeric chat id step of the add flow. A
// parse failure re-prompts without a state transition; an already-active
// manager aborts back to idle.
func (mc *ManagerConsole) stepManagerChatID(ctx context.Context, chatID int64, text string) {
	if !mc.requireAdmin(ctx, chatID) {
		return
	}

	candidate, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		mc.sendKB(ctx, chatID, consoleBadChatIDText, cancelKeyboard())
		return
	}

	if existing, err := mc.Managers.Get(ctx, candidate); err == nil && existing.IsActive {
		mc.FSM.Clear(chatID)
		mc.sendKB(ctx, chatID, consoleAlreadyManagerText, backKeyboard())
		return
	}

	mc.FSM.Set(chatID, Conversation{State: StateAwaitingManagerNickname, PendingChatID: candidate})
	mc.sendKB(ctx, chatID, consoleNicknamePrompt(candidate), cancelKeyboard())
}

// stepManagerNickname finishes the add flow. A bad nickname re-prompts
// without losing the pending chat id; success notifies the new manager
// best-effort.
func (mc *ManagerConsole) stepManagerNickname(ctx context.Context, chatID, pendingChatID int64, text string) {
	if !mc.requireAdmin(ctx, chatID) {
		return
	}

	nickname := strings.TrimSpace(text)
	m, err := mc.Managers.Add(ctx, pendingChatID, nickname)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBadNickname):
			mc.sendKB(ctx, chatID, consoleBadNicknameText, cancelKeyboard())
		case errors.Is(err, services.ErrManagerExists):
			mc.FSM.Clear(chatID)
			mc.sendKB(ctx, chatID, consoleAlreadyManagerText, backKeyboard())
		default:
			mc.FSM.Clear(chatID)
			log.Error().Err(err).Int64("chat_id", pendingChatID).Msg("adding manager failed")
			mc.send(ctx, chatID, "❗ Could not add the manager, try again.")
		}
		return
	}
	mc.FSM.Clear(chatID)
	mc.sendKB(ctx, chatID, formatManagerAdded(m.Nickname, m.ChatID), backKeyboard())

	if err := mc.Sender.SendMessage(ctx, m.ChatID, consoleGrantedText); err != nil {
		log.Warn().Err(err).Int64("chat_id", m.ChatID).Msg("could not notify new manager")
	}
}

// --- callbacks ---

func (mc *ManagerConsole) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	if err := mc.Sender.AckCallback(ctx, cb.ID, ""); err != nil {
		log.Warn().Err(err).Msg("callback ack failed")
	}

	if !mc.Managers.IsAuthorized(ctx, chatID) {
		mc.send(ctx, chatID, consoleAccessDeniedText)
		return
	}

	data := cb.Data
	switch {
	case data == cbShowTickets:
		mc.showTickets(ctx, chatID)
	case data == cbShowStats:
		mc.showStats(ctx, chatID)
	case data == cbHelp:
		mc.sendKB(ctx, chatID, consoleHelpText, backKeyboard())
	case data == cbBackToMain:
		mc.FSM.Clear(chatID)
		mc.showMenu(ctx, chatID)
	case data == cbCancel:
		mc.FSM.Clear(chatID)
		mc.send(ctx, chatID, consoleCanceledText)
		mc.showMenu(ctx, chatID)

	case data == cbManageManagers:
		if mc.requireAdmin(ctx, chatID) {
			mc.sendKB(ctx, chatID, "👥 Manager administration:", manageManagersKeyboard())
		}
	case data == cbAddManager:
		if mc.requireAdmin(ctx, chatID) {
			mc.FSM.Set(chatID, Conversation{State: StateAwaitingManagerChatID})
			mc.sendKB(ctx, chatID, consoleAddManagerPromptText, cancelKeyboard())
		}
	case data == cbListManagers:
		if mc.requireAdmin(ctx, chatID) {
			mc.showManagerList(ctx, chatID)
		}

	case strings.HasPrefix(data, cbPrefixRemoveManager):
		if id, okID := parseCallbackID(data, cbPrefixRemoveManager); okID && mc.requireAdmin(ctx, chatID) {
			mc.confirmRemove(ctx, chatID, id)
		}
	case strings.HasPrefix(data, cbPrefixConfirmRemove):
		if id, okID := parseCallbackID(data, cbPrefixConfirmRemove); okID && mc.requireAdmin(ctx, chatID) {
			mc.removeManager(ctx, chatID, id)
		}

	case strings.HasPrefix(data, cbPrefixAnswer):
		if id, okID := parseCallbackID(data, cbPrefixAnswer); okID {
			mc.startAnswer(ctx, chatID, id)
		}
	case strings.HasPrefix(data, cbPrefixClose):
		if id, okID := parseCallbackID(data, cbPrefixClose); okID {
			mc.closeTicket(ctx, chatID, id, cb.Message)
		}
	}
}

func (mc *ManagerConsole) showMenu(ctx context.Context, chatID int64) {
	mc.sendKB(ctx, chatID, consoleMenuText, mainMenuKeyboard(mc.Managers.IsAdmin(chatID)))
}

// showTickets renders the pending queue oldest first, one message per ticket
// so each carries its own answer/close keyboard.
func (mc *ManagerConsole) showTickets(ctx context.Context, chatID int64) {
	pending, err := mc.Tickets.Pending(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing pending tickets failed")
		mc.send(ctx, chatID, "❗ Could not load the ticket queue.")
		return
	}
	if len(pending) == 0 {
		mc.sendKB(ctx, chatID, consoleNoPendingText, backKeyboard())
		return
	}
	for i := range pending {
		t := &pending[i]
		mc.sendKB(ctx, chatID, formatPendingTicket(t, mc.Loc), ticketKeyboard(t.ID))
	}
}

func (mc *ManagerConsole) showStats(ctx context.Context, chatID int64) {
	counts, err := mc.Tickets.Counts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("counting tickets failed")
		mc.send(ctx, chatID, "❗ Could not load statistics.")
		return
	}
	active, err := mc.Managers.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing managers failed")
		mc.send(ctx, chatID, "❗ Could not load statistics.")
		return
	}
	own, err := mc.Managers.Stats(ctx, chatID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("manager stats failed")
		mc.send(ctx, chatID, "❗ Could not load statistics.")
		return
	}
	mc.sendKB(ctx, chatID, formatConsoleStats(counts, len(active), own, mc.Loc), backKeyboard())
}

// showManagerList renders active managers with per-manager answer counts;
// each row in the keyboard doubles as the removal entry point.
func (mc *ManagerConsole) showManagerList(ctx context.Context, chatID int64) {
	active, err := mc.Managers.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing managers failed")
		mc.send(ctx, chatID, "❗ Could not load the manager list.")
		return
	}
	entries := make([]managerEntry, 0, len(active))
	for _, m := range active {
		stats, err := mc.Managers.Stats(ctx, m.ChatID)
		if err != nil {
			log.Warn().Err(err).Int64("chat_id", m.ChatID).Msg("manager stats failed")
		}
		entries = append(entries, managerEntry{ChatID: m.ChatID, Nickname: m.Nickname, Answered: stats.TotalAnswered})
	}
	mc.sendKB(ctx, chatID, formatManagerList(entries), removeManagerKeyboard(entries))
}

func (mc *ManagerConsole) confirmRemove(ctx context.Context, chatID, targetID int64) {
	m, err := mc.Managers.Get(ctx, targetID)
	if err != nil {
		mc.sendKB(ctx, chatID, "❗ That manager no longer exists.", backKeyboard())
		return
	}
	mc.sendKB(ctx, chatID, formatRemoveConfirm(m.Nickname, m.ChatID), confirmRemoveKeyboard(targetID))
}

func (mc *ManagerConsole) removeManager(ctx context.Context, chatID, targetID int64) {
	if err := mc.Managers.Remove(ctx, targetID); err != nil {
		if errors.Is(err, services.ErrManagerNotFound) {
			mc.sendKB(ctx, chatID, "❗ That manager no longer exists.", backKeyboard())
			return
		}
		log.Error().Err(err).Int64("chat_id", targetID).Msg("removing manager failed")
		mc.send(ctx, chatID, "❗ Could not remove the manager, try again.")
		return
	}
	mc.sendKB(ctx, chatID, formatManagerRemoved(targetID), manageManagersKeyboard())

	if err := mc.Sender.SendMessage(ctx, targetID, consoleRevokedText); err != nil {
		log.Warn().Err(err).Int64("chat_id", targetID).Msg("could not notify removed manager")
	}
}

// startAnswer opens the answer flow for a pending ticket; already-answered
// and missing tickets are rejected up front so the manager never types a
// reply into the void.
func (mc *ManagerConsole) startAnswer(ctx context.Context, chatID, ticketID int64) {
	t, err := mc.Tickets.Get(ctx, ticketID)
	if err != nil {
		mc.sendKB(ctx, chatID, "❗ That ticket no longer exists.", backKeyboard())
		return
	}
	if t.IsAnswered {
		mc.sendKB(ctx, chatID, "❗ That ticket has already been answered.", backKeyboard())
		return
	}
	mc.FSM.Set(chatID, Conversation{State: StateAwaitingAnswer, TicketID: ticketID})
	mc.sendKB(ctx, chatID, consoleAnswerPromptText, cancelKeyboard())
}

// closeTicket resolves a ticket from its close button. The original message
// the button was attached to is edited best-effort so a stale alert does not
// keep offering a resolved ticket.
func (mc *ManagerConsole) closeTicket(ctx context.Context, chatID, ticketID int64, origin *tgbotapi.Message) {
	t, err := mc.Tickets.Close(ctx, ticketID, chatID)
	if err != nil {
		if errors.Is(err, services.ErrTicketNotFound) {
			mc.sendKB(ctx, chatID, "❗ That ticket no longer exists.", backKeyboard())
			return
		}
		log.Error().Err(err).Int64("ticket_id", ticketID).Msg("closing ticket failed")
		mc.send(ctx, chatID, "❗ Could not close the ticket, try again.")
		return
	}

	if origin != nil && origin.MessageID != 0 && origin.Text != "" {
		if err := mc.Sender.EditMessage(ctx, chatID, origin.MessageID, origin.Text+"\n\n✅ Closed"); err != nil {
			log.Warn().Err(err).Int64("ticket_id", ticketID).Msg("could not edit resolved alert")
		}
	}
	mc.sendKB(ctx, chatID, formatTicketClosed(t), backKeyboard())
}

// requireAdmin re-checks admin identity inside admin-only steps, clearing any
// in-flight conversation on failure.
func (mc *ManagerConsole) requireAdmin(ctx context.Context, chatID int64) bool {
	if mc.Managers.IsAdmin(chatID) {
		return true
	}
	mc.FSM.Clear(chatID)
	mc.send(ctx, chatID, consoleAccessDeniedText)
	return false
}

func (mc *ManagerConsole) send(ctx context.Context, chatID int64, text string) {
	if err := mc.Sender.SendMessage(ctx, chatID, text); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("console send failed")
	}
}

func (mc *ManagerConsole) sendKB(ctx context.Context, chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	if err := mc.Sender.SendWithKeyboard(ctx, chatID, text, kb); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("console send failed")
	}
}
