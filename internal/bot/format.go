// Message texts for both bots. Rendering is kept free of Telegram types so
// the console logic and the templates test without a live connection.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/notify"
	"github.com/aiflownow/support-bot/internal/repo"
)

const clientWelcomeText = `👋 Hello! This is the support service.

Just type your question and a manager will get back to you as soon as possible.`

const clientHelpText = `ℹ️ How it works:

1. Send your question as a plain message.
2. We register it as a support ticket.
3. A manager replies right here in this chat.

Commands:
/start — greeting
/help — this message
/status — service status`

const clientStatusText = `✅ The support service is up. Send your question as a plain message.`

const clientInternalErrorText = `😔 Something went wrong on our side. Please try again in a minute.`

// clientRejectTooLong embeds the configured cap so the client knows how much
// to trim.
func clientRejectTooLong(maxRunes int) string {
	return fmt.Sprintf("❗ Your question is too long (limit %d characters). Please shorten it and send again.", maxRunes)
}

// clientConfirmText acknowledges intake, echoing the question and the ticket
// number the client can reference later.
func clientConfirmText(t *domain.Ticket) string {
	var b strings.Builder
	b.WriteString("✅ Your question has been received!\n\n")
	fmt.Fprintf(&b, "🎫 Ticket #%d\n", t.ID)
	fmt.Fprintf(&b, "💬 %s\n\n", notify.TruncateRunes(t.Question, 300))
	b.WriteString("A manager will reply here as soon as possible.")
	return b.String()
}

// --- manager console ---

const consoleAccessDeniedText = `⛔ Access denied. This console is for registered managers only.`

const consoleMenuText = `🎛 Support console. Choose an action:`

const consoleHelpText = `ℹ️ Console guide:

📋 Tickets — pending questions, oldest first, with Answer/Close buttons.
📊 Stats — ticket totals and your personal counters.
👥 Managers — add or remove managers (administrators only).

Tap Answer under a ticket, then send the reply text as a message.
Close resolves a ticket without sending the client a reply.`

const consoleNoPendingText = `🎉 No pending tickets. All clear!`

const consoleAnswerPromptText = `✍️ Send the answer text as a message.`

const consoleAddManagerPromptText = `➕ Send the new manager's numeric chat id.`

const consoleBadChatIDText = `❗ That is not a numeric chat id. Send digits only, or cancel.`

const consoleAlreadyManagerText = `❗ That chat id is already an active manager.`

const consoleBadNicknameText = `❗ Nickname must be 2–100 characters. Try again, or cancel.`

const consoleCanceledText = `Operation canceled.`

const consoleGrantedText = `🎉 You have been granted manager access. Send /start to open the console.`

const consoleRevokedText = `Your manager access has been revoked.`

// consoleNicknamePrompt carries the accepted chat id into the nickname step.
func consoleNicknamePrompt(chatID int64) string {
	return fmt.Sprintf("Chat id %d accepted. Now send a display nickname (2–100 characters).", chatID)
}

// formatPendingTicket renders one queue entry for the console list.
func formatPendingTicket(t *domain.Ticket, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎫 Ticket #%d\n", t.ID)
	fmt.Fprintf(&b, "👤 %s\n", t.ClientNickname)
	fmt.Fprintf(&b, "⏰ %s\n\n", t.CreatedAt.In(loc).Format("15:04 02.01.2006"))
	b.WriteString(notify.TruncateRunes(t.Question, 400))
	return b.String()
}

// formatAnswerRecorded confirms a recorded reply to the acting manager.
func formatAnswerRecorded(t *domain.Ticket) string {
	return fmt.Sprintf("✅ Answer to ticket #%d recorded and sent to %s.", t.ID, t.ClientNickname)
}

// formatTicketClosed confirms a close-without-answer.
func formatTicketClosed(t *domain.Ticket) string {
	return fmt.Sprintf("✅ Ticket #%d closed without an answer.", t.ID)
}

// formatConsoleStats renders the stats view: service totals plus the acting
// manager's personal counters.
func formatConsoleStats(counts repo.TicketCounts, activeManagers int, own repo.ManagerStats, loc *time.Location) string {
	last := "no activity yet"
	if own.LastActivity != nil {
		last = own.LastActivity.In(loc).Format("02.01.2006 15:04")
	}
	var b strings.Builder
	b.WriteString("📊 Service statistics\n\n")
	fmt.Fprintf(&b, "📈 Tickets: %d total, %d pending, %d answered\n", counts.Total, counts.Pending, counts.Answered)
	fmt.Fprintf(&b, "👥 Active managers: %d\n\n", activeManagers)
	fmt.Fprintf(&b, "🏅 You answered: %d tickets\n", own.TotalAnswered)
	fmt.Fprintf(&b, "⏰ Your last answer: %s", last)
	return b.String()
}

// managerEntry is one row of the admin manager list, already joined with the
// per-manager stats.
type managerEntry struct {
	ChatID   int64
	Nickname string
	Answered int64
}

// formatManagerList renders the admin list view.
func formatManagerList(entries []managerEntry) string {
	if len(entries) == 0 {
		return "No active managers registered."
	}
	var b strings.Builder
	b.WriteString("👥 Active managers:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n• %s — chat id %d, answered %d", e.Nickname, e.ChatID, e.Answered)
	}
	return b.String()
}

// formatRemoveConfirm asks for confirmation before revoking access.
func formatRemoveConfirm(nickname string, chatID int64) string {
	return fmt.Sprintf("Remove manager %s (chat id %d)? Their access is revoked immediately.", nickname, chatID)
}

// formatManagerAdded confirms a completed add flow to the admin.
func formatManagerAdded(nickname string, chatID int64) string {
	return fmt.Sprintf("✅ Manager %s (chat id %d) added.", nickname, chatID)
}

// formatManagerRemoved confirms a completed removal to the admin.
func formatManagerRemoved(chatID int64) string {
	return fmt.Sprintf("✅ Manager with chat id %d removed.", chatID)
}
