// Message templates for manager notifications. Kept free of any chat
// platform types so the dispatcher stays testable without a live gateway.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/repo"
)

// alertQuestionPreviewLen caps the quoted question inside an alert so one
// long ticket cannot flood the manager chat.
const alertQuestionPreviewLen = 400

// FormatTicketAlert renders the new-ticket alert text sent to managers.
func FormatTicketAlert(t *domain.Ticket, pending int64, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("🚨 NEW TICKET\n\n")
	fmt.Fprintf(&b, "🆔 Ticket: #%d\n", t.ID)
	fmt.Fprintf(&b, "👤 Client: %s\n", t.ClientNickname)
	fmt.Fprintf(&b, "💬 Question:\n%s\n\n", TruncateRunes(t.Question, alertQuestionPreviewLen))
	fmt.Fprintf(&b, "⏰ Received: %s\n", t.CreatedAt.In(loc).Format("15:04 02.01.2006"))
	fmt.Fprintf(&b, "📊 Awaiting answer: %d tickets", pending)
	return b.String()
}

// FormatDailyStats renders the personalized daily digest for one manager.
func FormatDailyStats(nickname string, counts repo.TicketCounts, activeManagers int, stats repo.ManagerStats, loc *time.Location) string {
	last := "no activity yet"
	if stats.LastActivity != nil {
		last = stats.LastActivity.In(loc).Format("02.01.2006 15:04")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Daily summary for %s\n\n", nickname)
	fmt.Fprintf(&b, "📈 Tickets: %d total, %d pending, %d answered\n", counts.Total, counts.Pending, counts.Answered)
	fmt.Fprintf(&b, "👥 Active managers: %d\n\n", activeManagers)
	fmt.Fprintf(&b, "🏅 You answered: %d tickets\n", stats.TotalAnswered)
	fmt.Fprintf(&b, "⏰ Your last answer: %s", last)
	return b.String()
}

// TruncateRunes clips s to max runes, appending an ellipsis when clipped.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
