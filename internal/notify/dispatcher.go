// Package notify implements manager notification fan-out: new-ticket alerts
// with a per-manager anti-spam cooldown, and the optional daily stats digest.
//
// The dispatcher is deliberately fire-and-forget. A manager inside their
// cooldown window is silently skipped — the alert is an attention nudge, not
// a work item, and the ticket itself stays in the pending queue where the
// next fan-out (or the console list) will surface it again. The cooldown is
// per manager rather than global so one prolific manager's activity never
// suppresses alerts to the others.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/repo"
)

// Sender delivers messages to a manager chat. Implementations must be safe
// for concurrent use; send failures are per-recipient and must not panic.
type Sender interface {
	// SendTicketAlert delivers a new-ticket alert carrying an interactive
	// "answer this ticket" affordance for ticketID.
	SendTicketAlert(ctx context.Context, chatID int64, text string, ticketID int64) error
	// SendMessage delivers a plain text message.
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Store is the slice of the persistence layer the dispatcher reads from.
type Store interface {
	ListActiveManagers(ctx context.Context, db *gorm.DB) ([]domain.Manager, error)
	CountTickets(ctx context.Context, db *gorm.DB) (repo.TicketCounts, error)
	GetManagerStats(ctx context.Context, db *gorm.DB, chatID int64) (repo.ManagerStats, error)
}

// Dispatcher pushes ticket-related messages to registered managers. It keeps
// only in-memory state (the last-sent timestamp per manager) and is shared by
// every serving loop in the process.
type Dispatcher struct {
	DB     *gorm.DB
	Store  Store
	Sender Sender

	// Enabled gates new-ticket fan-out entirely (NOTIFY_MANAGERS_NEW_TICKETS).
	Enabled bool
	// Cooldown is the minimum interval between alerts to one manager.
	Cooldown time.Duration
	// Loc is the display timezone used in message formatting.
	Loc *time.Location

	// Pace is the inter-send delay that keeps the messaging gateway from
	// rate-limiting a burst of sends. Zero is valid (tests).
	Pace time.Duration

	now func() time.Time

	mu       sync.Mutex
	lastSent map[int64]time.Time
}

// NewDispatcher constructs a Dispatcher with the default send pacing.
func NewDispatcher(db *gorm.DB, store Store, sender Sender, enabled bool, cooldown time.Duration, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{
		DB:       db,
		Store:    store,
		Sender:   sender,
		Enabled:  enabled,
		Cooldown: cooldown,
		Loc:      loc,
		Pace:     100 * time.Millisecond,
		now:      time.Now,
		lastSent: make(map[int64]time.Time),
	}
}

// canSend checks the anti-spam window and, when open, reserves it by
// advancing the manager's last-sent timestamp. Check and advance happen under
// one lock acquisition so concurrent fan-outs cannot double-send inside a
// single window. A reservation whose send then fails must be released with
// rollbackSend; only a completed send counts against the cooldown.
func (d *Dispatcher) canSend(chatID int64, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lastSent[chatID]
	if ok && now.Sub(last) < d.Cooldown {
		return false
	}
	d.lastSent[chatID] = now
	return true
}

// rollbackSend releases a reservation after a failed send so the failure does
// not burn the manager's cooldown window. The entry is dropped only while it
// still holds this reservation's timestamp; a newer concurrent reservation is
// left alone.
func (d *Dispatcher) rollbackSend(chatID int64, reservedAt time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lastSent[chatID]; ok && last.Equal(reservedAt) {
		delete(d.lastSent, chatID)
	}
}

// NotifyNewTicket fans an alert for t out to every active manager not in
// cooldown. Sends are sequential with pacing; one failed send is logged and
// does not abort the rest. A no-op when the feature flag is disabled.
func (d *Dispatcher) NotifyNewTicket(ctx context.Context, t *domain.Ticket) {
	if !d.Enabled {
		return
	}

	managers, err := d.Store.ListActiveManagers(ctx, d.DB)
	if err != nil {
		log.Error().Err(err).Msg("notify: listing managers failed")
		return
	}
	if len(managers) == 0 {
		log.Warn().Msg("notify: no active managers for new-ticket alert")
		return
	}

	counts, err := d.Store.CountTickets(ctx, d.DB)
	if err != nil {
		log.Error().Err(err).Msg("notify: counting tickets failed")
		return
	}
	text := FormatTicketAlert(t, counts.Pending, d.Loc)

	sent := 0
	for _, m := range managers {
		now := d.now()
		if !d.canSend(m.ChatID, now) {
			continue
		}
		if err := d.Sender.SendTicketAlert(ctx, m.ChatID, text, t.ID); err != nil {
			d.rollbackSend(m.ChatID, now)
			log.Error().Err(err).Int64("chat_id", m.ChatID).Msg("notify: alert send failed")
			continue
		}
		sent++
		if d.Pace > 0 {
			time.Sleep(d.Pace)
		}
	}
	log.Info().Int("sent", sent).Int("managers", len(managers)).Int64("ticket_id", t.ID).Msg("new ticket alerts dispatched")
}

// NotifyDailyStats sends the aggregate digest plus per-manager personalized
// stats to every active manager. The digest ignores the alert cooldown: it
// fires once a day by schedule, not in bursts.
func (d *Dispatcher) NotifyDailyStats(ctx context.Context) {
	managers, err := d.Store.ListActiveManagers(ctx, d.DB)
	if err != nil {
		log.Error().Err(err).Msg("notify: listing managers failed")
		return
	}
	if len(managers) == 0 {
		return
	}
	counts, err := d.Store.CountTickets(ctx, d.DB)
	if err != nil {
		log.Error().Err(err).Msg("notify: counting tickets failed")
		return
	}

	for _, m := range managers {
		stats, err := d.Store.GetManagerStats(ctx, d.DB, m.ChatID)
		if err != nil {
			log.Error().Err(err).Int64("chat_id", m.ChatID).Msg("notify: manager stats failed")
			continue
		}
		text := FormatDailyStats(m.Nickname, counts, len(managers), stats, d.Loc)
		if err := d.Sender.SendMessage(ctx, m.ChatID, text); err != nil {
			log.Error().Err(err).Int64("chat_id", m.ChatID).Msg("notify: digest send failed")
			continue
		}
		if d.Pace > 0 {
			time.Sleep(d.Pace)
		}
	}
}

// RunDailyStats blocks until ctx is canceled, firing NotifyDailyStats once a
// day at the given wall-clock hour in the dispatcher's timezone. After firing
// it sleeps past the trigger window (61 minutes) so the digest cannot re-fire
// within the same hour; otherwise it polls once a minute. hour < 0 disables
// the scheduler.
func (d *Dispatcher) RunDailyStats(ctx context.Context, hour int) {
	if hour < 0 {
		return
	}
	for {
		now := d.now().In(d.Loc)
		if now.Hour() == hour && now.Minute() == 0 {
			d.NotifyDailyStats(ctx)
			log.Info().Msg("daily stats digest sent")
			if !sleepCtx(ctx, 61*time.Minute) {
				return
			}
			continue
		}
		if !sleepCtx(ctx, time.Minute) {
			return
		}
	}
}

// sleepCtx sleeps for dur, returning false when ctx is canceled first.
func sleepCtx(ctx context.Context, dur time.Duration) bool {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
