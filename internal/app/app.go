// Package app boots and supervises the process: configuration, database,
// services, the notification dispatcher, the workflow client, both Telegram
// bots, and the webhook HTTP server. Run blocks until the context is
// canceled, then shuts everything down in order.
//
// Both bots are optional. A missing client token means intake arrives only
// through the webhook; a missing manager token disables the console and the
// alert fan-out. Either way the process still serves HTTP.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/aiflownow/support-bot/internal/bot"
	"github.com/aiflownow/support-bot/internal/config"
	"github.com/aiflownow/support-bot/internal/domain"
	"github.com/aiflownow/support-bot/internal/httpapi"
	"github.com/aiflownow/support-bot/internal/httpapi/handlers"
	"github.com/aiflownow/support-bot/internal/logging"
	"github.com/aiflownow/support-bot/internal/notify"
	"github.com/aiflownow/support-bot/internal/repo"
	"github.com/aiflownow/support-bot/internal/services"
	"github.com/aiflownow/support-bot/internal/workflow"
)

// shutdownTimeout bounds the graceful HTTP drain on exit.
const shutdownTimeout = 10 * time.Second

// ticketRepoShim adapts the repository free functions to services.TicketRepo,
// keeping the service decoupled from the concrete repo package.
type ticketRepoShim struct{}

func (ticketRepoShim) CreateTicket(ctx context.Context, db *gorm.DB, in repo.NewTicket) (*domain.Ticket, error) {
	return repo.CreateTicket(ctx, db, in)
}

func (ticketRepoShim) GetTicket(ctx context.Context, db *gorm.DB, id int64) (*domain.Ticket, error) {
	return repo.GetTicket(ctx, db, id)
}

func (ticketRepoShim) ListPendingTickets(ctx context.Context, db *gorm.DB) ([]domain.Ticket, error) {
	return repo.ListPendingTickets(ctx, db)
}

func (ticketRepoShim) AnswerTicket(ctx context.Context, db *gorm.DB, id int64, answer string, managerChatID int64, at time.Time) error {
	return repo.AnswerTicket(ctx, db, id, answer, managerChatID, at)
}

func (ticketRepoShim) CountTickets(ctx context.Context, db *gorm.DB) (repo.TicketCounts, error) {
	return repo.CountTickets(ctx, db)
}

// managerRepoShim adapts the repository free functions to services.ManagerRepo.
type managerRepoShim struct{}

func (managerRepoShim) UpsertManager(ctx context.Context, db *gorm.DB, chatID int64, nickname string) (*domain.Manager, error) {
	return repo.UpsertManager(ctx, db, chatID, nickname)
}

func (managerRepoShim) DeactivateManager(ctx context.Context, db *gorm.DB, chatID int64) error {
	return repo.DeactivateManager(ctx, db, chatID)
}

func (managerRepoShim) ListActiveManagers(ctx context.Context, db *gorm.DB) ([]domain.Manager, error) {
	return repo.ListActiveManagers(ctx, db)
}

func (managerRepoShim) GetManagerByChatID(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Manager, error) {
	return repo.GetManagerByChatID(ctx, db, chatID)
}

func (managerRepoShim) IsActiveManager(ctx context.Context, db *gorm.DB, chatID int64) (bool, error) {
	return repo.IsActiveManager(ctx, db, chatID)
}

func (managerRepoShim) GetManagerStats(ctx context.Context, db *gorm.DB, chatID int64) (repo.ManagerStats, error) {
	return repo.GetManagerStats(ctx, db, chatID)
}

// storeShim adapts the repository free functions to notify.Store.
type storeShim struct{}

func (storeShim) ListActiveManagers(ctx context.Context, db *gorm.DB) ([]domain.Manager, error) {
	return repo.ListActiveManagers(ctx, db)
}

func (storeShim) CountTickets(ctx context.Context, db *gorm.DB) (repo.TicketCounts, error) {
	return repo.CountTickets(ctx, db)
}

func (storeShim) GetManagerStats(ctx context.Context, db *gorm.DB, chatID int64) (repo.ManagerStats, error) {
	return repo.GetManagerStats(ctx, db, chatID)
}

// Run boots the service and blocks until ctx is canceled or boot fails.
func Run(ctx context.Context, cfg config.Config) error {
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	db, err := repo.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	loc := cfg.Location()

	var notifier services.AnswerNotifier
	if cfg.Workflow.BaseURL != "" {
		notifier = workflow.NewClient(cfg.Workflow.BaseURL, cfg.Workflow.APIKey)
		log.Info().Str("base_url", cfg.Workflow.BaseURL).Msg("workflow answer callback enabled")
	} else {
		log.Warn().Msg("WORKFLOW_BASE_URL not set, answers are not relayed to the workflow engine")
	}

	tickets := services.NewTicketService(db, ticketRepoShim{}, notifier, cfg.MaxTicketLen, loc)
	managers := services.NewManagerService(db, managerRepoShim{}, cfg.AdminChatIDs)
	managers.SeedAdmins(ctx)

	// The manager gateway powers both the console and the alert fan-out.
	var (
		dispatcher *notify.Dispatcher
		console    *bot.ManagerConsole
	)
	if cfg.ManagerBotToken != "" {
		gw, err := bot.NewGateway(cfg.ManagerBotToken)
		if err != nil {
			return err
		}
		dispatcher = notify.NewDispatcher(db, storeShim{}, gw, cfg.NotifyNew, cfg.Cooldown, loc)
		console = bot.NewManagerConsole(gw, tickets, managers, loc)
	} else {
		log.Warn().Msg("MANAGER_BOT_TOKEN not set, console and manager alerts disabled")
	}

	var client *bot.ClientBot
	if cfg.ClientBotToken != "" {
		gw, err := bot.NewGateway(cfg.ClientBotToken)
		if err != nil {
			return err
		}
		if dispatcher != nil {
			client = bot.NewClientBot(gw, tickets, dispatcher, cfg.MaxTicketLen)
		} else {
			client = bot.NewClientBot(gw, tickets, nil, cfg.MaxTicketLen)
		}
	} else {
		log.Warn().Msg("CLIENT_BOT_TOKEN not set, chat intake disabled (webhook only)")
	}

	engine := gin.New()
	var announcer handlers.TicketAnnouncer
	if dispatcher != nil {
		announcer = dispatcher
	}
	httpapi.RegisterRoutes(engine, tickets, announcer, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			cancel()
		}
	}()

	if client != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Run(runCtx)
		}()
	}
	if console != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			console.Run(runCtx)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			dispatcher.RunDailyStats(runCtx, cfg.StatsHour)
		}()
	}

	<-runCtx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	wg.Wait()
	log.Info().Msg("stopped")
	return nil
}
