// Package bot wires Telegram updates to the wizard and the auxiliary commands.
package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/bot/handlers"
	"github.com/Proton-105/giftshop-bot/internal/bot/keyboard"
	"github.com/Proton-105/giftshop-bot/internal/errors"
	"github.com/Proton-105/giftshop-bot/internal/i18n"
	"github.com/Proton-105/giftshop-bot/internal/idempotency"
	"github.com/Proton-105/giftshop-bot/internal/lifecycle"
	"github.com/Proton-105/giftshop-bot/internal/middleware"
	"github.com/Proton-105/giftshop-bot/internal/repository"
	"github.com/Proton-105/giftshop-bot/internal/wizard"
	"github.com/Proton-105/giftshop-bot/pkg/config"
)

// Dependencies are the collaborators the bot routes updates to. History,
// Idempotency, RateLimit and InFlight are optional.
type Dependencies struct {
	Wizard       handlers.Wizard
	Menu         wizard.MenuRefresher
	History      handlers.HistorySource
	Translations *i18n.Manager
	ErrHandler   *errors.Handler
	Idempotency  idempotency.Manager
	RateLimit    *middleware.RateLimitMiddleware
	InFlight     *lifecycle.InFlight
	Log          *slog.Logger
}

// Bot wraps telebot.Bot with the application router.
type Bot struct {
	telebot *telebot.Bot
	router  *Router
	log     *slog.Logger
}

// NewTelebot builds the Bot API client configured for polling or webhook mode.
func NewTelebot(cfg config.BotConfig, log *slog.Logger) (*telebot.Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	settings := telebot.Settings{
		Token:     cfg.Token,
		ParseMode: telebot.ModeHTML,
		OnError: func(err error, c telebot.Context) {
			log.Error("telebot error", slog.Any("error", err))
		},
	}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.PollTimeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return tb, nil
}

// New registers the routes on tb.
func New(tb *telebot.Bot, deps Dependencies) *Bot {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	b := &Bot{
		telebot: tb,
		router:  NewRouter(log),
		log:     log,
	}

	b.setupRouter(deps)

	if tb != nil {
		tb.Handle(telebot.OnText, b.router.Route)
		tb.Handle(telebot.OnCallback, b.router.Route)
	}

	return b
}

// Router exposes the configured router.
func (b *Bot) Router() *Router {
	return b.router
}

// Start runs the telegram bot event loop. It blocks until Stop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	if err := b.telebot.SetCommands(commandList()); err != nil {
		b.log.Warn("failed to publish bot commands", slog.Any("error", err))
	}

	b.log.Info("telegram bot started", slog.String("username", b.telebot.Me.Username))
	b.telebot.Start()
}

// Stop stops receiving updates. Handlers already running keep going.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter(deps Dependencies) {
	r := b.router

	r.Use(InFlightMiddleware(deps.InFlight))
	r.Use(LoggingMiddleware(b.log))
	r.Use(RecoveryMiddleware(b.log, deps.ErrHandler, deps.Translations))
	r.Use(ErrorHandlingMiddleware(deps.ErrHandler, deps.Translations, b.log))
	r.Use(middleware.Metrics)
	if deps.RateLimit != nil {
		r.Use(deps.RateLimit.Handle)
	}
	r.Use(middleware.Idempotency(deps.Idempotency, b.log))

	r.RegisterCommand(CommandStart, handlers.NewStartHandler(deps.Menu, deps.Translations, b.log))
	r.RegisterCommand(CommandHistory, handlers.NewHistoryHandler(deps.History, repository.DefaultHistoryLimit, deps.Translations, b.log))

	if deps.Wizard == nil {
		return
	}

	r.RegisterCommand(CommandCatalog, handlers.Command(handlers.NewOpenCatalogHandler(deps.Wizard)))
	r.RegisterCallback(keyboard.UniqueCatalog, handlers.NewOpenCatalogHandler(deps.Wizard))
	r.RegisterCallback(keyboard.UniqueGift, handlers.NewSelectItemHandler(deps.Wizard))
	r.RegisterCallback(keyboard.UniqueConfirmPurchase, handlers.NewConfirmHandler(deps.Wizard))
	r.RegisterCallback(keyboard.UniqueCancelPurchase, handlers.NewCancelPurchaseHandler(deps.Wizard))
	r.RegisterCallback(keyboard.UniqueCatalogMainMenu, handlers.NewReturnToMenuHandler(deps.Wizard))
	r.SetText(handlers.NewTextHandler(deps.Wizard))
}

func commandList() []telebot.Command {
	return []telebot.Command{
		{Text: CommandStart[1:], Description: "Main menu"},
		{Text: CommandCatalog[1:], Description: "Open the gift catalog"},
		{Text: CommandHistory[1:], Description: "Recent purchases"},
		{Text: CommandCancel[1:], Description: "Cancel the current purchase"},
	}
}
