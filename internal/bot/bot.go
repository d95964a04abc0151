// Package bot provides the Telegram bot initialization, message routing
// and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"glitch-bot/internal/config"
	"glitch-bot/internal/game/coinflip"
	"glitch-bot/internal/game/mines"
	"glitch-bot/internal/handler"
	"glitch-bot/internal/render"
	"glitch-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountHandler  *handler.AccountHandler
	gameHandler     *handler.GameHandler
	transferHandler *handler.TransferHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config          *config.Config
	AccountService  *service.AccountService
	FarmingService  *service.FarmingService
	RankingService  *service.RankingService
	TransferService *service.TransferService
	Coinflip        *coinflip.Engine
	Mines           *mines.Engine
	Renderer        render.BoardRenderer
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}
	b.accountHandler = handler.NewAccountHandler(deps.AccountService, deps.FarmingService, deps.RankingService)
	b.gameHandler = handler.NewGameHandler(deps.AccountService, deps.Coinflip, deps.Mines, deps.Renderer)
	b.transferHandler = handler.NewTransferHandler(deps.AccountService, deps.TransferService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/profile", b.accountHandler.HandleProfile)
	b.bot.Handle("/farm", b.accountHandler.HandleFarm)
	b.bot.Handle("/top", b.accountHandler.HandleTop)
	b.bot.Handle("/games", b.gameHandler.HandleGames)
	b.bot.Handle("/transfer", b.transferHandler.Begin)

	b.bot.Handle(tele.OnText, b.handleText)
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleText routes free-form messages. Dialog input (transfer form, mines
// moves, rename, pending stakes) takes priority over the keyword commands,
// matching how players interleave games and chat.
func (b *Bot) handleText(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	text := cleanText(c.Text())

	if handled, err := b.transferHandler.HandleInput(c, text); handled {
		return err
	}
	if strings.HasPrefix(strings.ToLower(text), "перевод") || strings.HasPrefix(strings.ToLower(text), "send") {
		return b.transferHandler.Begin(c)
	}
	if handled, err := b.gameHandler.HandleMinesText(c, text); handled {
		return err
	}
	if handled, err := b.accountHandler.HandleRenameInput(c, text); handled {
		return err
	}
	if handled, err := b.gameHandler.HandleBetInput(c, text); handled {
		return err
	}

	switch strings.ToLower(text) {
	case "начать", "меню":
		return b.accountHandler.HandleStart(c)
	case "клики", "бонус":
		return b.accountHandler.HandleFarm(c)
	case "баланс":
		return b.accountHandler.HandleBalance(c)
	case "профиль":
		return b.accountHandler.HandleProfile(c)
	case "топ балансов":
		return b.accountHandler.HandleTop(c)
	case "игры":
		return b.gameHandler.HandleGames(c)
	}
	return nil
}

// cleanText strips the invisible characters some clients insert.
func cleanText(text string) string {
	replacer := strings.NewReplacer("\u00a0", " ", "\u200b", "", "\ufeff", "")
	return strings.TrimSpace(replacer.Replace(text))
}

// handleCallback routes inline button presses. Telebot prefixes callback
// data with \f; after trimming, the data is "<unique>|<arg>".
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	data := strings.TrimPrefix(callback.Data, "\f")
	unique, arg, _ := strings.Cut(data, "|")
	log.Debug().Str("unique", unique).Str("arg", arg).Msg("Callback received")

	// Dismiss the loading state on the button.
	defer func() { _ = c.Respond() }()

	switch unique {
	case handler.CbFarm:
		return b.accountHandler.HandleFarm(c)
	case handler.CbProfile:
		return b.accountHandler.HandleProfile(c)
	case handler.CbTop:
		return b.accountHandler.HandleTop(c)
	case handler.CbRename:
		return b.accountHandler.BeginRename(c)
	case handler.CbGames:
		return b.gameHandler.HandleGames(c)
	case handler.CbTransfer:
		return b.transferHandler.Begin(c)
	case handler.CbTransferConfirm:
		return b.transferHandler.HandleConfirm(c, arg)
	case handler.CbGameCoinflip:
		return b.gameHandler.PromptCoinflip(c)
	case handler.CbGameMines:
		return b.gameHandler.PromptMines(c)
	case handler.CbFlip:
		return b.gameHandler.HandleFlipChoice(c, arg)
	case handler.CbMinesOpt:
		return b.gameHandler.HandleMinesOption(c, arg)
	case handler.CbMinesTake:
		return b.gameHandler.HandleMinesTake(c)
	}

	log.Debug().Str("unique", unique).Msg("Unknown callback")
	return nil
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
