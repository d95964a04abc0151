// Package handler provides the chat-facing command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"glitch-bot/internal/game/session"
	"glitch-bot/internal/service"
)

// Callback uniques routed by the bot layer.
const (
	CbFarm     = "farm"
	CbProfile  = "profile"
	CbTop      = "top"
	CbTransfer = "transfer"
	CbRename   = "rename"
	CbGames    = "games"
)

// AccountHandler handles registration, profile, farming and leaderboard
// commands.
type AccountHandler struct {
	accounts *service.AccountService
	farming  *service.FarmingService
	ranking  *service.RankingService

	// awaitingRename marks players whose next message is a new name.
	awaitingRename *session.Store[struct{}]
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService, farming *service.FarmingService, ranking *service.RankingService) *AccountHandler {
	return &AccountHandler{
		accounts:       accounts,
		farming:        farming,
		ranking:        ranking,
		awaitingRename: session.NewStore[struct{}](),
	}
}

func senderName(sender *tele.User) string {
	name := strings.TrimSpace(sender.FirstName + " " + sender.LastName)
	if name == "" {
		name = sender.Username
	}
	return name
}

// MenuMarkup builds the main menu keyboard.
func MenuMarkup() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	m.Inline(
		m.Row(m.Data("Glitch⚡", CbFarm)),
		m.Row(m.Data("Играть🎰", CbGames)),
		m.Row(m.Data("Профиль👤", CbProfile), m.Data("Переводы", CbTransfer)),
		m.Row(m.Data("Топ балансов💸", CbTop)),
	)
	return m
}

// HandleStart registers the player and shows the main menu.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	_, _, err := h.accounts.EnsurePlayer(ctx, sender.ID, senderName(sender))
	if err != nil {
		return c.Reply("Не удалось создать профиль, попробуйте позже.")
	}

	return c.Reply(
		"Привет! Я Glitch, возможно это как биткоин, а возможно как хомяк.\n"+
			"Майнить или нет – это твоё дело.",
		MenuMarkup(),
	)
}

// HandleBalance shows the player's balance.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	p, err := h.accounts.GetPlayer(ctx, sender.ID)
	if err != nil {
		return c.Reply("Вы ещё не начали игру. Напишите 'начать', чтобы начать!")
	}
	return c.Reply(fmt.Sprintf("Ваш баланс: %d Glitch⚡.", p.Balance))
}

// HandleProfile shows the player's profile with a rename button.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	p, err := h.accounts.GetPlayer(ctx, sender.ID)
	if err != nil {
		return c.Reply("Вы ещё не начали игру. Напишите 'начать', чтобы начать!")
	}

	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(m.Data("Сменить имя", CbRename)))
	return c.Reply(fmt.Sprintf(
		"Профиль:\nБаланс: %d Glitch⚡\nДата начала: %s\nИмя: %s\nНажмите [Сменить имя] для изменения.",
		p.Balance, p.CreatedAt.Format("2006-01-02"), p.Name,
	), m)
}

// HandleFarm credits the farming bonus.
func (h *AccountHandler) HandleFarm(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if _, _, err := h.accounts.EnsurePlayer(ctx, sender.ID, senderName(sender)); err != nil {
		return c.Reply("Не удалось создать профиль, попробуйте позже.")
	}

	earned, p, err := h.farming.Farm(ctx, sender.ID)
	if err != nil {
		if errors.Is(err, service.ErrBonusCooldown) {
			return c.Reply("Бонус пока недоступен, попробуйте позже.")
		}
		return c.Reply("Не удалось получить бонус, попробуйте позже.")
	}
	return c.Reply(fmt.Sprintf("Вы нашли %d Glitch⚡! Ваш баланс: %d Glitch⚡.", earned, p.Balance))
}

// HandleTop shows the balance leaderboard.
func (h *AccountHandler) HandleTop(c tele.Context) error {
	ctx := context.Background()

	top, err := h.ranking.TopBalances(ctx, service.DefaultTopLimit)
	if err != nil {
		return c.Reply("Не удалось загрузить топ, попробуйте позже.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Топ %d балансов:\n", service.DefaultTopLimit)
	for i, p := range top {
		fmt.Fprintf(&b, "%d. %s: %d Glitch⚡\n", i+1, p.Name, p.Balance)
	}
	return c.Reply(b.String())
}

// BeginRename asks for a new name; the next message is treated as input.
func (h *AccountHandler) BeginRename(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	// Restarting the prompt is harmless, ignore an already waiting state.
	_ = h.awaitingRename.Create(sender.ID, struct{}{})
	return c.Reply("Введите новое имя или 'отмена' для отказа.")
}

// HandleRenameInput consumes the message if a rename is pending. Returns
// true when the message was handled.
func (h *AccountHandler) HandleRenameInput(c tele.Context, text string) (bool, error) {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return false, nil
	}
	if _, err := h.awaitingRename.Remove(sender.ID); err != nil {
		return false, nil
	}

	if strings.EqualFold(text, "отмена") {
		return true, c.Reply("Смена имени отменена.")
	}
	if err := h.accounts.Rename(ctx, sender.ID, text); err != nil {
		return true, c.Reply("Не удалось сменить имя, попробуйте позже.")
	}
	return true, c.Reply(fmt.Sprintf("Имя изменено на %s.", text))
}
