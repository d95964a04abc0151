package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"glitch-bot/internal/fair"
	"glitch-bot/internal/game/coinflip"
	"glitch-bot/internal/game/mines"
	"glitch-bot/internal/game/session"
	"glitch-bot/internal/render"
	"glitch-bot/internal/service"
)

// Game callback uniques.
const (
	CbGameCoinflip = "game_coinflip"
	CbGameMines    = "game_mines"
	CbFlip         = "flip"      // arg: heads|tails
	CbMinesOpt     = "mines_opt" // arg: default|custom
	CbMinesTake    = "mines_take"
)

// GameHandler drives the coin flip and mines games over chat messages and
// callbacks.
type GameHandler struct {
	accounts *service.AccountService
	coinflip *coinflip.Engine
	mines    *mines.Engine
	renderer render.BoardRenderer

	// awaitingBet maps a player to the game their next message stakes.
	awaitingBet *session.Store[string]
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(accounts *service.AccountService, cf *coinflip.Engine, m *mines.Engine, renderer render.BoardRenderer) *GameHandler {
	return &GameHandler{
		accounts:    accounts,
		coinflip:    cf,
		mines:       m,
		renderer:    renderer,
		awaitingBet: session.NewStore[string](),
	}
}

// HandleGames shows the game selection keyboard.
func (h *GameHandler) HandleGames(c tele.Context) error {
	m := &tele.ReplyMarkup{}
	m.Inline(
		m.Row(m.Data("Орел-Решка", CbGameCoinflip), m.Data("Мины", CbGameMines)),
		m.Row(m.Data("Бонус", CbFarm)),
	)
	return c.Reply("Выберите игру:", m)
}

// PromptCoinflip asks for a coin flip stake.
func (h *GameHandler) PromptCoinflip(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	h.setAwaitingBet(sender.ID, "coinflip")
	return c.Reply("Введите вашу ставку для 'Орел-Решка':")
}

// PromptMines asks for a mines stake.
func (h *GameHandler) PromptMines(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	h.setAwaitingBet(sender.ID, "mines")
	return c.Reply("Введите вашу ставку для игры 'Мины':")
}

func (h *GameHandler) setAwaitingBet(userID int64, game string) {
	// The last prompt wins.
	_, _ = h.awaitingBet.Remove(userID)
	_ = h.awaitingBet.Create(userID, game)
}

// HandleBetInput consumes the message if a stake is pending. Returns true
// when the message was handled.
func (h *GameHandler) HandleBetInput(c tele.Context, text string) (bool, error) {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return false, nil
	}
	game, err := h.awaitingBet.Get(sender.ID)
	if err != nil {
		return false, nil
	}

	stake, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return true, c.Reply("Пожалуйста, введите корректную ставку.")
	}
	if _, err := h.awaitingBet.Remove(sender.ID); err != nil {
		return false, nil
	}

	switch game {
	case "coinflip":
		return true, h.startCoinflip(ctx, c, stake)
	case "mines":
		return true, h.startMines(ctx, c, stake)
	}
	return false, nil
}

func (h *GameHandler) startCoinflip(ctx context.Context, c tele.Context, stake int64) error {
	sess, err := h.coinflip.Start(ctx, c.Sender().ID, stake)
	if err != nil {
		return c.Reply(gameErrorText(err))
	}

	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(
		m.Data("Орел", CbFlip, fair.Heads),
		m.Data("Решка", CbFlip, fair.Tails),
	))
	return c.Reply(fmt.Sprintf(
		"Вы выбрали ставку %d.\nХэш игры (для проверки честности): %s\nВыберите, на что ставите:",
		sess.Stake, sess.Commitment,
	), m)
}

// HandleFlipChoice settles a coin flip from the heads/tails callback.
func (h *GameHandler) HandleFlipChoice(c tele.Context, choice string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	result, err := h.coinflip.Resolve(ctx, sender.ID, choice)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.Reply("Игра не найдена или уже завершена.")
		}
		return c.Reply(gameErrorText(err))
	}

	outcome := "Орел"
	if result.Session.Outcome == fair.Tails {
		outcome = "Решка"
	}
	if result.Won {
		return c.Reply(fmt.Sprintf(
			"Поздравляем! Вы выиграли %d. Баланс: %d Glitch⚡.\nХэш игры: %s\nПроверка честности: %s",
			result.Payout, result.Balance, result.Session.Commitment, result.Session.Material(),
		))
	}
	return c.Reply(fmt.Sprintf(
		"Вы проиграли. Выпало: %s. Баланс: %d Glitch⚡.\nХэш игры: %s\nПроверка честности: %s",
		outcome, result.Balance, result.Session.Commitment, result.Session.Material(),
	))
}

func (h *GameHandler) startMines(ctx context.Context, c tele.Context, stake int64) error {
	sess, err := h.mines.Start(ctx, c.Sender().ID, stake)
	if err != nil {
		return c.Reply(gameErrorText(err))
	}

	size := h.mines.BoardSize()
	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(
		m.Data(fmt.Sprintf("Начать с %d минами", h.mines.DefaultMines()), CbMinesOpt, "default"),
		m.Data("Выбрать количество мин", CbMinesOpt, "custom"),
	))
	return c.Reply(fmt.Sprintf(
		"Ставка %d принята. Игра проводится на поле %dx%d.\nВведите количество мин (от 1 до %d):",
		sess.Stake, size, size, size*size-1,
	), m)
}

// HandleMinesOption handles the default/custom mine count buttons.
func (h *GameHandler) HandleMinesOption(c tele.Context, option string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	switch option {
	case "default":
		sess, err := h.mines.ChooseDefaultMineCount(ctx, sender.ID)
		if err != nil {
			return h.replyMinesError(c, err)
		}
		return h.sendBoardStart(c, sess)
	case "custom":
		total := h.mines.BoardSize() * h.mines.BoardSize()
		return c.Reply(fmt.Sprintf("Введите количество мин (от 1 до %d):", total-1))
	default:
		return c.Reply("Неверная опция.")
	}
}

// HandleMinesText consumes the message if the player has an active mines
// session: the mine count in the first phase, a cell number or "забрать"
// in the reveal phase. Returns true when the message was handled.
func (h *GameHandler) HandleMinesText(c tele.Context, text string) (bool, error) {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return false, nil
	}
	sess, err := h.mines.Get(sender.ID)
	if err != nil {
		return false, nil
	}

	switch sess.Phase {
	case mines.PhaseMineCount:
		count, err := strconv.Atoi(text)
		if err != nil {
			return true, c.Reply("Введите корректное число для количества мин.")
		}
		updated, err := h.mines.ChooseMineCount(ctx, sender.ID, count)
		if err != nil {
			return true, h.replyMinesError(c, err)
		}
		return true, h.sendBoardStart(c, updated)

	case mines.PhaseReveal:
		if strings.EqualFold(text, "забрать") {
			return true, h.cashOut(ctx, c)
		}
		cell, err := strconv.Atoi(text)
		if err != nil {
			return true, c.Reply("Введите корректный номер ячейки или 'забрать', чтобы завершить игру.")
		}
		return true, h.reveal(ctx, c, cell)
	}
	return false, nil
}

// HandleMinesTake handles the cash-out button.
func (h *GameHandler) HandleMinesTake(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if !h.mines.Active(sender.ID) {
		return c.Reply("Сессия игры не найдена. Начните игру заново.")
	}
	return h.cashOut(ctx, c)
}

func (h *GameHandler) reveal(ctx context.Context, c tele.Context, cell int) error {
	sender := c.Sender()
	move, err := h.mines.Reveal(ctx, sender.ID, cell)
	if err != nil {
		switch {
		case errors.Is(err, mines.ErrCellAlreadyRevealed):
			return c.Reply("Эта ячейка уже была выбрана. Выберите другую.")
		case errors.Is(err, mines.ErrInvalidCell):
			total := h.mines.BoardSize() * h.mines.BoardSize()
			return c.Reply(fmt.Sprintf("Номер ячейки должен быть от 1 до %d.", total))
		default:
			return h.replyMinesError(c, err)
		}
	}

	if move.Busted {
		caption := fmt.Sprintf(
			"Вы проиграли! Вы попали на мину в ячейке %d.\nХеш (MD5): %s\nРасшифровка: %s",
			move.Cell, move.Session.Commitment, move.Session.Material(),
		)
		return h.sendBoard(c, move.Board, caption, nil)
	}

	m := &tele.ReplyMarkup{}
	m.Inline(m.Row(m.Data("Забрать", CbMinesTake)))
	caption := fmt.Sprintf(
		"В ячейке %d мины нет.\nТекущий коэффициент: %s\nХеш (MD5): %s\nНажмите 'Забрать', чтобы забрать выигрыш.",
		move.Cell, mines.FormatMultiplier(move.Multiplier), move.Session.Commitment,
	)
	return h.sendBoard(c, move.Board, caption, m)
}

func (h *GameHandler) cashOut(ctx context.Context, c tele.Context) error {
	result, err := h.mines.CashOut(ctx, c.Sender().ID)
	if err != nil {
		return h.replyMinesError(c, err)
	}
	caption := fmt.Sprintf(
		"Поздравляем! Вы забрали выигрыш %d Glitch⚡.\nВаш баланс: %d Glitch⚡.\nХеш (MD5): %s\nРасшифровка: %s",
		result.Payout, result.Balance, result.Session.Commitment, result.Session.Material(),
	)
	return h.sendBoard(c, result.Board, caption, nil)
}

func (h *GameHandler) sendBoardStart(c tele.Context, sess *mines.Session) error {
	total := sess.Board.TotalCells()
	caption := fmt.Sprintf(
		"Игра началась с %dx%d и %d минами.\nХеш (MD5): %s\nВведите номер ячейки (от 1 до %d):",
		sess.Board.Size, sess.Board.Size, sess.Board.Mines, sess.Commitment, total,
	)
	view := &mines.BoardView{Size: sess.Board.Size, Cells: map[int]mines.CellStatus{}}
	return h.sendBoard(c, view, caption, nil)
}

func (h *GameHandler) sendBoard(c tele.Context, view *mines.BoardView, caption string, markup *tele.ReplyMarkup) error {
	data, err := h.renderer.Render(view)
	if err != nil {
		// The game result still matters when the image cannot be drawn.
		log.Error().Err(err).Msg("Failed to render board image")
		if markup != nil {
			return c.Reply(caption, markup)
		}
		return c.Reply(caption)
	}
	photo := &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(data)),
		Caption: caption,
	}
	if markup != nil {
		return c.Reply(photo, markup)
	}
	return c.Reply(photo)
}

func (h *GameHandler) replyMinesError(c tele.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return c.Reply("Сессия игры не найдена. Начните игру заново.")
	case errors.Is(err, mines.ErrInvalidMineCount):
		total := h.mines.BoardSize() * h.mines.BoardSize()
		return c.Reply(fmt.Sprintf("Количество мин должно быть от 1 до %d.", total-1))
	case errors.Is(err, mines.ErrWrongPhase):
		return c.Reply("Сейчас это действие недоступно.")
	default:
		return c.Reply(gameErrorText(err))
	}
}

func gameErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		return "Недостаточно средств для ставки."
	case errors.Is(err, session.ErrAlreadyActive):
		return "У вас уже есть незавершённая игра. Завершите её, прежде чем начинать новую."
	case errors.Is(err, coinflip.ErrInvalidStake), errors.Is(err, mines.ErrInvalidStake):
		return "Ставка должна быть больше нуля."
	default:
		log.Error().Err(err).Msg("Game operation failed")
		return "Что-то пошло не так, попробуйте позже."
	}
}
