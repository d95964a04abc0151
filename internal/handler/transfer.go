package handler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"glitch-bot/internal/game/session"
	"glitch-bot/internal/service"
)

// Transfer callback arguments for CbTransferConfirm.
const (
	CbTransferConfirm = "transfer_confirm" // arg: confirm|cancel
)

// Transfer form stages.
const (
	stageRecipient = "recipient"
	stageAmount    = "amount"
	stageConfirm   = "confirm"
)

// transferForm is the multi-step transfer dialog state.
type transferForm struct {
	Stage     string
	Recipient int64
	Amount    int64
}

var recipientIDPattern = regexp.MustCompile(`\bid(\d+)\b`)

// TransferHandler runs the transfer dialog: recipient, amount, then an
// explicit confirmation.
type TransferHandler struct {
	accounts  *service.AccountService
	transfers *service.TransferService
	forms     *session.Store[*transferForm]
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(accounts *service.AccountService, transfers *service.TransferService) *TransferHandler {
	return &TransferHandler{
		accounts:  accounts,
		transfers: transfers,
		forms:     session.NewStore[*transferForm](),
	}
}

// Begin starts a transfer dialog.
func (h *TransferHandler) Begin(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if _, _, err := h.accounts.EnsurePlayer(context.Background(), sender.ID, senderName(sender)); err != nil {
		return c.Reply("Не удалось создать профиль, попробуйте позже.")
	}
	// A fresh "перевод" restarts a stale dialog.
	_, _ = h.forms.Remove(sender.ID)
	_ = h.forms.Create(sender.ID, &transferForm{Stage: stageRecipient})
	return c.Reply("Введите ссылку или тег игрока, которому вы хотите перевести Glitch:")
}

// parseRecipient extracts the recipient's id from a replied-to message, a
// text mention, or an idNNNNN / bare numeric reference in the text.
func parseRecipient(c tele.Context, text string) (int64, bool) {
	if msg := c.Message(); msg != nil {
		if msg.ReplyTo != nil && msg.ReplyTo.Sender != nil {
			return msg.ReplyTo.Sender.ID, true
		}
		for _, entity := range msg.Entities {
			if entity.User != nil {
				return entity.User.ID, true
			}
		}
	}
	if m := recipientIDPattern.FindStringSubmatch(text); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			return id, true
		}
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64); err == nil && id > 0 {
		return id, true
	}
	return 0, false
}

// HandleInput consumes the message if a transfer dialog is active. Returns
// true when the message was handled.
func (h *TransferHandler) HandleInput(c tele.Context, text string) (bool, error) {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return false, nil
	}
	form, err := h.forms.Get(sender.ID)
	if err != nil {
		return false, nil
	}

	switch form.Stage {
	case stageRecipient:
		recipient, ok := parseRecipient(c, text)
		if !ok {
			return true, c.Reply("Не удалось определить получателя. Попробуйте еще раз, отправив корректную ссылку/тег.")
		}
		if recipient == sender.ID {
			return true, c.Reply("Нельзя перевести Glitch самому себе. Укажите другого игрока.")
		}
		_ = h.forms.Update(sender.ID, func(f *transferForm) {
			f.Recipient = recipient
			f.Stage = stageAmount
		})
		return true, c.Reply("Введите сумму Glitch для перевода:")

	case stageAmount:
		amount, err := strconv.ParseInt(text, 10, 64)
		if err != nil || amount <= 0 {
			return true, c.Reply("Введите корректное число для суммы перевода.")
		}
		if err := h.transfers.Validate(ctx, sender.ID, form.Recipient, amount); err != nil {
			_, _ = h.forms.Remove(sender.ID)
			if errors.Is(err, service.ErrInsufficientFunds) {
				return true, c.Reply("Недостаточно средств для перевода.")
			}
			return true, c.Reply("Перевод невозможен, попробуйте позже.")
		}
		_ = h.forms.Update(sender.ID, func(f *transferForm) {
			f.Amount = amount
			f.Stage = stageConfirm
		})

		m := &tele.ReplyMarkup{}
		m.Inline(m.Row(
			m.Data("Подтвердить", CbTransferConfirm, "confirm"),
			m.Data("Отменить", CbTransferConfirm, "cancel"),
		))
		return true, c.Reply(fmt.Sprintf(
			"Пожалуйста, подтвердите, что вы хотите перевести %d Glitch игроку id%d.",
			amount, form.Recipient,
		), m)
	}
	// The confirm stage only accepts button callbacks.
	return false, nil
}

// HandleConfirm settles or cancels the transfer from the dialog buttons.
func (h *TransferHandler) HandleConfirm(c tele.Context, action string) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	form, err := h.forms.Get(sender.ID)
	if err != nil || form.Stage != stageConfirm {
		return c.Reply("Сессия перевода не найдена или уже завершена.")
	}
	if _, err := h.forms.Remove(sender.ID); err != nil {
		return c.Reply("Сессия перевода не найдена или уже завершена.")
	}

	if action != "confirm" {
		return c.Reply("Перевод отменён.")
	}

	balance, err := h.transfers.Transfer(ctx, sender.ID, form.Recipient, form.Amount)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientFunds) {
			return c.Reply("Недостаточно средств для перевода.")
		}
		return c.Reply("Перевод не удался, попробуйте позже.")
	}
	return c.Reply(fmt.Sprintf(
		"Перевод выполнен успешно! С вашего счета списано %d Glitch. Новый баланс: %d Glitch.",
		form.Amount, balance,
	))
}

// Active reports whether the player has a transfer dialog in progress.
func (h *TransferHandler) Active(userID int64) bool {
	return h.forms.Active(userID)
}
