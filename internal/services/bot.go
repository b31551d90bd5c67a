package services

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"time"

	"prizedrop/internal/archive"
	"prizedrop/internal/models"

	tele "gopkg.in/telebot.v3"
)

const (
	textNewPrize = "🎁 A new hidden image is up for grabs! The first three to press the button win it."
	textClaim    = "Claim!"
)

// BtnClaim is the inline button attached to every delivery. Its data is the
// prize id.
var BtnClaim = tele.Btn{Unique: "claim"}

type Bot struct {
	bot     *tele.Bot
	archive archive.Archive
}

func NewBot(token string, arc archive.Archive) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	return &Bot{b, arc}, nil
}

func (bot *Bot) Tele() *tele.Bot {
	return bot.bot
}

func ClaimMarkup(prizeID int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	btn := markup.Data(textClaim, BtnClaim.Unique, strconv.FormatInt(prizeID, 10))
	markup.Inline(markup.Row(btn))
	return markup
}

func (bot *Bot) Notify(ctx context.Context, delivery models.Delivery) error {
	data, err := bot.archive.Get(ctx, archive.Teasers, delivery.TeaserKey)
	if err != nil {
		return err
	}

	_, err = bot.bot.Send(tele.ChatID(delivery.UserID), &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(data)),
		Caption: textNewPrize,
	}, &tele.SendOptions{
		ReplyMarkup: ClaimMarkup(delivery.PrizeID),
	})
	return err
}

// LogNotifier only records deliveries; used when no bot token is set.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, delivery models.Delivery) error {
	n.Logger.Info("prize delivered", "user_id", delivery.UserID, "prize_id", delivery.PrizeID, "teaser", delivery.TeaserKey)
	return nil
}
