package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"prizedrop/internal/archive"
	"prizedrop/internal/models"
	"prizedrop/internal/services"

	tele "gopkg.in/telebot.v3"
)

const (
	textWelcome       = "Welcome! You will receive hidden images from time to time. Be among the first three to press Claim! to win them."
	textAlreadyJoined = "You are already registered."
	textNoWins        = "You have not won any image yet."
	textNotAllowed    = "You are not authorized to use this command."
)

func commandStart(c tele.Context) error {
	serviceUser, err := invoke[*services.ServiceUser](c)
	if err != nil {
		return err
	}

	sender := c.Sender()
	_, err = serviceUser.Register(context.Background(), sender.ID, displayName(sender))
	if errors.Is(err, services.ErrDuplicateUser) {
		return c.Send(textAlreadyJoined)
	}
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	return c.Send(textWelcome)
}

func commandRating(c tele.Context) error {
	serviceLeaderboard, err := invoke[*services.ServiceLeaderboard](c)
	if err != nil {
		return err
	}

	items, err := serviceLeaderboard.Top(context.Background(), services.LEADERBOARD_DEFAULT_LIMIT)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}
	if len(items) == 0 {
		return c.Send("Nobody has registered yet.")
	}

	var sb strings.Builder
	sb.WriteString("🏆 Rating\n")
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s: %d\n", item.Rank, item.Name, item.Wins))
	}

	return c.Send(sb.String())
}

func commandScore(c tele.Context) error {
	serviceCollage, err := invoke[*services.ServiceCollage](c)
	if err != nil {
		return err
	}

	_, data, err := serviceCollage.UserCollage(context.Background(), c.Sender().ID)
	if errors.Is(err, services.ErrNoWins) {
		return c.Send(textNoWins)
	}
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	return c.Send(&tele.Photo{
		File:    tele.FromReader(bytes.NewReader(data)),
		Caption: "Your collection",
	})
}

func commandBonus(c tele.Context) error {
	serviceUser, err := invoke[*services.ServiceUser](c)
	if err != nil {
		return err
	}

	bonus, err := serviceUser.Bonus(context.Background(), c.Sender().ID)
	if errors.Is(err, services.ErrUserNotFound) {
		return c.Send("Send /start first.")
	}
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	return c.Send(fmt.Sprintf("You have %d bonus points.", bonus))
}

// /admin_add_prize <image key>
func commandAdminAddPrize(c tele.Context) error {
	serviceAdmin, err := invoke[*services.ServiceAdmin](c)
	if err != nil {
		return err
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Send("Usage: /admin_add_prize <image key>, or send a photo with that caption")
	}

	prize, err := serviceAdmin.AddPrize(context.Background(), c.Sender().ID, args[0], nil)
	return replyAdmin(c, err, fmt.Sprintf("Prize %d added", idOf(prize)))
}

// A photo captioned "/admin_add_prize [image key]" uploads a new original.
func commandAdminAddPrizePhoto(c tele.Context) error {
	fields := strings.Fields(c.Message().Caption)
	if len(fields) == 0 || fields[0] != "/admin_add_prize" {
		return nil
	}

	serviceAdmin, err := invoke[*services.ServiceAdmin](c)
	if err != nil {
		return err
	}

	photo := c.Message().Photo
	imageKey := photo.UniqueID + ".jpg"
	if len(fields) > 1 {
		imageKey = fields[1]
	}
	if err := archive.ValidateKey(imageKey); err != nil {
		return c.Send(err.Error())
	}

	reader, err := c.Bot().File(&photo.File)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}

	prize, err := serviceAdmin.AddPrize(context.Background(), c.Sender().ID, imageKey, data)
	return replyAdmin(c, err, fmt.Sprintf("Prize %d added", idOf(prize)))
}

// /admin_set_interval <minutes>
func commandAdminSetInterval(c tele.Context) error {
	serviceAdmin, err := invoke[*services.ServiceAdmin](c)
	if err != nil {
		return err
	}

	args := c.Args()
	if len(args) != 1 {
		return c.Send("Usage: /admin_set_interval <minutes>")
	}

	minutes, err := strconv.Atoi(args[0])
	if err != nil {
		return c.Send("Invalid number of minutes")
	}

	err = serviceAdmin.SetDispatchInterval(context.Background(), c.Sender().ID, minutes)
	return replyAdmin(c, err, fmt.Sprintf("Prizes will be sent every %d minute(s)", minutes))
}

// /admin_bonus <user id> <points>
func commandAdminBonus(c tele.Context) error {
	serviceAdmin, err := invoke[*services.ServiceAdmin](c)
	if err != nil {
		return err
	}

	args := c.Args()
	if len(args) != 2 {
		return c.Send("Usage: /admin_bonus <user id> <points>")
	}

	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Send("Invalid user id")
	}
	points, err := strconv.Atoi(args[1])
	if err != nil {
		return c.Send("Invalid points")
	}

	bonus, err := serviceAdmin.GrantBonus(context.Background(), c.Sender().ID, userID, points)
	return replyAdmin(c, err, fmt.Sprintf("User %d now has %d bonus points", userID, bonus))
}

func commandAdminLoadPrizes(c tele.Context) error {
	serviceAdmin, err := invoke[*services.ServiceAdmin](c)
	if err != nil {
		return err
	}

	loaded, err := serviceAdmin.LoadPrizes(context.Background(), c.Sender().ID)
	return replyAdmin(c, err, fmt.Sprintf("%d prize(s) loaded", loaded))
}

func callbackClaim(c tele.Context) error {
	serviceClaim, err := invoke[*services.ServiceClaim](c)
	if err != nil {
		return err
	}

	prizeID, err := strconv.ParseInt(c.Data(), 10, 64)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Invalid prize"})
	}

	ctx := context.Background()
	result, err := serviceClaim.AttemptClaim(ctx, c.Sender().ID, prizeID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: claimRejection(err)})
	}

	if err := c.Respond(&tele.CallbackResponse{Text: "You won!"}); err != nil {
		return err
	}

	arc, err := invoke[archive.Archive](c)
	if err != nil {
		return err
	}
	original, err := arc.Get(ctx, archive.Originals, result.ImageKey)
	if err != nil {
		return c.Send(fmt.Sprintf("You won prize %d and %d bonus points!", result.PrizeID, result.Bonus))
	}

	return c.Send(&tele.Photo{
		File:    tele.FromReader(bytes.NewReader(original)),
		Caption: fmt.Sprintf("Congratulations! +%d bonus points", result.Bonus),
	})
}

func claimRejection(err error) string {
	switch {
	case errors.Is(err, services.ErrPrizeExhausted):
		return "Too late, this image already has three winners."
	case errors.Is(err, services.ErrAlreadyClaimed):
		return "You already won this image."
	case errors.Is(err, services.ErrUserNotFound):
		return "Send /start first."
	case errors.Is(err, services.ErrPrizeNotFound):
		return "This prize no longer exists."
	case errors.Is(err, services.ErrRateLimited):
		return "Slow down a little."
	default:
		return "Something went wrong, try again."
	}
}

func replyAdmin(c tele.Context, err error, success string) error {
	if errors.Is(err, services.ErrNotPrivileged) {
		return c.Send(textNotAllowed)
	}
	if err != nil {
		return c.Send(fmt.Sprintf("error %s", err.Error()))
	}
	return c.Send(success)
}

func displayName(user *tele.User) string {
	if user.Username != "" {
		return user.Username
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

func idOf(prize *models.Prize) int64 {
	if prize == nil {
		return 0
	}
	return prize.ID
}
