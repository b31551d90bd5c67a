package services

import (
	"errors"
	"time"

	"prizedrop/internal/config"
	"prizedrop/internal/models"

	"github.com/samber/do"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

var ErrInvalidInitData = errors.New("invalid init data")

// Authentication verifies Telegram Mini App init data against the bot token.
type Authentication struct {
	token string
	ttl   time.Duration
}

func NewAuthentication(container *do.Injector) (*Authentication, error) {
	cfg, err := do.Invoke[*config.Config](container)
	if err != nil {
		return nil, err
	}

	return &Authentication{token: cfg.BotToken, ttl: cfg.InitDataTTL}, nil
}

// ValidateInitData checks the signature and age of dataStr and returns the
// user it was issued to.
func (auth *Authentication) ValidateInitData(dataStr string) (*models.UserFromAuth, error) {
	// an empty token would accept data signed with an empty key
	if auth.token == "" {
		return nil, ErrInvalidInitData
	}

	if err := initdata.Validate(dataStr, auth.token, auth.ttl); err != nil {
		return nil, errors.Join(ErrInvalidInitData, err)
	}

	data, err := initdata.Parse(dataStr)
	if err != nil {
		return nil, errors.Join(ErrInvalidInitData, err)
	}
	if data.User.ID == 0 {
		return nil, ErrInvalidInitData
	}

	return &models.UserFromAuth{
		ID:        data.User.ID,
		Username:  data.User.Username,
		FirstName: data.User.FirstName,
		LastName:  data.User.LastName,
	}, nil
}
