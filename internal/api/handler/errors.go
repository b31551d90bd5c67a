package handler

import (
	"errors"
	"net/http"
	"strconv"

	"prizedrop/internal/archive"
	"prizedrop/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
)

// retryAfterSeconds is advertised on responses the client may repeat as is.
const (
	retryAfterSeconds = 1
	headerRetryAfter  = "Retry-After"
)

var (
	errUnauthenticated = errors.New("unauthenticated")
	errInvalidRequest  = errors.New("invalid request")
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorStatus struct {
	err    error
	status int
	code   string
}

var errorStatuses = []errorStatus{
	{errUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{errInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{services.ErrNotPrivileged, http.StatusForbidden, "not_privileged"},
	{services.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{services.ErrPrizeNotFound, http.StatusNotFound, "prize_not_found"},
	{services.ErrNoWins, http.StatusNotFound, "no_wins"},
	{services.ErrSourceImageMissing, http.StatusNotFound, "source_image_missing"},
	{services.ErrPrizeExhausted, http.StatusConflict, "prize_exhausted"},
	{services.ErrAlreadyClaimed, http.StatusConflict, "already_claimed"},
	{services.ErrDuplicateUser, http.StatusConflict, "duplicate_user"},
	{services.ErrDuplicatePrize, http.StatusConflict, "duplicate_prize"},
	{services.ErrInsufficientBonus, http.StatusConflict, "insufficient_bonus"},
	{services.ErrInvalidInterval, http.StatusBadRequest, "invalid_interval"},
	{services.ErrInvalidPoints, http.StatusBadRequest, "invalid_points"},
	{archive.ErrInvalidKey, http.StatusBadRequest, "invalid_image_key"},
	{services.ErrNonUniformDimensions, http.StatusUnprocessableEntity, "non_uniform_dimensions"},
	{services.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{services.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// statusOf maps a domain error to its response status and code. ok is false
// for internal failures.
func statusOf(err error) (status int, code string, ok bool) {
	for _, s := range errorStatuses {
		if errors.Is(err, s.err) {
			return s.status, s.code, true
		}
	}
	return 0, "", false
}

// abort renders err. Domain errors get a fixed status and a stable code the
// client can branch on; anything else is left to the toolkit as a service
// failure.
func abort(c echo.Context, err error) error {
	status, code, ok := statusOf(err)
	if !ok {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	if status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests {
		c.Response().Header().Set(headerRetryAfter, strconv.Itoa(retryAfterSeconds))
	}
	return c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
