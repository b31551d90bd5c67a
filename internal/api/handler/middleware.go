package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"prizedrop/internal/models"

	"github.com/labstack/echo/v4"
)

// HeaderUserID carries the caller id set by an authenticating gateway. It is
// ignored unless the router trusts the gateway.
const HeaderUserID = "X-User-ID"

type ctxKey string

var ctxKeyAuthUser ctxKey = "AUTH_USER"

// Authn resolves the caller from Mini App init data sent as a bearer token,
// or from HeaderUserID when trustHeader is set. Anonymous requests pass
// through; handlers that need a caller reject them.
func Authn(verifier interface {
	ValidateInitData(dataStr string) (*models.UserFromAuth, error)
}, trustHeader bool,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization)); token != "" {
				user, err := verifier.ValidateInitData(token)
				if err != nil {
					// no details for the client
					return abort(c, errUnauthenticated)
				}
				return next(withUser(c, user))
			}

			header := c.Request().Header.Get(HeaderUserID)
			if header == "" || !trustHeader {
				return next(c)
			}

			callerID, err := strconv.ParseInt(header, 10, 64)
			if err != nil || callerID == 0 {
				return abort(c, fmt.Errorf("%w: invalid user id", errUnauthenticated))
			}
			return next(withUser(c, &models.UserFromAuth{ID: callerID}))
		}
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, "Bearer", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func withUser(c echo.Context, user *models.UserFromAuth) echo.Context {
	ctx := context.WithValue(c.Request().Context(), ctxKeyAuthUser, user)
	c.SetRequest(c.Request().WithContext(ctx))
	return c
}

func ResolveUser(ctx context.Context) (*models.UserFromAuth, error) {
	user, ok := ctx.Value(ctxKeyAuthUser).(*models.UserFromAuth)
	if !ok {
		return nil, fmt.Errorf("%w: missing session", errUnauthenticated)
	}
	return user, nil
}

func ResolveCaller(ctx context.Context) (int64, error) {
	user, err := ResolveUser(ctx)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func paramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id", errInvalidRequest)
	}
	return id, nil
}
