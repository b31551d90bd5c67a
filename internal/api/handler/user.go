package handler

import (
	"fmt"
	"net/http"

	"prizedrop/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupUser struct {
	container *do.Injector
}

type registerRequest struct {
	Name string `json:"name"`
}

// Register signs the caller up. The display name defaults to the one in the
// init data.
func (gr *groupUser) Register(c echo.Context) error {
	serviceUser, err := do.Invoke[*services.ServiceUser](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	caller, err := ResolveUser(ctx)
	if err != nil {
		return abort(c, err)
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return abort(c, fmt.Errorf("%w: invalid body", errInvalidRequest))
	}
	if req.Name == "" {
		req.Name = caller.FirstName
	}
	if req.Name == "" {
		req.Name = caller.Username
	}

	user, err := serviceUser.Register(ctx, caller.ID, req.Name)
	if err != nil {
		return abort(c, err)
	}

	return httpx.RestAbort(c, user, nil)
}

func (gr *groupUser) Collage(c echo.Context) error {
	serviceCollage, err := do.Invoke[*services.ServiceCollage](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	callerID, err := ResolveCaller(ctx)
	if err != nil {
		return abort(c, err)
	}

	userID, err := paramID(c)
	if err != nil {
		return abort(c, err)
	}

	_, data, err := serviceCollage.CollageFor(ctx, callerID, userID)
	if err != nil {
		return abort(c, err)
	}

	return c.Blob(http.StatusOK, "image/png", data)
}
