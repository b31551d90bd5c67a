package handler

import (
	"prizedrop/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupPrize struct {
	container *do.Injector
}

func (gr *groupPrize) Claim(c echo.Context) error {
	serviceClaim, err := do.Invoke[*services.ServiceClaim](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	callerID, err := ResolveCaller(ctx)
	if err != nil {
		return abort(c, err)
	}

	prizeID, err := paramID(c)
	if err != nil {
		return abort(c, err)
	}

	result, err := serviceClaim.AttemptClaim(ctx, callerID, prizeID)
	if err != nil {
		return abort(c, err)
	}

	return httpx.RestAbort(c, result, nil)
}
