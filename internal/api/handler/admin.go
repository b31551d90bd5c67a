package handler

import (
	"fmt"
	"io"

	"prizedrop/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupAdmin struct {
	container *do.Injector
}

func (gr *groupAdmin) resolve(c echo.Context) (*services.ServiceAdmin, int64, error) {
	serviceAdmin, err := do.Invoke[*services.ServiceAdmin](gr.container)
	if err != nil {
		return nil, 0, err
	}

	callerID, err := ResolveCaller(c.Request().Context())
	if err != nil {
		return nil, 0, err
	}

	return serviceAdmin, callerID, nil
}

// AddPrize takes a multipart form with an image_key field and an optional
// image file.
func (gr *groupAdmin) AddPrize(c echo.Context) error {
	serviceAdmin, callerID, err := gr.resolve(c)
	if err != nil {
		return abort(c, err)
	}

	imageKey := c.FormValue("image_key")
	if imageKey == "" {
		return abort(c, fmt.Errorf("%w: missing image_key", errInvalidRequest))
	}

	var data []byte
	if file, err := c.FormFile("image"); err == nil {
		src, err := file.Open()
		if err != nil {
			return abort(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		}
		defer src.Close()

		data, err = io.ReadAll(src)
		if err != nil {
			return abort(c, fmt.Errorf("%w: %v", errInvalidRequest, err))
		}
	}

	prize, err := serviceAdmin.AddPrize(c.Request().Context(), callerID, imageKey, data)
	if err != nil {
		return abort(c, err)
	}

	return httpx.RestAbort(c, prize, nil)
}

func (gr *groupAdmin) LoadPrizes(c echo.Context) error {
	serviceAdmin, callerID, err := gr.resolve(c)
	if err != nil {
		return abort(c, err)
	}

	loaded, err := serviceAdmin.LoadPrizes(c.Request().Context(), callerID)
	if err != nil {
		return abort(c, err)
	}

	return httpx.RestAbort(c, map[string]int{"loaded": loaded}, nil)
}

type intervalRequest struct {
	Minutes int `json:"minutes"`
}

func (gr *groupAdmin) SetInterval(c echo.Context) error {
	serviceAdmin, callerID, err := gr.resolve(c)
	if err != nil {
		return abort(c, err)
	}

	var req intervalRequest
	if err := c.Bind(&req); err != nil {
		return abort(c, fmt.Errorf("%w: invalid body", errInvalidRequest))
	}

	err = serviceAdmin.SetDispatchInterval(c.Request().Context(), callerID, req.Minutes)
	if err != nil {
		return abort(c, err)
	}

	return httpx.RestAbort(c, req, nil)
}

type bonusRequest struct {
	UserID int64 `json:"user_id"`
	Points int   `json:"points"`
}

func (gr *groupAdmin) GrantBonus(c echo.Context) error {
	serviceAdmin, callerID, err := gr.resolve(c)
	if err != nil {
		return abort(c, err)
	}

	var req bonusRequest
	if err := c.Bind(&req); err != nil {
		return abort(c, fmt.Errorf("%w: invalid body", errInvalidRequest))
	}

	bonus, err := serviceAdmin.GrantBonus(c.Request().Context(), callerID, req.UserID, req.Points)
	if err != nil {
		return abort(c, err)
	}

	return httpx.RestAbort(c, map[string]any{"user_id": req.UserID, "bonus": bonus}, nil)
}
