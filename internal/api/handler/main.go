package handler

import (
	"net/http"

	"prizedrop/internal/services"

	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
	// TrustGatewayHeader accepts HeaderUserID as the caller identity.
	TrustGatewayHeader bool
}

func New(cfg *Config) (http.Handler, error) {
	verifier, err := do.Invoke[*services.Authentication](cfg.Container)
	if err != nil {
		return nil, err
	}

	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${id}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🎁")
	})
	r.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	routesAPIv1 := r.Group("/api/v1")
	{
		allowHeaders := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}
		if cfg.TrustGatewayHeader {
			allowHeaders = append(allowHeaders, HeaderUserID)
		}
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Origins,
			AllowHeaders: allowHeaders,
			MaxAge:       60 * 60,
		})

		routesAPIv1.Use(cors)
		routesAPIv1.Use(Authn(verifier, cfg.TrustGatewayHeader)) // Authn will NOT terminate anonymous requests.

		u := groupUser{cfg.Container}
		routesAPIv1.POST("/users", u.Register)
		routesAPIv1.GET("/users/:id/collage", u.Collage)

		p := groupPrize{cfg.Container}
		routesAPIv1.POST("/prizes/:id/claim", p.Claim)

		l := groupLeaderboard{cfg.Container}
		routesAPIv1.GET("/leaderboard", l.Top)

		routesAPIv1Admin := routesAPIv1.Group("/admin")
		{
			a := groupAdmin{cfg.Container}
			routesAPIv1Admin.POST("/prizes", a.AddPrize)
			routesAPIv1Admin.POST("/prizes/load", a.LoadPrizes)
			routesAPIv1Admin.PUT("/interval", a.SetInterval)
			routesAPIv1Admin.POST("/bonus", a.GrantBonus)
		}
	}

	return r, nil
}
