package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/volunhub/volunhub/core"
	"github.com/volunhub/volunhub/core/event"
)

type requestApi struct {
	svc *event.Service
}

func registerRequestAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *event.Service) {
	api := requestApi{svc: svc}

	rg := g.Group("/requests", jwt)
	rg.GET("", api.query)
	rg.POST("", api.create, roleMiddleware("volunteer"))

	dg := rg.Group("/:id")
	dg.POST("/approve", api.approve, roleMiddleware("organizer"))
	dg.POST("/reject", api.reject, roleMiddleware("organizer"))
	dg.POST("/confirm", api.confirm, roleMiddleware("organizer"))
	dg.DELETE("", api.destroy, roleMiddleware("volunteer", "admin"))
}

// Handlers

func (api *requestApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var opts []event.QueryOption
	if ctx.QueryParam("refresh") != "" {
		opts = append(opts, event.BypassCache())
	}
	if err := api.svc.Load(ctx.Request().Context(), opts...); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.RequestViews(claims.Actor()))
}

func (api *requestApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data NewRequestRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequestRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rq, err := api.svc.SubmitVolunteerRequest(ctx.Request().Context(), claims.Actor(), data.EventID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, event.NewRequestView(rq, claims.Actor()))
}

func (api *requestApi) approve(ctx echo.Context) error {
	return api.transition(ctx, event.StatusAccepted)
}

func (api *requestApi) reject(ctx echo.Context) error {
	return api.transition(ctx, event.StatusCancelled)
}

func (api *requestApi) confirm(ctx echo.Context) error {
	return api.transition(ctx, event.StatusConfirmed)
}

func (api *requestApi) transition(ctx echo.Context, target event.StatusCode) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data TransitionRequest
	_ = ctx.Bind(&data)

	rq, err := api.svc.TransitionRequest(ctx.Request().Context(), claims.Actor(), ctx.Param("id"), target, data.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, event.NewRequestView(rq, claims.Actor()))
}

func (api *requestApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.DeleteRequest(ctx.Request().Context(), claims.Actor(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type NewRequestRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

func (nr *NewRequestRequest) Validate() error {
	return core.Validate.Struct(nr)
}
