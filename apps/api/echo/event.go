package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/volunhub/volunhub/core/event"
)

type eventApi struct {
	svc *event.Service
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *event.Service) {
	api := eventApi{svc: svc}

	eg := g.Group("/events", jwt)
	eg.GET("", api.query)
	eg.POST("", api.create, roleMiddleware("organizer"))

	dg := eg.Group("/:id")
	dg.POST("/approve", api.approve, adminMiddleware())
	dg.POST("/reject", api.reject, adminMiddleware())
	dg.POST("/close", api.close, roleMiddleware("organizer"))
	dg.DELETE("", api.destroy, roleMiddleware("organizer", "admin"))
}

// Handlers

func (api *eventApi) query(ctx echo.Context) error {
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
	return ctx.JSON(http.StatusOK, api.svc.EventViews(claims.Actor()))
}

func (api *eventApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}

	ev, err := api.svc.CreateEvent(ctx.Request().Context(), claims.Actor(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, event.NewEventView(ev, claims.Actor()))
}

func (api *eventApi) approve(ctx echo.Context) error {
	return api.transition(ctx, event.StatusAccepted)
}

func (api *eventApi) reject(ctx echo.Context) error {
	return api.transition(ctx, event.StatusCancelled)
}

func (api *eventApi) close(ctx echo.Context) error {
	return api.transition(ctx, event.StatusClosed)
}

func (api *eventApi) transition(ctx echo.Context, target event.StatusCode) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data TransitionRequest
	_ = ctx.Bind(&data) // reason is optional; an empty body is fine

	ev, err := api.svc.TransitionEvent(ctx.Request().Context(), claims.Actor(), ctx.Param("id"), target, data.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, event.NewEventView(ev, claims.Actor()))
}

func (api *eventApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.svc.DeleteEvent(ctx.Request().Context(), claims.Actor(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// TransitionRequest carries an optional human-readable reason recorded on
// the resulting status.
type TransitionRequest struct {
	Reason string `json:"reason"`
}
