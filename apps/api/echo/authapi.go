package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/volunhub/volunhub/core"
	"github.com/volunhub/volunhub/core/user"
)

type authApi struct {
	usrSvc   *user.Service
	identSvc user.IdentityService
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, usrSvc *user.Service, identSvc user.IdentityService) {
	api := authApi{
		usrSvc:   usrSvc,
		identSvc: identSvc,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.GET("/urls", api.queryURLs)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.identSvc, api.usrSvc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// queryURLs returns the identity provider's browser flow URLs; the frontend
// redirects to these for the hosted login, registration and logout pages.
func (api *authApi) queryURLs(ctx echo.Context) error {
	redirect := ctx.QueryParam("redirect")
	if redirect == "" {
		redirect = core.Conf.FrontendBaseURL
	}
	return ctx.JSON(http.StatusOK, AuthURLsResponse{
		Login:    api.identSvc.LoginURL(redirect),
		Register: api.identSvc.RegisterURL(redirect),
		Logout:   api.identSvc.LogoutURL(redirect),
	})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	AuthURLsResponse struct {
		Login    string `json:"login"`
		Register string `json:"register"`
		Logout   string `json:"logout"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.Validate.Struct(lr)
}
