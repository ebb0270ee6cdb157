package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/volunhub/volunhub/apps/api/echo"
	"github.com/volunhub/volunhub/core/user"
	testutil "github.com/volunhub/volunhub/tests"
)

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, app.usrRepo, "Иван Петров", "ivan", "ivan@test.ru", "LePassword", user.RoleVolunteer, true)
	testutil.CreateUser(t, app.usrRepo, "Спящий", "dormant", "dormant@test.ru", "LePassword", user.RoleVolunteer, false)

	tests := []httpTest{
		{
			name: "login by username", method: http.MethodPost, path: "/v1/auth/login",
			body: marchallObj(t, echoapi.LoginRequest{Username: "ivan", Password: "LePassword"}), wantCode: http.StatusOK,
		},
		{
			name: "login by email", method: http.MethodPost, path: "/v1/auth/login",
			body: marchallObj(t, echoapi.LoginRequest{Username: "IVAN@test.ru", Password: "LePassword"}), wantCode: http.StatusOK,
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "nobody", Password: "LePassword"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "ivan", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, echoapi.LoginRequest{Username: "dormant", Password: "LePassword"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, echoapi.LoginRequest{}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.server.ServeHTTP(rec, req)
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			assert.Equal(t, tt.wantCode, rec.Code)
			if rec.Code == http.StatusOK {
				var resp echoapi.LoginResponse
				decodeBody(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_authApi_tokenRefresh(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, app.usrRepo, "Иван Петров", "ivan", "ivan@test.ru", "LePassword", user.RoleVolunteer, true)
	token := getToken(t, usr)

	// no token
	req, rec := newRequest(http.MethodPost, "/v1/auth/token-refresh")
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	// valid token
	req, rec = newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp echoapi.LoginResponse
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
}

func Test_authApi_queryURLs(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/v1/auth/urls?redirect=http://localhost:3000/dashboard")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp echoapi.AuthURLsResponse
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Login, "http://localhost:3000/dashboard")
	assert.NotEmpty(t, resp.Register)
	assert.NotEmpty(t, resp.Logout)
}
