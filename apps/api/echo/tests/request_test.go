package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/volunhub/volunhub/apps/api/echo"
	"github.com/volunhub/volunhub/core/event"
	"github.com/volunhub/volunhub/core/user"
	testutil "github.com/volunhub/volunhub/tests"
)

func submitRequest(t *testing.T, app *testApp, token, eventID string) event.RequestView {
	body := marchallObj(t, echoapi.NewRequestRequest{EventID: eventID})
	req, rec := newAuthRequest(http.MethodPost, "/v1/requests", token, body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submitRequest() failed: code = %v; body: %s", rec.Code, rec.Body.String())
	}
	var view event.RequestView
	decodeBody(t, rec, &view)
	return view
}

// acceptedEvent drives an event through creation and admin approval so
// volunteers may apply to it.
func acceptedEvent(t *testing.T, app *testApp, orgToken, adminToken string) event.EventView {
	view := createEvent(t, app, orgToken)
	req, rec := newAuthRequest(http.MethodPost, "/v1/events/"+view.ID+"/approve", adminToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("acceptedEvent() failed: code = %v; body: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &view)
	return view
}

func Test_requestApi_create(t *testing.T) {
	app := setup(t)

	organizer := testutil.CreateUser(t, app.usrRepo, "Организатор", "organizer", "org@test.ru", "", user.RoleOrganizer, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Администратор", "admin", "admin@test.ru", "", user.RoleAdmin, true)
	volunteer := testutil.CreateUser(t, app.usrRepo, "Иван Петров", "ivan", "ivan@test.ru", "", user.RoleVolunteer, true)
	volToken := getToken(t, volunteer)

	ev := acceptedEvent(t, app, getToken(t, organizer), getToken(t, admin))

	// organizers cannot submit requests
	body := marchallObj(t, echoapi.NewRequestRequest{EventID: ev.ID})
	req, rec := newAuthRequest(http.MethodPost, "/v1/requests", getToken(t, organizer), body)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
	}, rec)

	// event id is required
	req, rec = newAuthRequest(http.MethodPost, "/v1/requests", volToken, marchallObj(t, echoapi.NewRequestRequest{}))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown event
	req, rec = newAuthRequest(http.MethodPost, "/v1/requests", volToken, marchallObj(t, echoapi.NewRequestRequest{EventID: "nope"}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
	}, rec)

	view := submitRequest(t, app, volToken, ev.ID)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, event.StatusOpen, view.Status.Code)
	assert.Equal(t, "Новая заявка", view.Status.Reason)
	assert.Equal(t, ev.ID, view.EventID)

	// one request per volunteer per event
	req, rec = newAuthRequest(http.MethodPost, "/v1/requests", volToken, body)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "a request for this event already exists"}),
	}, rec)
}

func Test_requestApi_lifecycle(t *testing.T) {
	app := setup(t)

	organizer := testutil.CreateUser(t, app.usrRepo, "Организатор", "organizer", "org@test.ru", "", user.RoleOrganizer, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Администратор", "admin", "admin@test.ru", "", user.RoleAdmin, true)
	volunteer := testutil.CreateUser(t, app.usrRepo, "Иван Петров", "ivan", "ivan@test.ru", "", user.RoleVolunteer, true)
	orgToken, volToken := getToken(t, organizer), getToken(t, volunteer)

	ev := acceptedEvent(t, app, orgToken, getToken(t, admin))
	view := submitRequest(t, app, volToken, ev.ID)

	// volunteers cannot approve their own request
	req, rec := newAuthRequest(http.MethodPost, "/v1/requests/"+view.ID+"/approve", volToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// confirming before approval is not a valid transition
	req, rec = newAuthRequest(http.MethodPost, "/v1/requests/"+view.ID+"/confirm", orgToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/requests/"+view.ID+"/approve", orgToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &view)
	assert.Equal(t, event.StatusAccepted, view.Status.Code)
	assert.Equal(t, "Заявка одобрена организатором", view.Status.Reason)

	req, rec = newAuthRequest(http.MethodPost, "/v1/requests/"+view.ID+"/confirm", orgToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &view)
	assert.Equal(t, event.StatusConfirmed, view.Status.Code)

	// CONFIRMED is terminal
	req, rec = newAuthRequest(http.MethodPost, "/v1/requests/"+view.ID+"/reject", orgToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_requestApi_query(t *testing.T) {
	app := setup(t)

	organizer := testutil.CreateUser(t, app.usrRepo, "Организатор", "organizer", "org@test.ru", "", user.RoleOrganizer, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Администратор", "admin", "admin@test.ru", "", user.RoleAdmin, true)
	volunteer := testutil.CreateUser(t, app.usrRepo, "Иван Петров", "ivan", "ivan@test.ru", "", user.RoleVolunteer, true)
	other := testutil.CreateUser(t, app.usrRepo, "Петр Иванов", "petr", "petr@test.ru", "", user.RoleVolunteer, true)

	ev := acceptedEvent(t, app, getToken(t, organizer), getToken(t, admin))
	created := submitRequest(t, app, getToken(t, volunteer), ev.ID)

	queryViews := func(token string) []event.RequestView {
		req, rec := newAuthRequest(http.MethodGet, "/v1/requests", token)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		var views []event.RequestView
		decodeBody(t, rec, &views)
		return views
	}

	// the applicant sees their request
	views := queryViews(getToken(t, volunteer))
	if assert.Len(t, views, 1) {
		assert.Equal(t, created.ID, views[0].ID)
		assert.Equal(t, ev.Title, views[0].EventTitle)
	}

	// so do the event's organizer and admins, but not other volunteers
	assert.Len(t, queryViews(getToken(t, organizer)), 1)
	assert.Len(t, queryViews(getToken(t, admin)), 1)
	assert.Empty(t, queryViews(getToken(t, other)))
}

func Test_requestApi_withdraw(t *testing.T) {
	app := setup(t)

	organizer := testutil.CreateUser(t, app.usrRepo, "Организатор", "organizer", "org@test.ru", "", user.RoleOrganizer, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Администратор", "admin", "admin@test.ru", "", user.RoleAdmin, true)
	volunteer := testutil.CreateUser(t, app.usrRepo, "Иван Петров", "ivan", "ivan@test.ru", "", user.RoleVolunteer, true)
	other := testutil.CreateUser(t, app.usrRepo, "Петр Иванов", "petr", "petr@test.ru", "", user.RoleVolunteer, true)
	volToken := getToken(t, volunteer)

	ev := acceptedEvent(t, app, getToken(t, organizer), getToken(t, admin))
	view := submitRequest(t, app, volToken, ev.ID)

	// strangers cannot withdraw someone else's request
	req, rec := newAuthRequest(http.MethodDelete, "/v1/requests/"+view.ID, getToken(t, other))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/requests/"+view.ID, volToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/requests/"+view.ID, volToken)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
	}, rec)
}
