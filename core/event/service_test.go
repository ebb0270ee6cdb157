package event

import (
	"context"
	"io/ioutil"
	"log"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/volunhub/volunhub/core"
)

// fakeRepo mimics the remote backend: it assigns identifiers, resolves
// entity references on search and counts network round trips.
type fakeRepo struct {
	mu sync.Mutex

	pkCount       int
	events        []Event
	organizations []Organization
	persons       []Person
	volunteers    []Volunteer
	requests      []Request

	calls             map[string]int
	failSearches      bool
	hideOrganizations bool
}

var errRepoDown = errors.New("backend down")

func newFakeRepo() *fakeRepo {
	return &fakeRepo{calls: make(map[string]int)}
}

func (r *fakeRepo) nextID() string {
	r.pkCount++
	return strconv.Itoa(r.pkCount)
}

func (r *fakeRepo) count(op string) {
	r.mu.Lock()
	r.calls[op]++
	r.mu.Unlock()
}

func (r *fakeRepo) callCount(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *fakeRepo) totalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, c := range r.calls {
		n += c
	}
	return n
}

func (r *fakeRepo) SearchEvents(ctx context.Context, opts ...QueryOption) ([]Event, error) {
	r.count("searchEvents")
	if r.failSearches {
		return nil, errRepoDown
	}
	events := make([]Event, len(r.events))
	copy(events, r.events)
	return events, nil
}

func (r *fakeRepo) SearchOrganizations(ctx context.Context, opts ...QueryOption) ([]Organization, error) {
	r.count("searchOrganizations")
	if r.hideOrganizations {
		return nil, nil
	}
	orgs := make([]Organization, len(r.organizations))
	copy(orgs, r.organizations)
	return orgs, nil
}

func (r *fakeRepo) SearchVolunteers(ctx context.Context, opts ...QueryOption) ([]Volunteer, error) {
	r.count("searchVolunteers")
	vols := make([]Volunteer, len(r.volunteers))
	copy(vols, r.volunteers)
	return vols, nil
}

func (r *fakeRepo) SearchPersons(ctx context.Context, opts ...QueryOption) ([]Person, error) {
	r.count("searchPersons")
	persons := make([]Person, len(r.persons))
	copy(persons, r.persons)
	return persons, nil
}

func (r *fakeRepo) SearchRequests(ctx context.Context, opts ...QueryOption) ([]Request, error) {
	r.count("searchRequests")
	if r.failSearches {
		return nil, errRepoDown
	}
	requests := make([]Request, 0, len(r.requests))
	for _, rq := range r.requests {
		requests = append(requests, r.resolve(rq))
	}
	return requests, nil
}

func (r *fakeRepo) resolve(rq Request) Request {
	for i := range r.events {
		if r.events[i].ID == rq.EventID {
			ev := r.events[i]
			rq.Event = &ev
			break
		}
	}
	for i := range r.volunteers {
		if r.volunteers[i].ID == rq.VolunteerID {
			vol := r.volunteers[i]
			rq.Volunteer = &vol
			break
		}
	}
	return rq
}

func (r *fakeRepo) CreateEvent(ctx context.Context, description string, start time.Time, orgID string) (Event, error) {
	r.count("createEvent")
	ev := Event{
		ID:            r.nextID(),
		Description:   description,
		StartDateTime: start,
		Status:        Status{Code: StatusDraft, Reason: "Новое мероприятие"},
	}
	for _, org := range r.organizations {
		if org.ID == orgID {
			ev.Organization = org
		}
	}
	r.events = append(r.events, ev)
	return ev, nil
}

func (r *fakeRepo) UpdateEventStatus(ctx context.Context, id string, status Status) (Event, error) {
	r.count("updateEventStatus")
	for i := range r.events {
		if r.events[i].ID == id {
			r.events[i].Status = status
			return r.events[i], nil
		}
	}
	return Event{}, ErrNotFound
}

func (r *fakeRepo) DeleteEvent(ctx context.Context, id string) error {
	r.count("deleteEvent")
	for i := range r.events {
		if r.events[i].ID == id {
			r.events = append(r.events[:i], r.events[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *fakeRepo) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	r.count("createOrganization")
	org := Organization{ID: r.nextID(), Name: name}
	r.organizations = append(r.organizations, org)
	return org, nil
}

func (r *fakeRepo) UpdateOrganization(ctx context.Context, org Organization) (Organization, error) {
	r.count("updateOrganization")
	for i := range r.organizations {
		if r.organizations[i].ID == org.ID {
			r.organizations[i] = org
			return org, nil
		}
	}
	return Organization{}, ErrNotFound
}

func (r *fakeRepo) CreatePerson(ctx context.Context, firstName, lastName string) (Person, error) {
	r.count("createPerson")
	p := Person{ID: r.nextID(), FirstName: firstName, LastName: lastName}
	r.persons = append(r.persons, p)
	return p, nil
}

func (r *fakeRepo) CreateVolunteer(ctx context.Context, nickName, personID string) (Volunteer, error) {
	r.count("createVolunteer")
	vol := Volunteer{ID: r.nextID(), NickName: nickName, PersonID: personID}
	r.volunteers = append(r.volunteers, vol)
	return vol, nil
}

func (r *fakeRepo) CreateRequest(ctx context.Context, description, eventID, volunteerID string, status Status) (Request, error) {
	r.count("createRequest")
	rq := Request{
		ID:          r.nextID(),
		Description: description,
		Status:      status,
		EventID:     eventID,
		VolunteerID: volunteerID,
	}
	r.requests = append(r.requests, rq)
	return r.resolve(rq), nil
}

func (r *fakeRepo) UpdateRequestStatus(ctx context.Context, id string, status Status) (Request, error) {
	r.count("updateRequestStatus")
	for i := range r.requests {
		if r.requests[i].ID == id {
			r.requests[i].Status = status
			return r.resolve(r.requests[i]), nil
		}
	}
	return Request{}, ErrRequestNotFound
}

func (r *fakeRepo) DeleteRequest(ctx context.Context, id string) error {
	r.count("deleteRequest")
	for i := range r.requests {
		if r.requests[i].ID == id {
			r.requests = append(r.requests[:i], r.requests[i+1:]...)
			return nil
		}
	}
	return ErrRequestNotFound
}

// mailRecorder records messages synchronously for assertions.
type mailRecorder struct {
	mu   sync.Mutex
	sent []core.EmailMessage
}

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		_ = msg.Render()
		m.sent = append(m.sent, *msg)
	}
}

var (
	organizer = Actor{ID: "org-1", Name: "Организатор", Email: "organizer@example.com", Role: "organizer"}
	admin     = Actor{ID: "adm-1", Name: "Администратор", Email: "admin@example.com", Role: "admin"}
	volunteer = Actor{ID: "vol-1", Name: "Иван Петров", Email: "volunteer@example.com", Role: "volunteer"}
)

func newTestService() (*Service, *fakeRepo, *mailRecorder) {
	repo := newFakeRepo()
	mail := &mailRecorder{}
	logger := core.NewStdLogger(log.New(ioutil.Discard, "", 0))
	return NewService(repo, mail, logger), repo, mail
}

func newEvent(title string) NewEvent {
	return NewEvent{
		Title:            title,
		Location:         "Park",
		StartDateTime:    time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		VolunteersNeeded: 5,
		DurationHours:    3,
	}
}

func TestServiceCreateEvent(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	ev, err := svc.CreateEvent(ctx, organizer, newEvent("Cleanup"))
	assert.NoError(t, err)
	assert.Equal(t, StatusDraft, ev.Status.Code)

	// the organization is named after the organizer and created exactly once
	assert.Equal(t, 1, repo.callCount("createOrganization"))
	assert.Equal(t, organizer.Name, repo.organizations[0].Name)

	// a second event reuses the organization
	_, err = svc.CreateEvent(ctx, organizer, newEvent("Planting"))
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.callCount("createOrganization"))
	assert.Len(t, repo.events, 2)

	// fields are packed into the description
	details := ParseDescription(repo.events[0].Description)
	assert.Equal(t, "Cleanup", details.Title)
	assert.Equal(t, "Park", details.Location)
	assert.Equal(t, 5, details.VolunteersNeeded)
	assert.Equal(t, 3, details.DurationHours)
}

func TestServiceCreateEvent_lateOrganizationRead(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.hideOrganizations = true

	// the create mutation succeeds but the verify read lags behind it; the
	// mutation response carries the organization, so creation still works
	ev, err := svc.CreateEvent(context.Background(), organizer, newEvent("Cleanup"))
	assert.NoError(t, err)
	assert.Equal(t, 1, repo.callCount("createOrganization"))
	assert.Equal(t, repo.organizations[0].ID, ev.Organization.ID)
	assert.Equal(t, organizer.Name, ev.Organization.Name)
}

func TestServiceCreateEvent_validation(t *testing.T) {
	svc, repo, _ := newTestService()

	ne := newEvent("")
	_, err := svc.CreateEvent(context.Background(), organizer, ne)
	assert.Error(t, err)
	assert.Zero(t, repo.totalCalls(), "validation failures must not hit the network")
}

func TestServiceTransitionEvent(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	ev, err := svc.CreateEvent(ctx, organizer, newEvent("Cleanup"))
	assert.NoError(t, err)

	// organizer cannot approve their own draft
	_, err = svc.TransitionEvent(ctx, organizer, ev.ID, StatusAccepted, "")
	assert.Equal(t, ErrForbiddenTransition, errors.Cause(err))

	// admin approves
	approved, err := svc.TransitionEvent(ctx, admin, ev.ID, StatusAccepted, "")
	assert.NoError(t, err)
	assert.Equal(t, StatusAccepted, approved.Status.Code)
	assert.Equal(t, "Мероприятие подтверждено администратором", approved.Status.Reason)

	// approving twice is forbidden; no extra mutation is issued
	mutations := repo.callCount("updateEventStatus")
	_, err = svc.TransitionEvent(ctx, admin, ev.ID, StatusAccepted, "")
	assert.Equal(t, ErrForbiddenTransition, errors.Cause(err))
	assert.Equal(t, mutations, repo.callCount("updateEventStatus"))

	// admin cannot close; the owning organizer can
	_, err = svc.TransitionEvent(ctx, admin, ev.ID, StatusClosed, "")
	assert.Equal(t, ErrForbiddenTransition, errors.Cause(err))
	closed, err := svc.TransitionEvent(ctx, organizer, ev.ID, StatusClosed, "")
	assert.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status.Code)

	// CLOSED is terminal, even for admin
	_, err = svc.TransitionEvent(ctx, admin, ev.ID, StatusAccepted, "")
	assert.Equal(t, ErrForbiddenTransition, errors.Cause(err))
}

func TestServiceSubmitVolunteerRequest(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	ev, err := svc.CreateEvent(ctx, organizer, newEvent("Cleanup"))
	assert.NoError(t, err)

	rq, err := svc.SubmitVolunteerRequest(ctx, volunteer, ev.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusOpen, rq.Status.Code)
	assert.Equal(t, "Новая заявка", rq.Status.Reason)
	assert.Equal(t, "Заявка от волонтера Иван Петров", rq.Description)

	// person and volunteer were created behind the request, nickname is the email
	assert.Equal(t, 1, repo.callCount("createPerson"))
	assert.Equal(t, 1, repo.callCount("createVolunteer"))
	assert.Equal(t, "Иван", repo.persons[0].FirstName)
	assert.Equal(t, "Петров", repo.persons[0].LastName)
	assert.Equal(t, volunteer.Email, repo.volunteers[0].NickName)

	// duplicate submission is rejected before any network call
	before := repo.totalCalls()
	_, err = svc.SubmitVolunteerRequest(ctx, volunteer, ev.ID)
	assert.Equal(t, ErrDuplicateRequest, errors.Cause(err))
	assert.Equal(t, before, repo.totalCalls())

	// unknown event
	_, err = svc.SubmitVolunteerRequest(ctx, volunteer, "nope")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestServiceSubmitVolunteerRequest_reusesVolunteer(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	ev1, _ := svc.CreateEvent(ctx, organizer, newEvent("Cleanup"))
	ev2, _ := svc.CreateEvent(ctx, organizer, newEvent("Planting"))

	_, err := svc.SubmitVolunteerRequest(ctx, volunteer, ev1.ID)
	assert.NoError(t, err)
	_, err = svc.SubmitVolunteerRequest(ctx, volunteer, ev2.ID)
	assert.NoError(t, err)

	assert.Equal(t, 1, repo.callCount("createPerson"))
	assert.Equal(t, 1, repo.callCount("createVolunteer"))
	assert.Len(t, repo.requests, 2)
}

func TestServiceTransitionRequest(t *testing.T) {
	svc, repo, mail := newTestService()
	ctx := context.Background()

	ev, _ := svc.CreateEvent(ctx, organizer, newEvent("Cleanup"))
	rq, err := svc.SubmitVolunteerRequest(ctx, volunteer, ev.ID)
	assert.NoError(t, err)

	// the volunteer cannot approve their own request
	_, err = svc.TransitionRequest(ctx, volunteer, rq.ID, StatusAccepted, "")
	assert.Equal(t, ErrForbiddenTransition, errors.Cause(err))

	// the owning organizer approves; the volunteer is notified
	approved, err := svc.TransitionRequest(ctx, organizer, rq.ID, StatusAccepted, "")
	assert.NoError(t, err)
	assert.Equal(t, StatusAccepted, approved.Status.Code)
	assert.Equal(t, "Заявка одобрена организатором", approved.Status.Reason)
	if assert.Len(t, mail.sent, 1) {
		assert.Equal(t, volunteer.Email, mail.sent[0].To[0].Address)
		// the body is rendered from the template with the event context
		assert.Contains(t, mail.sent[0].TextContent, `"Cleanup"`)
		assert.Contains(t, mail.sent[0].TextContent, "Принято")
		assert.Contains(t, mail.sent[0].TextContent, "Заявка одобрена организатором")
	}

	// then confirms attendance
	confirmed, err := svc.TransitionRequest(ctx, organizer, rq.ID, StatusConfirmed, "")
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status.Code)

	// CONFIRMED is terminal
	mutations := repo.callCount("updateRequestStatus")
	_, err = svc.TransitionRequest(ctx, organizer, rq.ID, StatusCancelled, "")
	assert.Equal(t, ErrForbiddenTransition, errors.Cause(err))
	assert.Equal(t, mutations, repo.callCount("updateRequestStatus"))
}

func TestServiceDeleteRequest(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	ev, _ := svc.CreateEvent(ctx, organizer, newEvent("Cleanup"))
	rq, err := svc.SubmitVolunteerRequest(ctx, volunteer, ev.ID)
	assert.NoError(t, err)

	// a foreign volunteer cannot withdraw it
	stranger := Actor{ID: "vol-2", Name: "Другой", Email: "other@example.com", Role: "volunteer"}
	err = svc.DeleteRequest(ctx, stranger, rq.ID)
	assert.Equal(t, ErrForbiddenTransition, errors.Cause(err))
	assert.Len(t, repo.requests, 1)

	// the owner withdraws their OPEN request
	err = svc.DeleteRequest(ctx, volunteer, rq.ID)
	assert.NoError(t, err)
	assert.Empty(t, repo.requests)
	assert.Empty(t, svc.Requests(), "snapshot is pruned on success")
}

func TestServiceDeleteEvent(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	ev, _ := svc.CreateEvent(ctx, organizer, newEvent("Cleanup"))

	err := svc.DeleteEvent(ctx, volunteer, ev.ID)
	assert.Equal(t, ErrForbiddenTransition, errors.Cause(err))
	assert.Len(t, repo.events, 1)

	err = svc.DeleteEvent(ctx, organizer, ev.ID)
	assert.NoError(t, err)
	assert.Empty(t, repo.events)
	assert.Empty(t, svc.Events())
}

func TestServiceViews(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	ev, _ := svc.CreateEvent(ctx, organizer, newEvent("Cleanup"))
	_, err := svc.SubmitVolunteerRequest(ctx, volunteer, ev.ID)
	assert.NoError(t, err)

	// admin sees approve/reject on the draft
	views := svc.EventViews(admin)
	if assert.Len(t, views, 1) {
		assert.Equal(t, "Cleanup", views[0].Title)
		assert.Equal(t, "Черновик", views[0].StatusDisplay)
		assert.True(t, views[0].Actions.Has("approve"))
		assert.True(t, views[0].Actions.Has("reject"))
	}

	// the organizer holds no action on their own draft
	views = svc.EventViews(organizer)
	if assert.Len(t, views, 1) {
		assert.Empty(t, views[0].Actions)
	}

	// volunteers see their own requests, strangers see none
	assert.Len(t, svc.RequestViews(volunteer), 1)
	stranger := Actor{ID: "vol-2", Name: "Другой", Email: "other@example.com", Role: "volunteer"}
	assert.Empty(t, svc.RequestViews(stranger))

	// the owning organizer sees requests targeting their events
	rqViews := svc.RequestViews(organizer)
	if assert.Len(t, rqViews, 1) {
		assert.True(t, rqViews[0].Actions.Has("approve"))
		assert.Equal(t, "Cleanup", rqViews[0].EventTitle)
	}
}

func TestServiceLoad_keepsSnapshotOnFailure(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, organizer, newEvent("Cleanup"))
	assert.NoError(t, err)
	assert.Len(t, svc.Events(), 1)

	repo.failSearches = true
	err = svc.Load(ctx)
	assert.Error(t, err)
	assert.True(t, core.IsFetch(err))
	assert.Len(t, svc.Events(), 1, "previous snapshot survives a failed load")
}
