package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volunhub/volunhub/core/event"
)

type eventRepository struct {
	db *eventTables
}

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db.event}
}

// resolve returns a copy of ev with its organization embedded, the way the
// remote server resolves entity references.
func (repo *eventRepository) resolve(ev event.Event) event.Event {
	if org, ok := repo.db.organizations[ev.Organization.ID]; ok {
		ev.Organization = *org
	}
	return ev
}

func (repo *eventRepository) resolveRequest(rq event.Request) event.Request {
	if ev, ok := repo.db.events[rq.EventID]; ok {
		resolved := repo.resolve(*ev)
		rq.Event = &resolved
	}
	if vol, ok := repo.db.volunteers[rq.VolunteerID]; ok {
		v := *vol
		if p, ok := repo.db.persons[v.PersonID]; ok {
			person := *p
			v.Person = &person
		}
		rq.Volunteer = &v
	}
	return rq
}

func (repo *eventRepository) SearchEvents(ctx context.Context, opts ...event.QueryOption) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]event.Event, 0, len(repo.db.events))
	for _, ev := range repo.db.events {
		events = append(events, repo.resolve(*ev))
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (repo *eventRepository) SearchOrganizations(ctx context.Context, opts ...event.QueryOption) ([]event.Organization, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	orgs := make([]event.Organization, 0, len(repo.db.organizations))
	for _, org := range repo.db.organizations {
		orgs = append(orgs, *org)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID < orgs[j].ID })
	return orgs, nil
}

func (repo *eventRepository) SearchVolunteers(ctx context.Context, opts ...event.QueryOption) ([]event.Volunteer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	vols := make([]event.Volunteer, 0, len(repo.db.volunteers))
	for _, vol := range repo.db.volunteers {
		v := *vol
		if p, ok := repo.db.persons[v.PersonID]; ok {
			person := *p
			v.Person = &person
		}
		vols = append(vols, v)
	}
	sort.Slice(vols, func(i, j int) bool { return vols[i].ID < vols[j].ID })
	return vols, nil
}

func (repo *eventRepository) SearchPersons(ctx context.Context, opts ...event.QueryOption) ([]event.Person, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	persons := make([]event.Person, 0, len(repo.db.persons))
	for _, p := range repo.db.persons {
		persons = append(persons, *p)
	}
	sort.Slice(persons, func(i, j int) bool { return persons[i].ID < persons[j].ID })
	return persons, nil
}

func (repo *eventRepository) SearchRequests(ctx context.Context, opts ...event.QueryOption) ([]event.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	requests := make([]event.Request, 0, len(repo.db.requests))
	for _, rq := range repo.db.requests {
		requests = append(requests, repo.resolveRequest(*rq))
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].ID < requests[j].ID })
	return requests, nil
}

func (repo *eventRepository) CreateEvent(ctx context.Context, description string, start time.Time, orgID string) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ev := event.Event{
		ID:            repo.db.nextID(),
		Description:   description,
		StartDateTime: start,
		Status:        event.Status{Code: event.StatusDraft, Reason: "Новое мероприятие"},
		Organization:  event.Organization{ID: orgID},
	}
	repo.db.events[ev.ID] = &ev
	return repo.resolve(ev), nil
}

func (repo *eventRepository) UpdateEventStatus(ctx context.Context, id string, status event.Status) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ev, ok := repo.db.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	ev.Status = status
	return repo.resolve(*ev), nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.events[id]; !ok {
		return event.ErrNotFound
	}
	delete(repo.db.events, id)
	return nil
}

func (repo *eventRepository) CreateOrganization(ctx context.Context, name string) (event.Organization, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	org := event.Organization{ID: repo.db.nextID(), Name: name}
	repo.db.organizations[org.ID] = &org
	return org, nil
}

func (repo *eventRepository) UpdateOrganization(ctx context.Context, org event.Organization) (event.Organization, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.organizations[org.ID]; !ok {
		return event.Organization{}, event.ErrNotFound
	}
	repo.db.organizations[org.ID] = &org
	return org, nil
}

func (repo *eventRepository) CreatePerson(ctx context.Context, firstName, lastName string) (event.Person, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p := event.Person{ID: repo.db.nextID(), FirstName: firstName, LastName: lastName}
	repo.db.persons[p.ID] = &p
	return p, nil
}

func (repo *eventRepository) CreateVolunteer(ctx context.Context, nickName, personID string) (event.Volunteer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	vol := event.Volunteer{ID: repo.db.nextID(), NickName: nickName, PersonID: personID}
	repo.db.volunteers[vol.ID] = &vol
	return vol, nil
}

func (repo *eventRepository) CreateRequest(ctx context.Context, description, eventID, volunteerID string, status event.Status) (event.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rq := event.Request{
		ID:          repo.db.nextID(),
		Description: description,
		Status:      status,
		EventID:     eventID,
		VolunteerID: volunteerID,
	}
	repo.db.requests[rq.ID] = &rq
	return repo.resolveRequest(rq), nil
}

func (repo *eventRepository) UpdateRequestStatus(ctx context.Context, id string, status event.Status) (event.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rq, ok := repo.db.requests[id]
	if !ok {
		return event.Request{}, event.ErrRequestNotFound
	}
	rq.Status = status
	return repo.resolveRequest(*rq), nil
}

func (repo *eventRepository) DeleteRequest(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.requests[id]; !ok {
		return event.ErrRequestNotFound
	}
	delete(repo.db.requests, id)
	return nil
}
