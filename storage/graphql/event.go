package gqldb

import (
	"context"
	"time"

	"github.com/volunhub/volunhub/core/event"
)

// startDateTime is serialized without an offset by the external schema.
const startDateTimeLayout = "2006-01-02T15:04:05"

const (
	cacheEvents        = "events"
	cacheOrganizations = "organizations"
	cacheVolunteers    = "volunteers"
	cachePersons       = "persons"
	cacheRequests      = "requests"
)

// Wire types, field for field as the external schema serves them.
type (
	statusWire struct {
		Code   string `json:"code"`
		Reason string `json:"reason"`
	}

	organizationWire struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	personWire struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		BirthDate string `json:"birthDate"`
	}

	// personRefWire is the schema's generic entity reference.
	personRefWire struct {
		EntityID string      `json:"entityId"`
		Entity   *personWire `json:"entity"`
	}

	volunteerWire struct {
		ID       string         `json:"id"`
		NickName string         `json:"nickName"`
		Person   *personRefWire `json:"person"`
	}

	eventWire struct {
		ID            string           `json:"id"`
		Description   string           `json:"description"`
		StartDateTime string           `json:"startDateTime"`
		StatusForX    statusWire       `json:"statusForX"`
		Organization  organizationWire `json:"organization"`
	}

	eventRefWire struct {
		EntityID string     `json:"entityId"`
		Entity   *eventWire `json:"entity"`
	}

	requestWire struct {
		ID          string         `json:"id"`
		Description string         `json:"description"`
		StatusForX  statusWire     `json:"statusForX"`
		Event       *eventRefWire  `json:"event"`
		Volonteer   *volunteerWire `json:"volonteer"`
	}

	elems struct {
		Elems []eventWire `json:"elems"`
	}
)

func parseStartDateTime(raw string) time.Time {
	if t, err := time.Parse(startDateTimeLayout, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Time{}
}

func (w eventWire) toDomain() event.Event {
	return event.Event{
		ID:            w.ID,
		Description:   w.Description,
		StartDateTime: parseStartDateTime(w.StartDateTime),
		Status:        event.Status{Code: event.StatusCode(w.StatusForX.Code), Reason: w.StatusForX.Reason},
		Organization:  event.Organization{ID: w.Organization.ID, Name: w.Organization.Name},
	}
}

func (w volunteerWire) toDomain() event.Volunteer {
	vol := event.Volunteer{ID: w.ID, NickName: w.NickName}
	if w.Person != nil {
		vol.PersonID = w.Person.EntityID
		if w.Person.Entity != nil {
			p := w.Person.Entity.toDomain()
			vol.Person = &p
		}
	}
	return vol
}

func (w personWire) toDomain() event.Person {
	return event.Person{ID: w.ID, FirstName: w.FirstName, LastName: w.LastName, BirthDate: w.BirthDate}
}

func (w requestWire) toDomain() event.Request {
	rq := event.Request{
		ID:          w.ID,
		Description: w.Description,
		Status:      event.Status{Code: event.StatusCode(w.StatusForX.Code), Reason: w.StatusForX.Reason},
	}
	if w.Event != nil {
		rq.EventID = w.Event.EntityID
		if w.Event.Entity != nil {
			ev := w.Event.Entity.toDomain()
			rq.Event = &ev
		}
	}
	if w.Volonteer != nil {
		rq.VolunteerID = w.Volonteer.ID
		vol := w.Volonteer.toDomain()
		rq.Volunteer = &vol
	}
	return rq
}

const searchEventsQuery = `
query GetEvents {
  searchEvent(cond: null) {
    elems {
      id
      description
      startDateTime
      statusForX {
        code
        reason
      }
      organization {
        id
        name
      }
    }
  }
}`

func (repo *Repository) SearchEvents(ctx context.Context, opts ...event.QueryOption) ([]event.Event, error) {
	if data, ok := repo.cached(cacheEvents, opts); ok {
		return data.([]event.Event), nil
	}

	var resp struct {
		SearchEvent elems `json:"searchEvent"`
	}
	if err := repo.run(ctx, searchEventsQuery, nil, &resp); err != nil {
		return nil, err
	}

	events := make([]event.Event, 0, len(resp.SearchEvent.Elems))
	for _, w := range resp.SearchEvent.Elems {
		events = append(events, w.toDomain())
	}
	repo.store(cacheEvents, events)
	return events, nil
}

const searchOrganizationsQuery = `
query SearchOrganization {
  searchOrganization(cond: null) {
    elems {
      id
      name
    }
  }
}`

func (repo *Repository) SearchOrganizations(ctx context.Context, opts ...event.QueryOption) ([]event.Organization, error) {
	if data, ok := repo.cached(cacheOrganizations, opts); ok {
		return data.([]event.Organization), nil
	}

	var resp struct {
		SearchOrganization struct {
			Elems []organizationWire `json:"elems"`
		} `json:"searchOrganization"`
	}
	if err := repo.run(ctx, searchOrganizationsQuery, nil, &resp); err != nil {
		return nil, err
	}

	orgs := make([]event.Organization, 0, len(resp.SearchOrganization.Elems))
	for _, w := range resp.SearchOrganization.Elems {
		orgs = append(orgs, event.Organization{ID: w.ID, Name: w.Name})
	}
	repo.store(cacheOrganizations, orgs)
	return orgs, nil
}

const searchVolunteersQuery = `
query SearchVolonteer {
  searchVolonteer(cond: null) {
    elems {
      id
      nickName
      person {
        entityId
        entity {
          id
          firstName
          lastName
        }
      }
    }
  }
}`

func (repo *Repository) SearchVolunteers(ctx context.Context, opts ...event.QueryOption) ([]event.Volunteer, error) {
	if data, ok := repo.cached(cacheVolunteers, opts); ok {
		return data.([]event.Volunteer), nil
	}

	var resp struct {
		SearchVolonteer struct {
			Elems []volunteerWire `json:"elems"`
		} `json:"searchVolonteer"`
	}
	if err := repo.run(ctx, searchVolunteersQuery, nil, &resp); err != nil {
		return nil, err
	}

	vols := make([]event.Volunteer, 0, len(resp.SearchVolonteer.Elems))
	for _, w := range resp.SearchVolonteer.Elems {
		vols = append(vols, w.toDomain())
	}
	repo.store(cacheVolunteers, vols)
	return vols, nil
}

const searchPersonsQuery = `
query GetPersons {
  searchPerson(cond: null) {
    elems {
      id
      firstName
      lastName
      birthDate
    }
  }
}`

func (repo *Repository) SearchPersons(ctx context.Context, opts ...event.QueryOption) ([]event.Person, error) {
	if data, ok := repo.cached(cachePersons, opts); ok {
		return data.([]event.Person), nil
	}

	var resp struct {
		SearchPerson struct {
			Elems []personWire `json:"elems"`
		} `json:"searchPerson"`
	}
	if err := repo.run(ctx, searchPersonsQuery, nil, &resp); err != nil {
		return nil, err
	}

	persons := make([]event.Person, 0, len(resp.SearchPerson.Elems))
	for _, w := range resp.SearchPerson.Elems {
		persons = append(persons, w.toDomain())
	}
	repo.store(cachePersons, persons)
	return persons, nil
}

const searchRequestsQuery = `
query GetEventApplications {
  searchVolonteerEventRequest(cond: null) {
    elems {
      id
      description
      statusForX {
        code
        reason
      }
      event {
        entityId
        entity {
          id
          description
          startDateTime
          statusForX {
            code
            reason
          }
          organization {
            id
            name
          }
        }
      }
      volonteer {
        id
        nickName
        person {
          entityId
          entity {
            id
            firstName
            lastName
          }
        }
      }
    }
  }
}`

func (repo *Repository) SearchRequests(ctx context.Context, opts ...event.QueryOption) ([]event.Request, error) {
	if data, ok := repo.cached(cacheRequests, opts); ok {
		return data.([]event.Request), nil
	}

	var resp struct {
		SearchVolonteerEventRequest struct {
			Elems []requestWire `json:"elems"`
		} `json:"searchVolonteerEventRequest"`
	}
	if err := repo.run(ctx, searchRequestsQuery, nil, &resp); err != nil {
		return nil, err
	}

	requests := make([]event.Request, 0, len(resp.SearchVolonteerEventRequest.Elems))
	for _, w := range resp.SearchVolonteerEventRequest.Elems {
		requests = append(requests, w.toDomain())
	}
	repo.store(cacheRequests, requests)
	return requests, nil
}

const createEventMutation = `
mutation CreateEvent($input: _CreateEventInput!) {
  packet {
    createEvent(input: $input) {
      id
      description
      startDateTime
      organization {
        id
        name
      }
    }
  }
}`

func (repo *Repository) CreateEvent(ctx context.Context, description string, start time.Time, orgID string) (event.Event, error) {
	var resp struct {
		Packet struct {
			CreateEvent eventWire `json:"createEvent"`
		} `json:"packet"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{
			"description":   description,
			"startDateTime": start.Format(startDateTimeLayout),
			"organization":  orgID,
		},
	}
	if err := repo.run(ctx, createEventMutation, vars, &resp); err != nil {
		return event.Event{}, err
	}
	repo.invalidate(cacheEvents)

	ev := resp.Packet.CreateEvent.toDomain()
	// creation is implicitly DRAFT server side; the mutation payload omits it
	if ev.Status.Code == "" {
		ev.Status.Code = event.StatusDraft
	}
	return ev, nil
}

const updateEventStatusMutation = `
mutation UpdateEventStatus($input: _UpdateEventInput!) {
  packet {
    updateEvent(input: $input) {
      id
      description
      startDateTime
      statusForX {
        code
        reason
      }
      organization {
        id
        name
      }
    }
  }
}`

func (repo *Repository) UpdateEventStatus(ctx context.Context, id string, status event.Status) (event.Event, error) {
	var resp struct {
		Packet struct {
			UpdateEvent eventWire `json:"updateEvent"`
		} `json:"packet"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{
			"id": id,
			"statusForX": map[string]interface{}{
				"code":   string(status.Code),
				"reason": status.Reason,
			},
		},
	}
	if err := repo.run(ctx, updateEventStatusMutation, vars, &resp); err != nil {
		return event.Event{}, err
	}
	repo.invalidate(cacheEvents, cacheRequests)
	return resp.Packet.UpdateEvent.toDomain(), nil
}

const deleteEventMutation = `
mutation DeleteEvent($id: ID!) {
  packet {
    deleteEvent(id: $id)
  }
}`

func (repo *Repository) DeleteEvent(ctx context.Context, id string) error {
	var resp struct {
		Packet struct {
			DeleteEvent interface{} `json:"deleteEvent"`
		} `json:"packet"`
	}
	if err := repo.run(ctx, deleteEventMutation, map[string]interface{}{"id": id}, &resp); err != nil {
		return err
	}
	repo.invalidate(cacheEvents, cacheRequests)
	return nil
}

const createOrganizationMutation = `
mutation CreateOrganization($input: _CreateOrganizationInput!) {
  packet {
    createOrganization(input: $input) {
      id
      name
    }
  }
}`

func (repo *Repository) CreateOrganization(ctx context.Context, name string) (event.Organization, error) {
	var resp struct {
		Packet struct {
			CreateOrganization organizationWire `json:"createOrganization"`
		} `json:"packet"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{"name": name},
	}
	if err := repo.run(ctx, createOrganizationMutation, vars, &resp); err != nil {
		return event.Organization{}, err
	}
	repo.invalidate(cacheOrganizations)
	return event.Organization{ID: resp.Packet.CreateOrganization.ID, Name: resp.Packet.CreateOrganization.Name}, nil
}

const updateOrganizationMutation = `
mutation UpdateOrganization($input: _UpdateOrganizationInput!) {
  packet {
    updateOrganization(input: $input) {
      id
      name
    }
  }
}`

func (repo *Repository) UpdateOrganization(ctx context.Context, org event.Organization) (event.Organization, error) {
	var resp struct {
		Packet struct {
			UpdateOrganization organizationWire `json:"updateOrganization"`
		} `json:"packet"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{"id": org.ID, "name": org.Name},
	}
	if err := repo.run(ctx, updateOrganizationMutation, vars, &resp); err != nil {
		return event.Organization{}, err
	}
	repo.invalidate(cacheOrganizations, cacheEvents)
	return event.Organization{ID: resp.Packet.UpdateOrganization.ID, Name: resp.Packet.UpdateOrganization.Name}, nil
}

const createPersonMutation = `
mutation CreatePerson($input: _CreatePersonInput!) {
  packet {
    createPerson(input: $input) {
      id
      firstName
      lastName
    }
  }
}`

func (repo *Repository) CreatePerson(ctx context.Context, firstName, lastName string) (event.Person, error) {
	var resp struct {
		Packet struct {
			CreatePerson personWire `json:"createPerson"`
		} `json:"packet"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{
			"firstName": firstName,
			"lastName":  lastName,
		},
	}
	if err := repo.run(ctx, createPersonMutation, vars, &resp); err != nil {
		return event.Person{}, err
	}
	repo.invalidate(cachePersons)
	return resp.Packet.CreatePerson.toDomain(), nil
}

const createVolunteerMutation = `
mutation CreateVolonteer($input: _CreateVolonteerInput!) {
  packet {
    createVolonteer(input: $input) {
      id
      nickName
      person {
        entityId
        entity {
          id
          firstName
          lastName
        }
      }
    }
  }
}`

func (repo *Repository) CreateVolunteer(ctx context.Context, nickName, personID string) (event.Volunteer, error) {
	var resp struct {
		Packet struct {
			CreateVolonteer volunteerWire `json:"createVolonteer"`
		} `json:"packet"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{
			"nickName": nickName,
			"person": map[string]interface{}{
				"entityId": personID,
			},
		},
	}
	if err := repo.run(ctx, createVolunteerMutation, vars, &resp); err != nil {
		return event.Volunteer{}, err
	}
	repo.invalidate(cacheVolunteers)
	return resp.Packet.CreateVolonteer.toDomain(), nil
}

const createRequestMutation = `
mutation CreateVolunteerRequest($input: _CreateVolonteerEventRequestInput!) {
  packet {
    createVolonteerEventRequest(input: $input) {
      id
      description
      statusForX {
        code
        reason
      }
    }
  }
}`

func (repo *Repository) CreateRequest(ctx context.Context, description, eventID, volunteerID string, status event.Status) (event.Request, error) {
	var resp struct {
		Packet struct {
			CreateVolonteerEventRequest requestWire `json:"createVolonteerEventRequest"`
		} `json:"packet"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{
			"description": description,
			"event": map[string]interface{}{
				"entityId":     eventID,
				"rootEntityId": eventID,
			},
			"volonteer": volunteerID,
			"statusForX": map[string]interface{}{
				"code":   string(status.Code),
				"reason": status.Reason,
			},
		},
	}
	if err := repo.run(ctx, createRequestMutation, vars, &resp); err != nil {
		return event.Request{}, err
	}
	repo.invalidate(cacheRequests)

	rq := resp.Packet.CreateVolonteerEventRequest.toDomain()
	rq.EventID = eventID
	rq.VolunteerID = volunteerID
	return rq, nil
}

const updateRequestStatusMutation = `
mutation UpdateVolunteerRequest($input: _UpdateVolonteerEventRequestInput!) {
  packet {
    updateVolonteerEventRequest(input: $input) {
      id
      statusForX {
        code
        reason
      }
    }
  }
}`

func (repo *Repository) UpdateRequestStatus(ctx context.Context, id string, status event.Status) (event.Request, error) {
	var resp struct {
		Packet struct {
			UpdateVolonteerEventRequest requestWire `json:"updateVolonteerEventRequest"`
		} `json:"packet"`
	}
	vars := map[string]interface{}{
		"input": map[string]interface{}{
			"id": id,
			"statusForX": map[string]interface{}{
				"code":   string(status.Code),
				"reason": status.Reason,
			},
		},
	}
	if err := repo.run(ctx, updateRequestStatusMutation, vars, &resp); err != nil {
		return event.Request{}, err
	}
	repo.invalidate(cacheRequests)
	return resp.Packet.UpdateVolonteerEventRequest.toDomain(), nil
}

const deleteRequestMutation = `
mutation DeleteVolunteerRequest($id: ID!) {
  packet {
    deleteVolonteerEventRequest(id: $id)
  }
}`

func (repo *Repository) DeleteRequest(ctx context.Context, id string) error {
	var resp struct {
		Packet struct {
			DeleteVolonteerEventRequest interface{} `json:"deleteVolonteerEventRequest"`
		} `json:"packet"`
	}
	if err := repo.run(ctx, deleteRequestMutation, map[string]interface{}{"id": id}, &resp); err != nil {
		return err
	}
	repo.invalidate(cacheRequests)
	return nil
}
