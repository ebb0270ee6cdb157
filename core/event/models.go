package event

import (
	"time"

	"github.com/volunhub/volunhub/core"
	"github.com/volunhub/volunhub/core/policy"
)

// Lifecycle status codes as stored by the external schema.
//
// Events move DRAFT -> {ACCEPTED, CANCELLED}, ACCEPTED -> CLOSED.
// Volunteer requests move OPEN -> {ACCEPTED, CANCELLED}, ACCEPTED -> CONFIRMED.
// No transition reverses.
type StatusCode string

const (
	StatusDraft     StatusCode = "DRAFT"
	StatusOpen      StatusCode = "OPEN"
	StatusAccepted  StatusCode = "ACCEPTED"
	StatusCancelled StatusCode = "CANCELLED"
	StatusClosed    StatusCode = "CLOSED"
	StatusConfirmed StatusCode = "CONFIRMED"
)

// Display returns the label dashboards show for a status code.
func (c StatusCode) Display() string {
	switch c {
	case StatusDraft:
		return "Черновик"
	case StatusOpen:
		return "Открыта"
	case StatusAccepted:
		return "Принято"
	case StatusCancelled:
		return "Отменено"
	case StatusClosed:
		return "Закрыто"
	case StatusConfirmed:
		return "Подтверждено"
	}
	return string(c)
}

// Status is the external schema's generic {code, reason} pair.
type Status struct {
	Code   StatusCode `json:"code"`
	Reason string     `json:"reason"`
}

type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Person struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date,omitempty"`
}

type Volunteer struct {
	ID       string  `json:"id"`
	NickName string  `json:"nick_name"` // the registering user's email
	PersonID string  `json:"person_id"`
	Person   *Person `json:"person,omitempty"`
}

// Event as served by the external schema. Title, location, volunteer count
// and duration live packed inside Description; see ParseDescription.
type Event struct {
	ID            string       `json:"id"`
	Description   string       `json:"description"`
	StartDateTime time.Time    `json:"start_date_time"`
	Status        Status       `json:"status"`
	Organization  Organization `json:"organization"`
}

// Request is a volunteer's application to attend an Event.
type Request struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	EventID     string     `json:"event_id"`
	Event       *Event     `json:"event,omitempty"`
	VolunteerID string     `json:"volunteer_id"`
	Volunteer   *Volunteer `json:"volunteer,omitempty"`
}

// Actor is the session user acting on events and requests.
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// OwnsEvent reports whether the event belongs to the actor's organization.
// Organizations are named after their organizer.
func (a Actor) OwnsEvent(ev Event) bool {
	return ev.Organization.Name != "" && ev.Organization.Name == a.Name
}

// OwnsRequest reports whether the request is the actor's own (volunteer) or
// targets an event of the actor's organization (organizer).
func (a Actor) OwnsRequest(rq Request) bool {
	switch a.Role {
	case "volunteer":
		return rq.Volunteer != nil && rq.Volunteer.NickName == a.Email
	case "organizer":
		return rq.Event != nil && a.OwnsEvent(*rq.Event)
	}
	return false
}

// eventTransitionAction maps a requested status change to the policy action
// it requires. A pair outside the lifecycle yields ok=false.
func eventTransitionAction(from, to StatusCode) (policy.Action, bool) {
	switch {
	case from == StatusDraft && to == StatusAccepted:
		return policy.ActionApprove, true
	case from == StatusDraft && to == StatusCancelled:
		return policy.ActionReject, true
	case from == StatusAccepted && to == StatusClosed:
		return policy.ActionClose, true
	}
	return "", false
}

func requestTransitionAction(from, to StatusCode) (policy.Action, bool) {
	switch {
	case from == StatusOpen && to == StatusAccepted:
		return policy.ActionApprove, true
	case from == StatusOpen && to == StatusCancelled:
		return policy.ActionReject, true
	case from == StatusAccepted && to == StatusConfirmed:
		return policy.ActionConfirm, true
	}
	return "", false
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Title            string    `json:"title" validate:"required"`
	Description      string    `json:"description"`
	Location         string    `json:"location" validate:"required"`
	StartDateTime    time.Time `json:"start_date_time" validate:"required"`
	VolunteersNeeded int       `json:"volunteers_needed" validate:"required,min=1"`
	DurationHours    int       `json:"duration_hours" validate:"omitempty,min=1"`
}

func (ne *NewEvent) Validate() error {
	ne.Title = core.CleanString(ne.Title)
	ne.Location = core.CleanString(ne.Location)
	ne.Description = core.CleanString(ne.Description)
	if ne.DurationHours == 0 {
		ne.DurationHours = DefaultDurationHours
	}
	return core.Validate.Struct(ne)
}

// EventView is an Event row as dashboards render it: parsed display fields
// plus the actions the calling actor may take on it.
type EventView struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Location         string         `json:"location"`
	VolunteersNeeded int            `json:"volunteers_needed"`
	DurationHours    int            `json:"duration_hours"`
	Description      string         `json:"description"`
	StartDateTime    time.Time      `json:"start_date_time"`
	Organization     Organization   `json:"organization"`
	Status           Status         `json:"status"`
	StatusDisplay    string         `json:"status_display"`
	Actions          policy.Actions `json:"actions"`
}

// RequestView is a Request row as dashboards render it.
type RequestView struct {
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	Status        Status         `json:"status"`
	StatusDisplay string         `json:"status_display"`
	EventID       string         `json:"event_id"`
	EventTitle    string         `json:"event_title"`
	Organization  string         `json:"organization"`
	StartDateTime time.Time      `json:"start_date_time"`
	Volunteer     string         `json:"volunteer"`
	Actions       policy.Actions `json:"actions"`
}
