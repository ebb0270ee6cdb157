// Package policy derives the set of actions a role may take on an entity
// in its current lifecycle status. It is pure: no side effects, no network.
package policy

// Kind of entity an action applies to.
type Kind string

const (
	KindEvent   Kind = "event"
	KindRequest Kind = "request"
	KindUser    Kind = "user"
)

// Action names, as surfaced to dashboards.
type Action string

const (
	ActionApprove      Action = "approve"
	ActionReject       Action = "reject"
	ActionClose        Action = "close"
	ActionConfirm      Action = "confirm"
	ActionDelete       Action = "delete"
	ActionToggleActive Action = "toggleActiveStatus"
)

type Actions []Action

func (a Actions) Has(action Action) bool {
	for _, act := range a {
		if act == action {
			return true
		}
	}
	return false
}

// Lifecycle status codes, as stored by the external schema.
const (
	statusDraft     = "DRAFT"
	statusOpen      = "OPEN"
	statusAccepted  = "ACCEPTED"
	statusCancelled = "CANCELLED"
	statusClosed    = "CLOSED"
	statusConfirmed = "CONFIRMED"
)

// Roles (single role per user).
const (
	roleVolunteer = "volunteer"
	roleOrganizer = "organizer"
	roleAdmin     = "admin"
)

// PermittedActions maps (role, entity kind, current status, ownership) to the
// actions the caller may take. `owner` means: the event belongs to the
// caller's organization (events), the request was submitted by the caller or
// targets the caller's event (requests), or the record is the caller's own
// (users). Unknown roles and terminal statuses yield nil.
func PermittedActions(role string, kind Kind, status string, owner bool) Actions {
	switch kind {
	case KindEvent:
		return eventActions(role, status, owner)
	case KindRequest:
		return requestActions(role, status, owner)
	case KindUser:
		return userActions(role, owner)
	}
	return nil
}

func eventActions(role, status string, owner bool) Actions {
	switch status {
	case statusDraft:
		if role == roleAdmin {
			return Actions{ActionApprove, ActionReject}
		}
	case statusAccepted:
		if role == roleOrganizer && owner {
			return Actions{ActionClose}
		}
	}
	// CANCELLED and CLOSED are terminal
	return nil
}

func requestActions(role, status string, owner bool) Actions {
	switch status {
	case statusOpen:
		if role == roleOrganizer && owner {
			return Actions{ActionApprove, ActionReject}
		}
		if role == roleVolunteer && owner {
			return Actions{ActionDelete}
		}
	case statusAccepted:
		if role == roleOrganizer && owner {
			return Actions{ActionConfirm}
		}
	}
	// CANCELLED and CONFIRMED are terminal
	return nil
}

func userActions(role string, self bool) Actions {
	if role != roleAdmin {
		return nil
	}
	if self {
		// Say No to Suicide! admins cannot delete themselves
		return Actions{ActionToggleActive}
	}
	return Actions{ActionToggleActive, ActionDelete}
}
