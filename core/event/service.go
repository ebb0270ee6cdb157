package event

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	texttmpl "text/template"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/volunhub/volunhub/core"
	"github.com/volunhub/volunhub/core/policy"
)

var (
	// errors
	ErrNotFound            = errors.New("event not found")
	ErrRequestNotFound     = errors.New("volunteer request not found")
	ErrForbiddenTransition = errors.New("transition not permitted")
	ErrDuplicateRequest    = errors.New("a request for this event already exists")
)

type (
	// QueryOption tunes a repository search.
	QueryOption func(*QueryOptions)

	QueryOptions struct {
		// BypassCache forces a fresh fetch even when the repository could
		// serve the search from its own cache.
		BypassCache bool
	}

	// Repository is the data access layer: typed queries/mutations against
	// the external GraphQL server that owns all persistence. Identifiers are
	// always assigned remotely.
	Repository interface {
		SearchEvents(ctx context.Context, opts ...QueryOption) ([]Event, error)
		SearchOrganizations(ctx context.Context, opts ...QueryOption) ([]Organization, error)
		SearchVolunteers(ctx context.Context, opts ...QueryOption) ([]Volunteer, error)
		SearchPersons(ctx context.Context, opts ...QueryOption) ([]Person, error)
		SearchRequests(ctx context.Context, opts ...QueryOption) ([]Request, error)

		CreateEvent(ctx context.Context, description string, start time.Time, orgID string) (Event, error)
		UpdateEventStatus(ctx context.Context, id string, status Status) (Event, error)
		DeleteEvent(ctx context.Context, id string) error

		CreateOrganization(ctx context.Context, name string) (Organization, error)
		UpdateOrganization(ctx context.Context, org Organization) (Organization, error)
		CreatePerson(ctx context.Context, firstName, lastName string) (Person, error)
		CreateVolunteer(ctx context.Context, nickName, personID string) (Volunteer, error)

		CreateRequest(ctx context.Context, description, eventID, volunteerID string, status Status) (Request, error)
		UpdateRequestStatus(ctx context.Context, id string, status Status) (Request, error)
		DeleteRequest(ctx context.Context, id string) error
	}

	// Service is the lifecycle view-model bridging the data access layer and
	// the role dashboards. It holds the last successfully loaded snapshot of
	// events and requests, derives display fields and permitted actions per
	// row, and issues mutations mutate-then-refetch so the client never
	// diverges from server-authoritative state.
	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger

		mu       sync.RWMutex
		events   []Event
		requests []Request
		loaded   bool
	}
)

// BypassCache requests a fresh fetch from the backend.
func BypassCache() QueryOption {
	return func(o *QueryOptions) { o.BypassCache = true }
}

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Load fetches the current events and volunteer requests. On failure the
// previous snapshot is kept so dashboards can keep rendering the last good
// data while the user retries.
func (svc *Service) Load(ctx context.Context, opts ...QueryOption) error {
	events, err := svc.repo.SearchEvents(ctx, opts...)
	if err != nil {
		return core.NewFetchError("loading events", err)
	}
	requests, err := svc.repo.SearchRequests(ctx, opts...)
	if err != nil {
		return core.NewFetchError("loading volunteer requests", err)
	}

	svc.mu.Lock()
	svc.events = events
	svc.requests = requests
	svc.loaded = true
	svc.mu.Unlock()
	return nil
}

func (svc *Service) ensureLoaded(ctx context.Context) error {
	svc.mu.RLock()
	loaded := svc.loaded
	svc.mu.RUnlock()
	if loaded {
		return nil
	}
	return svc.Load(ctx)
}

// Events returns a copy of the last loaded events.
func (svc *Service) Events() []Event {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	events := make([]Event, len(svc.events))
	copy(events, svc.events)
	return events
}

// Requests returns a copy of the last loaded volunteer requests.
func (svc *Service) Requests() []Request {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	requests := make([]Request, len(svc.requests))
	copy(requests, svc.requests)
	return requests
}

// EventViews derives dashboard rows for the given actor from the snapshot.
func (svc *Service) EventViews(actor Actor) []EventView {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	views := make([]EventView, 0, len(svc.events))
	for _, ev := range svc.events {
		views = append(views, NewEventView(ev, actor))
	}
	return views
}

// RequestViews derives dashboard rows for the given actor. Volunteers see
// their own requests, organizers the requests targeting their events, admins
// everything.
func (svc *Service) RequestViews(actor Actor) []RequestView {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	views := make([]RequestView, 0, len(svc.requests))
	for _, rq := range svc.requests {
		if actor.Role != "admin" && !actor.OwnsRequest(rq) {
			continue
		}
		views = append(views, NewRequestView(rq, actor))
	}
	return views
}

func NewEventView(ev Event, actor Actor) EventView {
	details := ParseDescription(ev.Description)
	return EventView{
		ID:               ev.ID,
		Title:            details.Title,
		Location:         details.Location,
		VolunteersNeeded: details.VolunteersNeeded,
		DurationHours:    details.DurationHours,
		Description:      details.Description,
		StartDateTime:    ev.StartDateTime,
		Organization:     ev.Organization,
		Status:           ev.Status,
		StatusDisplay:    ev.Status.Code.Display(),
		Actions:          policy.PermittedActions(actor.Role, policy.KindEvent, string(ev.Status.Code), actor.OwnsEvent(ev)),
	}
}

func NewRequestView(rq Request, actor Actor) RequestView {
	view := RequestView{
		ID:            rq.ID,
		Description:   rq.Description,
		Status:        rq.Status,
		StatusDisplay: rq.Status.Code.Display(),
		EventID:       rq.EventID,
		Actions:       policy.PermittedActions(actor.Role, policy.KindRequest, string(rq.Status.Code), actor.OwnsRequest(rq)),
	}
	if rq.Event != nil {
		details := ParseDescription(rq.Event.Description)
		view.EventTitle = details.Title
		view.Organization = rq.Event.Organization.Name
		view.StartDateTime = rq.Event.StartDateTime
	}
	if rq.Volunteer != nil {
		view.Volunteer = rq.Volunteer.NickName
		if p := rq.Volunteer.Person; p != nil {
			view.Volunteer = strings.TrimSpace(p.FirstName + " " + p.LastName)
		}
	}
	return view
}

// CreateEvent ensures an Organization exists for the organizer (named after
// them), then creates the Event with implicit DRAFT status and refetches.
//
// The organization search-then-create is not transactional: two concurrent
// calls can create duplicate organizations. Sequential calls reuse the one
// created first.
func (svc *Service) CreateEvent(ctx context.Context, actor Actor, ne NewEvent) (Event, error) {
	if err := ne.Validate(); err != nil {
		return Event{}, err
	}

	org, err := svc.ensureOrganization(ctx, actor.Name)
	if err != nil {
		return Event{}, err
	}

	ev, err := svc.repo.CreateEvent(ctx, ComposeDescription(ne), ne.StartDateTime, org.ID)
	if err != nil {
		return Event{}, core.NewRemoteError("creating event", err)
	}

	if err := svc.Load(ctx, BypassCache()); err != nil {
		// the event exists remotely; surface the stale snapshot, not a failure
		svc.logger.Warn("refetch after event creation failed", err)
	}
	return ev, nil
}

func (svc *Service) ensureOrganization(ctx context.Context, name string) (Organization, error) {
	orgs, err := svc.repo.SearchOrganizations(ctx)
	if err != nil {
		return Organization{}, core.NewFetchError("searching organizations", err)
	}
	for _, org := range orgs {
		if org.Name == name {
			return org, nil
		}
	}

	org, err := svc.repo.CreateOrganization(ctx, name)
	if err != nil {
		return Organization{}, core.NewRemoteError("creating organization", err)
	}

	// verify with a fresh fetch that the backend has it; mirrors the
	// cache-bypassing read existing clients perform after creation
	orgs, err = svc.repo.SearchOrganizations(ctx, BypassCache())
	if err != nil {
		return Organization{}, core.NewFetchError("verifying organization", err)
	}
	for _, created := range orgs {
		if created.Name == name {
			return created, nil
		}
	}
	// the create mutation succeeded; a verify read lagging behind it must not
	// fail the whole call
	if org.ID != "" {
		return org, nil
	}
	return Organization{}, core.NewRemoteError("verifying organization", errors.New("organization not found after creation"))
}

// TransitionEvent validates the requested status change against the
// authorization policy and the event's current status, issues the update
// mutation, then refetches. Local state is never mutated optimistically.
func (svc *Service) TransitionEvent(ctx context.Context, actor Actor, id string, target StatusCode, reason string) (Event, error) {
	if err := svc.ensureLoaded(ctx); err != nil {
		return Event{}, err
	}

	ev, ok := svc.findEvent(id)
	if !ok {
		return Event{}, ErrNotFound
	}

	action, ok := eventTransitionAction(ev.Status.Code, target)
	if !ok {
		return Event{}, pkgerrors.Wrapf(ErrForbiddenTransition, "%s -> %s", ev.Status.Code, target)
	}
	allowed := policy.PermittedActions(actor.Role, policy.KindEvent, string(ev.Status.Code), actor.OwnsEvent(ev))
	if !allowed.Has(action) {
		return Event{}, pkgerrors.Wrapf(ErrForbiddenTransition, "%s may not %s this event", actor.Role, action)
	}

	if reason == "" {
		reason = defaultEventReason(action)
	}
	updated, err := svc.repo.UpdateEventStatus(ctx, id, Status{Code: target, Reason: reason})
	if err != nil {
		return Event{}, core.NewRemoteError("updating event status", err)
	}

	if err := svc.Load(ctx, BypassCache()); err != nil {
		svc.logger.Warn("refetch after event transition failed", err)
	}
	return updated, nil
}

// DeleteEvent issues the delete mutation and prunes the snapshot on success
// only; a failure leaves local state untouched.
func (svc *Service) DeleteEvent(ctx context.Context, actor Actor, id string) error {
	if err := svc.ensureLoaded(ctx); err != nil {
		return err
	}
	ev, ok := svc.findEvent(id)
	if !ok {
		return ErrNotFound
	}
	if !(actor.Role == "admin" || (actor.Role == "organizer" && actor.OwnsEvent(ev))) {
		return pkgerrors.Wrap(ErrForbiddenTransition, "deleting event")
	}

	if err := svc.repo.DeleteEvent(ctx, id); err != nil {
		return core.NewRemoteError("deleting event", err)
	}

	svc.mu.Lock()
	for i, e := range svc.events {
		if e.ID == id {
			svc.events = append(svc.events[:i], svc.events[i+1:]...)
			break
		}
	}
	svc.mu.Unlock()
	return nil
}

// SubmitVolunteerRequest creates an OPEN request by the acting volunteer for
// the given event, creating the backing Person and Volunteer records on
// first use.
//
// The duplicate guard checks the last loaded snapshot only; it is not atomic
// with respect to the server, so concurrent submissions (two browser tabs)
// can still produce duplicates. Accepted limitation.
func (svc *Service) SubmitVolunteerRequest(ctx context.Context, actor Actor, eventID string) (Request, error) {
	if err := svc.ensureLoaded(ctx); err != nil {
		return Request{}, err
	}

	if _, ok := svc.findEvent(eventID); !ok {
		return Request{}, ErrNotFound
	}
	if svc.hasRequestFor(eventID, actor.Email) {
		return Request{}, ErrDuplicateRequest
	}

	vol, err := svc.ensureVolunteer(ctx, actor)
	if err != nil {
		return Request{}, err
	}

	rq, err := svc.repo.CreateRequest(ctx,
		fmt.Sprintf("Заявка от волонтера %s", actor.Name),
		eventID, vol.ID,
		Status{Code: StatusOpen, Reason: "Новая заявка"},
	)
	if err != nil {
		return Request{}, core.NewRemoteError("creating volunteer request", err)
	}

	if err := svc.Load(ctx, BypassCache()); err != nil {
		svc.logger.Warn("refetch after request submission failed", err)
	}
	return rq, nil
}

func (svc *Service) hasRequestFor(eventID, email string) bool {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	for _, rq := range svc.requests {
		if rq.EventID == eventID && rq.Volunteer != nil && rq.Volunteer.NickName == email {
			return true
		}
	}
	return false
}

// ensureVolunteer finds the actor's Volunteer record by nickname (their
// email) or creates the Person then the Volunteer. The chain awaits
// sequentially within this call; it is not atomic across callers.
func (svc *Service) ensureVolunteer(ctx context.Context, actor Actor) (Volunteer, error) {
	vols, err := svc.repo.SearchVolunteers(ctx)
	if err != nil {
		return Volunteer{}, core.NewFetchError("searching volunteers", err)
	}
	for _, vol := range vols {
		if vol.NickName == actor.Email {
			return vol, nil
		}
	}

	first, last := splitName(actor.Name)
	person, err := svc.repo.CreatePerson(ctx, first, last)
	if err != nil {
		return Volunteer{}, core.NewRemoteError("creating person", err)
	}
	vol, err := svc.repo.CreateVolunteer(ctx, actor.Email, person.ID)
	if err != nil {
		return Volunteer{}, core.NewRemoteError("creating volunteer", err)
	}
	return vol, nil
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return name, ""
	}
	first = parts[0]
	if len(parts) > 1 {
		last = parts[1]
	}
	return first, last
}

// TransitionRequest is TransitionEvent's analog for volunteer requests. The
// owning volunteer is notified by email when their request moves.
func (svc *Service) TransitionRequest(ctx context.Context, actor Actor, id string, target StatusCode, reason string) (Request, error) {
	if err := svc.ensureLoaded(ctx); err != nil {
		return Request{}, err
	}

	rq, ok := svc.findRequest(id)
	if !ok {
		return Request{}, ErrRequestNotFound
	}

	action, ok := requestTransitionAction(rq.Status.Code, target)
	if !ok {
		return Request{}, pkgerrors.Wrapf(ErrForbiddenTransition, "%s -> %s", rq.Status.Code, target)
	}
	allowed := policy.PermittedActions(actor.Role, policy.KindRequest, string(rq.Status.Code), actor.OwnsRequest(rq))
	if !allowed.Has(action) {
		return Request{}, pkgerrors.Wrapf(ErrForbiddenTransition, "%s may not %s this request", actor.Role, action)
	}

	if reason == "" {
		reason = defaultRequestReason(action)
	}
	updated, err := svc.repo.UpdateRequestStatus(ctx, id, Status{Code: target, Reason: reason})
	if err != nil {
		return Request{}, core.NewRemoteError("updating request status", err)
	}

	if err := svc.Load(ctx, BypassCache()); err != nil {
		svc.logger.Warn("refetch after request transition failed", err)
	}
	svc.notifyVolunteer(rq, target, reason)
	return updated, nil
}

// DeleteRequest lets a volunteer withdraw their own OPEN request (or an
// admin remove any). Snapshot is pruned on success only.
func (svc *Service) DeleteRequest(ctx context.Context, actor Actor, id string) error {
	if err := svc.ensureLoaded(ctx); err != nil {
		return err
	}
	rq, ok := svc.findRequest(id)
	if !ok {
		return ErrRequestNotFound
	}
	allowed := policy.PermittedActions(actor.Role, policy.KindRequest, string(rq.Status.Code), actor.OwnsRequest(rq))
	if actor.Role != "admin" && !allowed.Has(policy.ActionDelete) {
		return pkgerrors.Wrap(ErrForbiddenTransition, "deleting request")
	}

	if err := svc.repo.DeleteRequest(ctx, id); err != nil {
		return core.NewRemoteError("deleting volunteer request", err)
	}

	svc.mu.Lock()
	for i, r := range svc.requests {
		if r.ID == id {
			svc.requests = append(svc.requests[:i], svc.requests[i+1:]...)
			break
		}
	}
	svc.mu.Unlock()
	return nil
}

func (svc *Service) findEvent(id string) (Event, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	for _, ev := range svc.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return Event{}, false
}

func (svc *Service) findRequest(id string) (Request, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	for _, rq := range svc.requests {
		if rq.ID == id {
			return rq, true
		}
	}
	return Request{}, false
}

var requestStatusTmpl = texttmpl.Must(texttmpl.New("requestStatus").Parse(
	"Статус вашей заявки на мероприятие {{printf \"%q\" .Data.EventTitle}} изменен: " +
		"{{.Data.StatusDisplay}}. {{.Data.Reason}}\n\n" +
		"Ваши заявки: {{.FrontendBaseURL}}/profile/volunteer\n",
))

type requestStatusData struct {
	EventTitle    string
	StatusDisplay string
	Reason        string
}

func (svc *Service) notifyVolunteer(rq Request, target StatusCode, reason string) {
	if svc.mailSvc == nil || rq.Volunteer == nil || rq.Volunteer.NickName == "" {
		return
	}
	var title string
	if rq.Event != nil {
		title = ParseDescription(rq.Event.Description).Title
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Address: rq.Volunteer.NickName}},
		Subject:  fmt.Sprintf("Заявка: %s", target.Display()),
		Template: requestStatusTmpl,
		TemplateData: requestStatusData{
			EventTitle:    title,
			StatusDisplay: target.Display(),
			Reason:        reason,
		},
	})
}

func defaultEventReason(action policy.Action) string {
	switch action {
	case policy.ActionApprove:
		return "Мероприятие подтверждено администратором"
	case policy.ActionReject:
		return "Мероприятие отменено администратором"
	case policy.ActionClose:
		return "Мероприятие закрыто организатором"
	}
	return ""
}

func defaultRequestReason(action policy.Action) string {
	switch action {
	case policy.ActionApprove:
		return "Заявка одобрена организатором"
	case policy.ActionReject:
		return "Заявка отменена организатором"
	case policy.ActionConfirm:
		return "Участие волонтера подтверждено"
	}
	return ""
}
