package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/airbussard/jvc/internal/persistence"
	"github.com/airbussard/jvc/internal/textsanitize"
)

// DefaultEventColor is stored for events created without a color.
const DefaultEventColor = "#1e5a8f"

const maxEventTitleLength = 200

var eventColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// EventRepository captures the persistence operations needed by the event service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, query EventQuery) ([]Event, error)
}

// EventService orchestrates validation, authorization, and persistence for events.
type EventService struct {
	events      EventRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService constructs an event service with the provided dependencies.
func NewEventService(events EventRepository, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(events EventRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{events: events, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// Create validates input and persists a new event for moderators and administrators.
func (s *EventService) Create(ctx context.Context, params CreateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"principal_id", params.Principal.MemberID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", failureAttrs(err)...)
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	}()

	if !params.Principal.CanManageEvents() {
		err = ErrUnauthorized
		return
	}

	input := normalizeEventInput(params.Input)
	if vErr := validateEventInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	event = Event{
		ID:          s.idGenerator(),
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Start:       input.Start,
		End:         input.End,
		AllDay:      input.AllDay,
		Color:       input.Color,
		CreatedBy:   params.Principal.MemberID,
		CreatedAt:   s.now(),
	}
	event.UpdatedAt = event.CreatedAt

	event, err = s.events.CreateEvent(ctx, event)
	if err != nil {
		err = mapEventRepoError(err, "")
	}
	return
}

// Update replaces the editable fields of an event for moderators and administrators.
func (s *EventService) Update(ctx context.Context, params UpdateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if !params.Principal.CanManageEvents() {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"principal_id", params.Principal.MemberID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", failureAttrs(err)...)
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	input := normalizeEventInput(params.Input)
	if vErr := validateEventInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var existing Event
	existing, err = s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		err = mapEventRepoError(err, params.EventID)
		return
	}

	existing.Title = input.Title
	existing.Description = input.Description
	existing.Location = input.Location
	existing.Start = input.Start
	existing.End = input.End
	existing.AllDay = input.AllDay
	existing.Color = input.Color
	existing.UpdatedAt = s.now()

	event, err = s.events.UpdateEvent(ctx, existing)
	if err != nil {
		err = mapEventRepoError(err, params.EventID)
	}
	return
}

// Delete removes an event together with its attendances.
func (s *EventService) Delete(ctx context.Context, principal Principal, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if !principal.CanManageEvents() {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "Delete",
		"principal_id", principal.MemberID,
		"event_id", eventID,
	)

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		err = mapEventRepoError(err, eventID)
		logger.ErrorContext(ctx, "failed to delete event", failureAttrs(err)...)
		return err
	}

	logger.InfoContext(ctx, "event deleted")
	return nil
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, principal Principal, eventID string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if principal.MemberID == "" {
		return Event{}, ErrUnauthorized
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err, eventID)
	}
	return event, nil
}

// List returns events overlapping the optional range ordered by start.
func (s *EventService) List(ctx context.Context, params ListEventsParams) (events []Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if params.Principal.MemberID == "" {
		err = ErrUnauthorized
		return
	}
	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		err = fieldError("to", "end of range must be after its start")
		return
	}

	events, err = s.events.ListEvents(ctx, EventQuery{StartsBefore: params.To, EndsAfter: params.From})
	if err != nil {
		s.loggerWith(ctx, "List", "principal_id", params.Principal.MemberID).
			ErrorContext(ctx, "failed to list events", failureAttrs(err)...)
	}
	return
}

func normalizeEventInput(input EventInput) EventInput {
	input.Title = textsanitize.Plain(input.Title)
	input.Description = textsanitize.Plain(input.Description)
	input.Location = textsanitize.Plain(input.Location)
	input.Color = strings.ToLower(strings.TrimSpace(input.Color))
	if input.Color == "" {
		input.Color = DefaultEventColor
	}
	return input
}

func validateEventInput(input EventInput) *ValidationError {
	vErr := &ValidationError{}

	switch {
	case input.Title == "":
		vErr.add("title", "title is required")
	case utf8.RuneCountInString(input.Title) > maxEventTitleLength:
		vErr.add("title", fmt.Sprintf("title must be at most %d characters", maxEventTitleLength))
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && input.End.Before(input.Start) {
		vErr.add("end", "end must not be before start")
	}
	if !eventColorPattern.MatchString(input.Color) {
		vErr.add("color", "color must be formatted #rrggbb")
	}

	return vErr
}

func mapEventRepoError(err error, eventID string) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotFoundError(err):
		return notFound("event", eventID)
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("end", "end must not be before start")
	}
	return err
}
