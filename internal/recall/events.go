package recall

import (
	"context"
	"fmt"

	"recall/internal/model"
)

// EventInput is the writable part of an Event.
type EventInput struct {
	ProjectID   *string `json:"project_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	StartTime   int64   `json:"start_time"`
	EndTime     *int64  `json:"end_time"`
	Location    *string `json:"location"`
	AllDay      bool    `json:"all_day"`
}

// EventFilter selects events by start time window and project. Each field is
// applied only when set.
type EventFilter struct {
	StartTime *int64  `json:"start_time"`
	EndTime   *int64  `json:"end_time"`
	ProjectID *string `json:"project_id"`
}

type EventStore struct {
	entityBase
}

func (in EventInput) validate() (EventInput, error) {
	title, err := requiredText("title", in.Title)
	if err != nil {
		return in, err
	}
	if err := validateEventTimes(in.StartTime, in.EndTime); err != nil {
		return in, err
	}

	in.Title = title
	in.Description = optionalText(in.Description)
	in.Location = optionalText(in.Location)
	if in.ProjectID != nil && *in.ProjectID == "" {
		in.ProjectID = nil
	}
	return in, nil
}

func (s *EventStore) verifyProject(ctx context.Context, userID string, projectID *string) error {
	if projectID == nil {
		return nil
	}
	return s.guard.Verify(ctx, userID, model.KindProject, *projectID)
}

func (s *EventStore) Create(ctx context.Context, userID string, in EventInput) (*model.Event, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err := s.verifyProject(ctx, userID, in.ProjectID); err != nil {
		return nil, err
	}

	now := s.now()
	event := &model.Event{
		UserID:      userID,
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Location:    in.Location,
		AllDay:      in.AllDay,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := InsertWithRetry(ctx, s.ids, s.logger, event, s.db.InsertEvent)
	if err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	s.logger.Info("event created", "user_id", userID, "event_id", id)

	stored, err := s.db.FindEvent(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("reading event: %w", err)
	}
	if stored == nil {
		return event, nil
	}
	return stored, nil
}

// List returns the user's events in start time order. A set ProjectID must
// name one of the user's projects.
func (s *EventStore) List(ctx context.Context, userID string, filter EventFilter) ([]*model.Event, error) {
	if filter.ProjectID != nil && *filter.ProjectID == "" {
		filter.ProjectID = nil
	}
	if err := s.verifyProject(ctx, userID, filter.ProjectID); err != nil {
		return nil, err
	}
	events, err := s.db.ListEvents(ctx, model.EventFilter{
		UserID:    userID,
		StartTime: filter.StartTime,
		EndTime:   filter.EndTime,
		ProjectID: filter.ProjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

func (s *EventStore) Get(ctx context.Context, userID, id string) (*model.Event, error) {
	if err := s.guard.Verify(ctx, userID, model.KindEvent, id); err != nil {
		return nil, err
	}
	return found(s.db.FindEvent(ctx, userID, id))
}

// Update replaces every writable field. A nil ProjectID detaches the event.
func (s *EventStore) Update(ctx context.Context, userID, id string, in EventInput) (*model.Event, error) {
	if err := s.guard.Verify(ctx, userID, model.KindEvent, id); err != nil {
		return nil, err
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err := s.verifyProject(ctx, userID, in.ProjectID); err != nil {
		return nil, err
	}

	event := &model.Event{
		ID:          id,
		UserID:      userID,
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Location:    in.Location,
		AllDay:      in.AllDay,
		UpdatedAt:   s.now(),
	}
	if err := s.db.UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("updating event: %w", err)
	}
	return found(s.db.FindEvent(ctx, userID, id))
}

func (s *EventStore) Delete(ctx context.Context, userID, id string) error {
	if err := s.guard.Verify(ctx, userID, model.KindEvent, id); err != nil {
		return err
	}
	deleted, err := s.db.DeleteEvent(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.logger.Info("event deleted", "user_id", userID, "event_id", id)
	return nil
}
