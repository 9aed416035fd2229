package recall

import (
	"context"
	"fmt"

	"recall/internal/model"
)

// AreaInput is the writable part of an Area.
type AreaInput struct {
	Name     string  `json:"name"`
	ImageURL *string `json:"image_url"`
}

// AreaFilter has no fields; areas are always listed in full.
type AreaFilter struct{}

type AreaStore struct {
	entityBase
}

func (in AreaInput) validate() (AreaInput, error) {
	name, err := requiredText("name", in.Name)
	if err != nil {
		return in, err
	}
	return AreaInput{Name: name, ImageURL: optionalText(in.ImageURL)}, nil
}

func (s *AreaStore) Create(ctx context.Context, userID string, in AreaInput) (*model.Area, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	now := s.now()
	area := &model.Area{
		UserID:    userID,
		Name:      in.Name,
		ImageURL:  in.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := InsertWithRetry(ctx, s.ids, s.logger, area, s.db.InsertArea); err != nil {
		return nil, fmt.Errorf("creating area: %w", err)
	}
	s.logger.Info("area created", "user_id", userID, "area_id", area.ID)
	return area, nil
}

// List returns the user's areas, newest first.
func (s *AreaStore) List(ctx context.Context, userID string, _ AreaFilter) ([]*model.Area, error) {
	areas, err := s.db.ListAreas(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing areas: %w", err)
	}
	return areas, nil
}

func (s *AreaStore) Get(ctx context.Context, userID, id string) (*model.Area, error) {
	if err := s.guard.Verify(ctx, userID, model.KindArea, id); err != nil {
		return nil, err
	}
	return found(s.db.FindArea(ctx, userID, id))
}

func (s *AreaStore) Update(ctx context.Context, userID, id string, in AreaInput) (*model.Area, error) {
	if err := s.guard.Verify(ctx, userID, model.KindArea, id); err != nil {
		return nil, err
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	area := &model.Area{
		ID:        id,
		UserID:    userID,
		Name:      in.Name,
		ImageURL:  in.ImageURL,
		UpdatedAt: s.now(),
	}
	if err := s.db.UpdateArea(ctx, area); err != nil {
		return nil, fmt.Errorf("updating area: %w", err)
	}
	return found(s.db.FindArea(ctx, userID, id))
}

// Delete removes the area together with its projects and their resources.
func (s *AreaStore) Delete(ctx context.Context, userID, id string) error {
	if err := s.guard.Verify(ctx, userID, model.KindArea, id); err != nil {
		return err
	}
	deleted, err := s.db.DeleteArea(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("deleting area: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.logger.Info("area deleted", "user_id", userID, "area_id", id)
	return nil
}
