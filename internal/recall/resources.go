package recall

import (
	"context"
	"fmt"

	"recall/internal/model"
)

// ResourceInput is the writable part of a Resource. On update an empty
// ProjectID keeps the current project.
type ResourceInput struct {
	ProjectID string  `json:"project_id"`
	Name      string  `json:"name"`
	Content   *string `json:"content"`
	FileData  *string `json:"file_data"`
	FileType  *string `json:"file_type"`
	FileSize  *int64  `json:"file_size"`
}

// ResourceFilter restricts a listing to one project when ProjectID is set.
type ResourceFilter struct {
	ProjectID string `json:"project_id"`
}

type ResourceStore struct {
	entityBase
}

func (in ResourceInput) validate() (ResourceInput, error) {
	name, err := requiredText("name", in.Name)
	if err != nil {
		return in, err
	}
	data, err := validateFile(in.FileData, in.FileSize)
	if err != nil {
		return in, err
	}

	in.Name = name
	in.Content = optionalText(in.Content)
	in.FileData = data
	in.FileType = optionalText(in.FileType)
	return in, nil
}

func (s *ResourceStore) Create(ctx context.Context, userID string, in ResourceInput) (*model.Resource, error) {
	if in.ProjectID == "" {
		return nil, invalid("project_id", ErrEmptyField)
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err := s.guard.Verify(ctx, userID, model.KindProject, in.ProjectID); err != nil {
		return nil, err
	}

	now := s.now()
	resource := &model.Resource{
		UserID:    userID,
		ProjectID: in.ProjectID,
		Name:      in.Name,
		Content:   in.Content,
		FileData:  in.FileData,
		FileType:  in.FileType,
		FileSize:  in.FileSize,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := InsertWithRetry(ctx, s.ids, s.logger, resource, s.db.InsertResource)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}
	s.logger.Info("resource created", "user_id", userID, "resource_id", id)
	return s.readBack(ctx, resource)
}

// List returns the user's resources, newest first. A set ProjectID must name
// one of the user's projects.
func (s *ResourceStore) List(ctx context.Context, userID string, filter ResourceFilter) ([]*model.Resource, error) {
	if filter.ProjectID != "" {
		if err := s.guard.Verify(ctx, userID, model.KindProject, filter.ProjectID); err != nil {
			return nil, err
		}
	}
	resources, err := s.db.ListResources(ctx, userID, filter.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}
	return resources, nil
}

func (s *ResourceStore) Get(ctx context.Context, userID, id string) (*model.Resource, error) {
	if err := s.guard.Verify(ctx, userID, model.KindResource, id); err != nil {
		return nil, err
	}
	return found(s.db.FindResource(ctx, userID, id))
}

func (s *ResourceStore) Update(ctx context.Context, userID, id string, in ResourceInput) (*model.Resource, error) {
	if err := s.guard.Verify(ctx, userID, model.KindResource, id); err != nil {
		return nil, err
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	current, err := found(s.db.FindResource(ctx, userID, id))
	if err != nil {
		return nil, err
	}
	projectID := current.ProjectID
	if in.ProjectID != "" {
		projectID = in.ProjectID
	}
	if err := s.guard.Verify(ctx, userID, model.KindProject, projectID); err != nil {
		return nil, err
	}

	resource := &model.Resource{
		ID:        id,
		UserID:    userID,
		ProjectID: projectID,
		Name:      in.Name,
		Content:   in.Content,
		FileData:  in.FileData,
		FileType:  in.FileType,
		FileSize:  in.FileSize,
		UpdatedAt: s.now(),
	}
	if err := s.db.UpdateResource(ctx, resource); err != nil {
		return nil, fmt.Errorf("updating resource: %w", err)
	}
	return found(s.db.FindResource(ctx, userID, id))
}

func (s *ResourceStore) Delete(ctx context.Context, userID, id string) error {
	if err := s.guard.Verify(ctx, userID, model.KindResource, id); err != nil {
		return err
	}
	deleted, err := s.db.DeleteResource(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("deleting resource: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.logger.Info("resource deleted", "user_id", userID, "resource_id", id)
	return nil
}

func (s *ResourceStore) readBack(ctx context.Context, r *model.Resource) (*model.Resource, error) {
	stored, err := s.db.FindResource(ctx, r.UserID, r.ID)
	if err != nil {
		return nil, fmt.Errorf("reading resource: %w", err)
	}
	if stored == nil {
		return r, nil
	}
	return stored, nil
}
