package recall

import (
	"context"
	"fmt"

	"recall/internal/model"
)

// ProjectInput is the writable part of a Project.
type ProjectInput struct {
	AreaID      string  `json:"area_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    *string `json:"priority"`
	StartDate   *int64  `json:"start_date"`
	EndDate     *int64  `json:"end_date"`
}

// ProjectFilter restricts a listing to one area when AreaID is set.
type ProjectFilter struct {
	AreaID string `json:"area_id"`
}

type ProjectStore struct {
	entityBase
}

func (in ProjectInput) validate() (ProjectInput, error) {
	title, err := requiredText("title", in.Title)
	if err != nil {
		return in, err
	}
	if in.AreaID == "" {
		return in, invalid("area_id", ErrEmptyField)
	}
	if err := validateStatus(in.Status); err != nil {
		return in, err
	}
	priority, err := validatePriority(in.Priority)
	if err != nil {
		return in, err
	}
	if err := validateDates(in.StartDate, in.EndDate); err != nil {
		return in, err
	}

	in.Title = title
	in.Description = optionalText(in.Description)
	in.Priority = priority
	return in, nil
}

func (s *ProjectStore) Create(ctx context.Context, userID string, in ProjectInput) (*model.Project, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err := s.guard.Verify(ctx, userID, model.KindArea, in.AreaID); err != nil {
		return nil, err
	}

	now := s.now()
	project := &model.Project{
		UserID:      userID,
		AreaID:      in.AreaID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := InsertWithRetry(ctx, s.ids, s.logger, project, s.db.InsertProject)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	s.logger.Info("project created", "user_id", userID, "project_id", id)
	return s.readBack(ctx, project)
}

// List returns the user's projects, newest first. A set AreaID must name one
// of the user's areas.
func (s *ProjectStore) List(ctx context.Context, userID string, filter ProjectFilter) ([]*model.Project, error) {
	if filter.AreaID != "" {
		if err := s.guard.Verify(ctx, userID, model.KindArea, filter.AreaID); err != nil {
			return nil, err
		}
	}
	projects, err := s.db.ListProjects(ctx, userID, filter.AreaID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectStore) Get(ctx context.Context, userID, id string) (*model.Project, error) {
	if err := s.guard.Verify(ctx, userID, model.KindProject, id); err != nil {
		return nil, err
	}
	return found(s.db.FindProject(ctx, userID, id))
}

// Update replaces every writable field. Moving to another area requires that
// area to belong to the user too.
func (s *ProjectStore) Update(ctx context.Context, userID, id string, in ProjectInput) (*model.Project, error) {
	if err := s.guard.Verify(ctx, userID, model.KindProject, id); err != nil {
		return nil, err
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	if err := s.guard.Verify(ctx, userID, model.KindArea, in.AreaID); err != nil {
		return nil, err
	}

	project := &model.Project{
		ID:          id,
		UserID:      userID,
		AreaID:      in.AreaID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		UpdatedAt:   s.now(),
	}
	if err := s.db.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	return found(s.db.FindProject(ctx, userID, id))
}

// Move changes only the status of a project.
func (s *ProjectStore) Move(ctx context.Context, userID, id, status string) (*model.Project, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	if err := s.guard.Verify(ctx, userID, model.KindProject, id); err != nil {
		return nil, err
	}
	if err := s.db.UpdateProjectStatus(ctx, userID, id, status, s.now()); err != nil {
		return nil, fmt.Errorf("moving project: %w", err)
	}
	return found(s.db.FindProject(ctx, userID, id))
}

// Delete removes the project and its resources. Events keep existing
// without a project.
func (s *ProjectStore) Delete(ctx context.Context, userID, id string) error {
	if err := s.guard.Verify(ctx, userID, model.KindProject, id); err != nil {
		return err
	}
	deleted, err := s.db.DeleteProject(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.logger.Info("project deleted", "user_id", userID, "project_id", id)
	return nil
}

// readBack loads the stored row with its area name. If the row vanished in
// between, the inserted value is returned as is.
func (s *ProjectStore) readBack(ctx context.Context, p *model.Project) (*model.Project, error) {
	stored, err := s.db.FindProject(ctx, p.UserID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}
	if stored == nil {
		return p, nil
	}
	return stored, nil
}
