package recall

import (
	"context"

	"recall/internal/model"
)

// Database is the relational store behind the identity and entity stores.
//
// Lookups return (nil, nil) when no row matches. Inserts return
// ErrIdentifierCollision when the id is taken and ErrDuplicateEmail when a
// user's email is. Every other failure wraps ErrStoreUnavailable.
// Scoped reads and writes take the owning user id and match nothing for
// rows owned by anyone else.
type Database interface {
	// User operations

	InsertUser(ctx context.Context, user *model.User) error
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	// EmailTakenByOther reports whether a user other than userID has email.
	EmailTakenByOther(ctx context.Context, email, userID string) (bool, error)
	UpdateUserProfile(ctx context.Context, userID, name, email string, now int64) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string, now int64) error

	// Session operations

	InsertSession(ctx context.Context, session *model.Session) error
	// FindSessionUserID returns the user id for token when it expires strictly after now.
	FindSessionUserID(ctx context.Context, token string, now int64) (string, error)
	DeleteSession(ctx context.Context, token string) error

	// Ownership

	// FindOwnership returns the owner and parent link of the row id in kind's table.
	FindOwnership(ctx context.Context, kind model.Kind, id string) (*model.Ownership, error)

	// Area operations

	InsertArea(ctx context.Context, area *model.Area) error
	ListAreas(ctx context.Context, userID string) ([]*model.Area, error)
	FindArea(ctx context.Context, userID, id string) (*model.Area, error)
	UpdateArea(ctx context.Context, area *model.Area) error
	DeleteArea(ctx context.Context, userID, id string) (bool, error)

	// Project operations

	InsertProject(ctx context.Context, project *model.Project) error
	// ListProjects returns the user's projects, restricted to areaID when it is non-empty.
	ListProjects(ctx context.Context, userID, areaID string) ([]*model.Project, error)
	FindProject(ctx context.Context, userID, id string) (*model.Project, error)
	UpdateProject(ctx context.Context, project *model.Project) error
	UpdateProjectStatus(ctx context.Context, userID, id, status string, now int64) error
	DeleteProject(ctx context.Context, userID, id string) (bool, error)

	// Resource operations

	InsertResource(ctx context.Context, resource *model.Resource) error
	// ListResources returns the user's resources, restricted to projectID when it is non-empty.
	ListResources(ctx context.Context, userID, projectID string) ([]*model.Resource, error)
	FindResource(ctx context.Context, userID, id string) (*model.Resource, error)
	UpdateResource(ctx context.Context, resource *model.Resource) error
	DeleteResource(ctx context.Context, userID, id string) (bool, error)

	// Event operations

	InsertEvent(ctx context.Context, event *model.Event) error
	ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
	FindEvent(ctx context.Context, userID, id string) (*model.Event, error)
	UpdateEvent(ctx context.Context, event *model.Event) error
	DeleteEvent(ctx context.Context, userID, id string) (bool, error)

	// Close closes the database connection pool.
	Close() error
}
