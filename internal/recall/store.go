package recall

import (
	"context"
	"time"

	"recall/internal/model"
)

// EntityStore is the operation set every entity kind supports. All calls are
// scoped to userID; rows of other users behave as if they did not exist.
type EntityStore[T any, In any, F any] interface {
	Create(ctx context.Context, userID string, in In) (*T, error)
	List(ctx context.Context, userID string, filter F) ([]*T, error)
	Get(ctx context.Context, userID, id string) (*T, error)
	Update(ctx context.Context, userID, id string, in In) (*T, error)
	Delete(ctx context.Context, userID, id string) error
}

var (
	_ EntityStore[model.Area, AreaInput, AreaFilter]             = (*AreaStore)(nil)
	_ EntityStore[model.Project, ProjectInput, ProjectFilter]    = (*ProjectStore)(nil)
	_ EntityStore[model.Resource, ResourceInput, ResourceFilter] = (*ResourceStore)(nil)
	_ EntityStore[model.Event, EventInput, EventFilter]          = (*EventStore)(nil)
)

// Options configures NewService. Zero values pick production defaults where
// one exists; DB is required.
type Options struct {
	DB         Database
	Clock      Clock
	IDs        IDGenerator
	Tokens     IDGenerator
	Hasher     PasswordHasher
	Logger     Logger
	SessionTTL time.Duration
}

// Service bundles the identity store and the four entity stores over one database.
type Service struct {
	Identity  *IdentityStore
	Guard     *OwnershipGuard
	Areas     *AreaStore
	Projects  *ProjectStore
	Resources *ResourceStore
	Events    *EventStore
}

func NewService(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = NewIDGenerator(NewSecureSource())
	}
	if opts.Tokens == nil {
		opts.Tokens = NewTokenGenerator(NewSecureSource())
	}
	if opts.Hasher == nil {
		opts.Hasher = BcryptHasher{}
	}
	if opts.Logger == nil {
		opts.Logger = NewNopLogger()
	}

	guard := NewOwnershipGuard(opts.DB)
	base := entityBase{db: opts.DB, clock: opts.Clock, ids: opts.IDs, logger: opts.Logger, guard: guard}

	return &Service{
		Identity:  NewIdentityStore(opts.DB, opts.Clock, opts.IDs, opts.Tokens, opts.Hasher, opts.Logger, opts.SessionTTL),
		Guard:     guard,
		Areas:     &AreaStore{base},
		Projects:  &ProjectStore{base},
		Resources: &ResourceStore{base},
		Events:    &EventStore{base},
	}
}

// entityBase holds what every entity store needs.
type entityBase struct {
	db     Database
	clock  Clock
	ids    IDGenerator
	logger Logger
	guard  *OwnershipGuard
}

func (b entityBase) now() int64 {
	return b.clock.Now().Unix()
}

// found turns a (nil, nil) lookup into ErrNotFound.
func found[T any](v *T, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}
