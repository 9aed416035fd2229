package model

// All timestamps are Unix seconds. Optional columns are pointers so they
// encode as JSON null and scan from NULL.

// HasIdentifier is implemented by every persisted entity so that insertion
// can assign and replace short identifiers without knowing the concrete type.
type HasIdentifier interface {
	Identifier() string
	SetIdentifier(id string)
}

// Kind names an entity table that participates in the ownership chain.
type Kind string

const (
	KindArea     Kind = "area"
	KindProject  Kind = "project"
	KindResource Kind = "resource"
	KindEvent    Kind = "event"
)

// User is an account. PasswordHash never leaves the process.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"-"`
	UpdatedAt    int64  `json:"-"`
}

func (u *User) Identifier() string      { return u.ID }
func (u *User) SetIdentifier(id string) { u.ID = id }

// Session is a bearer token bound to a user until ExpiresAt.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt int64
	CreatedAt int64
}

func (s *Session) Identifier() string      { return s.ID }
func (s *Session) SetIdentifier(id string) { s.ID = id }

// Area is the top of the containment hierarchy.
type Area struct {
	ID        string  `json:"id"`
	UserID    string  `json:"-"`
	Name      string  `json:"name"`
	ImageURL  *string `json:"image_url"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

func (a *Area) Identifier() string      { return a.ID }
func (a *Area) SetIdentifier(id string) { a.ID = id }

// Project status and priority values.
const (
	StatusInbox    = "Inbox"
	StatusPlanned  = "Planned"
	StatusProgress = "Progress"
	StatusDone     = "Done"

	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Project belongs to an Area. AreaName is a display field filled by joins.
type Project struct {
	ID          string  `json:"id"`
	UserID      string  `json:"-"`
	AreaID      string  `json:"area_id"`
	AreaName    *string `json:"area_name"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    *string `json:"priority"`
	StartDate   *int64  `json:"start_date"`
	EndDate     *int64  `json:"end_date"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

func (p *Project) Identifier() string      { return p.ID }
func (p *Project) SetIdentifier(id string) { p.ID = id }

// MaxFileSize is the largest file payload a Resource may carry (5 MiB).
const MaxFileSize int64 = 5 * 1024 * 1024

// Resource is a note or file attached to a Project. FileData is base64 text.
// Content and FileData may both be set; neither is required.
type Resource struct {
	ID          string  `json:"id"`
	UserID      string  `json:"-"`
	ProjectID   string  `json:"project_id"`
	ProjectName *string `json:"project_name"`
	Name        string  `json:"name"`
	Content     *string `json:"content"`
	FileData    *string `json:"file_data"`
	FileType    *string `json:"file_type"`
	FileSize    *int64  `json:"file_size"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

func (r *Resource) Identifier() string      { return r.ID }
func (r *Resource) SetIdentifier(id string) { r.ID = id }

// Event is a calendar entry, optionally attached to a Project.
type Event struct {
	ID          string  `json:"id"`
	UserID      string  `json:"-"`
	ProjectID   *string `json:"project_id"`
	ProjectName *string `json:"project_name"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	StartTime   int64   `json:"start_time"`
	EndTime     *int64  `json:"end_time"`
	Location    *string `json:"location"`
	AllDay      bool    `json:"all_day"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
}

func (e *Event) Identifier() string      { return e.ID }
func (e *Event) SetIdentifier(id string) { e.ID = id }

// Ownership describes one link of the ownership chain: who owns a row and
// which parent row (if any) it hangs from.
type Ownership struct {
	UserID     string
	ParentKind Kind
	ParentID   string
}

// EventFilter selects a user's events. Nil fields are not applied.
type EventFilter struct {
	UserID    string
	StartTime *int64
	EndTime   *int64
	ProjectID *string
}
