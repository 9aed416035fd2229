package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"recall/internal/model"
	"recall/internal/recall"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteDatabase implements recall.Database on top of a database/sql pool.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

var _ recall.Database = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens the database at path (or MemoryPath) with at most
// maxOpen pooled connections. The schema is not touched; see migrations.
func NewSQLiteDatabase(path string, maxOpen int) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path, maxOpen)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite pool. Foreign keys are enforced
// and writers wait up to five seconds for the lock. An in-memory database is
// pinned to a single connection since each connection would otherwise get
// its own empty database.
func OpenConnection(path string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if path == MemoryPath {
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking foreign keys: %w", err)
	}
	if fk != 1 {
		db.Close()
		return nil, errors.New("foreign key enforcement is not available")
	}
	return db, nil
}

// DB exposes the pool for migrations and snapshots.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// Path returns the file the database was opened from.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// Snapshot writes a consistent copy of the database to dest, which must not exist.
func (s *SQLiteDatabase) Snapshot(ctx context.Context, dest string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return storeErr("writing snapshot", err)
	}
	return nil
}

// User operations

const userColumns = "id, email, name, password_hash, created_at, updated_at"

func (s *SQLiteDatabase) InsertUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return insertErr("users", err)
	}
	return nil
}

func (s *SQLiteDatabase) findUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("finding user", err)
	}
	return &u, nil
}

func (s *SQLiteDatabase) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *SQLiteDatabase) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *SQLiteDatabase) EmailTakenByOther(ctx context.Context, email, userID string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE email = ? AND id != ?)", email, userID).Scan(&taken)
	if err != nil {
		return false, storeErr("checking email", err)
	}
	return taken, nil
}

func (s *SQLiteDatabase) UpdateUserProfile(ctx context.Context, userID, name, email string, now int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?", name, email, now, userID)
	if err != nil {
		return updateErr("users", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateUserPassword(ctx context.Context, userID, passwordHash string, now int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?", passwordHash, now, userID)
	if err != nil {
		return updateErr("users", err)
	}
	return nil
}

// Session operations

func (s *SQLiteDatabase) InsertSession(ctx context.Context, sess *model.Session) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, token, expires_at, created_at) VALUES (?, ?, ?, ?, ?)",
		sess.ID, sess.UserID, sess.Token, sess.ExpiresAt, sess.CreatedAt)
	if err != nil {
		return insertErr("sessions", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindSessionUserID(ctx context.Context, token string, now int64) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id FROM sessions WHERE token = ? AND expires_at > ?", token, now).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storeErr("finding session", err)
	}
	return userID, nil
}

func (s *SQLiteDatabase) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return storeErr("deleting session", err)
	}
	return nil
}

// Ownership

var ownershipQueries = map[model.Kind]struct {
	query  string
	parent model.Kind
}{
	model.KindArea:     {"SELECT user_id, NULL FROM areas WHERE id = ?", ""},
	model.KindProject:  {"SELECT user_id, area_id FROM projects WHERE id = ?", model.KindArea},
	model.KindResource: {"SELECT user_id, project_id FROM resources WHERE id = ?", model.KindProject},
	model.KindEvent:    {"SELECT user_id, project_id FROM events WHERE id = ?", model.KindProject},
}

func (s *SQLiteDatabase) FindOwnership(ctx context.Context, kind model.Kind, id string) (*model.Ownership, error) {
	q, ok := ownershipQueries[kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	var userID string
	var parentID sql.NullString
	err := s.db.QueryRowContext(ctx, q.query, id).Scan(&userID, &parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("finding "+string(kind)+" owner", err)
	}

	own := &model.Ownership{UserID: userID}
	if parentID.Valid {
		own.ParentKind = q.parent
		own.ParentID = parentID.String
	}
	return own, nil
}

// deleteOwned deletes one row of table owned by userID and reports whether it existed.
func (s *SQLiteDatabase) deleteOwned(ctx context.Context, table, userID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, storeErr("deleting from "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("deleting from "+table, err)
	}
	return n > 0, nil
}

// execOwned runs an UPDATE and fails with recall.ErrNotFound when no row matched.
func (s *SQLiteDatabase) execOwned(ctx context.Context, table, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return updateErr(table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("updating "+table, err)
	}
	if n == 0 {
		return recall.ErrNotFound
	}
	return nil
}

// Area operations

const areaColumns = "id, user_id, name, image_url, created_at, updated_at"

func scanArea(row interface{ Scan(...any) error }) (*model.Area, error) {
	var a model.Area
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLiteDatabase) InsertArea(ctx context.Context, a *model.Area) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO areas ("+areaColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		a.ID, a.UserID, a.Name, a.ImageURL, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return insertErr("areas", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListAreas(ctx context.Context, userID string) ([]*model.Area, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+areaColumns+" FROM areas WHERE user_id = ? ORDER BY created_at DESC, rowid DESC", userID)
	if err != nil {
		return nil, storeErr("listing areas", err)
	}
	return collect(rows, scanArea, "listing areas")
}

func (s *SQLiteDatabase) FindArea(ctx context.Context, userID, id string) (*model.Area, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+areaColumns+" FROM areas WHERE id = ? AND user_id = ?", id, userID)
	return one(scanArea(row))
}

func (s *SQLiteDatabase) UpdateArea(ctx context.Context, a *model.Area) error {
	return s.execOwned(ctx, "areas",
		"UPDATE areas SET name = ?, image_url = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		a.Name, a.ImageURL, a.UpdatedAt, a.ID, a.UserID)
}

func (s *SQLiteDatabase) DeleteArea(ctx context.Context, userID, id string) (bool, error) {
	return s.deleteOwned(ctx, "areas", userID, id)
}

// Project operations

const projectSelect = `SELECT p.id, p.user_id, p.area_id, a.name, p.title, p.description, p.status,
	p.priority, p.start_date, p.end_date, p.created_at, p.updated_at
	FROM projects p LEFT JOIN areas a ON a.id = p.area_id`

func scanProject(row interface{ Scan(...any) error }) (*model.Project, error) {
	var p model.Project
	err := row.Scan(&p.ID, &p.UserID, &p.AreaID, &p.AreaName, &p.Title, &p.Description, &p.Status,
		&p.Priority, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteDatabase) InsertProject(ctx context.Context, p *model.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, area_id, title, description, status, priority,
			start_date, end_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.AreaID, p.Title, p.Description, p.Status, p.Priority,
		p.StartDate, p.EndDate, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return insertErr("projects", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListProjects(ctx context.Context, userID, areaID string) ([]*model.Project, error) {
	where := []string{"p.user_id = ?"}
	args := []any{userID}
	if areaID != "" {
		where = append(where, "p.area_id = ?")
		args = append(args, areaID)
	}
	rows, err := s.db.QueryContext(ctx,
		projectSelect+" WHERE "+strings.Join(where, " AND ")+" ORDER BY p.created_at DESC, p.rowid DESC", args...)
	if err != nil {
		return nil, storeErr("listing projects", err)
	}
	return collect(rows, scanProject, "listing projects")
}

func (s *SQLiteDatabase) FindProject(ctx context.Context, userID, id string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx, projectSelect+" WHERE p.id = ? AND p.user_id = ?", id, userID)
	return one(scanProject(row))
}

func (s *SQLiteDatabase) UpdateProject(ctx context.Context, p *model.Project) error {
	return s.execOwned(ctx, "projects",
		`UPDATE projects SET area_id = ?, title = ?, description = ?, status = ?, priority = ?,
			start_date = ?, end_date = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		p.AreaID, p.Title, p.Description, p.Status, p.Priority,
		p.StartDate, p.EndDate, p.UpdatedAt, p.ID, p.UserID)
}

func (s *SQLiteDatabase) UpdateProjectStatus(ctx context.Context, userID, id, status string, now int64) error {
	return s.execOwned(ctx, "projects",
		"UPDATE projects SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?", status, now, id, userID)
}

func (s *SQLiteDatabase) DeleteProject(ctx context.Context, userID, id string) (bool, error) {
	return s.deleteOwned(ctx, "projects", userID, id)
}

// Resource operations

const resourceSelect = `SELECT r.id, r.user_id, r.project_id, p.title, r.name, r.content, r.file_data,
	r.file_type, r.file_size, r.created_at, r.updated_at
	FROM resources r LEFT JOIN projects p ON p.id = r.project_id`

func scanResource(row interface{ Scan(...any) error }) (*model.Resource, error) {
	var r model.Resource
	err := row.Scan(&r.ID, &r.UserID, &r.ProjectID, &r.ProjectName, &r.Name, &r.Content, &r.FileData,
		&r.FileType, &r.FileSize, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteDatabase) InsertResource(ctx context.Context, r *model.Resource) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resources (id, user_id, project_id, name, content, file_data, file_type,
			file_size, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.ProjectID, r.Name, r.Content, r.FileData, r.FileType,
		r.FileSize, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return insertErr("resources", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListResources(ctx context.Context, userID, projectID string) ([]*model.Resource, error) {
	where := []string{"r.user_id = ?"}
	args := []any{userID}
	if projectID != "" {
		where = append(where, "r.project_id = ?")
		args = append(args, projectID)
	}
	rows, err := s.db.QueryContext(ctx,
		resourceSelect+" WHERE "+strings.Join(where, " AND ")+" ORDER BY r.created_at DESC, r.rowid DESC", args...)
	if err != nil {
		return nil, storeErr("listing resources", err)
	}
	return collect(rows, scanResource, "listing resources")
}

func (s *SQLiteDatabase) FindResource(ctx context.Context, userID, id string) (*model.Resource, error) {
	row := s.db.QueryRowContext(ctx, resourceSelect+" WHERE r.id = ? AND r.user_id = ?", id, userID)
	return one(scanResource(row))
}

func (s *SQLiteDatabase) UpdateResource(ctx context.Context, r *model.Resource) error {
	return s.execOwned(ctx, "resources",
		`UPDATE resources SET project_id = ?, name = ?, content = ?, file_data = ?, file_type = ?,
			file_size = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		r.ProjectID, r.Name, r.Content, r.FileData, r.FileType,
		r.FileSize, r.UpdatedAt, r.ID, r.UserID)
}

func (s *SQLiteDatabase) DeleteResource(ctx context.Context, userID, id string) (bool, error) {
	return s.deleteOwned(ctx, "resources", userID, id)
}

// Event operations

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.UserID, &e.ProjectID, &e.ProjectName, &e.Title, &e.Description,
		&e.StartTime, &e.EndTime, &e.Location, &e.AllDay, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteDatabase) InsertEvent(ctx context.Context, e *model.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, user_id, project_id, title, description, start_time, end_time,
			location, all_day, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.ProjectID, e.Title, e.Description, e.StartTime, e.EndTime,
		e.Location, e.AllDay, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return insertErr("events", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	q := BuildEventQuery(filter)
	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, storeErr("listing events", err)
	}
	return collect(rows, scanEvent, "listing events")
}

func (s *SQLiteDatabase) FindEvent(ctx context.Context, userID, id string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events e LEFT JOIN projects p ON p.id = e.project_id WHERE e.id = ? AND e.user_id = ?",
		id, userID)
	return one(scanEvent(row))
}

func (s *SQLiteDatabase) UpdateEvent(ctx context.Context, e *model.Event) error {
	return s.execOwned(ctx, "events",
		`UPDATE events SET project_id = ?, title = ?, description = ?, start_time = ?, end_time = ?,
			location = ?, all_day = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		e.ProjectID, e.Title, e.Description, e.StartTime, e.EndTime,
		e.Location, e.AllDay, e.UpdatedAt, e.ID, e.UserID)
}

func (s *SQLiteDatabase) DeleteEvent(ctx context.Context, userID, id string) (bool, error) {
	return s.deleteOwned(ctx, "events", userID, id)
}

// Row helpers

func one[T any](v *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("reading row", err)
	}
	return v, nil
}

func collect[T any](rows *sql.Rows, scan func(interface{ Scan(...any) error }) (*T, error), op string) ([]*T, error) {
	defer rows.Close()

	out := []*T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, storeErr(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}
