package database

import (
	"strings"

	"recall/internal/model"
)

const eventColumns = `e.id, e.user_id, e.project_id, p.title, e.title, e.description,
	e.start_time, e.end_time, e.location, e.all_day, e.created_at, e.updated_at`

// EventQuery is a parameterized SELECT over events joined with their project title.
type EventQuery struct {
	SQL  string
	Args []any
}

// BuildEventQuery composes one predicate from the filter. The owner clause is
// always present; the start, end and project clauses are appended
// independently when set, so every combination goes through the same path.
// Values are always bound, never interpolated.
func BuildEventQuery(f model.EventFilter) EventQuery {
	clauses := []string{"e.user_id = ?"}
	args := []any{f.UserID}

	if f.StartTime != nil {
		clauses = append(clauses, "e.start_time >= ?")
		args = append(args, *f.StartTime)
	}
	if f.EndTime != nil {
		clauses = append(clauses, "e.start_time <= ?")
		args = append(args, *f.EndTime)
	}
	if f.ProjectID != nil {
		clauses = append(clauses, "e.project_id = ?")
		args = append(args, *f.ProjectID)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(eventColumns)
	b.WriteString(" FROM events e LEFT JOIN projects p ON p.id = e.project_id WHERE ")
	b.WriteString(strings.Join(clauses, " AND "))
	// rowid follows insertion order and breaks start_time ties.
	b.WriteString(" ORDER BY e.start_time ASC, e.rowid ASC")

	return EventQuery{SQL: b.String(), Args: args}
}
