package database

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"recall/internal/model"
)

func TestBuildEventQuery(t *testing.T) {
	tests := []struct {
		name        string
		filter      model.EventFilter
		wantClauses []string
		wantArgs    []any
	}{
		{
			name:        "owner only",
			filter:      model.EventFilter{UserID: "U"},
			wantClauses: []string{"e.user_id = ?"},
			wantArgs:    []any{"U"},
		},
		{
			name:        "start",
			filter:      model.EventFilter{UserID: "U", StartTime: ptr(int64(150))},
			wantClauses: []string{"e.user_id = ?", "e.start_time >= ?"},
			wantArgs:    []any{"U", int64(150)},
		},
		{
			name:        "end and project",
			filter:      model.EventFilter{UserID: "U", EndTime: ptr(int64(250)), ProjectID: ptr("P1")},
			wantClauses: []string{"e.user_id = ?", "e.start_time <= ?", "e.project_id = ?"},
			wantArgs:    []any{"U", int64(250), "P1"},
		},
		{
			name:        "all three",
			filter:      model.EventFilter{UserID: "U", StartTime: ptr(int64(1)), EndTime: ptr(int64(2)), ProjectID: ptr("P")},
			wantClauses: []string{"e.user_id = ?", "e.start_time >= ?", "e.start_time <= ?", "e.project_id = ?"},
			wantArgs:    []any{"U", int64(1), int64(2), "P"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildEventQuery(tt.filter)

			where := " WHERE " + strings.Join(tt.wantClauses, " AND ") + " ORDER BY"
			if !strings.Contains(q.SQL, where) {
				t.Errorf("SQL = %q, want it to contain %q", q.SQL, where)
			}
			if !strings.HasSuffix(q.SQL, "ORDER BY e.start_time ASC, e.rowid ASC") {
				t.Errorf("SQL = %q, want start_time ordering", q.SQL)
			}
			if !reflect.DeepEqual(q.Args, tt.wantArgs) {
				t.Errorf("Args = %v, want %v", q.Args, tt.wantArgs)
			}
			if strings.Count(q.SQL, "?") != len(q.Args) {
				t.Errorf("placeholder count %d != arg count %d", strings.Count(q.SQL, "?"), len(q.Args))
			}
		})
	}
}

func TestSQLiteDatabase_ListEvents(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	areaID, p1 := seed(t, db, "U1")
	seed(t, db, "U2")

	p2 := "U1P2"
	if err := db.InsertProject(ctx, &model.Project{ID: p2, UserID: "U1", AreaID: areaID, Title: "Second", Status: model.StatusDone}); err != nil {
		t.Fatalf("InsertProject() error = %v", err)
	}

	// Inserted out of order; E4 ties with E2 on start_time and was inserted later.
	events := []*model.Event{
		{ID: "E3", UserID: "U1", ProjectID: &p1, Title: "three", StartTime: 300},
		{ID: "E1", UserID: "U1", ProjectID: &p1, Title: "one", StartTime: 100},
		{ID: "E2", UserID: "U1", ProjectID: &p2, Title: "two", StartTime: 200},
		{ID: "E4", UserID: "U1", Title: "loose", StartTime: 200},
		{ID: "X1", UserID: "U2", Title: "other user", StartTime: 200},
	}
	for _, e := range events {
		if err := db.InsertEvent(ctx, e); err != nil {
			t.Fatalf("InsertEvent(%s) error = %v", e.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter model.EventFilter
		want   []string
	}{
		{"no filter", model.EventFilter{}, []string{"E1", "E2", "E4", "E3"}},
		{"start", model.EventFilter{StartTime: ptr(int64(150))}, []string{"E2", "E4", "E3"}},
		{"end", model.EventFilter{EndTime: ptr(int64(250))}, []string{"E1", "E2", "E4"}},
		{"start and end", model.EventFilter{StartTime: ptr(int64(150)), EndTime: ptr(int64(250))}, []string{"E2", "E4"}},
		{"bounds are inclusive", model.EventFilter{StartTime: ptr(int64(100)), EndTime: ptr(int64(300))}, []string{"E1", "E2", "E4", "E3"}},
		{"project", model.EventFilter{ProjectID: &p1}, []string{"E1", "E3"}},
		{"project and start", model.EventFilter{ProjectID: &p1, StartTime: ptr(int64(150))}, []string{"E3"}},
		{"project and end", model.EventFilter{ProjectID: &p2, EndTime: ptr(int64(250))}, []string{"E2"}},
		{"all three", model.EventFilter{ProjectID: &p1, StartTime: ptr(int64(150)), EndTime: ptr(int64(250))}, []string{}},
		{"empty window", model.EventFilter{StartTime: ptr(int64(400))}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.UserID = "U1"
			got, err := db.ListEvents(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListEvents() error = %v", err)
			}
			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.ID
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("ListEvents() = %v, want %v", ids, tt.want)
			}
		})
	}

	t.Run("project title is joined", func(t *testing.T) {
		got, err := db.ListEvents(ctx, model.EventFilter{UserID: "U1", ProjectID: &p2})
		if err != nil || len(got) != 1 {
			t.Fatalf("ListEvents() = %v, %v", got, err)
		}
		if got[0].ProjectName == nil || *got[0].ProjectName != "Second" {
			t.Errorf("ProjectName = %v, want Second", got[0].ProjectName)
		}
	})
}
