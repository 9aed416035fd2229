package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"recall/internal/recall"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Fixture is a tree of sample data. Offsets are relative to the seeding time.
type Fixture struct {
	Areas  []AreaFixture  `yaml:"areas"`
	Events []EventFixture `yaml:"events"`
}

type AreaFixture struct {
	Name     string           `yaml:"name"`
	ImageURL string           `yaml:"image_url"`
	Projects []ProjectFixture `yaml:"projects"`
}

type ProjectFixture struct {
	Title        string            `yaml:"title"`
	Description  string            `yaml:"description"`
	Status       string            `yaml:"status"`
	Priority     string            `yaml:"priority"`
	StartInDays  *int              `yaml:"start_in_days"`
	DurationDays int               `yaml:"duration_days"`
	Resources    []ResourceFixture `yaml:"resources"`
	Events       []EventFixture    `yaml:"events"`
}

// ResourceFixture holds either a note (Content) or a file given as plain text.
type ResourceFixture struct {
	Name     string `yaml:"name"`
	Content  string `yaml:"content"`
	File     string `yaml:"file"`
	FileType string `yaml:"file_type"`
}

type EventFixture struct {
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Location      string `yaml:"location"`
	StartInHours  int    `yaml:"start_in_hours"`
	DurationHours int    `yaml:"duration_hours"`
	AllDay        bool   `yaml:"all_day"`
}

// Summary counts what Run created.
type Summary struct {
	Areas     int
	Projects  int
	Resources int
	Events    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d areas, %d projects, %d resources, %d events", s.Areas, s.Projects, s.Resources, s.Events)
}

// ParseFixture decodes YAML, rejecting unknown keys.
func ParseFixture(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &fx, nil
}

// DefaultFixture returns the built-in sample data.
func DefaultFixture() (*Fixture, error) {
	return ParseFixture(defaultFixture)
}

// Run creates every entity in fx for userID through the regular stores, so
// ids, validation and ownership rules apply as for any client.
func Run(ctx context.Context, svc *recall.Service, userID string, fx *Fixture, now time.Time) (Summary, error) {
	var sum Summary
	if _, err := svc.Identity.User(ctx, userID); err != nil {
		return sum, fmt.Errorf("looking up user %s: %w", userID, err)
	}

	for _, af := range fx.Areas {
		area, err := svc.Areas.Create(ctx, userID, recall.AreaInput{Name: af.Name, ImageURL: optional(af.ImageURL)})
		if err != nil {
			return sum, fmt.Errorf("creating area %q: %w", af.Name, err)
		}
		sum.Areas++

		for _, pf := range af.Projects {
			in := recall.ProjectInput{
				AreaID:      area.ID,
				Title:       pf.Title,
				Description: optional(pf.Description),
				Status:      pf.Status,
				Priority:    optional(pf.Priority),
			}
			if pf.StartInDays != nil {
				start := now.AddDate(0, 0, *pf.StartInDays)
				end := start.AddDate(0, 0, pf.DurationDays)
				in.StartDate, in.EndDate = unix(start), unix(end)
			}
			project, err := svc.Projects.Create(ctx, userID, in)
			if err != nil {
				return sum, fmt.Errorf("creating project %q: %w", pf.Title, err)
			}
			sum.Projects++

			for _, rf := range pf.Resources {
				if _, err := svc.Resources.Create(ctx, userID, resourceInput(project.ID, rf)); err != nil {
					return sum, fmt.Errorf("creating resource %q: %w", rf.Name, err)
				}
				sum.Resources++
			}
			for _, ef := range pf.Events {
				if _, err := svc.Events.Create(ctx, userID, eventInput(&project.ID, ef, now)); err != nil {
					return sum, fmt.Errorf("creating event %q: %w", ef.Title, err)
				}
				sum.Events++
			}
		}
	}

	for _, ef := range fx.Events {
		if _, err := svc.Events.Create(ctx, userID, eventInput(nil, ef, now)); err != nil {
			return sum, fmt.Errorf("creating event %q: %w", ef.Title, err)
		}
		sum.Events++
	}
	return sum, nil
}

func resourceInput(projectID string, rf ResourceFixture) recall.ResourceInput {
	in := recall.ResourceInput{ProjectID: projectID, Name: rf.Name, Content: optional(rf.Content)}
	if rf.File != "" {
		data := base64.StdEncoding.EncodeToString([]byte(rf.File))
		size := int64(len(rf.File))
		in.FileData, in.FileType, in.FileSize = &data, optional(rf.FileType), &size
	}
	return in
}

func eventInput(projectID *string, ef EventFixture, now time.Time) recall.EventInput {
	start := now.Add(time.Duration(ef.StartInHours) * time.Hour)
	in := recall.EventInput{
		ProjectID:   projectID,
		Title:       ef.Title,
		Description: optional(ef.Description),
		StartTime:   start.Unix(),
		Location:    optional(ef.Location),
		AllDay:      ef.AllDay,
	}
	if ef.DurationHours > 0 {
		in.EndTime = unix(start.Add(time.Duration(ef.DurationHours) * time.Hour))
	}
	return in
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func unix(t time.Time) *int64 {
	v := t.Unix()
	return &v
}
