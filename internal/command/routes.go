package command

import (
	"context"

	"recall/internal/model"
	"recall/internal/recall"
)

func (d *Dispatcher) routes() map[string]handler {
	open := func(fn func(context.Context, call) (Envelope, error)) handler {
		return handler{fn: fn}
	}
	authed := func(fn func(context.Context, call) (Envelope, error)) handler {
		return handler{auth: true, fn: fn}
	}

	return map[string]handler{
		"signup":                     open(d.signup),
		"signin":                     open(d.signin),
		"validate_token":             open(d.validateToken),
		"delete_session":             open(d.deleteSession),
		"update_user":                authed(d.updateUser),
		"change_password_with_token": authed(d.changePassword),

		"create_area":    authed(d.createArea),
		"get_areas":      authed(d.getAreas),
		"get_area_by_id": authed(d.getArea),
		"update_area":    authed(d.updateArea),
		"delete_area":    authed(d.deleteArea),

		"create_project":    authed(d.createProject),
		"get_projects":      authed(d.getProjects),
		"get_project_by_id": authed(d.getProject),
		"update_project":    authed(d.updateProject),
		"move_project":      authed(d.moveProject),
		"delete_project":    authed(d.deleteProject),

		"create_resource":        authed(d.createResource),
		"get_resources":          authed(d.getResources),
		"get_resource_by_id":     authed(d.getResource),
		"update_resource":        authed(d.updateResource),
		"delete_resource":        authed(d.deleteResource),
		"download_resource_file": authed(d.downloadResourceFile),

		"create_event":    authed(d.createEvent),
		"get_events":      authed(d.getEvents),
		"get_event_by_id": authed(d.getEvent),
		"update_event":    authed(d.updateEvent),
		"delete_event":    authed(d.deleteEvent),
	}
}

// Identity.

type signupPayload struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type signinPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profilePayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type passwordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func withSession(token string, user *model.User) Envelope {
	return Envelope{Success: true, Fields: map[string]any{"token": token, "user": user}}
}

func (d *Dispatcher) signup(ctx context.Context, c call) (Envelope, error) {
	var p signupPayload
	if err := decode(c, &p); err != nil {
		return Envelope{}, err
	}
	user, err := d.svc.Identity.CreateAccount(ctx, p.Email, p.Name, p.Password)
	if err != nil {
		return Envelope{}, err
	}
	token, err := d.svc.Identity.IssueSession(ctx, user.ID)
	if err != nil {
		return Envelope{}, err
	}
	return withSession(token, user), nil
}

func (d *Dispatcher) signin(ctx context.Context, c call) (Envelope, error) {
	var p signinPayload
	if err := decode(c, &p); err != nil {
		return Envelope{}, err
	}
	user, err := d.svc.Identity.Authenticate(ctx, p.Email, p.Password)
	if err != nil {
		return Envelope{}, err
	}
	token, err := d.svc.Identity.IssueSession(ctx, user.ID)
	if err != nil {
		return Envelope{}, err
	}
	return withSession(token, user), nil
}

// validateToken never rejects: an unknown or expired token yields a null user.
func (d *Dispatcher) validateToken(ctx context.Context, c call) (Envelope, error) {
	user, err := d.svc.Identity.CurrentUser(ctx, c.req.Token)
	if err != nil {
		return Envelope{}, err
	}
	if user == nil {
		return ok("user", nil), nil
	}
	return ok("user", user), nil
}

// deleteSession succeeds for expired and unknown tokens alike.
func (d *Dispatcher) deleteSession(ctx context.Context, c call) (Envelope, error) {
	if c.req.Token == "" {
		return Envelope{}, recall.ErrInvalidToken
	}
	if err := d.svc.Identity.RevokeSession(ctx, c.req.Token); err != nil {
		return Envelope{}, err
	}
	return ok("token", c.req.Token), nil
}

func (d *Dispatcher) updateUser(ctx context.Context, c call) (Envelope, error) {
	var p profilePayload
	if err := decode(c, &p); err != nil {
		return Envelope{}, err
	}
	user, err := d.svc.Identity.UpdateProfile(ctx, c.userID, p.Name, p.Email)
	if err != nil {
		return Envelope{}, err
	}
	return ok("user", user), nil
}

func (d *Dispatcher) changePassword(ctx context.Context, c call) (Envelope, error) {
	var p passwordPayload
	if err := decode(c, &p); err != nil {
		return Envelope{}, err
	}
	if err := d.svc.Identity.ChangePassword(ctx, c.userID, p.CurrentPassword, p.NewPassword); err != nil {
		return Envelope{}, err
	}
	return done("password changed"), nil
}

// requireID returns the id argument or a validation failure.
func requireID(c call) (string, error) {
	if c.req.Args.ID == "" {
		return "", &recall.ValidationError{Field: "id", Err: recall.ErrEmptyField}
	}
	return c.req.Args.ID, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
