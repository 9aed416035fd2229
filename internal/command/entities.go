package command

import (
	"context"

	"recall/internal/recall"
)

// Areas.

func (d *Dispatcher) createArea(ctx context.Context, c call) (Envelope, error) {
	var in recall.AreaInput
	if err := decode(c, &in); err != nil {
		return Envelope{}, err
	}
	area, err := d.svc.Areas.Create(ctx, c.userID, in)
	if err != nil {
		return Envelope{}, err
	}
	return ok("area", area), nil
}

func (d *Dispatcher) getAreas(ctx context.Context, c call) (Envelope, error) {
	areas, err := d.svc.Areas.List(ctx, c.userID, recall.AreaFilter{})
	if err != nil {
		return Envelope{}, err
	}
	return ok("areas", areas), nil
}

func (d *Dispatcher) getArea(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	area, err := d.svc.Areas.Get(ctx, c.userID, id)
	if err != nil {
		return Envelope{}, err
	}
	return ok("area", area), nil
}

func (d *Dispatcher) updateArea(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	var in recall.AreaInput
	if err := decode(c, &in); err != nil {
		return Envelope{}, err
	}
	area, err := d.svc.Areas.Update(ctx, c.userID, id, in)
	if err != nil {
		return Envelope{}, err
	}
	return ok("area", area), nil
}

func (d *Dispatcher) deleteArea(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	if err := d.svc.Areas.Delete(ctx, c.userID, id); err != nil {
		return Envelope{}, err
	}
	return done("area deleted"), nil
}

// Projects.

func (d *Dispatcher) createProject(ctx context.Context, c call) (Envelope, error) {
	var in recall.ProjectInput
	if err := decode(c, &in); err != nil {
		return Envelope{}, err
	}
	project, err := d.svc.Projects.Create(ctx, c.userID, in)
	if err != nil {
		return Envelope{}, err
	}
	return ok("project", project), nil
}

func (d *Dispatcher) getProjects(ctx context.Context, c call) (Envelope, error) {
	filter := recall.ProjectFilter{AreaID: deref(c.req.Args.AreaID)}
	projects, err := d.svc.Projects.List(ctx, c.userID, filter)
	if err != nil {
		return Envelope{}, err
	}
	return ok("projects", projects), nil
}

func (d *Dispatcher) getProject(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	project, err := d.svc.Projects.Get(ctx, c.userID, id)
	if err != nil {
		return Envelope{}, err
	}
	return ok("project", project), nil
}

func (d *Dispatcher) updateProject(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	var in recall.ProjectInput
	if err := decode(c, &in); err != nil {
		return Envelope{}, err
	}
	project, err := d.svc.Projects.Update(ctx, c.userID, id, in)
	if err != nil {
		return Envelope{}, err
	}
	return ok("project", project), nil
}

func (d *Dispatcher) moveProject(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	project, err := d.svc.Projects.Move(ctx, c.userID, id, c.req.Args.NewStatus)
	if err != nil {
		return Envelope{}, err
	}
	return ok("project", project), nil
}

func (d *Dispatcher) deleteProject(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	if err := d.svc.Projects.Delete(ctx, c.userID, id); err != nil {
		return Envelope{}, err
	}
	return done("project deleted"), nil
}

// Resources.

func (d *Dispatcher) createResource(ctx context.Context, c call) (Envelope, error) {
	var in recall.ResourceInput
	if err := decode(c, &in); err != nil {
		return Envelope{}, err
	}
	resource, err := d.svc.Resources.Create(ctx, c.userID, in)
	if err != nil {
		return Envelope{}, err
	}
	return ok("resource", resource), nil
}

func (d *Dispatcher) getResources(ctx context.Context, c call) (Envelope, error) {
	filter := recall.ResourceFilter{ProjectID: deref(c.req.Args.ProjectID)}
	resources, err := d.svc.Resources.List(ctx, c.userID, filter)
	if err != nil {
		return Envelope{}, err
	}
	return ok("resources", resources), nil
}

func (d *Dispatcher) getResource(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	resource, err := d.svc.Resources.Get(ctx, c.userID, id)
	if err != nil {
		return Envelope{}, err
	}
	return ok("resource", resource), nil
}

func (d *Dispatcher) updateResource(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	var in recall.ResourceInput
	if err := decode(c, &in); err != nil {
		return Envelope{}, err
	}
	resource, err := d.svc.Resources.Update(ctx, c.userID, id, in)
	if err != nil {
		return Envelope{}, err
	}
	return ok("resource", resource), nil
}

func (d *Dispatcher) deleteResource(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	if err := d.svc.Resources.Delete(ctx, c.userID, id); err != nil {
		return Envelope{}, err
	}
	return done("resource deleted"), nil
}

func (d *Dispatcher) downloadResourceFile(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	if d.dialog == nil {
		return Envelope{}, recall.ErrCancelled
	}
	path, err := d.svc.Resources.ExportFile(ctx, c.userID, id, d.dialog)
	if err != nil {
		return Envelope{}, err
	}
	return ok("path", path), nil
}

// Events.

func (d *Dispatcher) createEvent(ctx context.Context, c call) (Envelope, error) {
	var in recall.EventInput
	if err := decode(c, &in); err != nil {
		return Envelope{}, err
	}
	event, err := d.svc.Events.Create(ctx, c.userID, in)
	if err != nil {
		return Envelope{}, err
	}
	return ok("event", event), nil
}

func (d *Dispatcher) getEvents(ctx context.Context, c call) (Envelope, error) {
	filter := recall.EventFilter{
		StartTime: c.req.Args.StartTime,
		EndTime:   c.req.Args.EndTime,
		ProjectID: c.req.Args.ProjectID,
	}
	events, err := d.svc.Events.List(ctx, c.userID, filter)
	if err != nil {
		return Envelope{}, err
	}
	return ok("events", events), nil
}

func (d *Dispatcher) getEvent(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	event, err := d.svc.Events.Get(ctx, c.userID, id)
	if err != nil {
		return Envelope{}, err
	}
	return ok("event", event), nil
}

func (d *Dispatcher) updateEvent(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	var in recall.EventInput
	if err := decode(c, &in); err != nil {
		return Envelope{}, err
	}
	event, err := d.svc.Events.Update(ctx, c.userID, id, in)
	if err != nil {
		return Envelope{}, err
	}
	return ok("event", event), nil
}

func (d *Dispatcher) deleteEvent(ctx context.Context, c call) (Envelope, error) {
	id, err := requireID(c)
	if err != nil {
		return Envelope{}, err
	}
	if err := d.svc.Events.Delete(ctx, c.userID, id); err != nil {
		return Envelope{}, err
	}
	return done("event deleted"), nil
}
