package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"recall/internal/metrics"
	"recall/internal/recall"
)

// ErrUnknownCommand is returned for a command name with no handler.
var ErrUnknownCommand = errors.New("unknown command")

// Recorder receives one observation per dispatched command.
type Recorder interface {
	ObserveCommand(command, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCommand(string, string, time.Duration) {}

// call is what a handler sees: the request and, for authenticated
// commands, the resolved user.
type call struct {
	req    Request
	userID string
}

type handler struct {
	auth bool
	fn   func(ctx context.Context, c call) (Envelope, error)
}

// Dispatcher routes requests to the recall service and turns recoverable
// failures into {success:false} envelopes. Hard failures are returned as errors.
type Dispatcher struct {
	svc      *recall.Service
	dialog   recall.SaveDialog
	logger   *slog.Logger
	recorder Recorder
	handlers map[string]handler
}

// New builds a dispatcher. dialog serves download_resource_file; recorder may be nil.
func New(svc *recall.Service, dialog recall.SaveDialog, logger *slog.Logger, recorder Recorder) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	d := &Dispatcher{svc: svc, dialog: dialog, logger: logger, recorder: recorder}
	d.handlers = d.routes()
	return d
}

// Commands lists every command name the dispatcher accepts, sorted.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs one request. req.ID is filled with a fresh UUID when empty.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (Envelope, error) {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := d.logger.With("request_id", req.ID, "command", req.Command)

	h, found := d.handlers[req.Command]
	if !found {
		logger.Warn("unknown command")
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}

	env, err := d.run(ctx, h, *req)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		d.recorder.ObserveCommand(req.Command, metrics.OutcomeOK, elapsed)
		logger.Info("command handled", "duration", elapsed)
		return env, nil
	case recall.IsRecoverable(err):
		d.recorder.ObserveCommand(req.Command, metrics.OutcomeRejected, elapsed)
		logger.Info("command rejected", "reason", recall.PublicMessage(err), "duration", elapsed)
		return rejected(err), nil
	default:
		d.recorder.ObserveCommand(req.Command, metrics.OutcomeError, elapsed)
		logger.Error("command failed", "error", err, "duration", elapsed)
		return Envelope{}, fmt.Errorf("%s: %w", req.Command, err)
	}
}

func (d *Dispatcher) run(ctx context.Context, h handler, req Request) (Envelope, error) {
	c := call{req: req}
	if h.auth {
		userID, err := d.svc.Identity.ResolveSession(ctx, req.Token)
		if err != nil {
			return Envelope{}, err
		}
		c.userID = userID
	}
	return h.fn(ctx, c)
}

// Handle decodes a raw request, dispatches it and wraps the outcome for the wire.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Response{ID: uuid.NewString(), Error: fmt.Sprintf("decoding request: %v", err)}
	}
	env, err := d.Dispatch(ctx, &req)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: &env}
}

// decode unmarshals the request payload into v. Malformed payloads are
// validation failures.
func decode(c call, v any) error {
	if len(c.req.Payload) == 0 {
		return fmt.Errorf("%w: missing payload", recall.ErrInvalidInput)
	}
	if err := json.Unmarshal(c.req.Payload, v); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", recall.ErrInvalidInput, err)
	}
	return nil
}
