package command_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recall/internal/command"
	"recall/internal/metrics"
	"recall/internal/model"
	"recall/internal/recall"
	"recall/internal/testutil"
)

type recordedCall struct {
	command, outcome string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) ObserveCommand(cmd, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{cmd, outcome})
}

func assertGolden(t *testing.T, name string, env command.Envelope) {
	t.Helper()
	got, err := json.Marshal(env)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestDispatcher_Flow(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	rec := &fakeRecorder{}
	d := command.New(env.Service, nil, nil, rec)
	ctx := t.Context()

	dispatch := func(req command.Request) command.Envelope {
		t.Helper()
		out, err := d.Dispatch(ctx, &req)
		require.NoError(t, err)
		return out
	}

	signup := dispatch(command.Request{Command: "signup", Payload: payload(t, map[string]string{
		"email": "ada@example.com", "name": "Ada", "password": "pw-123456",
	})})
	assertGolden(t, "signup", signup)
	token := signup.Fields["token"].(string)

	area := dispatch(command.Request{Command: "create_area", Token: token, Payload: payload(t, map[string]any{"name": "Garden"})})
	assertGolden(t, "create_area", area)

	project := dispatch(command.Request{Command: "create_project", Token: token, Payload: payload(t, map[string]any{
		"area_id": "T0000003", "title": "Beds", "status": "Planned", "priority": "High",
	})})
	assertGolden(t, "create_project", project)

	created := dispatch(command.Request{Command: "create_event", Token: token, Payload: payload(t, map[string]any{
		"project_id": "T0000004", "title": "Sow", "start_time": 1000, "end_time": 2000,
	})})
	require.True(t, created.Success, created.Message)

	start := int64(500)
	events := dispatch(command.Request{Command: "get_events", Token: token, Args: command.Args{StartTime: &start}})
	assertGolden(t, "get_events", events)

	badRange := dispatch(command.Request{Command: "create_event", Token: token, Payload: payload(t, map[string]any{
		"title": "Zero length", "start_time": 1000, "end_time": 1000,
	})})
	assertGolden(t, "create_event_bad_range", badRange)

	assertGolden(t, "validate_token_unknown", dispatch(command.Request{Command: "validate_token", Token: "bogus"}))
	assertGolden(t, "delete_session", dispatch(command.Request{Command: "delete_session", Token: token}))
	assertGolden(t, "revoked_token", dispatch(command.Request{Command: "get_areas", Token: token}))

	require.NotEmpty(t, rec.calls)
	assert.Equal(t, recordedCall{"signup", metrics.OutcomeOK}, rec.calls[0])
	assert.Contains(t, rec.calls, recordedCall{"create_event", metrics.OutcomeRejected})
}

func TestDispatcher_Signin(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	env.SignUp(t, "ada@example.com")
	d := command.New(env.Service, nil, nil, nil)

	good := command.Request{Command: "signin", Payload: payload(t, map[string]string{
		"email": "ada@example.com", "password": "secret-password",
	})}
	out, err := d.Dispatch(t.Context(), &good)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.Fields["token"])

	for _, body := range []map[string]string{
		{"email": "ada@example.com", "password": "nope"},
		{"email": "nobody@example.com", "password": "secret-password"},
	} {
		req := command.Request{Command: "signin", Payload: payload(t, body)}
		out, err := d.Dispatch(t.Context(), &req)
		require.NoError(t, err)
		assert.False(t, out.Success)
		assert.Equal(t, "invalid email or password", out.Message)
		assert.Nil(t, out.Fields)
	}
}

func TestDispatcher_CrossTenant(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	ctx := t.Context()
	alice, _ := env.SignUp(t, "alice@example.com")
	_, bobToken := env.SignUp(t, "bob@example.com")
	d := command.New(env.Service, command.DirectoryDialog{Dir: t.TempDir()}, nil, nil)

	area, err := env.Service.Areas.Create(ctx, alice, recall.AreaInput{Name: "Private"})
	require.NoError(t, err)

	for _, name := range []string{"get_area_by_id", "update_area", "delete_area"} {
		t.Run(name, func(t *testing.T) {
			req := command.Request{
				Command: name,
				Token:   bobToken,
				Args:    command.Args{ID: area.ID},
				Payload: payload(t, map[string]any{"name": "Stolen"}),
			}
			out, err := d.Dispatch(ctx, &req)
			require.NoError(t, err)
			assert.False(t, out.Success)
			assert.Equal(t, "not found", out.Message)
		})
	}

	still, err := env.Service.Areas.Get(ctx, alice, area.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", still.Name)
}

func TestDispatcher_Validation(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	_, token := env.SignUp(t, "ada@example.com")
	d := command.New(env.Service, nil, nil, nil)

	tests := []struct {
		name    string
		req     command.Request
		message string
	}{
		{
			name:    "missing payload",
			req:     command.Request{Command: "create_area", Token: token},
			message: "invalid input",
		},
		{
			name:    "malformed payload",
			req:     command.Request{Command: "create_area", Token: token, Payload: json.RawMessage(`{"name":`)},
			message: "invalid input",
		},
		{
			name:    "blank name",
			req:     command.Request{Command: "create_area", Token: token, Payload: payload(t, map[string]any{"name": "  "})},
			message: "name cannot be empty",
		},
		{
			name:    "missing id",
			req:     command.Request{Command: "get_project_by_id", Token: token},
			message: "id cannot be empty",
		},
		{
			name:    "bad status",
			req:     command.Request{Command: "move_project", Token: token, Args: command.Args{ID: "ANYID001", NewStatus: "Later"}},
			message: "status invalid value",
		},
		{
			name:    "no token",
			req:     command.Request{Command: "get_areas"},
			message: "invalid or expired token",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := d.Dispatch(t.Context(), &tt.req)
			require.NoError(t, err)
			assert.False(t, out.Success)
			assert.Equal(t, tt.message, out.Message)
		})
	}
}

func TestDispatcher_HardFailures(t *testing.T) {
	t.Run("unknown command", func(t *testing.T) {
		env := testutil.NewEnv(t, nil)
		d := command.New(env.Service, nil, nil, nil)
		_, err := d.Dispatch(t.Context(), &command.Request{Command: "drop_tables"})
		assert.ErrorIs(t, err, command.ErrUnknownCommand)
	})

	t.Run("identifier exhaustion", func(t *testing.T) {
		ids := testutil.NewScriptedIDGenerator("USER0001", "SESS0001", "AREA0001", "AREA0001", "AREA0001", "AREA0001")
		env := testutil.NewEnv(t, ids)
		_, token := env.SignUp(t, "ada@example.com")
		rec := &fakeRecorder{}
		d := command.New(env.Service, nil, nil, rec)

		first := command.Request{Command: "create_area", Token: token, Payload: payload(t, map[string]any{"name": "One"})}
		out, err := d.Dispatch(t.Context(), &first)
		require.NoError(t, err)
		require.True(t, out.Success)

		second := command.Request{Command: "create_area", Token: token, Payload: payload(t, map[string]any{"name": "Two"})}
		_, err = d.Dispatch(t.Context(), &second)
		assert.ErrorIs(t, err, recall.ErrIdentifierExhausted)
		assert.Equal(t, recordedCall{"create_area", metrics.OutcomeError}, rec.calls[len(rec.calls)-1])
	})
}

func TestDispatcher_DownloadResourceFile(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	userID, token := env.SignUp(t, "ada@example.com")
	ctx := t.Context()
	dir := t.TempDir()
	d := command.New(env.Service, command.DirectoryDialog{Dir: dir}, nil, nil)

	area, err := env.Service.Areas.Create(ctx, userID, recall.AreaInput{Name: "Work"})
	require.NoError(t, err)
	project, err := env.Service.Projects.Create(ctx, userID, recall.ProjectInput{AreaID: area.ID, Title: "Report", Status: "Inbox"})
	require.NoError(t, err)

	created := command.Request{Command: "create_resource", Token: token, Payload: payload(t, map[string]any{
		"project_id": project.ID, "name": "notes", "file_data": "aGk=", "file_type": "text/plain", "file_size": 2,
	})}
	out, err := d.Dispatch(ctx, &created)
	require.NoError(t, err)
	require.True(t, out.Success, out.Message)
	resourceID := out.Fields["resource"].(*model.Resource).ID

	for i, want := range []string{"notes.plain", "notes-1.plain"} {
		req := command.Request{Command: "download_resource_file", Token: token, Args: command.Args{ID: resourceID}}
		out, err := d.Dispatch(ctx, &req)
		require.NoError(t, err, "download %d", i)
		require.True(t, out.Success, out.Message)
		assert.Equal(t, filepath.Join(dir, want), out.Fields["path"])
	}

	data, err := os.ReadFile(filepath.Join(dir, "notes.plain"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestDispatcher_Handle(t *testing.T) {
	env := testutil.NewEnv(t, nil)
	d := command.New(env.Service, nil, nil, nil)

	resp := d.Handle(t.Context(), []byte(`{"id":"req-1","command":"validate_token","token":"x"}`))
	assert.Equal(t, "req-1", resp.ID)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.Success)

	resp = d.Handle(t.Context(), []byte(`{"command":"nope"}`))
	assert.NotEmpty(t, resp.ID, "missing ids are generated")
	assert.Nil(t, resp.Result)
	assert.Contains(t, resp.Error, "unknown command")

	resp = d.Handle(t.Context(), []byte(`not json`))
	assert.Contains(t, resp.Error, "decoding request")
}

func TestDispatcher_Commands(t *testing.T) {
	d := command.New(testutil.NewEnv(t, nil).Service, nil, nil, nil)
	names := d.Commands()
	assert.Len(t, names, 28)
	assert.Contains(t, names, "change_password_with_token")
	assert.Contains(t, names, "download_resource_file")
	assert.IsIncreasing(t, names)
}

func TestEnvelope_JSON(t *testing.T) {
	in := command.Envelope{Success: true, Fields: map[string]any{"token": "abc", "user": nil}}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"token":"abc","user":null}`, string(raw))

	var out command.Envelope
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.Success)
	assert.Empty(t, out.Message)
	assert.Equal(t, map[string]any{"token": "abc", "user": nil}, out.Fields)
}
