package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/birun/console/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", Token: "secret"})
	require.NoError(t, err)

	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	require.ErrorIs(t, err, ErrMissingBaseURL)

	_, err = NewClient(Config{BaseURL: "ftp://example.com"})
	require.Error(t, err)
}

func TestClient_URLs(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "https://ops.example.com/console/"})
	require.NoError(t, err)

	assert.Equal(t, "https://ops.example.com/console/api/workflows/", c.URL("/api/workflows/", nil))
	assert.Equal(t, "wss://ops.example.com/console/api/ws/terminal/4", c.StreamURL("/api/ws/terminal/4"))
	assert.Empty(t, c.AuthHeader().Get("Authorization"))
}

func TestClient_SendsAuthAndRequestID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "/api/health/ping", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]string{"status": "ok"})
	})

	require.NoError(t, c.Ping(t.Context()))
}

func TestClient_WorkflowCRUD(t *testing.T) {
	var saved map[string]any

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/workflows/":
			writeJSON(t, w, http.StatusOK, map[string]any{"workflows": []map[string]any{
				{"id": 1, "name": "Deploy", "trigger_type": "schedule", "runs_24h": 3, "last_result": "completed",
					"last_run_at": "2024-05-01T10:00:00", "last_run_id": 12, "next_run_at": nil},
			}})
		case r.Method == http.MethodPost && r.URL.Path == "/api/workflows/":
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"name":"New Workflow","description":"","trigger_type":"user","schedule_cron":"",
				"schedule_timezone":"UTC","webhook_url":"","webhook_method":"","webhook_payload":"","max_retries":0,
				"retry_interval_seconds":0,"group_failure_policy":"any","nodes":[],"edges":[]}`, string(body))
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 42})
		case r.Method == http.MethodGet && r.URL.Path == "/api/workflows/42":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"id": 42, "name": "Deploy", "trigger_type": "user", "group_failure_policy": nil,
				"nodes": []map[string]any{{"id": 5, "key": "N1", "script_id": 3, "target_type": "server", "target_id": 9,
					"parameters": `{"env":"prod"}`, "position": `{"x":40,"y":40}`}},
				"edges": []map[string]any{{"id": 7, "source": "N1", "target": "N2", "condition": "on_failure"}},
			})
		case r.Method == http.MethodPut && r.URL.Path == "/api/workflows/42":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&saved))
			writeJSON(t, w, http.StatusOK, map[string]any{"updated": true})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/workflows/42":
			writeJSON(t, w, http.StatusOK, map[string]any{"deleted": true})
		default:
			http.NotFound(w, r)
		}
	})

	ctx := t.Context()

	list, err := c.ListWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Runs24h)
	require.NotNil(t, list[0].LastRunID)
	assert.Equal(t, int64(12), *list[0].LastRunID)
	assert.Nil(t, list[0].NextRunAt)

	id, err := c.CreateWorkflow(ctx, models.NewWorkflow("", "").Payload())
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	wf, err := c.GetWorkflow(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.GroupFailureAny, wf.GroupFailurePolicy)
	require.Len(t, wf.Nodes, 1)
	assert.Equal(t, int64(5), wf.Nodes[0].ID)
	assert.Equal(t, &models.Position{X: 40, Y: 40}, wf.Nodes[0].Position)
	assert.Equal(t, map[string]any{"env": "prod"}, wf.Nodes[0].Parameters)
	assert.Equal(t, models.OnFailure, wf.Edges[0].Condition)

	require.NoError(t, c.SaveWorkflow(ctx, 42, wf.Payload()))
	assert.Equal(t, "Deploy", saved["name"])
	require.Len(t, saved["nodes"], 1)
	savedNode := saved["nodes"].([]any)[0].(map[string]any)
	assert.JSONEq(t, `{"env":"prod"}`, savedNode["parameters"].(string))
	assert.JSONEq(t, `{"x":40,"y":40}`, savedNode["position"].(string))

	require.NoError(t, c.DeleteWorkflow(ctx, 42))

	_, err = c.GetWorkflow(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ErrorDetailVerbatim(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"fastapi detail", 400, `{"detail":"Unconnected nodes: N3"}`, "Unconnected nodes: N3"},
		{"problem document", 409, `{"type":"conflict","title":"Conflict","status":409,"detail":"Run already active"}`, "Run already active"},
		{"validation list", 422, `{"detail":[{"loc":["body","name"],"msg":"field required","type":"value_error.missing"}]}`, "name: field required"},
		{"plain text", 502, `upstream unavailable`, "upstream unavailable"},
		{"html page", 500, `<html><body>oops</body></html>`, ""},
		{"empty", 500, ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.StartRun(t.Context(), 1)
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.ServerMessage())
			require.NotNil(t, apiErr.Problem)
			assert.Equal(t, tt.status, apiErr.Problem.Status)
			assert.Equal(t, tt.status, apiErr.HTTPStatus())
			assert.NotEmpty(t, apiErr.RequestIDValue())

			if tt.want == "" {
				assert.Equal(t, MsgRunFailed, Message(err, MsgRunFailed))
			} else {
				assert.Equal(t, tt.want, Message(err, MsgRunFailed))
			}
		})
	}
}

func TestDecodeProblem_KeepsTitleAndType(t *testing.T) {
	problem := decodeProblem(409, []byte(`{"type":"conflict","title":"Conflict","detail":"Run already active"}`))

	assert.Equal(t, 409, problem.Status)
	assert.Equal(t, "Conflict", problem.Title)
	assert.Equal(t, "conflict", problem.Type)
	assert.Equal(t, "Run already active", problem.Detail)
}

func TestError_Is(t *testing.T) {
	assert.ErrorIs(t, &Error{StatusCode: 404}, ErrNotFound)
	assert.ErrorIs(t, &Error{StatusCode: 401}, ErrUnauthorized)
	assert.ErrorIs(t, &Error{StatusCode: 400}, ErrBadRequest)
	assert.ErrorIs(t, &Error{StatusCode: 503}, ErrServer)
	assert.NotErrorIs(t, &Error{StatusCode: 404}, ErrBadRequest)
}

func TestMessage_NonAPIError(t *testing.T) {
	assert.Equal(t, MsgSaveFailed, Message(errors.New("dial tcp: refused"), MsgSaveFailed))
}

func TestClient_Runs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/workflows/3/run":
			assert.Equal(t, http.MethodPost, r.Method)
			writeJSON(t, w, http.StatusOK, map[string]any{"run_id": 77, "status": "running"})
		case "/api/workflows/runs/77":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"id": 77, "workflow_id": 3, "status": "failed", "started_at": "2024-05-01T10:00:00",
				"nodes": []map[string]any{{"id": 1, "node_id": 5, "status": "failed", "output": "", "error": "exit 2"}},
			})
		case "/api/workflows/3/runs":
			writeJSON(t, w, http.StatusOK, map[string]any{"runs": []map[string]any{
				{"id": 77, "status": "failed"}, {"id": 76, "status": "completed"},
			}})
		default:
			http.NotFound(w, r)
		}
	})

	started, err := c.StartRun(t.Context(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(77), started.RunID)
	assert.Equal(t, models.RunRunning, started.Status)

	run, err := c.GetRun(t.Context(), 77)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, run.Status)
	require.Len(t, run.Nodes, 1)
	assert.Equal(t, "exit 2", run.Nodes[0].Error)

	runs, err := c.ListRuns(t.Context(), 3)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestClient_PreviewCron(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/schedules/cron/preview", r.URL.Path)
		assert.Equal(t, "*/5 * * * *", q.Get("expr"))
		assert.Equal(t, "10", q.Get("count"))
		assert.Equal(t, "Europe/Lisbon", q.Get("tz"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"expr": q.Get("expr"), "tz": q.Get("tz"), "now": "2024-05-01T10:02:00+01:00",
			"next": []string{"2024-05-01T10:05:00+01:00", "2024-05-01T10:10:00+01:00"},
		})
	})

	preview, err := c.PreviewCron(t.Context(), "*/5 * * * *", "Europe/Lisbon", 25)
	require.NoError(t, err)
	require.Len(t, preview.Next, 2)
	assert.Equal(t, 10, preview.Next[1].Minute())
}
