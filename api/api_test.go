package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/cmdflow"
	"github.com/meikuraledutech/cmdflow/api"
	"github.com/meikuraledutech/cmdflow/memory"
	"github.com/meikuraledutech/cmdflow/storetest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func createCommand(t *testing.T, app *fiber.App, serverID, name string) string {
	t.Helper()
	resp, body := do(t, app, "POST", "/servers/"+serverID+"/commands", storetest.NewPayload(t, serverID, name))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created struct{ ID string }
	require.NoError(t, json.Unmarshal(body, &created))
	return created.ID
}

func TestCommandLifecycle(t *testing.T) {
	app := api.New(memory.NewStore())

	id := createCommand(t, app, "s1", "ping")

	resp, body := do(t, app, "GET", "/servers/s1/commands/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p, err := cmdflow.DecodePayload(body)
	require.NoError(t, err)
	assert.Equal(t, "ping", p.Name)
	assert.Equal(t, "s1", p.ServerID)

	update := storetest.NewPayload(t, "s1", "pong")
	resp, _ = do(t, app, "PUT", "/servers/s1/commands/"+id, update)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, app, "GET", "/servers/s1/commands", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []cmdflow.Summary
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "pong", list[0].Name)

	resp, _ = do(t, app, "DELETE", "/servers/s1/commands/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, app, "GET", "/servers/s1/commands/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreate_Rejections(t *testing.T) {
	app := api.New(memory.NewStore())
	createCommand(t, app, "s1", "taken")

	resp, _ := do(t, app, "POST", "/servers/s1/commands", storetest.NewPayload(t, "s1", "taken"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, app, "POST", "/servers/s1/commands", "not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, "POST", "/servers/s1/commands", "{}")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	twoTriggers := `{"nodes": [
		{"id": "a", "kind": "trigger", "data": {"name": "ban", "description": "Ban"}},
		{"id": "b", "kind": "trigger", "data": {"name": "kick", "description": "Kick"}}
	]}`
	resp, _ = do(t, app, "POST", "/servers/s1/commands", twoTriggers)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	noTrigger := `{"nodes": [{"id": "a", "kind": "action", "data": {"actionKind": "send_message"}}]}`
	resp, _ = do(t, app, "POST", "/servers/s1/commands", noTrigger)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, "POST", "/servers/s1/commands", storetest.NewPayload(t, "s2", "elsewhere"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, app, "POST", "/servers/s1/commands", storetest.NewPayload(t, "s1", "Ban User"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var verr cmdflow.ValidationError
	require.NoError(t, json.Unmarshal(body, &verr))
	require.NotEmpty(t, verr.Problems)
	assert.Equal(t, "name", verr.Problems[0].Field)
}

func TestCreate_RepairsPayload(t *testing.T) {
	store := memory.NewStore()
	app := api.New(store)

	p := storetest.NewPayload(t, "", "repair")
	p.Edges = append(p.Edges, cmdflow.Edge{FromNodeID: p.Nodes[0].ID, ToNodeID: "ghost", FromSocket: "output", ToSocket: "input"})
	resp, body := do(t, app, "POST", "/servers/s1/commands", p)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	list, err := store.List(t.Context(), "s1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	stored, err := store.Get(t.Context(), "s1", list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "s1", stored.ServerID)
	assert.Len(t, stored.Edges, len(p.Edges)-1)
}

func TestCreate_TriggerIDShadowed(t *testing.T) {
	store := memory.NewStore()
	app := api.New(store)

	body := `{"nodes": [
		{"id": "x", "kind": "action", "data": {"actionKind": "send_message"}},
		{"id": "x", "kind": "trigger", "data": {"name": "ping", "description": "Ping"}},
		{"id": "o", "kind": "option", "data": {"name": "who", "description": "Who", "type": "user"}}
	]}`
	var resp *http.Response
	require.NotPanics(t, func() {
		resp, _ = do(t, app, "POST", "/servers/s1/commands", body)
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	list, err := store.List(t.Context(), "s1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ping", list[0].Name)

	stored, err := store.Get(t.Context(), "s1", list[0].ID)
	require.NoError(t, err)
	require.Len(t, stored.Nodes, 2)
	assert.Equal(t, cmdflow.KindTrigger, stored.Nodes[0].Kind)
	assert.Equal(t, "x", stored.Nodes[0].ID)
}

func TestUpdate_Errors(t *testing.T) {
	app := api.New(memory.NewStore())
	createCommand(t, app, "s1", "first")
	id := createCommand(t, app, "s1", "second")

	resp, _ := do(t, app, "PUT", "/servers/s1/commands/"+id, storetest.NewPayload(t, "s1", "first"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, app, "PUT", "/servers/s1/commands/missing", storetest.NewPayload(t, "s1", "third"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, "PUT", "/servers/s2/commands/"+id, storetest.NewPayload(t, "s2", "third"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "commands are scoped to their server")
}

func TestCatalog(t *testing.T) {
	app := api.New(memory.NewStore())

	resp, body := do(t, app, "GET", "/catalog?category=conditions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var templates []struct {
		ID   string
		Kind string
		Data map[string]any
	}
	require.NoError(t, json.Unmarshal(body, &templates))
	require.Len(t, templates, 2)
	assert.Equal(t, "condition.if_else", templates[1].ID)
	assert.Equal(t, true, templates[1].Data["hasElseBranch"])

	_, body = do(t, app, "GET", "/catalog", nil)
	require.NoError(t, json.Unmarshal(body, &templates))
	assert.Len(t, templates, 17)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	app := api.New(memory.NewStore(), api.WithRegistry(reg))

	do(t, app, "GET", "/servers/s1/commands", nil)
	do(t, app, "GET", "/servers/s1/commands/nope", nil)

	series, err := testutil.GatherAndCount(reg, "cmdflow_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)

	resp, body := do(t, app, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `cmdflow_http_requests_total{code="404",method="GET",route="/servers/:serverId/commands/:id"} 1`)
}
