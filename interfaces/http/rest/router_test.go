package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/config"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/di"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type api struct {
	t   *testing.T
	srv *httptest.Server
	c   *di.Container
}

func newAPI(t *testing.T, mutate func(*config.Config)) *api {
	t.Helper()
	cfg, err := config.NewLoader(t.TempDir(), config.Development).Load()
	require.NoError(t, err)
	cfg.Snapshot.Backend = config.BackendMemory
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "mindmap.json")
	cfg.Icons.ProbeEnabled = false
	cfg.Tracing.Enabled = false
	cfg.Events.Enabled = false
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(cfg)
	}

	c, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(c.Router().Setup())
	t.Cleanup(func() {
		srv.Close()
		cleanup()
	})
	return &api{t: t, srv: srv, c: c}
}

func (a *api) do(method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(a.t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (a *api) createNode(body map[string]interface{}) map[string]interface{} {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/v1/nodes", body)
	require.Equal(a.t, http.StatusCreated, status)
	var node map[string]interface{}
	require.NoError(a.t, json.Unmarshal(env.Data, &node))
	return node
}

func errorCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func TestHealth(t *testing.T) {
	a := newAPI(t, nil)
	status, env := a.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"healthy","nodes":0,"edges":0}`, string(env.Data))
}

func TestNodeLifecycle(t *testing.T) {
	a := newAPI(t, nil)

	node := a.createNode(map[string]interface{}{
		"type":     "person",
		"position": map[string]float64{"x": 10, "y": 20},
		"label":    "Alice Example",
	})
	id := node["id"].(string)
	assert.Equal(t, "Alice Example", node["label"])
	assert.Equal(t, "unknown", node["status"])

	status, env := a.do(http.MethodGet, "/api/v1/nodes/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, env = a.do(http.MethodPatch, "/api/v1/nodes/"+id, map[string]interface{}{"confidence": 80, "status": "confirmed"})
	require.Equal(t, http.StatusOK, status)
	var updated map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.EqualValues(t, 80, updated["confidence"])

	status, env = a.do(http.MethodPatch, "/api/v1/nodes/"+id, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(env))

	status, env = a.do(http.MethodPatch, "/api/v1/nodes/"+id, map[string]interface{}{"confidence": 101})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.EqualValues(t, 100, updated["confidence"])

	status, env = a.do(http.MethodPatch, "/api/v1/nodes/"+id, map[string]interface{}{"type": "spaceship"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(env))
	assert.Equal(t, "person", string(a.c.Graph.Nodes()[0].Type))

	status, _ = a.do(http.MethodDelete, "/api/v1/nodes/"+id, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, env = a.do(http.MethodGet, "/api/v1/nodes/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(env))

	status, _ = a.do(http.MethodDelete, "/api/v1/nodes/"+id, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestCreateNode_Rejects(t *testing.T) {
	a := newAPI(t, nil)

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown type", map[string]interface{}{"type": "spaceship"}},
		{"missing type", map[string]interface{}{"label": "x"}},
		{"unknown field", map[string]interface{}{"type": "note", "colour": "red"}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := a.do(http.MethodPost, "/api/v1/nodes", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "VALIDATION", errorCode(env))
		})
	}
	assert.Equal(t, 0, a.c.Graph.NodeCount())
}

func TestEdges(t *testing.T) {
	a := newAPI(t, nil)
	src := a.createNode(map[string]interface{}{"type": "person"})["id"].(string)
	dst := a.createNode(map[string]interface{}{"type": "domain"})["id"].(string)

	status, env := a.do(http.MethodPost, "/api/v1/edges", map[string]interface{}{"source": src, "target": dst, "label": "owns"})
	require.Equal(t, http.StatusCreated, status)
	var edge map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &edge))
	assert.Equal(t, "solid", edge["style"])
	assert.Equal(t, "owns", edge["label"])
	edgeID := edge["id"].(string)

	status, env = a.do(http.MethodPost, "/api/v1/edges", map[string]interface{}{"source": src, "target": "n999"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_REFERENCE", errorCode(env))

	status, env = a.do(http.MethodPatch, "/api/v1/edges/"+edgeID, map[string]interface{}{"style": "dashed"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &edge))
	assert.Equal(t, "dashed", edge["style"])

	status, _ = a.do(http.MethodDelete, "/api/v1/edges/"+edgeID, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, env = a.do(http.MethodDelete, "/api/v1/edges/"+edgeID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(env))
}

func TestAttachments(t *testing.T) {
	a := newAPI(t, nil)
	id := a.createNode(map[string]interface{}{"type": "person"})["id"].(string)

	status, env := a.do(http.MethodPost, "/api/v1/nodes/"+id+"/attachments",
		map[string]interface{}{"kind": "email", "value": "alice@example.com", "resolve": false})
	require.Equal(t, http.StatusCreated, status)
	var node map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &node))
	assert.Len(t, node["attachments"], 1)

	status, env = a.do(http.MethodPost, "/api/v1/nodes/"+id+"/attachments", map[string]interface{}{"kind": "fax", "value": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(env))

	status, _ = a.do(http.MethodDelete, "/api/v1/nodes/"+id+"/attachments/zero", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = a.do(http.MethodDelete, "/api/v1/nodes/"+id+"/attachments/5", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(env))

	status, _ = a.do(http.MethodDelete, "/api/v1/nodes/"+id+"/attachments/0", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDocument_ImportExport(t *testing.T) {
	a := newAPI(t, nil)
	a.createNode(map[string]interface{}{"type": "note", "label": "keep me"})

	status, env := a.do(http.MethodPut, "/api/v1/document", `{"version":"2","nodes":[],"edges":[]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "FORMAT_ERROR", errorCode(env))
	assert.Equal(t, 1, a.c.Graph.NodeCount())

	status, env = a.do(http.MethodPut, "/api/v1/document", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "FORMAT_ERROR", errorCode(env))

	doc := `{"version":"1","nodes":[
		{"id":"n1","type":"person","label":"A","position":{"x":0,"y":0}},
		{"id":"n2","type":"ip","label":"10.0.0.1","position":{"x":50,"y":0}}],
		"edges":[{"id":"e1","source":"n1","target":"n2","style":"dotted"}]}`
	status, env = a.do(http.MethodPut, "/api/v1/document", doc)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"nodes":2,"edges":1}`, string(env.Data))

	resp, err := http.Get(a.srv.URL + "/api/v1/document")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var exported struct {
		Version string            `json:"version"`
		Nodes   []json.RawMessage `json:"nodes"`
		Edges   []json.RawMessage `json:"edges"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&exported))
	assert.Equal(t, "1", exported.Version)
	assert.Len(t, exported.Nodes, 2)
	assert.Len(t, exported.Edges, 1)
}

func TestViewportAndMinimap(t *testing.T) {
	a := newAPI(t, nil)
	a.createNode(map[string]interface{}{"type": "note", "position": map[string]float64{"x": 500, "y": 300}})

	status, env := a.do(http.MethodPost, "/api/v1/viewport/pan", map[string]float64{"dx": 40, "dy": -10})
	require.Equal(t, http.StatusOK, status)
	var snap struct {
		Viewport struct {
			Scale   float64 `json:"scale"`
			OffsetX float64 `json:"offset_x"`
			OffsetY float64 `json:"offset_y"`
		} `json:"viewport"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, 1.0, snap.Viewport.Scale)

	status, env = a.do(http.MethodPost, "/api/v1/viewport/zoom", map[string]float64{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(env))

	status, _ = a.do(http.MethodPost, "/api/v1/viewport/zoom", map[string]interface{}{"steps": 1, "anchor_x": 100, "anchor_y": 100})
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(http.MethodPost, "/api/v1/viewport/fit", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(http.MethodPost, "/api/v1/viewport/center", map[string]float64{"x": 0, "y": 0})
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(http.MethodGet, "/api/v1/viewport", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodGet, "/api/v1/minimap", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "minimap_bounds")

	status, _ = a.do(http.MethodPost, "/api/v1/minimap/drag", map[string]float64{"x": 20, "y": 20})
	assert.Equal(t, http.StatusOK, status)
}

func TestSelection(t *testing.T) {
	a := newAPI(t, nil)
	id := a.createNode(map[string]interface{}{"type": "person"})["id"].(string)

	status, _ := a.do(http.MethodPut, "/api/v1/selection", map[string]string{"kind": "node", "id": id})
	require.Equal(t, http.StatusOK, status)

	status, env := a.do(http.MethodGet, "/api/v1/selection", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"kind":"node","id":"`+id+`"}`, string(env.Data))

	status, env = a.do(http.MethodPut, "/api/v1/selection", map[string]string{"kind": "node", "id": "n404"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(env))
}

func TestDropAndSearch(t *testing.T) {
	a := newAPI(t, nil)

	status, env := a.do(http.MethodPost, "/api/v1/drop", map[string]interface{}{
		"items":    []string{"https://github.com/someone", "investigate the shell company"},
		"position": map[string]float64{"x": 100, "y": 100},
	})
	require.Equal(t, http.StatusCreated, status)
	var result struct {
		Created []string `json:"created"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Len(t, result.Created, 2)

	status, env = a.do(http.MethodPost, "/api/v1/drop", map[string]interface{}{"items": []string{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(env))

	status, env = a.do(http.MethodGet, "/api/v1/search?q=SHELL", nil)
	require.Equal(t, http.StatusOK, status)
	var found struct {
		MatchCount int `json:"matchCount"`
		TotalCount int `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Equal(t, 1, found.MatchCount)
	assert.Equal(t, 2, found.TotalCount)

	status, env = a.do(http.MethodGet, "/api/v1/search?q=&type=note,url", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Equal(t, 2, found.MatchCount)
	assert.Equal(t, 2, found.TotalCount)

	status, env = a.do(http.MethodGet, "/api/v1/search?type=spaceship", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errorCode(env))
}

func TestEnrich(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tags":["osint"],"status":"suspected","confidence":70}`))
	}))
	defer backend.Close()

	a := newAPI(t, func(cfg *config.Config) {
		cfg.Enrichment.Enabled = true
		cfg.Enrichment.Pivots = false
		cfg.Enrichment.Endpoint = backend.URL
	})
	id := a.createNode(map[string]interface{}{"type": "person", "label": "Bob"})["id"].(string)

	status, env := a.do(http.MethodPost, "/api/v1/nodes/"+id+"/enrich", nil)
	require.Equal(t, http.StatusOK, status, string(env.Data))
	var result struct {
		Outcome    string `json:"outcome"`
		Confidence int    `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "merged", result.Outcome)
	assert.Equal(t, 70, result.Confidence)

	status, env = a.do(http.MethodPost, "/api/v1/nodes/n404/enrich", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = a.do(http.MethodPost, "/api/v1/nodes/"+id+"/enrich?async=true", nil)
	assert.Equal(t, http.StatusAccepted, status)
	a.c.Enrichment.Wait()
}

func TestEnrich_BackendDown(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer backend.Close()

	a := newAPI(t, func(cfg *config.Config) {
		cfg.Enrichment.Enabled = true
		cfg.Enrichment.Endpoint = backend.URL
		cfg.Enrichment.Timeout = time.Second
	})
	id := a.createNode(map[string]interface{}{"type": "person", "label": "Eve"})["id"].(string)

	status, env := a.do(http.MethodPost, "/api/v1/nodes/"+id+"/enrich", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "ENRICHMENT_UNAVAILABLE", errorCode(env))

	status, env = a.do(http.MethodGet, "/api/v1/notifications", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "enrichment")
}

func TestMetricsEndpoint(t *testing.T) {
	a := newAPI(t, nil)
	a.do(http.MethodGet, "/health", nil)
	a.createNode(map[string]interface{}{"type": "note"})

	resp, err := http.Get(a.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `route="/health"`)
	assert.Contains(t, string(body), `osint_mindmap_commands_total{command="CreateNodeCommand",outcome="ok"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	a := newAPI(t, func(cfg *config.Config) { cfg.Metrics.Enabled = false })
	resp, err := http.Get(a.srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
