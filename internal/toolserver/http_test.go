package toolserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_HealthAndTools(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Tools, 10)
	assert.Equal(t, "kit_status", list.Tools[0].Name)
}

func TestHandler_Call(t *testing.T) {
	s, dir := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantError  bool
	}{
		{"no body", "/tools/kit_list_variants", "", http.StatusOK, false},
		{"status", "/tools/kit_status", `{"projectPath":` + quote(dir) + `}`, http.StatusOK, false},
		{"failure result", "/tools/kit_add_plugin", `{"projectPath":` + quote(dir) + `,"pluginId":"nope","skipGitCheck":true}`, http.StatusOK, true},
		{"unknown tool", "/tools/kit_nope", `{}`, http.StatusNotFound, false},
		{"missing argument", "/tools/kit_status", `{}`, http.StatusBadRequest, false},
		{"not json", "/tools/kit_status", `projectPath=/x`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.wantStatus != http.StatusOK {
				return
			}
			var res Result
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, tt.wantError, res.IsError, res.Text())
		})
	}
}

func TestHandler_Metrics(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	do(t, h, http.MethodPost, "/tools/kit_list_variants", "")
	do(t, h, http.MethodPost, "/tools/kit_list_variants", "")
	do(t, h, http.MethodPost, "/tools/kit_project_pull", `{"projectPath":"/tmp/x"}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `kit_tool_calls_total{outcome="ok",tool="kit_list_variants"} 2`)
	assert.Contains(t, body, `kit_tool_calls_total{outcome="error",tool="kit_project_pull"} 1`)
	assert.Contains(t, body, `kit_tool_call_duration_seconds_count{tool="kit_list_variants"} 2`)
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
