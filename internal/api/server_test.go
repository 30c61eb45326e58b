package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/focusdeck/internal/dashboard"
	"github.com/p-blackswan/focusdeck/internal/health"
	"github.com/p-blackswan/focusdeck/internal/metrics"
	"github.com/p-blackswan/focusdeck/pkg/kvstore"
)

func testSeeds() []dashboard.SeedProject {
	return []dashboard.SeedProject{
		{ID: "alpha", Name: "Alpha", Goal: "Ship alpha", Category: dashboard.CategoryCommercial, Milestones: []string{"First cut"}},
		{ID: "bravo", Name: "Bravo", Goal: "Keep bravo alive", Category: dashboard.CategorySacred, Milestones: []string{"First cut"}},
	}
}

func testServer(t *testing.T, auth AuthConfig) *Server {
	t.Helper()
	svc, err := dashboard.New(context.Background(), kvstore.NewMemoryStore(), testSeeds(), zerolog.Nop())
	require.NoError(t, err)

	checker := health.NewChecker(zerolog.Nop())
	return NewServer(ServerConfig{AuthConfig: auth}, svc, checker, metrics.New(), zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func decodeProblem(t *testing.T, raw []byte) ProblemDetail {
	t.Helper()
	var p ProblemDetail
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

func TestProbes(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "api-key", APIKey: "k"})

	resp, _ := doRequest(t, s, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, s, "GET", "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, s, "GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthAPIKey(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "api-key", APIKey: "sekrit"})

	resp, raw := doRequest(t, s, "GET", "/api/v1/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing_auth", decodeProblem(t, raw).Type)

	resp, _ = doRequest(t, s, "GET", "/api/v1/projects", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, s, "GET", "/api/v1/projects", "", map[string]string{"Authorization": "sekrit"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, s, "GET", "/api/v1/projects", "", map[string]string{"Authorization": "Bearer sekrit"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func signToken(t *testing.T, secret, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthJWT(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "jwt", JWTSecret: "topsecret"})

	editor := map[string]string{"Authorization": "Bearer " + signToken(t, "topsecret", "editor")}
	readonly := map[string]string{"Authorization": "Bearer " + signToken(t, "topsecret", "viewer")}
	forged := map[string]string{"Authorization": "Bearer " + signToken(t, "othersecret", "admin")}

	resp, _ := doRequest(t, s, "GET", "/api/v1/projects", "", forged)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, s, "GET", "/api/v1/projects", "", readonly)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Unknown role claim falls back to readonly, which cannot write.
	resp, raw := doRequest(t, s, "POST", "/api/v1/projects/alpha/tasks", `{"text":"x"}`, readonly)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "insufficient_role", decodeProblem(t, raw).Type)

	resp, _ = doRequest(t, s, "POST", "/api/v1/projects/alpha/tasks", `{"text":"x"}`, editor)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Import needs admin; editor is not enough.
	resp, _ = doRequest(t, s, "POST", "/api/v1/import", `{"tasks":[],"logs":[]}`, editor)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestListProjects(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	resp, raw := doRequest(t, s, "GET", "/api/v1/projects", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var views []ProjectView
	require.NoError(t, json.Unmarshal(raw, &views))
	require.Len(t, views, 2)
	assert.Equal(t, "alpha", views[0].ID)
	assert.Equal(t, dashboard.StagePlanning, views[0].State.Stage)
	assert.True(t, views[0].Lock.Locked)
}

func TestGetProject_NotFound(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	resp, raw := doRequest(t, s, "GET", "/api/v1/projects/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeProblem(t, raw).Type)
}

func TestStageChangeGuards(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	// Confidence unset blocks building.
	resp, raw := doRequest(t, s, "POST", "/api/v1/projects/alpha/stage", `{"stage":"building"}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "confidence_unset", decodeProblem(t, raw).Type)

	// Low confidence blocks too.
	resp, _ = doRequest(t, s, "PATCH", "/api/v1/projects/alpha/ledger", `{"confidence":2,"confidence_set":true}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, raw = doRequest(t, s, "POST", "/api/v1/projects/alpha/stage", `{"stage":"building"}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "confidence_too_low", decodeProblem(t, raw).Type)

	// Confidence 3 unlocks building.
	resp, _ = doRequest(t, s, "PATCH", "/api/v1/projects/alpha/ledger", `{"confidence":3,"confidence_set":true}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, raw = doRequest(t, s, "POST", "/api/v1/projects/alpha/stage", `{"stage":"building"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view ProjectView
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.Equal(t, dashboard.StageBuilding, view.State.Stage)

	// A second builder is rejected and the conflict names the first.
	resp, _ = doRequest(t, s, "PATCH", "/api/v1/projects/bravo/ledger", `{"confidence":5,"confidence_set":true}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, raw = doRequest(t, s, "POST", "/api/v1/projects/bravo/stage", `{"stage":"building"}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	prob := decodeProblem(t, raw)
	assert.Equal(t, "building_conflict", prob.Type)
	assert.Equal(t, []string{"Alpha"}, prob.Conflicts)

	// Unknown stage is a plain bad request.
	resp, raw = doRequest(t, s, "POST", "/api/v1/projects/alpha/stage", `{"stage":"launching"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_stage", decodeProblem(t, raw).Type)
}

func TestGetLock(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	resp, raw := doRequest(t, s, "GET", "/api/v1/projects/alpha/lock", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lock dashboard.ExecutionLock
	require.NoError(t, json.Unmarshal(raw, &lock))
	require.True(t, lock.Locked)
	require.Len(t, lock.Reasons, 1)
	assert.Equal(t, dashboard.LockConfidenceUnset, lock.Reasons[0].Code)
}

func TestLedgerValidation(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	resp, raw := doRequest(t, s, "PATCH", "/api/v1/projects/alpha/ledger", `{"confidence":9,"confidence_set":true}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid_value", decodeProblem(t, raw).Type)

	resp, raw = doRequest(t, s, "PATCH", "/api/v1/projects/alpha/ledger", `{"fields":{"favorite_color":"red"}}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid_value", decodeProblem(t, raw).Type)

	resp, raw = doRequest(t, s, "PATCH", "/api/v1/projects/alpha/ledger", `{"fields":{"mission":"own the niche"}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var led dashboard.ProjectLedger
	require.NoError(t, json.Unmarshal(raw, &led))
	assert.Equal(t, "own the niche", led.Mission)
}

func TestLedgerRejectsMixedPayloadWhole(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	body := `{"fields":{"mission":"own the niche","favorite_color":"red"}}`
	resp, raw := doRequest(t, s, "PATCH", "/api/v1/projects/alpha/ledger", body, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid_value", decodeProblem(t, raw).Type)

	// The valid field must not land when the payload is rejected.
	resp, raw = doRequest(t, s, "GET", "/api/v1/projects/alpha", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v ProjectView
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Empty(t, v.Ledger.Mission)

	body = `{"fields":{"mission":"own the niche"},"confidence":9,"confidence_set":true}`
	resp, _ = doRequest(t, s, "PATCH", "/api/v1/projects/alpha/ledger", body, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, raw = doRequest(t, s, "GET", "/api/v1/projects/alpha", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Empty(t, v.Ledger.Mission)
}

func TestStageMetricsCountGuardRefusalsOnly(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	// Unknown project is a 404, not a rejected transition.
	resp, _ := doRequest(t, s, "POST", "/api/v1/projects/ghost/stage", `{"stage":"building"}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, raw := doRequest(t, s, "GET", "/metrics", "", nil)
	assert.NotContains(t, string(raw), `focusdeck_stage_transitions_total{result="rejected"`)

	// A confidence guard refusal does count.
	resp, _ = doRequest(t, s, "POST", "/api/v1/projects/alpha/stage", `{"stage":"building"}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, raw = doRequest(t, s, "GET", "/metrics", "", nil)
	assert.Contains(t, string(raw), `focusdeck_stage_transitions_total{result="rejected",stage="building"} 1`)
}

func TestBriefLocked(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	resp, _ := doRequest(t, s, "PUT", "/api/v1/settings", `{"selected_project":"alpha","energy":"medium"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := doRequest(t, s, "POST", "/api/v1/brief", "", nil)
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	var body struct {
		Type string                  `json:"type"`
		Lock dashboard.ExecutionLock `json:"lock"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "execution_locked", body.Type)
	require.NotEmpty(t, body.Lock.Reasons)
	assert.Equal(t, dashboard.LockConfidenceUnset, body.Lock.Reasons[0].Code)
}

func TestImportEndpoint(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	resp, raw := doRequest(t, s, "POST", "/api/v1/import", `{"tasks":[],"logs":"nope"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_import_shape", decodeProblem(t, raw).Type)

	resp, _ = doRequest(t, s, "POST", "/api/v1/import", `{"tasks":[],"logs":[]}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExportRoundTripOverHTTP(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	resp, _ := doRequest(t, s, "POST", "/api/v1/projects/alpha/tasks", `{"text":"wire the export"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := doRequest(t, s, "GET", "/api/v1/export", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, s, "POST", "/api/v1/import", string(raw), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = doRequest(t, s, "GET", "/api/v1/projects/alpha/tasks", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tasks []dashboard.Task
	require.NoError(t, json.Unmarshal(raw, &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "wire the export", tasks[0].Text)
}

func TestTaskEndpoints(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	resp, raw := doRequest(t, s, "POST", "/api/v1/projects/alpha/tasks", `{"text":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_text", decodeProblem(t, raw).Type)

	resp, raw = doRequest(t, s, "POST", "/api/v1/projects/alpha/tasks", `{"text":"write docs"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var task dashboard.Task
	require.NoError(t, json.Unmarshal(raw, &task))

	resp, raw = doRequest(t, s, "PATCH", "/api/v1/tasks/"+task.ID, `{"completed":true}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &task))
	assert.True(t, task.Completed)

	resp, _ = doRequest(t, s, "DELETE", "/api/v1/tasks/"+task.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doRequest(t, s, "DELETE", "/api/v1/tasks/"+task.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = doRequest(t, s, "POST", "/api/v1/tasks/focus-prune", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var prune FocusPruneResponse
	require.NoError(t, json.Unmarshal(raw, &prune))
	assert.Zero(t, prune.Removed)
}

func TestLogEndpoints(t *testing.T) {
	s := testServer(t, AuthConfig{Mode: "none"})

	resp, _ := doRequest(t, s, "POST", "/api/v1/projects/alpha/logs", `{"energy":"high","text":"good session"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := doRequest(t, s, "POST", "/api/v1/projects/alpha/logs", `{"energy":"turbo","text":"x"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid_value", decodeProblem(t, raw).Type)

	resp, raw = doRequest(t, s, "GET", "/api/v1/logs/heatmap?days=7", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hm []dashboard.HeatmapDay
	require.NoError(t, json.Unmarshal(raw, &hm))
	assert.Len(t, hm, 7)

	resp, raw = doRequest(t, s, "GET", "/api/v1/logs/streak", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var streak StreakResponse
	require.NoError(t, json.Unmarshal(raw, &streak))
	assert.Equal(t, 1, streak.Streak)
}
