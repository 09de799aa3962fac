package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intermernet/scoreboard/internal/accounts"
	"github.com/intermernet/scoreboard/internal/audit"
	"github.com/intermernet/scoreboard/internal/config"
	"github.com/intermernet/scoreboard/internal/database"
	"github.com/intermernet/scoreboard/internal/log"
	"github.com/intermernet/scoreboard/internal/scoring"
)

type testAPI struct {
	t        *testing.T
	router   *chi.Mux
	store    *database.Service
	accounts *accounts.Service
	clusters map[string]int64
}

func newTestAPI(t *testing.T, opts ...func(*config.Config)) *testAPI {
	t.Helper()
	dir := t.TempDir()

	store, err := database.NewService(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema())

	seeds, err := database.LoadClusterSeeds("")
	require.NoError(t, err)
	_, err = store.Seed(database.SeedOptions{Clusters: seeds, AdminUsername: "admin", AdminPassword: "admin123"})
	require.NoError(t, err)

	logoDir := filepath.Join(dir, "static", "images", "clusters")
	require.NoError(t, os.MkdirAll(logoDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(logoDir, "maya.png"), []byte("png"), 0o644))

	cfg := &config.Config{
		StaticPath: filepath.Join(dir, "static"),
		JwtSecret:  "a-test-secret-that-is-long-enough",
		SessionTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	auditWriter := audit.NewWriter(store, nil)
	accountsSvc := accounts.NewService(store, auditWriter, nil)
	srv := NewServer(cfg, store, scoring.NewService(store, auditWriter, nil), accountsSvc, auditWriter)

	router := chi.NewRouter()
	srv.RegisterRoutes(router)

	clusters, err := store.ListClusters(store.DB())
	require.NoError(t, err)
	byName := make(map[string]int64)
	for _, c := range clusters {
		byName[c.Name] = c.ID
	}

	return &testAPI{t: t, router: router, store: store, accounts: accountsSvc, clusters: byName}
}

func (a *testAPI) do(method, path, body, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) doForm(method, path string, form url.Values, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	rec := a.do("POST", "/api/v1/auth/login", `{"username":"`+username+`","password":"`+password+`"}`, "")
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

func (a *testAPI) managerToken() string {
	a.t.Helper()
	admin := a.login("admin", "admin123")
	rec := a.do("POST", "/api/v1/admin/managers", `{"username":"manager","password":"pw123"}`, admin)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.login("manager", "pw123")
}

func (a *testAPI) cid(name string) string {
	return strconv.FormatInt(a.clusters[name], 10)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type leaderboardBody struct {
	Leaderboard []LeaderboardEntryResponse `json:"leaderboard"`
}

type eventBody struct {
	Event struct {
		EventResponse
		Participants []ParticipantResponse  `json:"participants"`
		ByCluster    []ClusterGroupResponse `json:"byCluster"`
	} `json:"event"`
}

type errorBody struct {
	Error string `json:"error"`
}

func TestPublicLeaderboard(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do("GET", "/api/v1/leaderboard", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[leaderboardBody](t, rec)
	require.Len(t, body.Leaderboard, 7)
	for i, e := range body.Leaderboard {
		assert.Equal(t, i+1, e.Rank)
		assert.Zero(t, e.TotalPoints)
		assert.True(t, strings.HasPrefix(e.LogoURL, "/static/images/clusters/"), e.LogoURL)
	}

	for _, path := range []string{"/", "/overview"} {
		rec := a.do("GET", path, "", "")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/api/v1/leaderboard", rec.Header().Get("Location"))
	}

	rec = a.do("GET", "/static/images/clusters/maya.png", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
}

func TestLogin(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do("POST", "/api/v1/auth/login", `{"username":"admin","password":"admin123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Token string       `json:"token"`
		User  UserResponse `json:"user"`
	}](t, rec)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "admin", body.User.Username)
	assert.NotContains(t, rec.Body.String(), "argon2")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// The cookie alone authenticates.
	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	a.router.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)

	rec = a.doForm("POST", "/api/v1/auth/login", url.Values{"username": {"admin"}, "password": {"admin123"}}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do("POST", "/api/v1/auth/login", `{"username":"admin","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid username or password", decode[errorBody](t, rec).Error)

	rec = a.do("POST", "/api/v1/auth/login", `{"username":"","password":""}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do("POST", "/api/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Negative(t, rec.Result().Cookies()[0].MaxAge)
}

func TestAuthenticationRequired(t *testing.T) {
	a := newTestAPI(t)

	for _, path := range []string{"/api/v1/events", "/api/v1/clusters", "/api/v1/users/me", "/api/v1/admin/logs"} {
		rec := a.do("GET", path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := a.do("GET", "/api/v1/events", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeletedAccountLosesAccess(t *testing.T) {
	a := newTestAPI(t)
	admin := a.login("admin", "admin123")
	manager := a.managerToken()

	rec := a.do("GET", "/api/v1/users/me", "", manager)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[struct {
		User UserResponse `json:"user"`
	}](t, rec)

	rec = a.do("DELETE", "/api/v1/admin/managers/"+strconv.FormatInt(me.User.ID, 10), "", admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do("GET", "/api/v1/users/me", "", manager)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventLifecycle(t *testing.T) {
	a := newTestAPI(t)
	token := a.managerToken()

	rec := a.do("POST", "/api/v1/events", `{
		"name": "Opening",
		"participants": [
			{"clusterId": `+a.cid("Maya")+`, "name": "Alpha", "position": 1, "points": 100},
			{"clusterId": "`+a.cid("Swarnika")+`", "name": "Beta", "position": "2", "points": "85"},
			{"clusterId": "", "name": "ignored", "position": "", "points": ""}
		]
	}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[eventBody](t, rec)
	assert.Equal(t, "Opening", created.Event.Name)
	require.Len(t, created.Event.Participants, 2)
	require.NotNil(t, created.Event.CreatorName)
	assert.Equal(t, "manager", *created.Event.CreatorName)
	eventPath := "/api/v1/events/" + strconv.FormatInt(created.Event.ID, 10)

	form := url.Values{
		"event_name":         {"Relay"},
		"cluster_id[]":       {a.cid("Maya"), ""},
		"participant_name[]": {"Delta", ""},
		"position[]":         {"4", ""},
		"points[]":           {"60", ""},
	}
	rec = a.doForm("POST", "/api/v1/events", form, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do("GET", "/api/v1/leaderboard", "", "")
	board := decode[leaderboardBody](t, rec).Leaderboard
	assert.Equal(t, "Maya", board[0].ClusterName)
	assert.Equal(t, int64(160), board[0].TotalPoints)
	assert.Equal(t, "Swarnika", board[1].ClusterName)
	assert.Equal(t, int64(85), board[1].TotalPoints)

	rec = a.do("GET", "/api/v1/events", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Events []EventResponse `json:"events"`
	}](t, rec)
	require.Len(t, list.Events, 2)
	assert.Equal(t, "Relay", list.Events[0].Name)

	rec = a.do("PUT", eventPath, `{"name":"Opening (final)","participants":[{"clusterId":`+a.cid("Ushnavi")+`,"name":"Solo","position":1,"points":5}]}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[eventBody](t, rec)
	assert.Equal(t, "Opening (final)", updated.Event.Name)
	require.Len(t, updated.Event.ByCluster, 1)
	assert.Equal(t, "Ushnavi", updated.Event.ByCluster[0].ClusterName)

	rec = a.do("DELETE", eventPath, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do("GET", eventPath, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do("DELETE", eventPath, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do("GET", "/api/v1/leaderboard", "", "")
	board = decode[leaderboardBody](t, rec).Leaderboard
	assert.Equal(t, "Maya", board[0].ClusterName)
	assert.Equal(t, int64(60), board[0].TotalPoints)
}

func TestEventValidationErrors(t *testing.T) {
	a := newTestAPI(t)
	token := a.managerToken()

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"no participants", `{"name":"E","participants":[]}`, "at least one participant required"},
		{"missing name", `{"name":"","participants":[{"clusterId":1,"name":"a","position":1,"points":1}]}`, "event name is required"},
		{"negative points", `{"name":"E","participants":[{"clusterId":` + a.cid("Maya") + `,"name":"a","position":1,"points":-3}]}`, "row 1: points must be >= 0"},
		{"fractional position", `{"name":"E","participants":[{"clusterId":` + a.cid("Maya") + `,"name":"a","position":1.5,"points":3}]}`, "row 1: position must be a whole number"},
		{"unknown cluster", `{"name":"E","participants":[{"clusterId":9999,"name":"a","position":1,"points":3}]}`, "row 1: unknown cluster 9999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do("POST", "/api/v1/events", tt.body, token)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, decode[errorBody](t, rec).Error)
		})
	}

	rec := a.do("POST", "/api/v1/events", `{"name":`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do("POST", "/api/v1/events", `{"name":"E","participants":[{"clusterId":true}]}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do("GET", "/api/v1/events/abc", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do("PUT", "/api/v1/events/404", `{"name":"E","participants":[{"clusterId":`+a.cid("Maya")+`,"name":"a","position":1,"points":1}]}`, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var events int
	require.NoError(t, a.store.DB().QueryRow(`SELECT COUNT(*) FROM events`).Scan(&events))
	assert.Zero(t, events)
}

func TestAdminRoutes(t *testing.T) {
	a := newTestAPI(t)
	admin := a.login("admin", "admin123")
	manager := a.managerToken()

	rec := a.do("GET", "/api/v1/admin/managers", "", manager)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do("GET", "/api/v1/admin/logs", "", manager)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do("POST", "/api/v1/admin/managers", `{"username":"manager","password":"x"}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username already exists", decode[errorBody](t, rec).Error)

	rec = a.do("GET", "/api/v1/admin/managers", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	managers := decode[struct {
		Managers []UserResponse `json:"managers"`
	}](t, rec).Managers
	require.Len(t, managers, 1)
	managerPath := "/api/v1/admin/managers/" + strconv.FormatInt(managers[0].ID, 10)

	rec = a.do("PUT", managerPath, `{"username":"renamed","password":""}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "renamed", decode[struct {
		Manager UserResponse `json:"manager"`
	}](t, rec).Manager.Username)

	adminUser, err := a.accounts.Authenticate("admin", "admin123")
	require.NoError(t, err)
	rec = a.do("DELETE", "/api/v1/admin/managers/"+strconv.FormatInt(adminUser.ID, 10), "", admin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do("DELETE", "/api/v1/admin/managers/9999", "", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do("POST", "/api/v1/events", `{"name":"Logged","participants":[{"clusterId":`+a.cid("Maya")+`,"name":"a","position":1,"points":1}]}`, manager)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do("GET", "/api/v1/admin/logs", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[struct {
		Logs []struct {
			Action   string                 `json:"action"`
			Username *string                `json:"username"`
			Details  map[string]interface{} `json:"details"`
		} `json:"logs"`
	}](t, rec).Logs
	require.Len(t, logs, 3)
	assert.Equal(t, "create_event", logs[0].Action)
	assert.Equal(t, "Logged", logs[0].Details["event_name"])
	assert.Equal(t, float64(1), logs[0].Details["participant_count"])
	require.NotNil(t, logs[0].Username)
	assert.Equal(t, "renamed", *logs[0].Username)
	assert.Equal(t, "edit_manager", logs[1].Action)
	assert.Equal(t, "create_manager", logs[2].Action)
}

func TestMetricsAndHealth(t *testing.T) {
	a := newTestAPI(t)
	a.do("GET", "/api/v1/leaderboard", "", "")

	rec := a.do("GET", "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scoreboard_leaderboard_computations_total")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/leaderboard"`)

	rec = a.do("GET", "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[healthResponse](t, rec).Status)
}

func TestCORSAllowsConfiguredFrontend(t *testing.T) {
	frontend, err := url.Parse("https://scores.example.com/app/")
	require.NoError(t, err)
	a := newTestAPI(t, func(cfg *config.Config) {
		cfg.FrontendURL = frontend.String()
		cfg.ParsedFrontendURL = frontend
	})

	get := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/v1/leaderboard", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		a.router.ServeHTTP(rec, req)
		return rec
	}

	rec := get("https://scores.example.com")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://scores.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = get("http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = get("https://elsewhere.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnexpectedErrorsAreHiddenAndLogged(t *testing.T) {
	a := newTestAPI(t)

	var buf bytes.Buffer
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: &buf})
	t.Cleanup(func() { log.Init(log.Config{Level: log.InfoLevel}) })

	require.NoError(t, a.store.DB().Close())

	rec := a.do("GET", "/api/v1/leaderboard", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[errorBody](t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "closed")

	out := buf.String()
	assert.Contains(t, out, `"component":"api"`)
	assert.Contains(t, out, `"message":"request failed"`)
	assert.Contains(t, out, `"path":"/api/v1/leaderboard"`)
}
