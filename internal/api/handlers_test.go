// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/friendcircle/friendcircle/internal/auth"
	"github.com/friendcircle/friendcircle/internal/config"
	"github.com/friendcircle/friendcircle/internal/logging"
	"github.com/friendcircle/friendcircle/internal/models"
	"github.com/friendcircle/friendcircle/internal/store"
	"github.com/friendcircle/friendcircle/internal/ws"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

type testEnv struct {
	store  *store.Store
	hub    *ws.Hub
	server *httptest.Server
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret-0123456789-0123456789",
			TokenTTL:   time.Hour,
			BcryptCost: 4,
		},
		Security: config.SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitDisabled: true,
		},
		WebSocket: config.WebSocketConfig{
			SendQueueSize:    8,
			ReadLimit:        4096,
			PongWait:         60 * time.Second,
			WriteWait:        10 * time.Second,
			ReportsPerSecond: 100,
			ReportBurst:      100,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.New(":memory:", time.Second)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	cfg := testConfig()

	hub := ws.NewHub(st, st, cfg.WebSocket)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	revoker := auth.NewMemoryRevoker()
	t.Cleanup(func() { _ = revoker.Close() })
	authenticator := auth.NewAuthenticator(jwtManager, revoker)

	handler := NewHandler(st, hub, cfg, jwtManager, authenticator)
	router := NewRouter(handler, auth.NewMiddleware(authenticator))
	server := httptest.NewServer(router.SetupChi())
	t.Cleanup(server.Close)

	return &testEnv{store: st, hub: hub, server: server}
}

// doJSON issues a request with an optional bearer token and JSON body, and
// decodes the response envelope.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body interface{}) (*http.Response, *models.APIResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding response from %s %s: %v", method, path, err)
	}
	return resp, &envelope
}

// registerUser creates an account through the API and returns its token
// and user ID.
func (e *testEnv) registerUser(t *testing.T, username string) (token, userID string) {
	t.Helper()

	resp, envelope := e.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{
		Username: username,
		Name:     "User " + username,
		Password: "hunter2hunter2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d (%+v)", username, resp.StatusCode, envelope.Error)
	}

	var authResp models.AuthResponse
	remarshal(t, envelope.Data, &authResp)
	return authResp.Token, authResp.User.ID
}

// remarshal decodes the envelope's interface{} data into a typed value.
func remarshal(t *testing.T, data interface{}, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	token, userID := env.registerUser(t, "ada")
	if token == "" || userID == "" {
		t.Fatal("register returned empty token or user ID")
	}

	// Duplicate username conflicts, regardless of case.
	resp, envelope := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{
		Username: "Ada", Name: "Other Ada", Password: "hunter2hunter2",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "CONFLICT" {
		t.Errorf("duplicate register error = %+v", envelope.Error)
	}

	// Valid credentials log in.
	resp, envelope = env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Username: "ada", Password: "hunter2hunter2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d (%+v)", resp.StatusCode, envelope.Error)
	}
	var authResp models.AuthResponse
	remarshal(t, envelope.Data, &authResp)
	if authResp.User.Username != "ada" {
		t.Errorf("login user = %q", authResp.User.Username)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "ada")

	respWrongPass, envWrongPass := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Username: "ada", Password: "not-the-password",
	})
	respUnknown, envUnknown := env.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Username: "nobody", Password: "whatever-pass",
	})

	if respWrongPass.StatusCode != http.StatusUnauthorized || respUnknown.StatusCode != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d, want 401/401", respWrongPass.StatusCode, respUnknown.StatusCode)
	}
	if envWrongPass.Error.Message != envUnknown.Error.Message {
		t.Errorf("failure messages differ: %q vs %q", envWrongPass.Error.Message, envUnknown.Error.Message)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{
		Username: "ab", Name: "Too Short", Password: "short",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v, want VALIDATION_ERROR", envelope.Error)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerUser(t, "ada")

	// The token works before logout.
	resp, _ := env.doJSON(t, http.MethodGet, "/api/v1/users/me/friends", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pre-logout status = %d, want 200", resp.StatusCode)
	}

	resp, _ = env.doJSON(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}

	resp, _ = env.doJSON(t, http.MethodGet, "/api/v1/users/me/friends", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("post-logout status = %d, want 401", resp.StatusCode)
	}
}

func TestSearchUsers(t *testing.T) {
	env := newTestEnv(t)
	adaToken, _ := env.registerUser(t, "ada")
	env.registerUser(t, "adam")
	env.registerUser(t, "bella")

	// Unauthenticated search is rejected.
	resp, _ := env.doJSON(t, http.MethodGet, "/api/v1/users?q=ad", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	// Missing query.
	resp, _ = env.doJSON(t, http.MethodGet, "/api/v1/users", adaToken, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", resp.StatusCode)
	}

	// Prefix match excludes the caller.
	resp, envelope := env.doJSON(t, http.MethodGet, "/api/v1/users?q=ad", adaToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", resp.StatusCode)
	}
	var found []models.PublicUser
	remarshal(t, envelope.Data, &found)
	if len(found) != 1 || found[0].Username != "adam" {
		t.Errorf("search results = %+v, want just adam", found)
	}
}

func TestFriendEndpoints(t *testing.T) {
	env := newTestEnv(t)
	adaToken, _ := env.registerUser(t, "ada")
	_, bellaID := env.registerUser(t, "bella")

	// Add, then add again (idempotent).
	for i := 0; i < 2; i++ {
		resp, envelope := env.doJSON(t, http.MethodPost, "/api/v1/users/"+bellaID+"/friends", adaToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add friend attempt %d status = %d (%+v)", i+1, resp.StatusCode, envelope.Error)
		}
	}

	// Unknown target.
	resp, _ := env.doJSON(t, http.MethodPost, "/api/v1/users/no-such-user/friends", adaToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown friend status = %d, want 404", resp.StatusCode)
	}

	resp, envelope := env.doJSON(t, http.MethodGet, "/api/v1/users/me/friends", adaToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list friends status = %d", resp.StatusCode)
	}
	var friends []models.PublicUser
	remarshal(t, envelope.Data, &friends)
	if len(friends) != 1 || friends[0].ID != bellaID {
		t.Errorf("friends = %+v, want just bella", friends)
	}
}

func TestAddSelfAsFriend(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.registerUser(t, "ada")

	resp, _ := env.doJSON(t, http.MethodPost, "/api/v1/users/"+userID+"/friends", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("self-friend status = %d, want 400", resp.StatusCode)
	}
}

func TestFriendsLocationsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	adaToken, _ := env.registerUser(t, "ada")
	_, bellaID := env.registerUser(t, "bella")

	if _, envelope := env.doJSON(t, http.MethodPost, "/api/v1/users/"+bellaID+"/friends", adaToken, nil); envelope.Error != nil {
		t.Fatalf("add friend: %+v", envelope.Error)
	}

	observed := time.Now().UTC().Truncate(time.Millisecond)
	err := env.store.UpsertPosition(context.Background(), &models.PositionRecord{
		UserID: bellaID, Latitude: 48.86, Longitude: 2.35, Accuracy: 10, ObservedAt: observed,
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, envelope := env.doJSON(t, http.MethodGet, "/api/v1/users/me/friends/locations", adaToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot status = %d", resp.StatusCode)
	}
	var positions []models.FriendPosition
	remarshal(t, envelope.Data, &positions)
	if len(positions) != 1 {
		t.Fatalf("positions = %+v, want one entry", positions)
	}
	if positions[0].UserID != bellaID || positions[0].Latitude != 48.86 || positions[0].Timestamp != observed.UnixMilli() {
		t.Errorf("position = %+v", positions[0])
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.doJSON(t, http.MethodGet, "/api/v1/health/live", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live status = %d", resp.StatusCode)
	}

	resp, _ = env.doJSON(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d", resp.StatusCode)
	}

	resp, envelope := env.doJSON(t, http.MethodGet, "/api/v1/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	var health map[string]interface{}
	remarshal(t, envelope.Data, &health)
	if health["status"] != "healthy" {
		t.Errorf("health payload = %+v", health)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}
