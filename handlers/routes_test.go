package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskboard-service/models"
	"taskboard-service/repositories/memory"
	"taskboard-service/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testServer struct {
	t      *testing.T
	router http.Handler
	tokens *TokenValidator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	users := memory.NewDirectory(
		models.User{ID: "m1", Username: "ana", DisplayName: "Ana Petrovic"},
		models.User{ID: "u1", Username: "jovan"},
		models.User{ID: "u2", Username: "mila"},
	)
	clock := services.SystemClock{}
	notifier := services.NewNotificationService(store.Notices(), clock)
	tasks := services.NewTaskService(store.Posts(), store.Requests(), users, notifier, store, clock)
	reqs := services.NewRequestService(store.Posts(), store.Requests(), users, notifier, store)
	tokens := NewTokenValidator(testSecret)

	return &testServer{
		t:      t,
		tokens: tokens,
		router: NewRouter(RouterConfig{
			Tasks:         NewTaskHandler(tasks),
			Notifications: NewNotificationHandler(notifier),
			Requests:      NewRequestHandler(reqs),
			Tokens:        tokens,
			CORSOrigins:   []string{"http://localhost:4200"},
		}),
	}
}

func (s *testServer) token(userID, role string) string {
	s.t.Helper()
	token, err := s.tokens.GenerateToken(userID, userID, role, time.Hour)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealthNeedsNoToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t)

	expired, err := s.tokens.GenerateToken("m1", "ana", models.RoleManager, -time.Minute)
	require.NoError(t, err)
	foreign, err := NewTokenValidator("other").GenerateToken("m1", "ana", models.RoleManager, time.Hour)
	require.NoError(t, err)
	noRole, err := s.tokens.GenerateToken("m1", "ana", "admin", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             models.RoleManager,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "m1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"unknown role", noRole},
		{"unsigned", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/posts", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body errorBody
			decode(t, rec, &body)
			assert.Equal(t, "unauthenticated", body.Kind)
		})
	}
}

func TestValidateToken(t *testing.T) {
	v := NewTokenValidator(testSecret)
	token, err := v.GenerateToken("u1", "jovan", models.RoleMember, time.Hour)
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "jovan", claims.Username)
	assert.Equal(t, models.RoleMember, claims.Role)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	manager := s.token("m1", models.RoleManager)
	member := s.token("u1", models.RoleMember)

	rec := s.do(http.MethodPost, "/api/posts", member, map[string]interface{}{"title": "A", "content": "a"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ids := map[string]string{}
	for _, title := range []string{"A", "B", "C"} {
		rec := s.do(http.MethodPost, "/api/posts", manager, map[string]interface{}{
			"title": title, "content": title + " body", "collaborators": []string{"u1"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var post models.Post
		decode(t, rec, &post)
		ids[title] = post.ID.Hex()
	}

	rec = s.do(http.MethodPost, "/api/posts", manager, map[string]interface{}{"title": "A", "content": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/posts", manager, map[string]interface{}{"title": "X", "content": "x", "owner": "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	rec = s.do(http.MethodPut, "/api/posts/reorder", manager, map[string][]string{"postIds": {ids["C"], ids["A"], ids["B"]}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"reordered":3}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/api/posts/"+ids["A"], manager, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/posts?sort=order&limit=10", member, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PostPage
	decode(t, rec, &page)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, "C", page.Posts[0].Title)
	assert.Equal(t, 0, page.Posts[0].Order)
	assert.Equal(t, "B", page.Posts[1].Title)
	assert.Equal(t, 1, page.Posts[1].Order)
	assert.False(t, page.HasMore)

	rec = s.do(http.MethodGet, "/api/posts?limit=abc", member, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/posts/"+ids["A"], manager, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorBody
	decode(t, rec, &body)
	assert.Equal(t, "not_found", body.Kind)

	rec = s.do(http.MethodGet, "/api/posts/nope", manager, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	manager := s.token("m1", models.RoleManager)
	member := s.token("u1", models.RoleMember)

	deadline := time.Now().UTC().Add(3 * 24 * time.Hour)
	rec := s.do(http.MethodPost, "/api/posts", manager, map[string]interface{}{
		"title": "Due soon", "content": "x", "collaborators": []string{"u1"}, "deadline": deadline,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/notifications/unread-count", member, nil)
	assert.JSONEq(t, `{"unread":1}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/notifications", member, nil)
	var notices []models.Notice
	decode(t, rec, &notices)
	require.Len(t, notices, 1)

	rec = s.do(http.MethodGet, "/api/notifications/reminders", member, nil)
	var reminders models.Reminders
	decode(t, rec, &reminders)
	assert.Len(t, reminders.OneWeek, 1)
	assert.Empty(t, reminders.OneDay)

	rec = s.do(http.MethodGet, "/api/notifications/reminders", member, nil)
	decode(t, rec, &reminders)
	assert.Empty(t, reminders.OneWeek)

	rec = s.do(http.MethodPut, "/api/notifications/"+notices[0].ID+"/read?kind=monthly", member, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPut, "/api/notifications/"+notices[0].ID+"/read", manager, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "notices belong to one inbox")
	rec = s.do(http.MethodPut, "/api/notifications/"+notices[0].ID+"/read", member, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPut, "/api/notifications/read-all", manager, nil)
	assert.JSONEq(t, `{"marked":1}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/api/notifications/"+notices[0].ID, member, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/notifications/unread-count", member, nil)
	assert.JSONEq(t, `{"unread":0}`, rec.Body.String())
}

func TestRequestsOverHTTP(t *testing.T) {
	s := newTestServer(t)
	manager := s.token("m1", models.RoleManager)
	invitee := s.token("u2", models.RoleMember)

	rec := s.do(http.MethodPost, "/api/posts", manager, map[string]interface{}{"title": "Plan", "content": "x"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var post models.Post
	decode(t, rec, &post)
	postID := post.ID.Hex()

	rec = s.do(http.MethodPost, "/api/posts/"+postID+"/requests", invitee, map[string]string{"userId": "u2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/posts/"+postID+"/requests", manager, map[string]string{"userId": "u2"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = s.do(http.MethodGet, "/api/requests", invitee, nil)
	var pending []models.PendingRequest
	decode(t, rec, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, "Ana Petrovic", pending[0].CreatorName)

	rec = s.do(http.MethodPost, "/api/requests/"+postID+"/accept", invitee, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &post)
	assert.True(t, post.HasCollaborator("u2"))

	rec = s.do(http.MethodPost, "/api/requests/"+postID+"/reject", invitee, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:4200", rec.Header().Get("Access-Control-Allow-Origin"))
}
