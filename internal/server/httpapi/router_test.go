package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/lango/internal/logging"
	"github.com/dmitrijs2005/lango/internal/server/auth"
	"github.com/dmitrijs2005/lango/internal/server/cascade"
	"github.com/dmitrijs2005/lango/internal/server/password"
	"github.com/dmitrijs2005/lango/internal/server/store/memory"
	"github.com/dmitrijs2005/lango/internal/server/users"
	"github.com/dmitrijs2005/lango/internal/server/vocab"
)

func init() {
	gin.SetMode(gin.TestMode)
	password.DefaultCost = bcrypt.MinCost
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	tokens *auth.TokenService
	table  *memory.Table
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	table := memory.New()
	tokens, err := auth.NewTokenService([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	del := cascade.New(table, logging.Nop{})
	repo := users.NewStoreRepository(table, "UsernameIndex")
	router := NewRouter(Deps{
		Users:          users.NewService(repo, tokens, del, logging.Nop{}),
		Vocab:          vocab.NewService(table, del, logging.Nop{}),
		Tokens:         tokens,
		Logger:         logging.Nop{},
		Metrics:        NewMetrics(prometheus.NewRegistry()),
		RequestTimeout: 5 * time.Second,
	})
	return &testServer{t: t, router: router, tokens: tokens, table: table}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) signup(username string) (userID, token string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/signup", "", map[string]string{
		"username":           username,
		"password":           "Str0ng!Pw",
		"first_name":         "A",
		"last_name":          "B",
		"preferred_language": "en",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(s.t, rec)
	return body["user_id"].(string), body["token"].(string)
}

func TestRouter_PingAndCORS(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	for _, path := range []string{"/signup", "/users/u1/languages", "/nowhere"} {
		rec = s.do(http.MethodOptions, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"message":"CORS preflight response"}`, rec.Body.String(), path)
		assert.Equal(t, "GET,POST,PUT,DELETE,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestRouter_SignupLoginProfile(t *testing.T) {
	s := newTestServer(t)
	id, token := s.signup("Alice")

	rec := s.do(http.MethodPost, "/login", "", map[string]string{"username": "ALICE", "password": "Str0ng!Pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Login Successful", body["message"])
	assert.Equal(t, id, body["user_id"])

	rec = s.do(http.MethodGet, "/users/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "en", body["preferred_language"])
	assert.NotContains(t, body, "hashed_password")
	assert.Contains(t, body, "last_login_at")

	rec = s.do(http.MethodPut, "/users/"+id, token, map[string]string{"first_name": "Alicia"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.Equal(t, "User updated successfully", body["message"])
	assert.Equal(t, "Alicia", body["user"].(map[string]any)["first_name"])

	rec = s.do(http.MethodDelete, "/users/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, s.table.Len())

	rec = s.do(http.MethodGet, "/users/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"User not found"}`, rec.Body.String())
}

func TestRouter_SignupErrors(t *testing.T) {
	s := newTestServer(t)
	s.signup("bob")

	tests := []struct {
		name string
		body any
		code int
		msg  string
	}{
		{"empty body", nil, http.StatusBadRequest, "Request body is required"},
		{"bad json", "{", http.StatusBadRequest, "Invalid JSON body"},
		{"missing fields", map[string]string{"username": "x"}, http.StatusBadRequest, "Missing Required Fields"},
		{"duplicate", map[string]string{
			"username": "BOB", "password": "Str0ng!Pw", "first_name": "A", "last_name": "B", "preferred_language": "en",
		}, http.StatusConflict, "Username already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/signup", "", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, decodeBody(t, rec)["error"])
		})
	}
}

func TestRouter_LoginErrors(t *testing.T) {
	s := newTestServer(t)
	s.signup("bob")

	rec := s.do(http.MethodPost, "/login", "", map[string]string{"username": "nobody", "password": "Str0ng!Pw"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/login", "", map[string]string{"username": "bob", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid Password", decodeBody(t, rec)["error"])
}

func TestRouter_Authorization(t *testing.T) {
	s := newTestServer(t)
	id, token := s.signup("carol")
	other, _ := s.signup("dave")

	expired, err := auth.NewTokenService([]byte("test-secret"), time.Hour,
		auth.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	require.NoError(t, err)
	old, err := expired.Issue(id, "carol")
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		code   int
		msg    string
	}{
		{"no header", "/users/" + id, "", http.StatusUnauthorized, "Missing or invalid Authorization header"},
		{"not bearer", "/users/" + id, "Basic abc", http.StatusUnauthorized, "Missing or invalid Authorization header"},
		{"garbage", "/users/" + id, "Bearer abc", http.StatusUnauthorized, "Invalid token"},
		{"expired", "/users/" + id, "Bearer " + old, http.StatusUnauthorized, "Token expired"},
		{"other user", "/users/" + other, "Bearer " + token, http.StatusForbidden, "Forbidden"},
		{"other user vocab", "/users/" + other + "/languages", "Bearer " + token, http.StatusForbidden, "Forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, decodeBody(t, rec)["error"])
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRouter_VocabularyFlow(t *testing.T) {
	s := newTestServer(t)
	id, token := s.signup("erin")
	base := "/users/" + id + "/languages"

	rec := s.do(http.MethodPost, base, token, map[string]string{"language": " Spanish "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Language added successfully","language":"spanish"}`, rec.Body.String())

	rec = s.do(http.MethodPost, base, token, map[string]string{"language": "spanish"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, base, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"languages":["spanish"]}`, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/spanish/sets", token, map[string]string{"set_name": "Food", "set_description": "Meals"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	setID := decodeBody(t, rec)["set_id"].(string)
	require.NotEmpty(t, setID)

	rec = s.do(http.MethodPost, base+"/french/sets", token, map[string]string{"set_name": "Food"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	setPath := base + "/spanish/sets/" + setID
	rec = s.do(http.MethodGet, setPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Food", decodeBody(t, rec)["set_name"])

	rec = s.do(http.MethodPut, setPath, token, map[string]string{"set_name": "Comida"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Comida", decodeBody(t, rec)["set"].(map[string]any)["set_name"])

	rec = s.do(http.MethodPost, setPath+"/flashcards", token, map[string]string{"word": "bread", "translated_word": "pan"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cardID := decodeBody(t, rec)["flashcard_id"].(string)

	rec = s.do(http.MethodPost, setPath+"/flashcards", token, map[string]string{"word": "milk"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, setPath+"/flashcards", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["flashcards"], 1)

	cardPath := setPath + "/flashcards/" + cardID
	rec = s.do(http.MethodPut, cardPath, token, map[string]string{"word": "bread", "translated_word": "pan", "usage": "el pan"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	card := decodeBody(t, rec)["flashcard"].(map[string]any)
	assert.Equal(t, "pan", card["translated_word"])
	assert.Equal(t, "el pan", card["usage"])

	rec = s.do(http.MethodGet, cardPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cardID, decodeBody(t, rec)["flashcard"].(map[string]any)["flashcard_id"])

	rec = s.do(http.MethodDelete, cardPath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, cardPath, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, base+"/spanish", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Language deleted successfully", decodeBody(t, rec)["message"])

	rec = s.do(http.MethodGet, setPath, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodGet, base, token, nil)
	assert.JSONEq(t, `{"languages":[]}`, rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/ping", "", nil)

	rec := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `lango_http_requests_total{method="GET",route="/ping",status="200"} 1`), rec.Body.String())
}

type failingUsers struct{ UserService }

func (failingUsers) Signup(context.Context, users.SignupRequest) (*users.Session, error) {
	return nil, errors.New("connection reset by peer")
}

func (failingUsers) Login(context.Context, users.LoginRequest) (*users.Session, error) {
	panic("boom")
}

func TestRouter_InternalErrorsAreOpaque(t *testing.T) {
	tokens, err := auth.NewTokenService([]byte("test-secret"), time.Hour)
	require.NoError(t, err)
	router := NewRouter(Deps{Users: failingUsers{}, Tokens: tokens, Logger: logging.Nop{}})

	for _, path := range []string{"/signup", "/login"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"username":"x"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String(), path)
	}
}
