package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"studymate/internal/auth"
	"studymate/internal/catalog"
	"studymate/internal/domain"
	"studymate/internal/store/memory"
	"studymate/services/embed"
)

type fakeSweeper struct {
	runs int
	err  error
}

func (s *fakeSweeper) RunOnce(context.Context) (embed.SweepReport, error) {
	s.runs++
	return embed.SweepReport{Embeddings: embed.Report{Processed: 2, Embedded: 2}}, s.err
}

type countingTrigger struct{ n int }

func (c *countingTrigger) Trigger() { c.n++ }

type testServer struct {
	t       *testing.T
	handler http.Handler
	token   string
	sweeper *fakeSweeper
	trigger *countingTrigger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokens("secret", time.Hour)
	require.NoError(t, err)

	trigger := &countingTrigger{}
	sweeper := &fakeSweeper{}
	rt := &Router{
		Webhook: &WebhookHandler{Dispatcher: &fakeDispatcher{}, Sender: &fakeSender{}},
		Auth:    &AuthHandler{Auth: &auth.Service{Username: "admin", PasswordHash: string(hash), Tokens: tokens}},
		Catalog: &CatalogHandler{
			Catalog:     &catalog.Service{Store: memory.New(), Maintenance: trigger},
			Maintenance: sweeper,
		},
		AuthMiddleware: tokens.Middleware,
	}
	return &testServer{t: t, handler: rt.Handler(), sweeper: sweeper, trigger: trigger}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login() {
	rec := s.do(http.MethodPost, "/admin/login", `{"username":"admin","password":"pw"}`)
	require.Equal(s.t, http.StatusOK, rec.Code)
	var resp loginResponse
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	s.token = resp.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestRouter_HealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/admin/courses", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/admin/login", `{"username":"admin","password":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/admin/login", `not json`).Code)

	s.login()
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/courses", "").Code)
}

func TestRouter_CatalogFlow(t *testing.T) {
	s := newTestServer(t)
	s.login()

	rec := s.do(http.MethodPost, "/admin/courses", `{"name":"Calculus"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	course := decode[domain.Course](t, rec)

	rec = s.do(http.MethodPost, "/admin/courses/"+itoa(course.ID)+"/files", `{"name":"Lecture1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	file := decode[domain.DownloadedFile](t, rec)

	rec = s.do(http.MethodPost, "/admin/files/"+itoa(file.ID)+"/chunks", `{"title":"Limits","url":"u1","content":"A limit."}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	chunk := decode[domain.Chunk](t, rec)
	assert.Equal(t, "Calculus", chunk.CourseName)

	rec = s.do(http.MethodPost, "/admin/files/"+itoa(file.ID)+"/ingest", `{"markdown":"## A\n\none\n\n## B\n\ntwo\n","url":"u2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decode[[]domain.Chunk](t, rec), 2)

	rec = s.do(http.MethodGet, "/admin/courses/"+itoa(course.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[catalog.CourseDetails](t, rec).Files, 1)

	rec = s.do(http.MethodPut, "/admin/chunks/"+itoa(chunk.ID), `{"title":"Limits","url":"u1","content":"An epsilon-delta limit."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "An epsilon-delta limit.", decode[domain.Chunk](t, rec).Content)

	rec = s.do(http.MethodGet, "/admin/chunks/"+itoa(chunk.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "An epsilon-delta limit.", decode[domain.Chunk](t, rec).Content)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/admin/chunks/"+itoa(chunk.ID), "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/admin/chunks/"+itoa(chunk.ID), "").Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/admin/files/"+itoa(file.ID), "").Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/admin/courses/"+itoa(course.ID), "").Code)

	// chunk create, ingest, chunk update, chunk delete, file delete, course delete
	assert.Equal(t, 6, s.trigger.n)
}

func TestRouter_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	s.login()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"bad id", http.MethodGet, "/admin/courses/abc", "", http.StatusBadRequest},
		{"missing course", http.MethodGet, "/admin/courses/99", "", http.StatusNotFound},
		{"empty name", http.MethodPost, "/admin/courses", `{"name":" "}`, http.StatusBadRequest},
		{"file of missing course", http.MethodPost, "/admin/courses/99/files", `{"name":"x"}`, http.StatusNotFound},
		{"chunk of missing file", http.MethodPost, "/admin/files/99/chunks", `{"content":"x"}`, http.StatusNotFound},
		{"update missing chunk", http.MethodPut, "/admin/chunks/99", `{"content":"x"}`, http.StatusNotFound},
		{"update with empty content", http.MethodPut, "/admin/chunks/99", `{"content":" "}`, http.StatusBadRequest},
		{"bad payload", http.MethodPost, "/admin/courses", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestRouter_Maintenance(t *testing.T) {
	s := newTestServer(t)
	s.login()

	rec := s.do(http.MethodPost, "/admin/maintenance/run", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[embed.SweepReport](t, rec).Embeddings.Embedded)

	s.sweeper.err = errors.New("db down")
	rec = s.do(http.MethodPost, "/admin/maintenance/run", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
