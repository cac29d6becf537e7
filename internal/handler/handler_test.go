package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wedding-planner/internal/config"
	"github.com/iliyamo/wedding-planner/internal/middleware"
	"github.com/iliyamo/wedding-planner/internal/model"
	"github.com/iliyamo/wedding-planner/internal/repository"
	"github.com/iliyamo/wedding-planner/internal/service"
	"github.com/iliyamo/wedding-planner/internal/utils"
)

const testSecret = "handler-test-secret"

type testEnv struct {
	e        *echo.Echo
	guests   *memGuests
	charts   *memCharts
	weddings *memWeddings
	users    *memUsers
	tokens   *memTokens
	sessions *recordingSessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		guests:   newMemGuests(),
		charts:   newMemCharts(),
		weddings: newMemWeddings(),
		users:    newMemUsers(),
		tokens:   newMemTokens(),
		sessions: &recordingSessions{},
	}
	planning := service.NewPlanning(service.Deps{Guests: env.guests, Charts: env.charts, Log: zerolog.Nop()})
	ph := NewPlanningHandler(planning, env.weddings)
	wh := NewWeddingHandler(env.weddings)
	prof := NewProfileHandler(env.users)
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: 4}
	auth := NewAuthHandler(cfg, env.users, env.tokens, env.sessions)

	e := echo.New()
	jwt := middleware.JWTAuth(testSecret, env.sessions)
	couple := middleware.RequireRole(model.RoleCouple)

	e.POST("/auth/register", auth.Register)
	e.POST("/auth/login", auth.Login)
	e.POST("/auth/refresh", auth.Refresh)
	e.POST("/auth/signout", auth.Signout, jwt)
	e.GET("/auth/me", auth.Me, jwt)

	e.GET("/wedding", wh.Get, jwt, couple)
	e.POST("/wedding", wh.Create, jwt, couple)
	e.GET("/profiles/:id", prof.Get, jwt)

	e.GET("/guests", ph.ListGuests, jwt, couple)
	e.POST("/guests", ph.PostGuests, jwt, couple)
	e.PATCH("/guests/:id/rsvp", ph.SetRSVP, jwt, couple)
	e.POST("/guests/import", ph.ImportGuests, jwt, couple)
	e.GET("/guests/export", ph.ExportGuests, jwt, couple)
	e.GET("/guests/template", ph.GuestTemplate, jwt, couple)

	e.GET("/seating-chart", ph.GetChart, jwt, couple)
	e.PUT("/seating-chart", ph.SaveChart, jwt, couple)
	e.DELETE("/seating-chart", ph.DeleteChart, jwt, couple)
	e.POST("/seating-chart/assign", ph.AssignSeat, jwt, couple)
	e.POST("/seating-chart/unassign", ph.UnassignSeat, jwt, couple)
	e.POST("/seating-chart/move", ph.MoveGuest, jwt, couple)
	e.POST("/seating-chart/reconcile", ph.ReconcileChart, jwt, couple)

	env.e = e
	return env
}

func accessToken(t *testing.T, userID uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(testSecret, userID, role, 15)
	require.NoError(t, err)
	return at.Token
}

// do sends a JSON request as a couple. userID 0 sends no token.
func (env *testEnv) do(t *testing.T, method, path string, userID uint64, body any) *httptest.ResponseRecorder {
	t.Helper()
	token := ""
	if userID > 0 {
		token = accessToken(t, userID, model.RoleCouple)
	}
	return env.doToken(t, method, path, token, body)
}

func (env *testEnv) doToken(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// wedding gives ownerID a wedding and returns its id.
func (env *testEnv) wedding(t *testing.T, ownerID uint64) uint64 {
	t.Helper()
	w := &model.Wedding{OwnerUserID: ownerID, Name: "W"}
	require.NoError(t, env.weddings.Create(context.Background(), w))
	return w.ID
}

type apiError struct {
	Error errorDetail `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestWriteError_Mapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
		code   string
	}{
		{"validation", &model.ValidationError{Code: model.CodeSeatOccupied, TableID: "t1", SeatNumber: 2, Message: "taken"},
			http.StatusBadRequest, KindValidation, model.CodeSeatOccupied},
		{"stale", repository.ErrStaleChart, http.StatusConflict, KindConflict, "stale_version"},
		{"not found", repository.ErrGuestNotFound, http.StatusNotFound, KindNotFound, "not_found"},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden, KindForbidden, "forbidden"},
		{"persistence", errors.New("dial tcp 10.0.0.1:3306: connection refused"),
			http.StatusInternalServerError, KindPersistence, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, writeError(c, tc.err))

			assert.Equal(t, tc.status, rec.Code)
			got := decodeError(t, rec)
			assert.Equal(t, tc.kind, got.Kind)
			assert.Equal(t, tc.code, got.Code)
			assert.NotContains(t, rec.Body.String(), "10.0.0.1")
		})
	}
}

func TestWriteError_ValidationDetails(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, &model.ValidationError{
		Code: model.CodeGuestDoubleBooked, TableID: "t2", SeatNumber: 4, GuestID: "g1", Message: "double",
	}))
	got := decodeError(t, rec)
	assert.Equal(t, "t2", got.TableID)
	assert.Equal(t, 4, got.SeatNumber)
	assert.Equal(t, "g1", got.GuestID)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	e := echo.New()
	for _, tc := range []struct {
		name   string
		h      *HealthHandler
		status int
	}{
		{"no db", &HealthHandler{}, http.StatusOK},
		{"db up", &HealthHandler{DB: pingFunc(func(context.Context) error { return nil })}, http.StatusOK},
		{"db down", &HealthHandler{DB: pingFunc(func(context.Context) error { return errors.New("down") })}, http.StatusServiceUnavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
			require.NoError(t, tc.h.Health(c))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
