package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-rail-employee-registry/internal/auth"
	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/loader"
	"go-rail-employee-registry/internal/registry"
	"go-rail-employee-registry/internal/session"
	"go-rail-employee-registry/internal/store/memstore"
)

var creds = auth.Credentials{Username: "admin", Password: "s3cret"}

type harness struct {
	t       *testing.T
	handler http.Handler
	store   *memstore.Store
	cookie  *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger, _ := test.NewNullLogger()
	st := memstore.New()
	svc := registry.New(st, loader.New(st, time.Hour, logger), registry.WithLogger(logger))
	srv := New(svc, session.NewStore(time.Hour), creds, logger)
	return &harness{t: t, handler: srv.Routes(), store: st}
}

func (h *harness) do(method, path, body string) (*httptest.ResponseRecorder, dto.APIResponse) {
	h.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var resp dto.APIResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (h *harness) login() {
	h.t.Helper()
	rec, _ := h.do(http.MethodPost, "/login", `{"username":"admin","password":"s3cret"}`)
	require.Equal(h.t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			h.cookie = c
		}
	}
	require.NotNil(h.t, h.cookie)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec, _ := h.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	logger, _ := test.NewNullLogger()
	down := New(registry.Unavailable(errors.New("no credentials")), session.NewStore(time.Hour), creds, logger)
	rec = httptest.NewRecorder()
	down.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	rec, _ := h.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresLogin(t *testing.T) {
	h := newHarness(t)
	rec, _ := h.do(http.MethodGet, "/api/employees", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = h.do(http.MethodPost, "/login", `{"username":"admin","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec, _ := h.do(http.MethodPost, "/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = h.do(http.MethodGet, "/api/employees", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddListUpdate(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec, resp := h.do(http.MethodPost, "/api/employees", `{"name":"Ram Singh","hrms_id":"H001","fields":{"STATION":"Delhi","BASIC PAY":45000}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := resp.Payload.(map[string]any)["id"].(string)

	rec, resp = h.do(http.MethodGet, "/api/employees", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := resp.Payload.([]any)
	require.Len(t, list, 1)
	row := list[0].(map[string]any)
	assert.Equal(t, id, row[dto.DocIDKey])
	assert.Equal(t, "Delhi", row[dto.FieldStation])
	assert.Equal(t, float64(45000), row[dto.FieldBasicPay])

	rec, _ = h.do(http.MethodPatch, "/api/employees/"+id, `{"STATION":"","PAY LEVEL":"L-6"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	d, ok := h.store.Get(id)
	require.True(t, ok)
	assert.NotContains(t, d.Fields, dto.FieldStation)
	assert.Equal(t, "L-6", d.Fields["PAY LEVEL"])
}

func TestAddValidation(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec, resp := h.do(http.MethodPost, "/api/employees", `{"name":" ","hrms_id":"H001"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, resp.Payload, dto.FieldEmployeeName)

	rec, _ = h.do(http.MethodPost, "/api/employees", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUnknownIDIsBadGateway(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec, resp := h.do(http.MethodPatch, "/api/employees/missing", `{"STATION":"Agra"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, resp.Message, "document not found")
}

func TestDeleteConfirmation(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("d1", map[string]any{dto.FieldHRMSID: "X1"})
	h.login()

	rec, resp := h.do(http.MethodDelete, "/api/employees/d1", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "pending_confirmation", resp.Payload.(map[string]any)["status"])

	rec, _ = h.do(http.MethodGet, "/api/employees", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = h.do(http.MethodDelete, "/api/employees/d1", "")
	require.Equal(t, http.StatusAccepted, rec.Code, "navigating away resets the confirmation")

	rec, resp = h.do(http.MethodDelete, "/api/employees/d1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deleted", resp.Payload.(map[string]any)["status"])
	_, ok := h.store.Get("d1")
	assert.False(t, ok)
}

func TestCounts(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("d1", map[string]any{dto.FieldDesignation: "Clerk", dto.FieldUnit: "U1"})
	h.store.Seed("d2", map[string]any{dto.FieldDesignation: "Clerk"})
	h.login()

	rec, resp := h.do(http.MethodGet, "/api/reports/counts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	payload := resp.Payload.(map[string]any)
	designation := payload[dto.FieldDesignation].([]any)
	require.Len(t, designation, 1)
	assert.Equal(t, float64(2), designation[0].(map[string]any)["count"])

	rec, resp = h.do(http.MethodGet, "/api/reports/counts?field=station", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, resp.Payload, dto.FieldStation)
}

func TestExportCSV(t *testing.T) {
	h := newHarness(t)
	h.store.Seed("d1", map[string]any{dto.FieldEmployeeName: "A", dto.FieldHRMSID: "X1"})
	h.login()

	rec, _ := h.do(http.MethodGet, "/api/export.csv?id=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], dto.DocIDKey+",S.No."))
	assert.True(t, strings.HasPrefix(lines[1], "d1,"))
}

func TestExportXLSX(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec, _ := h.do(http.MethodGet, "/api/export.xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, rec.Body.Len())
}
