package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-rail-employee-registry/internal/apperr"
	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/registry"
	"go-rail-employee-registry/internal/report"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func writeJSON(w http.ResponseWriter, status int, code, message string, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.APIResponse{Code: code, Message: message, Payload: payload})
}

// writeError maps the registry error taxonomy onto HTTP statuses. Backend
// messages are passed through unchanged.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, "422", err.Error(), verr.Fields)
	case errors.Is(err, apperr.ErrValidationFailed):
		writeJSON(w, http.StatusUnprocessableEntity, "422", err.Error(), nil)
	case errors.Is(err, apperr.ErrWriteRejected):
		writeJSON(w, http.StatusBadGateway, "502", err.Error(), nil)
	case errors.Is(err, apperr.ErrDataSourceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, "503", err.Error(), nil)
	default:
		s.logger.WithError(err).Error("[http] unexpected error")
		writeJSON(w, http.StatusInternalServerError, "500", "internal error", nil)
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, "400", "invalid request body", nil)
		return
	}
	if !s.creds.Check(req.Username, req.Password) {
		s.logger.WithField("username", req.Username).Warn("[http] login failed")
		writeJSON(w, http.StatusUnauthorized, "401", "invalid username or password", nil)
		return
	}

	token, sess := s.sessions.Create()
	sess.Login(strings.TrimSpace(req.Username))
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, "200", "logged in", nil)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			sess.Logout()
		}
		s.sessions.Remove(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, "200", "logged out", nil)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Records(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		out[i] = rec.Map()
	}
	writeJSON(w, http.StatusOK, "200", "ok", out)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var in registry.AddInput
	if err := decodeBody(r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, "400", "invalid request body", nil)
		return
	}
	id, err := s.svc.Add(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "201", "employee added", map[string]string{"id": id})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeBody(r, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, "400", "invalid request body", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.svc.Update(r.Context(), id, fields); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "200", "employee updated", map[string]string{"id": id})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, err := s.svc.RequestDelete(r.Context(), sessionFrom(r.Context()), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	payload := map[string]string{"id": id, "status": out.String()}
	if out == registry.DeletePending {
		writeJSON(w, http.StatusAccepted, "202", "repeat the request to confirm deletion", payload)
		return
	}
	writeJSON(w, http.StatusOK, "200", "employee deleted", payload)
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Records(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	limit := report.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	fields := r.URL.Query()["field"]
	if len(fields) == 0 {
		fields = report.DefaultFields
	}

	out := make(map[string][]report.Count, len(fields))
	for _, f := range fields {
		if fd, ok := dto.LookupField(f); ok {
			f = fd.Label
		}
		out[f] = report.ValueCounts(recs, f, limit)
	}
	writeJSON(w, http.StatusOK, "200", "ok", out)
}

func exportOptions(r *http.Request) report.ExportOptions {
	q := r.URL.Query()
	bom, _ := strconv.ParseBool(q.Get("bom"))
	withID, _ := strconv.ParseBool(q.Get("id"))
	return report.ExportOptions{BOM: bom, IncludeID: withID}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Records(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, recs, exportOptions(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="employee_data.csv"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Records(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, recs, exportOptions(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="employee_data.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}
