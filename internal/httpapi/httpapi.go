package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/export"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/service"
)

const (
	maxTopLimit     = 100
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Options struct {
	AllowedOrigin  string
	RequestTimeout time.Duration
	Logger         *logrus.Logger
}

type API struct {
	service        *service.Service
	auth           *AuthManager
	allowedOrigin  string
	requestTimeout time.Duration
	loginLimiter   *clientLimiter
	log            *logrus.Entry
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &API{
		service:        svc,
		auth:           auth,
		allowedOrigin:  opts.AllowedOrigin,
		requestTimeout: opts.RequestTimeout,
		loginLimiter:   newClientLimiter(5, time.Minute),
		log:            opts.Logger.WithField("component", "http"),
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(a.recoverer)
	r.Use(middleware.Timeout(a.requestTimeout))
	r.Use(a.withSecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMethodNotAllowed(w)
	})

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleViewer))
			r.Get("/reports", a.handleReport)
			r.Get("/reports/ranges", a.handleRanges)
			r.Get("/reports/current", a.handleCurrentReport)
			r.Post("/reports/current", a.handleSubmitCurrent)
		})

		r.With(a.requireAuth(domain.RoleAdmin)).Post("/reports/refresh", a.handleRefresh)
	})

	return r
}

// requireAuth admits callers whose token role is at least required.
func (a *API) requireAuth(required domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}

			token := strings.TrimSpace(authorization[len("Bearer "):])
			actor, err := a.auth.ParseToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			if !actor.Role.Allows(required) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}

			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.log.WithFields(logrus.Fields{
			"request_id": requestIDFrom(r.Context()),
			"username":   req.Username,
		}).Info("login rejected")
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRanges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ranges": a.service.Ranges()})
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind := service.ParseRangeKind(strings.ToLower(strings.TrimSpace(query.Get("range"))))
	format := strings.ToLower(strings.TrimSpace(query.Get("format")))
	limit := parsePositiveLimit(query.Get("limit"), 0, maxTopLimit)

	rep, err := a.service.Report(r.Context(), kind, limit)
	if err != nil {
		a.respondServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("sales-report-%s-%s", rep.Range.Kind, rep.Range.EndDate.Format("2006-01-02"))
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))
		_, _ = w.Write(export.CSV(rep))
	case "html":
		page, err := export.HTML(rep)
		if err != nil {
			a.respondServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	case "xlsx":
		workbook, err := export.XLSX(rep)
		if err != nil {
			a.respondServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
		_, _ = w.Write(workbook)
	case "", "json":
		writeJSON(w, http.StatusOK, rep)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
	}
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Refresh(r.Context()); err != nil {
		a.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refreshed": true})
}

func (a *API) handleSubmitCurrent(w http.ResponseWriter, r *http.Request) {
	kind := service.ParseRangeKind(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("range"))))
	generation, err := a.service.SubmitCurrent(r.Context(), kind)
	if err != nil {
		a.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"generation": generation,
		"range":      kind,
	})
}

// handleCurrentReport serves the newest committed report. If the newest
// computation failed, the failure is returned instead of an older report.
func (a *API) handleCurrentReport(w http.ResponseWriter, r *http.Request) {
	if err := a.service.CurrentError(); err != nil {
		a.respondServiceError(w, r, err)
		return
	}
	rep, generation, ok := a.service.Current()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no report has been computed yet"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation": generation,
		"report":     rep,
	})
}

// respondServiceError maps service failures onto status codes. Source fetch
// failures are upstream problems, so they are reported as 502.
func (a *API) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var fetchErr *service.FetchError
	switch {
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.As(err, &fetchErr):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		a.log.WithError(err).WithFields(logrus.Fields{
			"request_id": requestIDFrom(r.Context()),
			"status":     status,
		}).Error("request failed")
	}
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides the cause of 5xx responses from clients.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	switch {
	case status == http.StatusBadGateway:
		msg = "report data source unavailable"
	case status >= 500:
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
