package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/obsidianstack/synthetics/pkg/types"
	"github.com/obsidianstack/synthetics/server/internal/alerts"
	"github.com/obsidianstack/synthetics/server/internal/connectors"
	"github.com/obsidianstack/synthetics/server/internal/settings"
)

// requestTimeout bounds every non-streaming request.
const requestTimeout = 30 * time.Second

// Reconciler is the subset of *alerts.Service the API drives.
type Reconciler interface {
	GetDefaultAlerts(ctx context.Context) (alerts.DefaultRules, error)
	SetupDefaultAlerts(ctx context.Context) (alerts.DefaultRules, error)
	UpdateDefaultAlerts(ctx context.Context) (alerts.DefaultRules, error)
}

// SettingsStore reads and writes the dynamic settings.
type SettingsStore interface {
	settings.Store
	settings.Writer
}

// Sender delivers a notification through a connector.
type Sender interface {
	Send(ctx context.Context, c types.Connector, n connectors.Notification) error
}

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Alerts     Reconciler
	Settings   SettingsStore
	Connectors connectors.Registry
	Sender     Sender

	// Auth wraps every /api and /ws route. Nil disables authentication.
	Auth func(http.Handler) http.Handler

	// Hub, when set, is mounted at /ws.
	Hub http.Handler
	// Metrics, when set, is mounted at /metrics without authentication.
	Metrics http.Handler

	Logger *slog.Logger
}

// Handler serves the REST API.
type Handler struct {
	alerts     Reconciler
	settings   SettingsStore
	connectors connectors.Registry
	sender     Sender
	log        *slog.Logger
}

// New builds the router for all routes in d.
func New(d Deps) http.Handler {
	h := &Handler{
		alerts:     d.Alerts,
		settings:   d.Settings,
		connectors: d.Connectors,
		sender:     d.Sender,
		log:        d.Logger,
	}
	if h.log == nil {
		h.log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		if d.Auth != nil {
			r.Use(d.Auth)
		}
		if d.Hub != nil {
			r.Handle("/ws", d.Hub)
		}
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			h.RegisterRoutes(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// RegisterRoutes adds the /api/v1 routes to r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Route("/default_alerts", func(r chi.Router) {
		r.Get("/", h.getDefaultAlerts)
		r.Post("/", h.setupDefaultAlerts)
		r.Put("/", h.updateDefaultAlerts)
	})
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.getSettings)
		r.Put("/", h.putSettings)
	})
	r.Route("/connectors", func(r chi.Router) {
		r.Get("/", h.listConnectors)
		r.Post("/{id}/_execute", h.executeConnector)
	})
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: whether both default rules exist.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	rules, err := h.alerts.GetDefaultAlerts(r.Context())
	resp := HealthResponse{
		StatusRule: rules.Status != nil,
		TLSRule:    rules.TLS != nil,
	}
	switch {
	case err != nil:
		resp.State = "error"
		resp.Error = err.Error()
	case resp.StatusRule && resp.TLSRule:
		resp.State = "ok"
	default:
		resp.State = "degraded"
	}
	jsonResp(w, http.StatusOK, resp)
}

// getDefaultAlerts returns GET /api/v1/default_alerts.
func (h *Handler) getDefaultAlerts(w http.ResponseWriter, r *http.Request) {
	rules, err := h.alerts.GetDefaultAlerts(r.Context())
	if err != nil {
		h.reconcileErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, rules)
}

// setupDefaultAlerts handles POST /api/v1/default_alerts (enable).
func (h *Handler) setupDefaultAlerts(w http.ResponseWriter, r *http.Request) {
	rules, err := h.alerts.SetupDefaultAlerts(r.Context())
	if err != nil {
		h.reconcileErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, rules)
}

// updateDefaultAlerts handles PUT /api/v1/default_alerts.
func (h *Handler) updateDefaultAlerts(w http.ResponseWriter, r *http.Request) {
	rules, err := h.alerts.UpdateDefaultAlerts(r.Context())
	if err != nil {
		h.reconcileErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, rules)
}

// getSettings returns GET /api/v1/settings. Unsaved settings read as empty.
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Get(r.Context())
	if err != nil {
		h.log.Error("api: read settings", "err", err)
		jsonErr(w, http.StatusInternalServerError, "read settings failed")
		return
	}
	resp := SettingsResponse{}
	if st != nil {
		resp.Settings = *st
	}
	jsonResp(w, http.StatusOK, resp)
}

// putSettings handles PUT /api/v1/settings. The body is a types.Settings
// document. After saving, the default rules are updated to the new
// connector selection.
func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var st types.Settings
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&st); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid settings body: "+err.Error())
		return
	}
	if err := validateSettings(&st); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settings.Put(r.Context(), &st); err != nil {
		h.log.Error("api: write settings", "err", err)
		jsonErr(w, http.StatusInternalServerError, "write settings failed")
		return
	}

	if _, err := h.alerts.UpdateDefaultAlerts(r.Context()); err != nil {
		h.reconcileErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, SettingsResponse{Settings: st})
}

// listConnectors returns GET /api/v1/connectors, marking the ones selected
// as defaults in the settings.
func (h *Handler) listConnectors(w http.ResponseWriter, r *http.Request) {
	cs, err := h.connectors.GetAll(r.Context())
	if err != nil {
		h.log.Error("api: list connectors", "err", err)
		jsonErr(w, http.StatusBadGateway, "list connectors failed")
		return
	}
	st, err := h.settings.Get(r.Context())
	if err != nil {
		h.log.Error("api: read settings", "err", err)
		jsonErr(w, http.StatusInternalServerError, "read settings failed")
		return
	}

	out := make([]ConnectorResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, ConnectorResponse{
			ID:              c.ID,
			ConnectorTypeID: c.ConnectorTypeID,
			Name:            c.Name,
			IsPreconfigured: c.IsPreconfigured,
			IsDefault:       st.IsDefaultConnector(c.ID),
		})
	}
	jsonResp(w, http.StatusOK, out)
}

// executeConnector handles POST /api/v1/connectors/{id}/_execute, sending a
// test notification through the connector.
func (h *Handler) executeConnector(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var n connectors.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid notification body: "+err.Error())
		return
	}
	if n.Message == "" {
		jsonErr(w, http.StatusBadRequest, "message is required")
		return
	}
	if n.Severity == "" {
		n.Severity = "info"
	}

	c, ok, err := connectors.Find(r.Context(), h.connectors, id)
	if err != nil {
		h.log.Error("api: list connectors", "err", err)
		jsonErr(w, http.StatusBadGateway, "list connectors failed")
		return
	}
	if !ok {
		jsonErr(w, http.StatusNotFound, "connector not found")
		return
	}

	if err := h.sender.Send(r.Context(), c, n); err != nil {
		if errors.Is(err, connectors.ErrUnsupported) {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Warn("api: connector execute failed", "connector", id, "err", err)
		jsonErr(w, http.StatusBadGateway, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, ExecuteResponse{ConnectorID: id, Status: "sent"})
}

// reconcileErr maps reconciler errors to status codes: an ambiguous rule
// state is a conflict, anything else is an internal error with per-kind
// reasons when available.
func (h *Handler) reconcileErr(w http.ResponseWriter, err error) {
	var setupErr *alerts.SetupError
	if !errors.As(err, &setupErr) {
		h.log.Error("api: default alerts", "err", err)
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	if errors.Is(err, alerts.ErrAmbiguousRuleState) {
		status = http.StatusConflict
	}
	reasons := make(map[string]string, len(setupErr.Errs))
	for k, e := range setupErr.Errs {
		reasons[k.Label()] = e.Error()
	}
	jsonResp(w, status, errorResponse{Error: err.Error(), Reasons: reasons})
}

// validateSettings checks a settings document before it is saved.
func validateSettings(st *types.Settings) error {
	for i, id := range st.DefaultConnectors {
		if id == "" {
			return fmt.Errorf("default_connectors[%d] is empty", i)
		}
	}
	if st.CertExpirationThreshold < 0 {
		return fmt.Errorf("cert_expiration_threshold must not be negative")
	}
	if st.CertAgeThreshold < 0 {
		return fmt.Errorf("cert_age_threshold must not be negative")
	}
	return nil
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, status int, msg string) {
	jsonResp(w, status, errorResponse{Error: msg})
}
