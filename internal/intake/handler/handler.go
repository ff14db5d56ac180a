package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"solarintake/internal/geodesy"
	"solarintake/internal/intake/events"
	"solarintake/internal/intake/masking"
	"solarintake/internal/intake/models"
	"solarintake/internal/intake/orchestrator"
	"solarintake/internal/intake/power"
	"solarintake/internal/intake/utilities"
	"solarintake/internal/intake/validation"
	"solarintake/internal/platform/metrics"
	"solarintake/internal/platform/middleware"
	dErrors "solarintake/pkg/domain-errors"
	"solarintake/pkg/platform/httputil"
	"solarintake/pkg/platform/sentinel"
)

// Sessions is the session registry the handler works against.
type Sessions interface {
	Create(ctx context.Context) *orchestrator.Session
	Get(ctx context.Context, id uuid.UUID) (*orchestrator.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventLog reads back the resolution events recorded for a session.
type EventLog interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]events.Event, error)
}

// Handler exposes intake sessions and the stateless pipeline stages over
// HTTP.
type Handler struct {
	sessions Sessions
	logger   *slog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	eventLog EventLog
}

type Option func(*Handler)

// WithEventLog enables GET /v1/sessions/{id}/events.
func WithEventLog(l EventLog) Option { return func(h *Handler) { h.eventLog = l } }

func New(sessions Sessions, logger *slog.Logger, metrics *metrics.Metrics, timeout time.Duration, opts ...Option) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	h := &Handler{
		sessions: sessions,
		logger:   logger,
		metrics:  metrics,
		timeout:  timeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the /v1 routes on r.
func (h *Handler) Register(r chi.Router) {
	intakeRouter := chi.NewRouter()
	intakeRouter.Use(middleware.Recovery(h.logger))
	intakeRouter.Use(middleware.RequestID)
	intakeRouter.Use(middleware.Logger(h.logger))
	intakeRouter.Use(middleware.Timeout(h.timeout))
	intakeRouter.Use(middleware.ContentTypeJSON)
	intakeRouter.Use(middleware.LatencyMiddleware(h.metrics))

	intakeRouter.Post("/v1/sessions", h.handleCreateSession)
	intakeRouter.Route("/v1/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleDeleteSession)
		r.Post("/edits", h.handleApplyEdits)
		r.Post("/prefill", h.handlePrefill)
		r.Post("/validate", h.handleValidate)
		r.Post("/proposal", h.handleProposal)
		if h.eventLog != nil {
			r.Get("/events", h.handleListEvents)
		}
	})
	intakeRouter.Post("/v1/mask", h.handleMask)
	intakeRouter.Get("/v1/projection", h.handleProjection)
	intakeRouter.Get("/v1/power", h.handlePower)
	intakeRouter.Get("/v1/utilities", h.handleUtilities)
	intakeRouter.Get("/v1/options", h.handleOptions)

	r.Mount("/", intakeRouter)
}

type createSessionRequest struct {
	Prefill *models.ExistingClient `json:"prefill,omitempty"`
}

type editsRequest struct {
	Edits []models.RawFieldEdit `json:"edits"`
}

type validateResponse struct {
	Valid   bool                                         `json:"valid"`
	Errors  map[models.FieldName]orchestrator.FieldError `json:"errors"`
	Session orchestrator.View                            `json:"session"`
}

type maskRequest struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSessionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.badRequest(ctx, w, "invalid create session request", err)
		return
	}

	session := h.sessions.Create(ctx)
	view := session.View()
	if req.Prefill != nil {
		var err error
		if view, err = session.Prefill(ctx, *req.Prefill); err != nil {
			h.writeSessionError(ctx, w, err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session.View())
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid session id"))
		return
	}
	if err := h.sessions.Delete(ctx, id); err != nil {
		h.writeSessionError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleApplyEdits applies the edits in order; each one is masked and
// committed before the next.
func (h *Handler) handleApplyEdits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req editsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(ctx, w, "invalid edits request", err)
		return
	}
	if len(req.Edits) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "edits must not be empty"))
		return
	}

	view := session.View()
	for _, edit := range req.Edits {
		var err error
		if view, err = session.Apply(ctx, edit); err != nil {
			h.writeSessionError(ctx, w, err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handlePrefill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var client models.ExistingClient
	if err := json.NewDecoder(r.Body).Decode(&client); err != nil {
		h.badRequest(ctx, w, "invalid prefill request", err)
		return
	}
	view, err := session.Prefill(ctx, client)
	if err != nil {
		h.writeSessionError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	view, res, err := session.Validate(ctx)
	if err != nil {
		h.writeSessionError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, validateResponse{
		Valid:   res.Valid(),
		Errors:  fieldErrors(res),
		Session: view,
	})
}

func (h *Handler) handleProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	out, res, err := session.Finalize(ctx)
	switch {
	case dErrors.Is(err, dErrors.CodeValidation):
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":             string(dErrors.CodeValidation),
			"error_description": "intake has invalid fields",
			"fields":            fieldErrors(res),
		})
		return
	case err != nil:
		h.writeSessionError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	list, err := h.eventLog.ListBySession(ctx, session.ID())
	if err != nil {
		h.writeSessionError(ctx, w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list session events"))
		return
	}
	if list == nil {
		list = []events.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": list})
}

func (h *Handler) handleMask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req maskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(ctx, w, "invalid mask request", err)
		return
	}
	kind, ok := masking.ParseKind(req.Kind)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown mask kind"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, maskRequest{Kind: kind.String(), Value: masking.Mask(kind, req.Value)})
}

func (h *Handler) handleProjection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "lat and lon must be decimal degrees"))
		return
	}
	coord := geodesy.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error()))
		return
	}

	p := geodesy.ProjectCoordinate(coord)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"coordinate": coord,
		"projection": p,
		"utm":        p.String(),
	})
}

func (h *Handler) handlePower(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	phase := models.PhaseSplit
	if raw := q.Get("phase"); raw != "" {
		var ok bool
		if phase, ok = models.ParsePhase(raw); !ok {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown phase type"))
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"voltage":         q.Get("voltage"),
		"main_breaker":    q.Get("breaker"),
		"connection_type": string(phase),
		"available_power": power.Derive(q.Get("voltage"), q.Get("breaker"), phase),
	})
}

func (h *Handler) handleUtilities(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string][]string{
		"utilities": utilities.Suggest(r.URL.Query().Get("q")),
	})
}

func (h *Handler) handleOptions(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, utilities.FormOptions())
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*orchestrator.Session, bool) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid session id"))
		return nil, false
	}
	session, err := h.sessions.Get(ctx, id)
	if err != nil {
		h.writeSessionError(ctx, w, err)
		return nil, false
	}
	return session, true
}

// writeSessionError maps session failures; a closed session reads as gone.
func (h *Handler) writeSessionError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, sentinel.ErrClosed) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "session not found"))
		return
	}
	if _, coded := dErrors.From(err); !coded || dErrors.Is(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "intake request failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func (h *Handler) badRequest(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func fieldErrors(res validation.Result) map[models.FieldName]orchestrator.FieldError {
	out := make(map[models.FieldName]orchestrator.FieldError, len(res))
	for f, kind := range res {
		out[f] = orchestrator.FieldError{Kind: kind, Message: kind.Message()}
	}
	return out
}
