package planner

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/api/session"
)

type Handler struct {
	logger   *slog.Logger
	service  Service
	sessions session.Store
}

func NewPlannerHandler(service Service, sessions session.Store, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
	}
}

// Turn handles POST /turn - one free-form conversation message.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "Turn")
	defer span.End()

	l := h.logger.With(slog.String("handler", "Turn"))

	var req api.TurnRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.Bool("voice", req.Voice))

	result, err := h.service.Turn(ctx, req.SessionID, req.Message, req.Voice)
	if err != nil {
		l.ErrorContext(ctx, "Turn failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.AppErrorResponse(w, r, err)
		return
	}

	span.SetAttributes(attribute.String("intent", result.Intent))
	span.SetStatus(codes.Ok, "Turn handled")
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// Edit handles POST /edit - a direct natural-language itinerary edit.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "Edit")
	defer span.End()

	l := h.logger.With(slog.String("handler", "Edit"))

	var req api.EditRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" || req.Command == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "session_id and command are required")
		return
	}

	result, err := h.service.Edit(ctx, req.SessionID, req.Command)
	if err != nil {
		l.ErrorContext(ctx, "Edit failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.AppErrorResponse(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Edit applied")
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// Explain handles POST /explain - a question about the planned itinerary.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "Explain")
	defer span.End()

	l := h.logger.With(slog.String("handler", "Explain"))

	var req api.ExplainRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" || req.Question == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "session_id and question are required")
		return
	}

	result, err := h.service.Explain(ctx, req.SessionID, req.Question)
	if err != nil {
		l.ErrorContext(ctx, "Explain failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.AppErrorResponse(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Question answered")
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// GetSession handles GET /sessions/{id} - the full session state.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "GetSession")
	defer span.End()

	id := chi.URLParam(r, "id")
	sess, err := h.sessions.Get(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, "Session lookup failed")
		api.AppErrorResponse(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Session returned")
	api.WriteJSONResponse(w, r, http.StatusOK, sess)
}

// DeleteSession handles DELETE /sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "DeleteSession")
	defer span.End()

	id := chi.URLParam(r, "id")
	if id == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "session id is required")
		return
	}
	h.sessions.Delete(ctx, id)

	h.logger.InfoContext(ctx, "Session deleted", slog.String("session_id", id))
	span.SetStatus(codes.Ok, "Session deleted")
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
