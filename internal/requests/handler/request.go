package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apperrors "lendly/pkg/errors"
	httputil "lendly/pkg/http"
	"lendly/pkg/logger"
	"lendly/pkg/model"
)

// RequestService is the application surface the handler depends on.
type RequestService interface {
	Create(ctx context.Context, requesterID string, request *model.ItemRequest) (*model.ItemRequest, error)
	ListOwn(ctx context.Context, requesterID string) ([]model.ItemRequestView, error)
	ListOthers(ctx context.Context, requesterID string, limit int, offset int64) ([]model.ItemRequestView, error)
	GetByID(ctx context.Context, callerID, requestID string) (*model.ItemRequestView, error)
}

type RequestHandler struct {
	service  RequestService
	log      *logger.Logger
	maxLimit int
}

func NewRequestHandler(service RequestService, log *logger.Logger, maxLimit int) *RequestHandler {
	return &RequestHandler{
		service:  service,
		log:      log,
		maxLimit: maxLimit,
	}
}

func (h *RequestHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/requests", h.Create)
	router.GET("/requests", h.ListOwn)
	router.GET("/requests/:requestId", h.GetByID)
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var request model.ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	created, err := h.service.Create(r.Context(), callerID, &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *RequestHandler) ListOwn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views, err := h.service.ListOwn(r.Context(), callerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, views); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *RequestHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// The router cannot hold both /requests/all and /requests/:requestId, so
	// the others listing is dispatched from here.
	if ps.ByName("requestId") == "all" {
		h.ListOthers(w, r, ps)
		return
	}

	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	view, err := h.service.GetByID(r.Context(), callerID, ps.ByName("requestId"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *RequestHandler) ListOthers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit, offset := httputil.ExtractLimitOffset(r, h.maxLimit)

	views, err := h.service.ListOthers(r.Context(), callerID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, views); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *RequestHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "error", writeErr)
	}
}
