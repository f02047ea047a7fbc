package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	apperrors "lendly/pkg/errors"
	httputil "lendly/pkg/http"
	"lendly/pkg/logger"
	"lendly/pkg/model"
)

// BookingService is the application surface the handler depends on.
type BookingService interface {
	Create(ctx context.Context, bookerID string, booking *model.Booking) (*model.Booking, error)
	Decide(ctx context.Context, callerID, bookingID string, approve bool) (*model.Booking, error)
	GetByID(ctx context.Context, callerID, bookingID string) (*model.Booking, error)
	ListForBooker(ctx context.Context, bookerID, state string, limit int, offset int64) ([]model.Booking, error)
	ListForOwner(ctx context.Context, ownerID, state string, limit int, offset int64) ([]model.Booking, error)
}

type BookingHandler struct {
	service  BookingService
	log      *logger.Logger
	maxLimit int
}

func NewBookingHandler(service BookingService, log *logger.Logger, maxLimit int) *BookingHandler {
	return &BookingHandler{
		service:  service,
		log:      log,
		maxLimit: maxLimit,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/bookings", h.Create)
	router.GET("/bookings", h.ListForBooker)
	router.GET("/bookings/:bookingId", h.GetByID)
	router.PATCH("/bookings/:bookingId", h.Decide)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var booking model.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		h.writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	created, err := h.service.Create(r.Context(), callerID, &booking)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *BookingHandler) Decide(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	approved, err := strconv.ParseBool(r.URL.Query().Get("approved"))
	if err != nil {
		h.writeError(w, apperrors.InvalidInput("approved must be true or false"))
		return
	}

	decided, err := h.service.Decide(r.Context(), callerID, ps.ByName("bookingId"), approved)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, decided); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// The router cannot hold both /bookings/owner and /bookings/:bookingId,
	// so the owner listing is dispatched from here.
	if ps.ByName("bookingId") == "owner" {
		h.ListForOwner(w, r, ps)
		return
	}

	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	booking, err := h.service.GetByID(r.Context(), callerID, ps.ByName("bookingId"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *BookingHandler) ListForBooker(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit, offset := httputil.ExtractLimitOffset(r, h.maxLimit)

	bookings, err := h.service.ListForBooker(r.Context(), callerID, r.URL.Query().Get("state"), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *BookingHandler) ListForOwner(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit, offset := httputil.ExtractLimitOffset(r, h.maxLimit)

	bookings, err := h.service.ListForOwner(r.Context(), callerID, r.URL.Query().Get("state"), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "error", writeErr)
	}
}
