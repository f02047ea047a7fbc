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

// UserService is the application surface the handler depends on.
type UserService interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]model.User, int64, error)
	Update(ctx context.Context, id string, update *model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

type UserHandler struct {
	service  UserService
	log      *logger.Logger
	maxLimit int
}

func NewUserHandler(service UserService, log *logger.Logger, maxLimit int) *UserHandler {
	return &UserHandler{
		service:  service,
		log:      log,
		maxLimit: maxLimit,
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/users", h.Create)
	router.GET("/users", h.List)
	router.GET("/users/:userId", h.GetByID)
	router.PATCH("/users/:userId", h.Update)
	router.DELETE("/users/:userId", h.Delete)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var user model.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		h.writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	created, err := h.service.Create(r.Context(), &user)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, err := h.service.GetByID(r.Context(), ps.ByName("userId"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset := httputil.ExtractLimitOffset(r, h.maxLimit)

	users, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}

	if err := httputil.WritePaginated(w, users, total, limit, offset); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	updated, err := h.service.Update(r.Context(), ps.ByName("userId"), &update)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, updated); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("userId")); err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteNoContent(w); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *UserHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "error", writeErr)
	}
}
