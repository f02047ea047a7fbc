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

// ItemService is the application surface the handler depends on.
type ItemService interface {
	Create(ctx context.Context, ownerID string, item *model.Item) (*model.Item, error)
	Update(ctx context.Context, callerID, itemID string, update *model.ItemUpdate) (*model.Item, error)
	GetByID(ctx context.Context, callerID, itemID string) (*model.ItemView, error)
	ListByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]model.ItemView, int64, error)
	Search(ctx context.Context, text string, limit int, offset int64) ([]model.Item, error)
	Delete(ctx context.Context, callerID, itemID string) error
	AddComment(ctx context.Context, authorID, itemID string, comment *model.Comment) (*model.Comment, error)
}

type ItemHandler struct {
	service  ItemService
	log      *logger.Logger
	maxLimit int
}

func NewItemHandler(service ItemService, log *logger.Logger, maxLimit int) *ItemHandler {
	return &ItemHandler{
		service:  service,
		log:      log,
		maxLimit: maxLimit,
	}
}

func (h *ItemHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/items", h.Create)
	router.GET("/items", h.ListByOwner)
	router.GET("/items/:itemId", h.GetByID)
	router.PATCH("/items/:itemId", h.Update)
	router.DELETE("/items/:itemId", h.Delete)
	router.POST("/items/:itemId/comment", h.AddComment)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var item model.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		h.writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	created, err := h.service.Create(r.Context(), callerID, &item)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var update model.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	updated, err := h.service.Update(r.Context(), callerID, ps.ByName("itemId"), &update)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, updated); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *ItemHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	// The router cannot hold both /items/search and /items/:itemId, so the
	// search endpoint is dispatched from here.
	if ps.ByName("itemId") == "search" {
		h.Search(w, r, ps)
		return
	}

	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	view, err := h.service.GetByID(r.Context(), callerID, ps.ByName("itemId"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *ItemHandler) ListByOwner(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit, offset := httputil.ExtractLimitOffset(r, h.maxLimit)

	views, total, err := h.service.ListByOwner(r.Context(), callerID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WritePaginated(w, views, total, limit, offset); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *ItemHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset := httputil.ExtractLimitOffset(r, h.maxLimit)

	items, err := h.service.Search(r.Context(), r.URL.Query().Get("text"), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, items); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), callerID, ps.ByName("itemId")); err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteNoContent(w); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *ItemHandler) AddComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	callerID, err := httputil.CallerID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var comment model.Comment
	if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
		h.writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	created, err := h.service.AddComment(r.Context(), callerID, ps.ByName("itemId"), &comment)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write response", "error", err)
	}
}

func (h *ItemHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "error", writeErr)
	}
}
