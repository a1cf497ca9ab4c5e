package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

type PriceBookHandler struct {
	priceBookService *service.PriceBookService
	logger           *zap.Logger
}

func NewPriceBookHandler(priceBookService *service.PriceBookService, logger *zap.Logger) *PriceBookHandler {
	return &PriceBookHandler{
		priceBookService: priceBookService,
		logger:           logger,
	}
}

// List godoc
// @Summary List price book
// @Tags PriceBook
// @Produce json
// @Param limit query int false "Maximum number of items"
// @Success 200 {object} domain.ListResponse[domain.PriceBookItem]
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /price-book [get]
func (h *PriceBookHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.priceBookService.List(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, items)
}

// GetByID godoc
// @Summary Get price book item
// @Tags PriceBook
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} domain.PriceBookItem
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /price-book/{id} [get]
func (h *PriceBookHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	item, err := h.priceBookService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Create godoc
// @Summary Create price book item
// @Description Item name and currency must be unique after trimming, lowercasing and collapsing whitespace
// @Tags PriceBook
// @Accept json
// @Produce json
// @Param request body domain.CreatePriceBookItemRequest true "Item data"
// @Success 201 {object} domain.PriceBookItem
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /price-book [post]
func (h *PriceBookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePriceBookItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.priceBookService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/price-book/"+item.ID)
	respondJSON(w, http.StatusCreated, item)
}

// Update godoc
// @Summary Update price book item
// @Tags PriceBook
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param request body domain.UpdatePriceBookItemRequest true "Item data"
// @Success 200 {object} domain.PriceBookItem
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /price-book/{id} [put]
func (h *PriceBookHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePriceBookItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.priceBookService.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Delete godoc
// @Summary Delete price book item
// @Tags PriceBook
// @Param id path string true "Item ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /price-book/{id} [delete]
func (h *PriceBookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.priceBookService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
