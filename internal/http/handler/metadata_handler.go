package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/crm-api/internal/domain"
	"github.com/straye-as/crm-api/internal/service"
	"go.uber.org/zap"
)

// MetadataHandler serves the country and currency reference lists
type MetadataHandler struct {
	metadataService *service.MetadataService
	logger          *zap.Logger
}

func NewMetadataHandler(metadataService *service.MetadataService, logger *zap.Logger) *MetadataHandler {
	return &MetadataHandler{
		metadataService: metadataService,
		logger:          logger,
	}
}

// ListCountries godoc
// @Summary List countries
// @Tags Metadata
// @Produce json
// @Success 200 {object} domain.ListResponse[domain.Country]
// @Router /metadata/countries [get]
func (h *MetadataHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.metadataService.Countries(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, countries)
}

// UpsertCountry godoc
// @Summary Add or replace a country
// @Tags Metadata
// @Accept json
// @Produce json
// @Param request body domain.UpsertCountryRequest true "Country"
// @Success 200 {object} domain.ListResponse[domain.Country]
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /metadata/countries [post]
func (h *MetadataHandler) UpsertCountry(w http.ResponseWriter, r *http.Request) {
	var req domain.UpsertCountryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	countries, err := h.metadataService.UpsertCountry(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, countries)
}

// DeleteCountry godoc
// @Summary Remove a country
// @Tags Metadata
// @Produce json
// @Param code path string true "ISO country code"
// @Success 200 {object} domain.ListResponse[domain.Country]
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /metadata/countries/{code} [delete]
func (h *MetadataHandler) DeleteCountry(w http.ResponseWriter, r *http.Request) {
	countries, err := h.metadataService.DeleteCountry(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, countries)
}

// ListCurrencies godoc
// @Summary List currencies
// @Tags Metadata
// @Produce json
// @Success 200 {object} domain.ListResponse[domain.Currency]
// @Router /metadata/currencies [get]
func (h *MetadataHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.metadataService.Currencies(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, currencies)
}

// UpsertCurrency godoc
// @Summary Add or replace a currency
// @Tags Metadata
// @Accept json
// @Produce json
// @Param request body domain.UpsertCurrencyRequest true "Currency"
// @Success 200 {object} domain.ListResponse[domain.Currency]
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /metadata/currencies [post]
func (h *MetadataHandler) UpsertCurrency(w http.ResponseWriter, r *http.Request) {
	var req domain.UpsertCurrencyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	currencies, err := h.metadataService.UpsertCurrency(r.Context(), &req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, currencies)
}

// DeleteCurrency godoc
// @Summary Remove a currency
// @Tags Metadata
// @Produce json
// @Param code path string true "ISO currency code"
// @Success 200 {object} domain.ListResponse[domain.Currency]
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /metadata/currencies/{code} [delete]
func (h *MetadataHandler) DeleteCurrency(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.metadataService.DeleteCurrency(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, currencies)
}
