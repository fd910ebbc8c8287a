package handlers

import (
	"net/http"

	"github.com/calm3366/bond-portfolio/internal/api/request"
	"github.com/calm3366/bond-portfolio/internal/api/response"
	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/service"
	"github.com/calm3366/bond-portfolio/internal/validation"
)

// FxHandler handles HTTP requests for exchange rates.
type FxHandler struct {
	fxService *service.FxService
}

// NewFxHandler creates a new FxHandler with the provided service dependency.
func NewFxHandler(fxService *service.FxService) *FxHandler {
	return &FxHandler{
		fxService: fxService,
	}
}

// Rates handles GET requests for the stored exchange rates.
//
// Endpoint: GET /api/fx
// Response: 200 OK with array of FxRate ordered by currency
// Error: 500 Internal Server Error if retrieval fails
func (h *FxHandler) Rates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.fxService.GetRates(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveRates.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, rates)
}

// RefreshRates handles POST requests to fetch and store central bank rates.
// The body is optional; without currencies every currency in use is refreshed.
//
// Endpoint: POST /api/fx/refresh
// Request Body: RefreshRatesRequest (optional)
// Response: 200 OK with array of the stored FxRate rows
// Error: 400 Bad Request if a currency code is invalid
// Error: 502 Bad Gateway if the central bank could not be reached
func (h *FxHandler) RefreshRates(w http.ResponseWriter, r *http.Request) {
	var req request.RefreshRatesRequest
	if r.ContentLength != 0 {
		parsed, err := parseJSON[request.RefreshRatesRequest](r)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		req = parsed
	}

	if err := validation.ValidateRefreshRates(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", validationDetails(err))
		return
	}

	rates, err := h.fxService.UpdateRates(r.Context(), req.Currencies)
	if err != nil {
		response.RespondError(w, http.StatusBadGateway, apperrors.ErrFailedToUpdateRates.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, rates)
}
