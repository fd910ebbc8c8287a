package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/calm3366/bond-portfolio/internal/api/request"
	"github.com/calm3366/bond-portfolio/internal/api/response"
	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/service"
	"github.com/calm3366/bond-portfolio/internal/validation"
)

// BondHandler handles HTTP requests for bond endpoints: the tracked list,
// per-bond data loading and the market-wide search.
type BondHandler struct {
	bondService   *service.BondService
	searchService *service.SearchService
}

// NewBondHandler creates a new BondHandler with the provided service dependencies.
func NewBondHandler(bondService *service.BondService, searchService *service.SearchService) *BondHandler {
	return &BondHandler{
		bondService:   bondService,
		searchService: searchService,
	}
}

// Bonds handles GET requests to list every tracked bond.
//
// Endpoint: GET /api/bond
// Response: 200 OK with array of Bond
// Error: 500 Internal Server Error if retrieval fails
func (h *BondHandler) Bonds(w http.ResponseWriter, r *http.Request) {
	bonds, err := h.bondService.GetBonds(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveBonds.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, bonds)
}

// GetBond handles GET requests to retrieve a single tracked bond.
//
// Endpoint: GET /api/bond/{uuid}
// Response: 200 OK with Bond
// Error: 400 Bad Request if bond ID is invalid (validated by middleware)
// Error: 404 Not Found if the bond is not tracked
// Error: 500 Internal Server Error if retrieval fails
func (h *BondHandler) GetBond(w http.ResponseWriter, r *http.Request) {
	bond, err := h.bondService.GetBond(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		if errors.Is(err, apperrors.ErrBondNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrBondNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveBond.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, bond)
}

// AddBond handles POST requests to start tracking a bond by SECID or ISIN.
// The bond's data is loaded from every source before responding. Adding a
// bond that is already tracked refreshes it.
//
// Endpoint: POST /api/bond
// Request Body: AddBondRequest (identifier)
// Response: 201 Created with Bond
// Error: 400 Bad Request if the identifier is missing or malformed
// Error: 404 Not Found if no data source knows the identifier
// Error: 500 Internal Server Error if storing fails
func (h *BondHandler) AddBond(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.AddBondRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateAddBond(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", validationDetails(err))
		return
	}

	bond, err := h.bondService.AddBond(r.Context(), req.Identifier)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidIdentifier):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidIdentifier.Error(), err.Error())
		case errors.Is(err, apperrors.ErrBondNotFoundAtSource):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrBondNotFoundAtSource.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToAddBond.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusCreated, bond)
}

// DeleteBond handles DELETE requests to stop tracking a bond. Its trades and
// coupon schedule are removed with it.
//
// Endpoint: DELETE /api/bond/{uuid}
// Response: 204 No Content on successful deletion
// Error: 400 Bad Request if bond ID is invalid (validated by middleware)
// Error: 404 Not Found if the bond is not tracked
// Error: 500 Internal Server Error if deletion fails
func (h *BondHandler) DeleteBond(w http.ResponseWriter, r *http.Request) {
	err := h.bondService.DeleteBond(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		if errors.Is(err, apperrors.ErrBondNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrBondNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to delete bond", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// RefreshBond handles POST requests to reload one bond from every source.
// When no source answers, the stored data is kept and the bond is returned
// with a stale_reason.
//
// Endpoint: POST /api/bond/{uuid}/refresh
// Response: 200 OK with Bond
// Error: 400 Bad Request if bond ID is invalid (validated by middleware)
// Error: 404 Not Found if the bond is not tracked
// Error: 500 Internal Server Error if storing fails
func (h *BondHandler) RefreshBond(w http.ResponseWriter, r *http.Request) {
	bond, err := h.bondService.RefreshByID(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		if errors.Is(err, apperrors.ErrBondNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrBondNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRefreshBonds.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, bond)
}

// RefreshAll handles POST requests to reload every tracked bond.
//
// Endpoint: POST /api/bond/refresh
// Response: 200 OK with RefreshReport
// Error: 500 Internal Server Error if the tracked list cannot be read
func (h *BondHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.bondService.RefreshAll(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRefreshBonds.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// BondCoupons handles GET requests for a tracked bond's coupon schedule.
//
// Endpoint: GET /api/bond/{uuid}/coupons
// Response: 200 OK with array of Coupon ordered by date
// Error: 400 Bad Request if bond ID is invalid (validated by middleware)
// Error: 404 Not Found if the bond is not tracked
// Error: 500 Internal Server Error if retrieval fails
func (h *BondHandler) BondCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.bondService.GetCoupons(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		if errors.Is(err, apperrors.ErrBondNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrBondNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveCoupons.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, coupons)
}

// BondOpenValues handles GET requests for a bond's day, week, month and year
// opening prices, resolved live from the exchange.
//
// Endpoint: GET /api/bond/{uuid}/open
// Response: 200 OK with OpenValues (unresolved points are null)
// Error: 400 Bad Request if bond ID is invalid (validated by middleware)
// Error: 404 Not Found if the bond is not tracked
// Error: 500 Internal Server Error if retrieval fails
func (h *BondHandler) BondOpenValues(w http.ResponseWriter, r *http.Request) {
	open, err := h.bondService.GetOpenValues(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		if errors.Is(err, apperrors.ErrBondNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrBondNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveBond.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, open)
}

// SearchBonds handles GET requests to search every bond market segment.
//
// Endpoint: GET /api/bond/search
// Query Parameters:
//   - q: Required. Substring of SECID, ISIN, name or issuer
//   - coupon_from, coupon_to: Optional coupon rate bounds in percent
//   - maturity_from, maturity_to: Optional maturity bounds (YYYY-MM-DD)
//   - rating: Optional case-insensitive rating substring
//
// Response: 200 OK with array of BondSearchResult
// Error: 400 Bad Request if a parameter is invalid
// Error: 502 Bad Gateway if no market could be listed
func (h *BondHandler) SearchBonds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := request.ParseSearchFilter(
		q.Get("q"),
		q.Get("coupon_from"),
		q.Get("coupon_to"),
		q.Get("maturity_from"),
		q.Get("maturity_to"),
		q.Get("rating"),
	)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid search parameters", err.Error())
		return
	}

	results, err := h.searchService.Search(r.Context(), filter)
	if err != nil {
		response.RespondError(w, http.StatusBadGateway, apperrors.ErrFailedToSearchBonds.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, results)
}
