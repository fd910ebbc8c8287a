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

// TradeHandler handles HTTP requests for trade endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the tradeService.
type TradeHandler struct {
	tradeService *service.TradeService
}

// NewTradeHandler creates a new TradeHandler with the provided service dependency.
func NewTradeHandler(tradeService *service.TradeService) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
	}
}

// Trades handles GET requests to list trades.
//
// Endpoint: GET /api/trade
// Query Parameters:
//   - bond_id: Optional. Only trades of this bond
//
// Response: 200 OK with array of Trade
// Error: 400 Bad Request if bond_id is not a UUID
// Error: 500 Internal Server Error if retrieval fails
func (h *TradeHandler) Trades(w http.ResponseWriter, r *http.Request) {
	bondID := r.URL.Query().Get("bond_id")
	if bondID != "" {
		if err := validation.ValidateUUID(bondID); err != nil {
			response.RespondError(w, http.StatusBadRequest, "invalid bond_id", err.Error())
			return
		}
	}

	trades, err := h.tradeService.GetTrades(r.Context(), bondID)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTrades.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, trades)
}

// GetTrade handles GET requests to retrieve a single trade by ID.
//
// Endpoint: GET /api/trade/{uuid}
// Response: 200 OK with Trade
// Error: 400 Bad Request if trade ID is invalid (validated by middleware)
// Error: 404 Not Found if trade not found
// Error: 500 Internal Server Error if retrieval fails
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := h.tradeService.GetTrade(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		if errors.Is(err, apperrors.ErrTradeNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTradeNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTrade.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, trade)
}

// CreateTrade handles POST requests to record a trade against a tracked bond.
//
// Endpoint: POST /api/trade
// Request Body: CreateTradeRequest (bond_id, buy_date, buy_qty required)
// Response: 201 Created with Trade
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 404 Not Found if the bond is not tracked
// Error: 500 Internal Server Error if creation fails
func (h *TradeHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTradeRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateTrade(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", validationDetails(err))
		return
	}

	trade, err := h.tradeService.CreateTrade(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperrors.ErrBondNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrBondNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to create trade", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, trade)
}

// UpdateTrade handles PUT requests to update an existing trade.
// Only the fields present in the body change; the merged trade must still be consistent.
//
// Endpoint: PUT /api/trade/{uuid}
// Request Body: UpdateTradeRequest (all fields optional)
// Response: 200 OK with updated Trade
// Error: 400 Bad Request if trade ID is invalid (validated by middleware) or validation fails
// Error: 404 Not Found if trade not found
// Error: 500 Internal Server Error if update fails
func (h *TradeHandler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateTradeRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	existing, err := h.tradeService.GetTrade(r.Context(), tradeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTradeNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTradeNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTrade.Error(), err.Error())
		return
	}

	var sellDate *string
	if existing.SellDate != nil {
		s := existing.SellDate.Format("2006-01-02")
		sellDate = &s
	}
	if err := validation.ValidateUpdateTrade(req, existing.BuyDate.Format("2006-01-02"), existing.BuyQty, sellDate, existing.SellQty); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", validationDetails(err))
		return
	}

	trade, err := h.tradeService.UpdateTrade(r.Context(), tradeID, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrTradeNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTradeNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to update trade", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, trade)
}

// DeleteTrade handles DELETE requests to remove a trade.
//
// Endpoint: DELETE /api/trade/{uuid}
// Response: 204 No Content on successful deletion
// Error: 400 Bad Request if trade ID is invalid (validated by middleware)
// Error: 404 Not Found if trade not found
// Error: 500 Internal Server Error if deletion fails
func (h *TradeHandler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	err := h.tradeService.DeleteTrade(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		if errors.Is(err, apperrors.ErrTradeNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTradeNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to delete trade", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
