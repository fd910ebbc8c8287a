package handlers

import (
	"net/http"

	"github.com/calm3366/bond-portfolio/internal/api/response"
	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/service"
)

// PortfolioHandler handles HTTP requests for portfolio-wide reports.
// Every report is computed on request from the stored trades, bonds and rates.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler with the provided service dependency.
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
	}
}

// Summary handles GET requests for the portfolio summary. The computed
// summary is stored as well, so it is also the latest snapshot.
//
// Endpoint: GET /api/portfolio/summary
// Response: 200 OK with PortfolioSummary (amounts in roubles)
// Error: 500 Internal Server Error if computation fails
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolioService.Summary(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetPortfolioSummary.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}

// Positions handles GET requests for per-bond holdings with market value and weight.
//
// Endpoint: GET /api/portfolio/positions
// Response: 200 OK with PositionsReport
// Error: 500 Internal Server Error if computation fails
func (h *PortfolioHandler) Positions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.portfolioService.Positions(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetPositions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, positions)
}

// Breakdown handles GET requests for invested amounts per trade and per currency.
//
// Endpoint: GET /api/portfolio/breakdown
// Response: 200 OK with CurrencyBreakdown
// Error: 500 Internal Server Error if computation fails
func (h *PortfolioHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.portfolioService.Breakdown(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetBreakdown.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, breakdown)
}

// Coupons handles GET requests for received coupon income and upcoming coupons.
//
// Endpoint: GET /api/portfolio/coupons
// Response: 200 OK with CouponIncome
// Error: 500 Internal Server Error if computation fails
func (h *PortfolioHandler) Coupons(w http.ResponseWriter, r *http.Request) {
	income, err := h.portfolioService.CouponIncome(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveCoupons.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, income)
}
