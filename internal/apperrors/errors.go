package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrBondNotFound indicates that a bond with the given ID or SECID is not tracked.
	ErrBondNotFound = errors.New("bond not found")

	// ErrBondNotFoundAtSource indicates that neither provider knows the requested identifier.
	ErrBondNotFoundAtSource = errors.New("bond not found at any data source")

	// ErrTradeNotFound indicates that a trade with the given ID does not exist.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrExchangeRateNotFound indicates no stored rate for a currency.
	ErrExchangeRateNotFound = errors.New("exchange rate not found")

	// ErrSummaryNotFound indicates the portfolio summary has never been computed.
	ErrSummaryNotFound = errors.New("portfolio summary not found")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrInvalidIdentifier indicates an empty or malformed SECID/ISIN.
	ErrInvalidIdentifier = errors.New("invalid bond identifier")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrInvalidDateRange indicates that the provided date range is invalid.
	ErrInvalidDateRange = errors.New("invalid date range")
)

// Provider errors describe failures of the external data sources. They never abort a
// refresh; callers record them as missing data.
var (
	ErrProviderUnavailable = errors.New("data provider unavailable")
	ErrProviderStatus      = errors.New("data provider returned non-success status")
	ErrProviderPayload     = errors.New("data provider returned malformed payload")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToRetrieveBonds   = errors.New("failed to retrieve bonds")
	ErrFailedToRetrieveBond    = errors.New("failed to retrieve bond")
	ErrFailedToAddBond         = errors.New("failed to add bond")
	ErrFailedToRefreshBonds    = errors.New("failed to refresh bonds")
	ErrFailedToSearchBonds     = errors.New("failed to search bonds")
	ErrFailedToRetrieveCoupons = errors.New("failed to retrieve coupons")

	ErrFailedToRetrieveTrades = errors.New("failed to retrieve trades")
	ErrFailedToRetrieveTrade  = errors.New("failed to retrieve trade")

	ErrFailedToGetPortfolioSummary = errors.New("failed to get portfolio summary")
	ErrFailedToGetPositions        = errors.New("failed to get portfolio positions")
	ErrFailedToGetBreakdown        = errors.New("failed to get currency breakdown")

	ErrFailedToRetrieveRates = errors.New("failed to retrieve exchange rates")
	ErrFailedToUpdateRates   = errors.New("failed to update exchange rates")

	ErrFailedToRetrieveEvents = errors.New("failed to retrieve events")
	ErrFailedToGetVersionInfo = errors.New("failed to get version information")
)
