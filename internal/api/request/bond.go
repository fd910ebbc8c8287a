package request

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/calm3366/bond-portfolio/internal/model"
)

// AddBondRequest is the body of POST /api/bond.
type AddBondRequest struct {
	Identifier string `json:"identifier" validate:"required,min=3,max=36"`
}

// RefreshRatesRequest is the optional body of POST /api/fx/refresh.
type RefreshRatesRequest struct {
	Currencies []string `json:"currencies" validate:"omitempty,dive,currency"`
}

// ParseSearchFilter builds a bond search filter from query parameters. All
// bounds are optional; dates are YYYY-MM-DD.
func ParseSearchFilter(query, couponFrom, couponTo, maturityFrom, maturityTo, rating string) (model.BondSearchFilter, error) {
	f := model.BondSearchFilter{
		Query:  strings.TrimSpace(query),
		Rating: strings.TrimSpace(rating),
	}
	if f.Query == "" {
		return f, fmt.Errorf("q is required")
	}

	var err error
	if f.CouponFrom, err = parseOptionalFloat("coupon_from", couponFrom); err != nil {
		return f, err
	}
	if f.CouponTo, err = parseOptionalFloat("coupon_to", couponTo); err != nil {
		return f, err
	}
	if f.MaturityFrom, err = parseOptionalDate("maturity_from", maturityFrom); err != nil {
		return f, err
	}
	if f.MaturityTo, err = parseOptionalDate("maturity_to", maturityTo); err != nil {
		return f, err
	}

	if f.CouponFrom != nil && f.CouponTo != nil && *f.CouponFrom > *f.CouponTo {
		return f, fmt.Errorf("coupon_from must not exceed coupon_to")
	}
	if f.MaturityFrom != nil && f.MaturityTo != nil && f.MaturityFrom.After(*f.MaturityTo) {
		return f, fmt.Errorf("maturity_from must not be after maturity_to")
	}
	return f, nil
}

func parseOptionalFloat(name, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: must be a number", name)
	}
	return &v, nil
}

func parseOptionalDate(name, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: %w", name, err)
	}
	return &t, nil
}
