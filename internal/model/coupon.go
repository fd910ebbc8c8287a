package model

import "time"

// Coupon is a scheduled coupon payment of a bond.
type Coupon struct {
	ID       int64     `json:"id"`
	BondID   string    `json:"bond_id"`
	Date     time.Time `json:"date"`
	Value    *float64  `json:"value"`
	Currency *string   `json:"currency"`
	IsPast   bool      `json:"is_past"`
}
