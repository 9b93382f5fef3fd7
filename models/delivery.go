package models

// DeliveryType is how an advance is disbursed to the user's bank account
type DeliveryType string

const (
	// DeliveryTypeStandard settles over ACH, typically three banking days
	DeliveryTypeStandard DeliveryType = "standard"

	// DeliveryTypeExpress settles same-day through a debit rail
	DeliveryTypeExpress DeliveryType = "express"
)

// DeliveryFees holds the fee for each delivery type at a given advance amount
type DeliveryFees struct {
	Standard float64
	Express  float64
}
