package service

import (
	"advancer/models"
)

// FeesByAmount returns the delivery fees for an advance of the given
// amount. Standard ACH delivery is always free; the express fee is
// tiered on the advance amount.
func FeesByAmount(amount float64) models.DeliveryFees {
	var express float64
	switch {
	case amount <= 10:
		express = 1.99
	case amount <= 15:
		express = 2.49
	case amount <= 20:
		express = 2.99
	case amount < 75:
		express = 3.99
	case amount < 100:
		express = 4.99
	default:
		express = 5.99
	}

	return models.DeliveryFees{
		Standard: 0,
		Express:  express,
	}
}
