package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeesByAmount(t *testing.T) {
	tests := []struct {
		name            string
		amount          float64
		expectedExpress float64
	}{
		{name: "small advance", amount: 5, expectedExpress: 1.99},
		{name: "ten is inclusive", amount: 10, expectedExpress: 1.99},
		{name: "fifteen is inclusive", amount: 15, expectedExpress: 2.49},
		{name: "twenty is inclusive", amount: 20, expectedExpress: 2.99},
		{name: "just under seventy five", amount: 74.99, expectedExpress: 3.99},
		{name: "seventy five is exclusive", amount: 75, expectedExpress: 4.99},
		{name: "just under one hundred", amount: 99.99, expectedExpress: 4.99},
		{name: "one hundred is exclusive", amount: 100, expectedExpress: 5.99},
		{name: "large advance", amount: 250, expectedExpress: 5.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fees := FeesByAmount(tt.amount)
			assert.Equal(t, float64(0), fees.Standard)
			assert.Equal(t, tt.expectedExpress, fees.Express)
		})
	}
}
