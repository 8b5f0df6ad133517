package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	s := NewSettlement(dec("0.25"))

	tests := []struct {
		bet, pot, commission, prize string
	}{
		{"100", "200", "50", "150"},
		{"50", "100", "25", "75"},
		{"33.33", "66.66", "16.67", "49.99"},
		{"1250.50", "2501", "625.25", "1875.75"},
	}
	for _, tt := range tests {
		t.Run(tt.bet, func(t *testing.T) {
			pot, commission, prize := s.Split(dec(tt.bet))
			assertAmount(t, tt.pot, pot)
			assertAmount(t, tt.commission, commission)
			assertAmount(t, tt.prize, prize)
			assertAmount(t, pot.String(), commission.Add(prize))
		})
	}
}

func TestTieShares(t *testing.T) {
	first, second := TieShares(dec("150"))
	assertAmount(t, "75", first)
	assertAmount(t, "75", second)

	// the odd cent goes to the second share
	first, second = TieShares(dec("49.99"))
	assertAmount(t, "24.99", first)
	assertAmount(t, "25", second)
	assert.True(t, first.Add(second).Equal(dec("49.99")))
}
