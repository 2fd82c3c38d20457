package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedCoercesNonFiniteValues(t *testing.T) {
	m := ProviderMetrics{
		TotalDeliveries:    3,
		AvgDeliveryTime:    math.NaN(),
		CustomerRating:     math.Inf(1),
		OnTimeDeliveryRate: math.Inf(-1),
		Revenue:            1500,
	}

	got := m.Sanitized().(ProviderMetrics)

	assert.Equal(t, 0.0, got.AvgDeliveryTime)
	assert.Equal(t, 0.0, got.CustomerRating)
	assert.Equal(t, 0.0, got.OnTimeDeliveryRate)
	assert.Equal(t, 3, got.TotalDeliveries)
	assert.Equal(t, 1500.0, got.Revenue)
}

func TestIsZero(t *testing.T) {
	assert.True(t, ProviderMetrics{}.IsZero())
	assert.True(t, SellerMetrics{}.IsZero())
	assert.True(t, AgentMetrics{}.IsZero())

	assert.False(t, ProviderMetrics{TotalDeliveries: 1}.IsZero())
	assert.False(t, SellerMetrics{Revenue: 0.01}.IsZero())
	assert.False(t, AgentMetrics{TotalCalls: 1}.IsZero())
}
