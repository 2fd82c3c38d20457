package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/logistics-leaderboard/internal/domain"
)

func TestScore_Provider(t *testing.T) {
	m := domain.ProviderMetrics{
		SuccessfulDeliveries: 10,
		CustomerRating:       4.5,
		OnTimeDeliveryRate:   90,
		CancellationRate:     10,
		Revenue:              50000,
	}

	// 10*10 + 4.5*20 + 90*2 + (100-10)*1 + 50*5
	assert.InDelta(t, 710.0, Score(m), 1e-9)
}

func TestScore_Seller(t *testing.T) {
	m := domain.SellerMetrics{
		ConfirmedOrders: 3,
		ConversionRate:  60,
		DeliveredOrders: 1,
		ReturnRate:      2,
		Revenue:         500,
	}

	// 3*10 + 60*3 + 1*5 + (100-2)*2 + 0.5*5
	assert.InDelta(t, 413.5, Score(m), 1e-9)
}

func TestScore_Agent(t *testing.T) {
	m := domain.AgentMetrics{
		ConfirmedOrders:           4,
		DeliveredOrders:           4,
		CallSuccessRate:           40,
		OrderConfirmationRate:     80,
		CustomerSatisfactionScore: 4.2,
		DailyTargetAchievement:    96,
	}

	// 4*15 + 4*20 + 40*2 + 80*3 + 4.2*25 + 96*1
	assert.InDelta(t, 661.0, Score(m), 1e-9)
}

func TestScore_RevenueContributionCapped(t *testing.T) {
	capped := Score(domain.ProviderMetrics{Revenue: 1e9, SuccessfulDeliveries: 1})
	atCap := Score(domain.ProviderMetrics{Revenue: 100_000, SuccessfulDeliveries: 1})

	assert.Equal(t, atCap, capped)
}

func TestScore_ZeroActivityScoresZero(t *testing.T) {
	// Empty bundles must not collect the formula's constant terms
	assert.Equal(t, 0.0, Score(domain.ProviderMetrics{}))
	assert.Equal(t, 0.0, Score(domain.SellerMetrics{}))
	assert.Equal(t, 0.0, Score(domain.AgentMetrics{}))
	assert.Equal(t, 0.0, Score(nil))
}

func TestScore_NaNCoercedToZero(t *testing.T) {
	m := domain.ProviderMetrics{
		TotalDeliveries: 1,
		CustomerRating:  math.NaN(),
	}

	score := Score(m)
	assert.False(t, math.IsNaN(score))
	assert.Equal(t, 0.0, score)
}

func TestScore_MonotonicInActivity(t *testing.T) {
	low := Score(domain.ProviderMetrics{SuccessfulDeliveries: 2, CustomerRating: 3.0, OnTimeDeliveryRate: 40, CancellationRate: 60, Revenue: 1000})
	high := Score(domain.ProviderMetrics{SuccessfulDeliveries: 8, CustomerRating: 4.8, OnTimeDeliveryRate: 95, CancellationRate: 5, Revenue: 9000})

	assert.Greater(t, high, low)
}
