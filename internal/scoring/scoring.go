// Package scoring maps a role-specific metrics bundle to a single scalar
// leaderboard score using fixed weighted formulas. Scores are relative
// ranking values, not percentages, and can exceed 100.
package scoring

import (
	"math"

	"github.com/logistics-leaderboard/internal/domain"
)

// revenueCap bounds the revenue contribution so one large order cannot
// dominate the board.
const revenueCap = 100

// Score computes the total score for a metrics bundle. A participant with no
// activity scores exactly 0, so empty bundles rank at the bottom rather than
// collecting the formula's constant terms. A NaN result is coerced to 0.
func Score(m domain.MetricsBundle) float64 {
	if m == nil || m.IsZero() {
		return 0
	}

	var score float64
	switch b := m.(type) {
	case domain.ProviderMetrics:
		score = float64(b.SuccessfulDeliveries)*10 +
			b.CustomerRating*20 +
			b.OnTimeDeliveryRate*2 +
			(100-b.CancellationRate)*1 +
			math.Min(b.Revenue/1000, revenueCap)*5

	case domain.SellerMetrics:
		score = float64(b.ConfirmedOrders)*10 +
			b.ConversionRate*3 +
			float64(b.DeliveredOrders)*5 +
			(100-b.ReturnRate)*2 +
			math.Min(b.Revenue/1000, revenueCap)*5

	case domain.AgentMetrics:
		score = float64(b.ConfirmedOrders)*15 +
			float64(b.DeliveredOrders)*20 +
			b.CallSuccessRate*2 +
			b.OrderConfirmationRate*3 +
			b.CustomerSatisfactionScore*25 +
			b.DailyTargetAchievement*1

	default:
		return 0
	}

	if math.IsNaN(score) {
		return 0
	}
	return score
}
