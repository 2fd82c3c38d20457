package aggregate

import (
	"math"

	"github.com/logistics-leaderboard/internal/domain"
)

// onTimeRateCap keeps the derived on-time rate below a perfect score; the
// remainder feeds the cancellation rate.
const onTimeRateCap = 95

// BuildProviderMetrics reduces a provider's orders and ratings to a metrics
// bundle. A provider with no records at all yields the zero bundle.
func BuildProviderMetrics(orders []domain.Order, ratings []domain.ProviderRating) domain.ProviderMetrics {
	if len(orders) == 0 && len(ratings) == 0 {
		return domain.ProviderMetrics{}
	}

	m := domain.ProviderMetrics{TotalDeliveries: len(orders)}

	var deliveryMinutes float64
	var deliveredCount int
	for _, o := range orders {
		if o.Status == domain.OrderConfirmed {
			m.SuccessfulDeliveries++
		}
		m.Revenue += o.FinalTotalPrice
		if o.DeliveredAt != nil {
			deliveryMinutes += o.DeliveredAt.Sub(o.CreatedAt).Minutes()
			deliveredCount++
		}
	}

	if m.TotalDeliveries > 0 {
		m.AvgOrderValue = m.Revenue / float64(m.TotalDeliveries)
		m.OnTimeDeliveryRate = math.Min(onTimeRateCap,
			float64(m.SuccessfulDeliveries)/float64(m.TotalDeliveries)*100)
	}
	m.CancellationRate = math.Max(0, 100-m.OnTimeDeliveryRate)
	if deliveredCount > 0 {
		m.AvgDeliveryTime = deliveryMinutes / float64(deliveredCount)
	}

	var ratingSum float64
	for _, r := range ratings {
		ratingSum += r.OverallScore
		m.TotalRatingCount++
	}
	if m.TotalRatingCount > 0 {
		m.CustomerRating = ratingSum / float64(m.TotalRatingCount)
	}

	return m
}

// BuildSellerMetrics reduces a seller's orders to a metrics bundle. The
// return rate is a heuristic that decreases as conversion improves.
func BuildSellerMetrics(orders []domain.Order) domain.SellerMetrics {
	if len(orders) == 0 {
		return domain.SellerMetrics{}
	}

	m := domain.SellerMetrics{TotalOrders: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case domain.OrderConfirmed:
			m.ConfirmedOrders++
		case domain.OrderDelivered:
			m.DeliveredOrders++
		}
		m.Revenue += o.FinalTotalPrice
	}

	m.ConversionRate = float64(m.ConfirmedOrders) / float64(m.TotalOrders) * 100
	m.AvgOrderValue = m.Revenue / float64(m.TotalOrders)
	m.ReturnRate = math.Max(0, 5-m.ConversionRate/20)

	return m
}

// BuildAgentMetrics reduces an agent's assigned orders (with their nested
// call attempts) and satisfaction ratings to a metrics bundle. Ratings are
// pre-filtered by period overlap; their scores are averaged as-is.
func BuildAgentMetrics(agentID string, orders []domain.Order, ratings []domain.AgentRating) domain.AgentMetrics {
	if len(orders) == 0 && len(ratings) == 0 {
		return domain.AgentMetrics{}
	}

	var m domain.AgentMetrics
	var callSeconds float64
	var recordedCalls int
	for _, o := range orders {
		answered := false
		for _, att := range o.CallAttempts {
			if att.AgentID != "" && att.AgentID != agentID {
				continue
			}
			m.TotalCalls++
			if att.Status == domain.CallAnswered {
				answered = true
			}
			if att.DurationSeconds > 0 {
				callSeconds += att.DurationSeconds
				recordedCalls++
			}
		}
		if answered {
			m.SuccessfulCalls++
		}
		if o.Status == domain.OrderConfirmed {
			m.ConfirmedOrders++
			m.DeliveredOrders++
		}
	}

	if m.TotalCalls > 0 {
		m.CallSuccessRate = float64(m.SuccessfulCalls) / float64(m.TotalCalls) * 100
	}
	if len(orders) > 0 {
		m.OrderConfirmationRate = float64(m.ConfirmedOrders) / float64(len(orders)) * 100
	}
	if recordedCalls > 0 {
		m.AvgCallDuration = callSeconds / float64(recordedCalls) / 60
	}

	var scoreSum float64
	for _, r := range ratings {
		scoreSum += r.FinalScore
		m.TotalCustomerRatings++
	}
	if m.TotalCustomerRatings > 0 {
		m.CustomerSatisfactionScore = scoreSum / float64(m.TotalCustomerRatings)
	}

	m.DailyTargetAchievement = math.Min(100, m.OrderConfirmationRate*1.2)

	return m
}
