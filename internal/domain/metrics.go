package domain

import "math"

// MetricsBundle is a role-tagged set of derived metrics. Every numeric field
// must be finite before persistence; Sanitized coerces NaN/Inf values to 0 so
// that a participant with no activity scores 0 instead of failing the batch.
type MetricsBundle interface {
	Role() Role
	Sanitized() MetricsBundle
	// IsZero reports whether the bundle reflects no activity at all.
	IsZero() bool
}

// ProviderMetrics holds delivery performance for a provider.
type ProviderMetrics struct {
	TotalDeliveries      int     `json:"total_deliveries"`
	SuccessfulDeliveries int     `json:"successful_deliveries"`
	AvgDeliveryTime      float64 `json:"avg_delivery_time"`
	CustomerRating       float64 `json:"customer_rating"`
	TotalRatingCount     int     `json:"total_rating_count"`
	OnTimeDeliveryRate   float64 `json:"on_time_delivery_rate"`
	CancellationRate     float64 `json:"cancellation_rate"`
	Revenue              float64 `json:"revenue"`
	AvgOrderValue        float64 `json:"avg_order_value"`
}

func (ProviderMetrics) Role() Role { return RoleProvider }

func (m ProviderMetrics) IsZero() bool { return m == ProviderMetrics{} }

func (m ProviderMetrics) Sanitized() MetricsBundle {
	m.AvgDeliveryTime = finiteOrZero(m.AvgDeliveryTime)
	m.CustomerRating = finiteOrZero(m.CustomerRating)
	m.OnTimeDeliveryRate = finiteOrZero(m.OnTimeDeliveryRate)
	m.CancellationRate = finiteOrZero(m.CancellationRate)
	m.Revenue = finiteOrZero(m.Revenue)
	m.AvgOrderValue = finiteOrZero(m.AvgOrderValue)
	return m
}

// SellerMetrics holds order funnel performance for a seller. Sellers are not
// rated by customers, so the rating fields are always zero.
type SellerMetrics struct {
	TotalOrders      int     `json:"total_orders"`
	ConfirmedOrders  int     `json:"confirmed_orders"`
	DeliveredOrders  int     `json:"delivered_orders"`
	ConversionRate   float64 `json:"conversion_rate"`
	CustomerRating   float64 `json:"customer_rating"`
	TotalRatingCount int     `json:"total_rating_count"`
	Revenue          float64 `json:"revenue"`
	AvgOrderValue    float64 `json:"avg_order_value"`
	ReturnRate       float64 `json:"return_rate"`
}

func (SellerMetrics) Role() Role { return RoleSeller }

func (m SellerMetrics) IsZero() bool { return m == SellerMetrics{} }

func (m SellerMetrics) Sanitized() MetricsBundle {
	m.ConversionRate = finiteOrZero(m.ConversionRate)
	m.CustomerRating = finiteOrZero(m.CustomerRating)
	m.Revenue = finiteOrZero(m.Revenue)
	m.AvgOrderValue = finiteOrZero(m.AvgOrderValue)
	m.ReturnRate = finiteOrZero(m.ReturnRate)
	return m
}

// AgentMetrics holds call handling performance for a call-center agent.
type AgentMetrics struct {
	TotalCalls                int     `json:"total_calls"`
	SuccessfulCalls           int     `json:"successful_calls"`
	ConfirmedOrders           int     `json:"confirmed_orders"`
	DeliveredOrders           int     `json:"delivered_orders"`
	CallSuccessRate           float64 `json:"call_success_rate"`
	AvgCallDuration           float64 `json:"avg_call_duration"`
	OrderConfirmationRate     float64 `json:"order_confirmation_rate"`
	CustomerSatisfactionScore float64 `json:"customer_satisfaction_score"`
	TotalCustomerRatings      int     `json:"total_customer_ratings"`
	DailyTargetAchievement    float64 `json:"daily_target_achievement"`
}

func (AgentMetrics) Role() Role { return RoleAgent }

func (m AgentMetrics) IsZero() bool { return m == AgentMetrics{} }

func (m AgentMetrics) Sanitized() MetricsBundle {
	m.CallSuccessRate = finiteOrZero(m.CallSuccessRate)
	m.AvgCallDuration = finiteOrZero(m.AvgCallDuration)
	m.OrderConfirmationRate = finiteOrZero(m.OrderConfirmationRate)
	m.CustomerSatisfactionScore = finiteOrZero(m.CustomerSatisfactionScore)
	m.DailyTargetAchievement = finiteOrZero(m.DailyTargetAchievement)
	return m
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
