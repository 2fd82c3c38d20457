package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/logistics-leaderboard/internal/domain"
	"github.com/logistics-leaderboard/internal/scoring"
)

func TestBuildProviderMetrics(t *testing.T) {
	created := time.Date(2024, time.February, 15, 9, 0, 0, 0, time.UTC)
	delivered := created.Add(90 * time.Minute)

	orders := []domain.Order{
		{ID: "o1", Status: domain.OrderConfirmed, FinalTotalPrice: 500, CreatedAt: created, DeliveredAt: &delivered},
		{ID: "o2", Status: domain.OrderCancelled, FinalTotalPrice: 100, CreatedAt: created},
	}
	ratings := []domain.ProviderRating{
		{ProviderID: "p1", OverallScore: 4.0},
		{ProviderID: "p1", OverallScore: 5.0},
	}

	m := BuildProviderMetrics(orders, ratings)

	assert.Equal(t, 2, m.TotalDeliveries)
	assert.Equal(t, 1, m.SuccessfulDeliveries)
	assert.Equal(t, 600.0, m.Revenue)
	assert.Equal(t, 300.0, m.AvgOrderValue)
	assert.Equal(t, 50.0, m.OnTimeDeliveryRate)
	assert.Equal(t, 50.0, m.CancellationRate)
	assert.Equal(t, 90.0, m.AvgDeliveryTime)
	assert.Equal(t, 4.5, m.CustomerRating)
	assert.Equal(t, 2, m.TotalRatingCount)
}

func TestBuildProviderMetrics_OnTimeRateCapped(t *testing.T) {
	orders := []domain.Order{
		{ID: "o1", Status: domain.OrderConfirmed, FinalTotalPrice: 100},
		{ID: "o2", Status: domain.OrderConfirmed, FinalTotalPrice: 100},
		{ID: "o3", Status: domain.OrderConfirmed, FinalTotalPrice: 100},
	}

	m := BuildProviderMetrics(orders, nil)

	// A perfect confirmation record still caps at 95, leaving 5 as the
	// residual cancellation rate
	assert.Equal(t, 95.0, m.OnTimeDeliveryRate)
	assert.Equal(t, 5.0, m.CancellationRate)
}

func TestBuildProviderMetrics_RatingsWithoutOrders(t *testing.T) {
	ratings := []domain.ProviderRating{{ProviderID: "p1", OverallScore: 3.5}}

	m := BuildProviderMetrics(nil, ratings)

	assert.False(t, m.IsZero())
	assert.Equal(t, 0, m.TotalDeliveries)
	assert.Equal(t, 3.5, m.CustomerRating)
	assert.Equal(t, 0.0, m.OnTimeDeliveryRate)
}

func TestBuildProviderMetrics_NoActivity(t *testing.T) {
	m := BuildProviderMetrics(nil, nil)
	assert.True(t, m.IsZero())
}

func TestBuildSellerMetrics(t *testing.T) {
	orders := []domain.Order{
		{ID: "o1", Status: domain.OrderConfirmed, FinalTotalPrice: 100},
		{ID: "o2", Status: domain.OrderConfirmed, FinalTotalPrice: 150},
		{ID: "o3", Status: domain.OrderConfirmed, FinalTotalPrice: 250},
		{ID: "o4", Status: domain.OrderPending},
		{ID: "o5", Status: domain.OrderDelivered},
	}

	m := BuildSellerMetrics(orders)

	assert.Equal(t, 5, m.TotalOrders)
	assert.Equal(t, 3, m.ConfirmedOrders)
	assert.Equal(t, 1, m.DeliveredOrders)
	assert.Equal(t, 60.0, m.ConversionRate)
	assert.Equal(t, 500.0, m.Revenue)
	assert.Equal(t, 100.0, m.AvgOrderValue)
	assert.Equal(t, 2.0, m.ReturnRate)
}

func TestBuildSellerMetrics_ReturnRateFloorsAtZero(t *testing.T) {
	orders := []domain.Order{
		{ID: "o1", Status: domain.OrderConfirmed, FinalTotalPrice: 300},
		{ID: "o2", Status: domain.OrderConfirmed, FinalTotalPrice: 900},
	}

	m := BuildSellerMetrics(orders)

	assert.Equal(t, 100.0, m.ConversionRate)
	assert.Equal(t, 0.0, m.ReturnRate)
}

func TestBuildSellerMetrics_NoActivity(t *testing.T) {
	m := BuildSellerMetrics(nil)
	assert.True(t, m.IsZero())
}

func TestBuildAgentMetrics(t *testing.T) {
	attempts := func(statuses ...domain.CallStatus) []domain.CallAttempt {
		out := make([]domain.CallAttempt, 0, len(statuses))
		for _, s := range statuses {
			out = append(out, domain.CallAttempt{AgentID: "agent-1", Status: s, DurationSeconds: 60})
		}
		return out
	}

	orders := []domain.Order{
		{ID: "o1", AgentID: "agent-1", Status: domain.OrderConfirmed, CallAttempts: attempts(domain.CallAnswered, domain.CallNoAnswer, domain.CallAnswered)},
		{ID: "o2", AgentID: "agent-1", Status: domain.OrderConfirmed, CallAttempts: attempts(domain.CallAnswered, domain.CallBusy)},
		{ID: "o3", AgentID: "agent-1", Status: domain.OrderPending, CallAttempts: attempts(domain.CallNoAnswer, domain.CallBusy)},
		{ID: "o4", AgentID: "agent-1", Status: domain.OrderConfirmed, CallAttempts: attempts(domain.CallAnswered, domain.CallNoAnswer)},
		{ID: "o5", AgentID: "agent-1", Status: domain.OrderConfirmed, CallAttempts: attempts(domain.CallAnswered)},
	}
	ratings := []domain.AgentRating{
		{AgentID: "agent-1", FinalScore: 4.0, Status: domain.AgentRatingSubmitted},
		{AgentID: "agent-1", FinalScore: 4.4, Status: domain.AgentRatingSubmitted},
	}

	m := BuildAgentMetrics("agent-1", orders, ratings)

	assert.Equal(t, 10, m.TotalCalls)
	assert.Equal(t, 4, m.SuccessfulCalls)
	assert.Equal(t, 40.0, m.CallSuccessRate)
	assert.Equal(t, 4, m.ConfirmedOrders)
	assert.Equal(t, 4, m.DeliveredOrders)
	assert.Equal(t, 80.0, m.OrderConfirmationRate)
	assert.Equal(t, 1.0, m.AvgCallDuration)
	assert.InDelta(t, 4.2, m.CustomerSatisfactionScore, 1e-9)
	assert.Equal(t, 2, m.TotalCustomerRatings)
	assert.Equal(t, 96.0, m.DailyTargetAchievement)
}

func TestBuildAgentMetrics_SkipsOtherAgentsAttempts(t *testing.T) {
	orders := []domain.Order{
		{ID: "o1", AgentID: "agent-1", Status: domain.OrderConfirmed, CallAttempts: []domain.CallAttempt{
			{AgentID: "agent-1", Status: domain.CallAnswered, DurationSeconds: 30},
			{AgentID: "agent-2", Status: domain.CallAnswered, DurationSeconds: 300},
		}},
	}

	m := BuildAgentMetrics("agent-1", orders, nil)

	assert.Equal(t, 1, m.TotalCalls)
	assert.Equal(t, 1, m.SuccessfulCalls)
	assert.Equal(t, 0.5, m.AvgCallDuration)
}

func TestBuildAgentMetrics_TargetAchievementCapped(t *testing.T) {
	orders := []domain.Order{
		{ID: "o1", AgentID: "agent-1", Status: domain.OrderConfirmed},
		{ID: "o2", AgentID: "agent-1", Status: domain.OrderConfirmed},
	}

	m := BuildAgentMetrics("agent-1", orders, nil)

	// 100% confirmation * 1.2 would be 120; capped at 100
	assert.Equal(t, 100.0, m.DailyTargetAchievement)
}

func TestBuildAgentMetrics_NoActivity(t *testing.T) {
	m := BuildAgentMetrics("agent-1", nil, nil)
	assert.True(t, m.IsZero())
}

// Three sellers with different funnels must rank by score: the
// all-confirmed high-revenue seller first, the partial funnel second and the
// idle seller last at exactly zero.
func TestSellerScoringOrder(t *testing.T) {
	partial := BuildSellerMetrics([]domain.Order{
		{ID: "o1", Status: domain.OrderConfirmed, FinalTotalPrice: 100},
		{ID: "o2", Status: domain.OrderConfirmed, FinalTotalPrice: 150},
		{ID: "o3", Status: domain.OrderConfirmed, FinalTotalPrice: 250},
		{ID: "o4", Status: domain.OrderPending},
		{ID: "o5", Status: domain.OrderPending},
	})
	idle := BuildSellerMetrics(nil)
	perfect := BuildSellerMetrics([]domain.Order{
		{ID: "o6", Status: domain.OrderConfirmed, FinalTotalPrice: 300},
		{ID: "o7", Status: domain.OrderConfirmed, FinalTotalPrice: 300},
		{ID: "o8", Status: domain.OrderConfirmed, FinalTotalPrice: 300},
		{ID: "o9", Status: domain.OrderConfirmed, FinalTotalPrice: 300},
	})

	partialScore := scoring.Score(partial)
	idleScore := scoring.Score(idle)
	perfectScore := scoring.Score(perfect)

	assert.Equal(t, 0.0, idleScore)
	assert.Greater(t, partialScore, idleScore)
	assert.Greater(t, perfectScore, partialScore)
	assert.InDelta(t, 408.5, partialScore, 1e-9)
	assert.InDelta(t, 546.0, perfectScore, 1e-9)
}
