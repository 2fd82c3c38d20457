// Package aggregate derives role-specific metric bundles from raw
// transactional records. Queries go through the narrow Store interface so the
// computation itself stays pure and testable without a live database.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/logistics-leaderboard/internal/domain"
)

// Store is the read-only slice of the datastore the aggregator needs.
type Store interface {
	OrdersByProvider(ctx context.Context, providerID string, w domain.Window) ([]domain.Order, error)
	OrdersBySeller(ctx context.Context, sellerID string, w domain.Window) ([]domain.Order, error)
	OrdersByAgent(ctx context.Context, agentID string, w domain.Window) ([]domain.Order, error)
	ProviderRatingsInWindow(ctx context.Context, providerID string, w domain.Window) ([]domain.ProviderRating, error)
	AgentRatingsOverlapping(ctx context.Context, agentID string, w domain.Window) ([]domain.AgentRating, error)
}

// Aggregator fetches a participant's raw records for a window and reduces
// them to a metrics bundle.
type Aggregator struct {
	store  Store
	logger *slog.Logger
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(store Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: logger,
	}
}

// Aggregate produces the metrics bundle for one participant over a window.
// Underlying query failures propagate to the caller; computation itself never
// fails, any division-by-zero artifact is coerced to 0.
func (a *Aggregator) Aggregate(ctx context.Context, role domain.Role, participantID string, w domain.Window) (domain.MetricsBundle, error) {
	switch role {
	case domain.RoleProvider:
		orders, err := a.store.OrdersByProvider(ctx, participantID, w)
		if err != nil {
			return nil, fmt.Errorf("fetching provider orders: %w", err)
		}
		ratings, err := a.store.ProviderRatingsInWindow(ctx, participantID, w)
		if err != nil {
			return nil, fmt.Errorf("fetching provider ratings: %w", err)
		}
		return BuildProviderMetrics(orders, ratings).Sanitized(), nil

	case domain.RoleSeller:
		orders, err := a.store.OrdersBySeller(ctx, participantID, w)
		if err != nil {
			return nil, fmt.Errorf("fetching seller orders: %w", err)
		}
		return BuildSellerMetrics(orders).Sanitized(), nil

	case domain.RoleAgent:
		orders, err := a.store.OrdersByAgent(ctx, participantID, w)
		if err != nil {
			return nil, fmt.Errorf("fetching agent orders: %w", err)
		}
		ratings, err := a.store.AgentRatingsOverlapping(ctx, participantID, w)
		if err != nil {
			return nil, fmt.Errorf("fetching agent ratings: %w", err)
		}
		return BuildAgentMetrics(participantID, orders, ratings).Sanitized(), nil
	}
	return nil, domain.ErrInvalidRole
}
