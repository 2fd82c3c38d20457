package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/logistics-leaderboard/internal/aggregate"
	"github.com/logistics-leaderboard/internal/config"
	"github.com/logistics-leaderboard/internal/domain"
	"github.com/logistics-leaderboard/internal/scoring"
)

// Store is everything the service needs from the backing datastore: the
// aggregator's read slice plus participant and snapshot operations.
type Store interface {
	aggregate.Store

	ParticipantsByRole(ctx context.Context, role domain.Role) ([]domain.Participant, error)
	FindSnapshot(ctx context.Context, participantID string, role domain.Role, period domain.Period, w domain.Window) (*domain.Entry, error)
	SaveSnapshot(ctx context.Context, e *domain.Entry) error
	UpdateRanks(ctx context.Context, entries []*domain.Entry) error
	ActiveSnapshots(ctx context.Context, role domain.Role, period domain.Period) ([]*domain.Entry, error)
	DeactivateBucket(ctx context.Context, role domain.Role, period domain.Period, w domain.Window) (int64, error)
}

// Mirror is the optional Redis fast-read layer for ranked buckets.
type Mirror interface {
	WriteBucket(ctx context.Context, role domain.Role, period domain.Period, entries []*domain.Entry) error
	Invalidate(ctx context.Context, role domain.Role, period domain.Period) error
}

// Broadcaster pushes board updates to connected clients.
type Broadcaster interface {
	BroadcastLeaderboardUpdate(role domain.Role, period domain.Period, entries []domain.RankedEntry, totalCount int)
}

// LeaderboardService orchestrates metric aggregation, scoring and rank
// assignment for every (role, period) bucket.
type LeaderboardService struct {
	store       Store
	aggregator  *aggregate.Aggregator
	mirror      Mirror
	hub         Broadcaster
	config      *config.LeaderboardConfig
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewLeaderboardService creates a new leaderboard service. concurrency caps
// the per-run fan-out over participants.
func NewLeaderboardService(store Store, cfg *config.LeaderboardConfig, concurrency int, logger *slog.Logger) *LeaderboardService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &LeaderboardService{
		store:       store,
		aggregator:  aggregate.NewAggregator(store, logger),
		config:      cfg,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// SetMirror attaches the Redis bucket mirror for fast reads
func (s *LeaderboardService) SetMirror(m Mirror) {
	s.mirror = m
}

// SetHub attaches the WebSocket hub for broadcasting updates
func (s *LeaderboardService) SetHub(h Broadcaster) {
	s.hub = h
}

// SetClock overrides the time source; used by tests
func (s *LeaderboardService) SetClock(now func() time.Time) {
	s.now = now
}

// UpdateLeaderboard recomputes one (type, period) bucket: every approved
// participant with the matching role is aggregated and scored, snapshot rows
// are upserted carrying the previous rank, then dense ranks 1..N are assigned
// across the full set. A participant that fails to aggregate is logged and
// skipped; it never aborts the batch.
func (s *LeaderboardService) UpdateLeaderboard(ctx context.Context, role domain.Role, period domain.Period) error {
	if !role.IsValid() {
		return domain.ErrInvalidRole
	}
	window, err := domain.ResolvePeriod(period, s.now())
	if err != nil {
		return err
	}

	participants, err := s.store.ParticipantsByRole(ctx, role)
	if err != nil {
		return fmt.Errorf("loading participants: %w", err)
	}

	// Bounded fan-out. Results stay indexed by participant iteration order
	// so the later stable sort breaks score ties the same way a sequential
	// pass would.
	results := make([]*domain.Entry, len(participants))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, p := range participants {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p domain.Participant) {
			defer wg.Done()
			defer func() { <-sem }()

			entry, err := s.scoreParticipant(ctx, p, role, period, window)
			if err != nil {
				s.logger.Error("failed to score participant",
					"participant_id", p.ID,
					"leaderboard_type", role,
					"period", period,
					"error", err,
				)
				return
			}
			results[i] = entry
		}(i, p)
	}
	wg.Wait()

	scored := make([]*domain.Entry, 0, len(results))
	for _, e := range results {
		if e != nil {
			scored = append(scored, e)
		}
	}

	// Ranks are assigned only once every participant in the run has been
	// scored; never from a partial set.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].TotalScore > scored[j].TotalScore
	})
	for i, e := range scored {
		e.Rank = i + 1
	}

	if err := s.store.UpdateRanks(ctx, scored); err != nil {
		return fmt.Errorf("assigning ranks: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.WriteBucket(ctx, role, period, scored); err != nil {
			s.logger.Warn("failed to mirror bucket to redis", "error", err)
		}
	}
	if s.hub != nil {
		top := s.config.BroadcastTop
		if top > len(scored) {
			top = len(scored)
		}
		s.hub.BroadcastLeaderboardUpdate(role, period, s.rankedEntries(ctx, role, scored[:top]), len(scored))
	}

	s.logger.Info("leaderboard updated",
		"leaderboard_type", role,
		"period", period,
		"participants", len(participants),
		"scored", len(scored),
		"skipped", len(participants)-len(scored),
	)
	return nil
}

// scoreParticipant aggregates, scores and upserts one participant's snapshot
// row for the resolved window, carrying the previous rank if a row for the
// same bucket already exists.
func (s *LeaderboardService) scoreParticipant(ctx context.Context, p domain.Participant, role domain.Role, period domain.Period, window domain.Window) (*domain.Entry, error) {
	metrics, err := s.aggregator.Aggregate(ctx, role, p.ID, window)
	if err != nil {
		return nil, fmt.Errorf("aggregating metrics: %w", err)
	}
	score := scoring.Score(metrics)

	entry := &domain.Entry{
		ParticipantID: p.ID,
		Type:          role,
		UserRole:      p.Role,
		Period:        period,
		PeriodStart:   window.Start,
		PeriodEnd:     window.End,
		TotalScore:    score,
		Metrics:       metrics,
		LastUpdated:   s.now(),
		IsActive:      true,
	}

	existing, err := s.store.FindSnapshot(ctx, p.ID, role, period, window)
	switch {
	case err == nil:
		entry.ID = existing.ID
		if existing.Rank > 0 {
			prev := existing.Rank
			entry.PreviousRank = &prev
		}
	case errors.Is(err, domain.ErrSnapshotNotFound):
		entry.ID = uuid.New().String()
	default:
		return nil, fmt.Errorf("locating snapshot: %w", err)
	}

	if err := s.store.SaveSnapshot(ctx, entry); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return entry, nil
}

// UpdateAllLeaderboards recomputes the full cross-product of roles and
// periods, continuing past per-bucket failures.
func (s *LeaderboardService) UpdateAllLeaderboards(ctx context.Context) {
	start := s.now()
	updated := 0
	failed := 0

	for _, role := range domain.Roles() {
		for _, period := range domain.Periods() {
			if err := s.UpdateLeaderboard(ctx, role, period); err != nil {
				s.logger.Error("failed to update leaderboard",
					"leaderboard_type", role,
					"period", period,
					"error", err,
				)
				failed++
				continue
			}
			updated++
		}
	}

	s.logger.Info("all leaderboards updated",
		"duration", time.Since(start),
		"updated", updated,
		"failed", failed,
	)
}

// ResetLeaderboard soft-deletes every row in the resolved window's bucket.
// History is kept; rows are only marked inactive.
func (s *LeaderboardService) ResetLeaderboard(ctx context.Context, role domain.Role, period domain.Period) error {
	if !role.IsValid() {
		return domain.ErrInvalidRole
	}
	window, err := domain.ResolvePeriod(period, s.now())
	if err != nil {
		return err
	}

	count, err := s.store.DeactivateBucket(ctx, role, period, window)
	if err != nil {
		return fmt.Errorf("resetting leaderboard: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.Invalidate(ctx, role, period); err != nil {
			s.logger.Warn("failed to invalidate bucket mirror", "error", err)
		}
	}

	s.logger.Info("leaderboard reset",
		"leaderboard_type", role,
		"period", period,
		"deactivated", count,
	)
	return nil
}

// GetLeaderboard returns the rank-ordered entries for a bucket. The window is
// resolved at read time; stored rows are tolerance-filtered against it and
// duplicate participant rows from overlapping runs are collapsed to the most
// recently updated one.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, role domain.Role, period domain.Period, limit int) ([]*domain.Entry, error) {
	if !role.IsValid() {
		return nil, domain.ErrInvalidRole
	}
	window, err := domain.ResolvePeriod(period, s.now())
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}

	rows, err := s.store.ActiveSnapshots(ctx, role, period)
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}

	// Rows arrive newest-first, so the first row seen per participant is the
	// winner when overlapping runs left duplicates inside the tolerance.
	seen := make(map[string]bool, len(rows))
	entries := make([]*domain.Entry, 0, len(rows))
	for _, row := range rows {
		stored := domain.Window{Start: row.PeriodStart, End: row.PeriodEnd}
		if period != domain.PeriodAllTime && !window.Matches(stored) {
			continue
		}
		if seen[row.ParticipantID] {
			continue
		}
		seen[row.ParticipantID] = true
		entries = append(entries, row)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Rank < entries[j].Rank
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// GetLeaderboardPage returns one page of a bucket with presentation-ready
// rows and pagination bookkeeping.
func (s *LeaderboardService) GetLeaderboardPage(ctx context.Context, role domain.Role, period domain.Period, page int) (*domain.Page, error) {
	entries, err := s.GetLeaderboard(ctx, role, period, s.config.MaxLimit)
	if err != nil {
		return nil, err
	}

	pageSize := s.config.PageSize
	totalCount := len(entries)
	totalPages := (totalCount + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}

	from := (page - 1) * pageSize
	to := from + pageSize
	if from > totalCount {
		from = totalCount
	}
	if to > totalCount {
		to = totalCount
	}

	return &domain.Page{
		Entries:         s.rankedEntries(ctx, role, entries[from:to]),
		TotalCount:      totalCount,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1 && totalCount > 0,
		TotalPages:      totalPages,
		CurrentPage:     page,
	}, nil
}

// GetPosition reports a participant's live rank, score and field size by
// rerunning the aggregation and ranking pass over raw records rather than
// reading persisted snapshots. Returns ErrParticipantNotFound when the
// participant has no qualifying records in the window.
func (s *LeaderboardService) GetPosition(ctx context.Context, role domain.Role, period domain.Period, participantID string) (*domain.Position, error) {
	if !role.IsValid() {
		return nil, domain.ErrInvalidRole
	}
	window, err := domain.ResolvePeriod(period, s.now())
	if err != nil {
		return nil, err
	}

	participants, err := s.store.ParticipantsByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("loading participants: %w", err)
	}

	type liveScore struct {
		id     string
		score  float64
		active bool
	}
	scores := make([]liveScore, 0, len(participants))
	targetQualifies := false
	for _, p := range participants {
		metrics, err := s.aggregator.Aggregate(ctx, role, p.ID, window)
		if err != nil {
			s.logger.Error("failed to aggregate for position lookup",
				"participant_id", p.ID,
				"error", err,
			)
			continue
		}
		ls := liveScore{
			id:     p.ID,
			score:  scoring.Score(metrics),
			active: !metrics.IsZero(),
		}
		scores = append(scores, ls)
		if p.ID == participantID {
			targetQualifies = ls.active
		}
	}

	if !targetQualifies {
		return nil, domain.ErrParticipantNotFound
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	for i := range scores {
		if scores[i].id == participantID {
			return &domain.Position{
				Rank:              i + 1,
				Score:             scores[i].score,
				TotalParticipants: len(scores),
			}, nil
		}
	}
	return nil, domain.ErrParticipantNotFound
}

// TopN returns the top N presentation rows of a bucket via the snapshot
// read path.
func (s *LeaderboardService) TopN(ctx context.Context, role domain.Role, period domain.Period, n int) ([]domain.RankedEntry, error) {
	if n <= 0 {
		n = s.config.DefaultLimit
	}
	if n > s.config.MaxLimit {
		n = s.config.MaxLimit
	}

	entries, err := s.GetLeaderboard(ctx, role, period, n)
	if err != nil {
		return nil, err
	}
	return s.rankedEntries(ctx, role, entries), nil
}

// rankedEntries shapes snapshot rows into presentation rows, resolving
// participant names and a small role-specific summary.
func (s *LeaderboardService) rankedEntries(ctx context.Context, role domain.Role, entries []*domain.Entry) []domain.RankedEntry {
	names := make(map[string]string)
	if participants, err := s.store.ParticipantsByRole(ctx, role); err == nil {
		for _, p := range participants {
			names[p.ID] = p.Name
		}
	} else {
		s.logger.Warn("failed to resolve participant names", "error", err)
	}

	ranked := make([]domain.RankedEntry, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, domain.RankedEntry{
			ID:             e.ParticipantID,
			Name:           names[e.ParticipantID],
			Rank:           e.Rank,
			Score:          e.TotalScore,
			Movement:       e.Movement(),
			AdditionalInfo: metricsSummary(e.Metrics),
		})
	}
	return ranked
}

func metricsSummary(m domain.MetricsBundle) map[string]any {
	switch b := m.(type) {
	case domain.ProviderMetrics:
		return map[string]any{
			"total_deliveries": b.TotalDeliveries,
			"customer_rating":  b.CustomerRating,
			"revenue":          b.Revenue,
		}
	case domain.SellerMetrics:
		return map[string]any{
			"total_orders":    b.TotalOrders,
			"conversion_rate": b.ConversionRate,
			"revenue":         b.Revenue,
		}
	case domain.AgentMetrics:
		return map[string]any{
			"total_calls":             b.TotalCalls,
			"order_confirmation_rate": b.OrderConfirmationRate,
			"satisfaction_score":      b.CustomerSatisfactionScore,
		}
	}
	return nil
}
