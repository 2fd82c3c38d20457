package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/logistics-leaderboard/internal/config"
	"github.com/logistics-leaderboard/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS participants (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(32) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			provider_id VARCHAR(64),
			seller_id VARCHAR(64),
			agent_id VARCHAR(64),
			status VARCHAR(20) NOT NULL,
			final_total_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			delivered_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS call_attempts (
			id BIGSERIAL PRIMARY KEY,
			order_id VARCHAR(64) NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			agent_id VARCHAR(64),
			status VARCHAR(20) NOT NULL,
			duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS provider_ratings (
			id BIGSERIAL PRIMARY KEY,
			provider_id VARCHAR(64) NOT NULL,
			overall_score DOUBLE PRECISION NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS agent_ratings (
			id BIGSERIAL PRIMARY KEY,
			agent_id VARCHAR(64) NOT NULL,
			final_score DOUBLE PRECISION NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
			period_start TIMESTAMP NOT NULL,
			period_end TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS leaderboard_entries (
			id VARCHAR(64) PRIMARY KEY,
			participant_id VARCHAR(64) NOT NULL,
			leaderboard_type VARCHAR(32) NOT NULL,
			user_role VARCHAR(32) NOT NULL,
			period VARCHAR(20) NOT NULL,
			period_start TIMESTAMP NOT NULL,
			period_end TIMESTAMP NOT NULL,
			total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			rank INT NOT NULL DEFAULT 0,
			previous_rank INT,
			metrics JSONB NOT NULL,
			last_updated TIMESTAMP NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_provider ON orders(provider_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_agent ON orders(agent_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_call_attempts_order ON call_attempts(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_provider_ratings ON provider_ratings(provider_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_ratings ON agent_ratings(agent_id, period_start, period_end)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_bucket ON leaderboard_entries(leaderboard_type, period, is_active, last_updated DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_participant ON leaderboard_entries(participant_id, leaderboard_type, period)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// ParticipantsByRole retrieves all approved participants with the given role
func (r *Repository) ParticipantsByRole(ctx context.Context, role domain.Role) ([]domain.Participant, error) {
	query := `
		SELECT id, name, role, status
		FROM participants
		WHERE role = $1 AND status = $2
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, string(role), string(domain.ApprovalApproved))
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.Status); err != nil {
			return nil, fmt.Errorf("scanning participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, nil
}

// OrdersByProvider retrieves a provider's orders created within the window
func (r *Repository) OrdersByProvider(ctx context.Context, providerID string, w domain.Window) ([]domain.Order, error) {
	return r.ordersBy(ctx, "provider_id", providerID, w, false)
}

// OrdersBySeller retrieves a seller's orders created within the window
func (r *Repository) OrdersBySeller(ctx context.Context, sellerID string, w domain.Window) ([]domain.Order, error) {
	return r.ordersBy(ctx, "seller_id", sellerID, w, false)
}

// OrdersByAgent retrieves an agent's assigned orders within the window,
// including their nested call attempts
func (r *Repository) OrdersByAgent(ctx context.Context, agentID string, w domain.Window) ([]domain.Order, error) {
	return r.ordersBy(ctx, "agent_id", agentID, w, true)
}

func (r *Repository) ordersBy(ctx context.Context, column, id string, w domain.Window, withAttempts bool) ([]domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT id, COALESCE(provider_id, ''), COALESCE(seller_id, ''), COALESCE(agent_id, ''),
		       status, final_total_price, created_at, delivered_at
		FROM orders
		WHERE %s = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at
	`, column)

	rows, err := r.pool.Query(ctx, query, id, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	var orderIDs []string
	for rows.Next() {
		var o domain.Order
		err := rows.Scan(
			&o.ID,
			&o.ProviderID,
			&o.SellerID,
			&o.AgentID,
			&o.Status,
			&o.FinalTotalPrice,
			&o.CreatedAt,
			&o.DeliveredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
		orderIDs = append(orderIDs, o.ID)
	}
	rows.Close()

	if !withAttempts || len(orders) == 0 {
		return orders, nil
	}

	attempts, err := r.callAttemptsForOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].CallAttempts = attempts[orders[i].ID]
	}
	return orders, nil
}

func (r *Repository) callAttemptsForOrders(ctx context.Context, orderIDs []string) (map[string][]domain.CallAttempt, error) {
	query := `
		SELECT order_id, COALESCE(agent_id, ''), status, duration_seconds, created_at
		FROM call_attempts
		WHERE order_id = ANY($1)
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("listing call attempts: %w", err)
	}
	defer rows.Close()

	attempts := make(map[string][]domain.CallAttempt)
	for rows.Next() {
		var orderID string
		var a domain.CallAttempt
		if err := rows.Scan(&orderID, &a.AgentID, &a.Status, &a.DurationSeconds, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning call attempt: %w", err)
		}
		attempts[orderID] = append(attempts[orderID], a)
	}
	return attempts, nil
}

// ProviderRatingsInWindow retrieves a provider's active ratings created
// within the window
func (r *Repository) ProviderRatingsInWindow(ctx context.Context, providerID string, w domain.Window) ([]domain.ProviderRating, error) {
	query := `
		SELECT provider_id, overall_score, active, created_at
		FROM provider_ratings
		WHERE provider_id = $1 AND active = TRUE AND created_at >= $2 AND created_at <= $3
	`
	rows, err := r.pool.Query(ctx, query, providerID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("listing provider ratings: %w", err)
	}
	defer rows.Close()

	var ratings []domain.ProviderRating
	for rows.Next() {
		var rt domain.ProviderRating
		if err := rows.Scan(&rt.ProviderID, &rt.OverallScore, &rt.Active, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning provider rating: %w", err)
		}
		ratings = append(ratings, rt)
	}
	return ratings, nil
}

// AgentRatingsOverlapping retrieves an agent's submitted ratings whose own
// rating period overlaps the window. Overlap, not containment: a rating
// covering only part of the window still counts.
func (r *Repository) AgentRatingsOverlapping(ctx context.Context, agentID string, w domain.Window) ([]domain.AgentRating, error) {
	query := `
		SELECT agent_id, final_score, status, period_start, period_end
		FROM agent_ratings
		WHERE agent_id = $1 AND status = $2 AND period_start <= $3 AND period_end >= $4
	`
	rows, err := r.pool.Query(ctx, query, agentID, string(domain.AgentRatingSubmitted), w.End, w.Start)
	if err != nil {
		return nil, fmt.Errorf("listing agent ratings: %w", err)
	}
	defer rows.Close()

	var ratings []domain.AgentRating
	for rows.Next() {
		var rt domain.AgentRating
		if err := rows.Scan(&rt.AgentID, &rt.FinalScore, &rt.Status, &rt.PeriodStart, &rt.PeriodEnd); err != nil {
			return nil, fmt.Errorf("scanning agent rating: %w", err)
		}
		ratings = append(ratings, rt)
	}
	return ratings, nil
}

const entryColumns = `
	id, participant_id, leaderboard_type, user_role, period,
	period_start, period_end, total_score, rank, previous_rank,
	metrics, last_updated, is_active
`

// FindSnapshot locates the existing snapshot row for a participant's bucket.
// For all_time the window boundaries never repeat across runs, so matching
// falls back to (participant, type, period) with most-recent-wins; other
// periods match the stored window within the tolerance.
func (r *Repository) FindSnapshot(ctx context.Context, participantID string, role domain.Role, period domain.Period, w domain.Window) (*domain.Entry, error) {
	var row pgx.Row
	if period == domain.PeriodAllTime {
		query := `
			SELECT ` + entryColumns + `
			FROM leaderboard_entries
			WHERE participant_id = $1 AND leaderboard_type = $2 AND period = $3
			ORDER BY last_updated DESC
			LIMIT 1
		`
		row = r.pool.QueryRow(ctx, query, participantID, string(role), string(period))
	} else {
		query := `
			SELECT ` + entryColumns + `
			FROM leaderboard_entries
			WHERE participant_id = $1 AND leaderboard_type = $2 AND period = $3
			  AND period_start BETWEEN $4 AND $5
			  AND period_end BETWEEN $6 AND $7
			ORDER BY last_updated DESC
			LIMIT 1
		`
		row = r.pool.QueryRow(ctx, query,
			participantID, string(role), string(period),
			w.Start.Add(-domain.WindowTolerance), w.Start.Add(domain.WindowTolerance),
			w.End.Add(-domain.WindowTolerance), w.End.Add(domain.WindowTolerance),
		)
	}

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("finding snapshot: %w", err)
	}
	return entry, nil
}

// SaveSnapshot inserts a new snapshot row or updates an existing one in place
func (r *Repository) SaveSnapshot(ctx context.Context, e *domain.Entry) error {
	metricsJSON, err := json.Marshal(e.Metrics)
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}

	query := `
		INSERT INTO leaderboard_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			rank = EXCLUDED.rank,
			previous_rank = EXCLUDED.previous_rank,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			metrics = EXCLUDED.metrics,
			last_updated = EXCLUDED.last_updated,
			is_active = EXCLUDED.is_active
	`
	_, err = r.pool.Exec(ctx, query,
		e.ID,
		e.ParticipantID,
		string(e.Type),
		string(e.UserRole),
		string(e.Period),
		e.PeriodStart,
		e.PeriodEnd,
		e.TotalScore,
		e.Rank,
		e.PreviousRank,
		metricsJSON,
		e.LastUpdated,
		e.IsActive,
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// UpdateRanks writes the assigned rank back onto each entry's row
func (r *Repository) UpdateRanks(ctx context.Context, entries []*domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `UPDATE leaderboard_entries SET rank = $2, last_updated = $3 WHERE id = $1`
	now := time.Now()

	for _, e := range entries {
		batch.Queue(query, e.ID, e.Rank, now)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch updating ranks: %w", err)
		}
	}
	return nil
}

// ActiveSnapshots retrieves all active snapshot rows for a (type, period)
// bucket, most recently updated first
func (r *Repository) ActiveSnapshots(ctx context.Context, role domain.Role, period domain.Period) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM leaderboard_entries
		WHERE leaderboard_type = $1 AND period = $2 AND is_active = TRUE
		ORDER BY last_updated DESC
	`
	rows, err := r.pool.Query(ctx, query, string(role), string(period))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DeactivateBucket soft-deletes all rows in the resolved window's bucket.
// History is preserved; nothing is removed.
func (r *Repository) DeactivateBucket(ctx context.Context, role domain.Role, period domain.Period, w domain.Window) (int64, error) {
	var result int64
	if period == domain.PeriodAllTime {
		query := `
			UPDATE leaderboard_entries SET is_active = FALSE
			WHERE leaderboard_type = $1 AND period = $2 AND is_active = TRUE
		`
		tag, err := r.pool.Exec(ctx, query, string(role), string(period))
		if err != nil {
			return 0, fmt.Errorf("deactivating bucket: %w", err)
		}
		result = tag.RowsAffected()
	} else {
		query := `
			UPDATE leaderboard_entries SET is_active = FALSE
			WHERE leaderboard_type = $1 AND period = $2 AND is_active = TRUE
			  AND period_start BETWEEN $3 AND $4
			  AND period_end BETWEEN $5 AND $6
		`
		tag, err := r.pool.Exec(ctx, query,
			string(role), string(period),
			w.Start.Add(-domain.WindowTolerance), w.Start.Add(domain.WindowTolerance),
			w.End.Add(-domain.WindowTolerance), w.End.Add(domain.WindowTolerance),
		)
		if err != nil {
			return 0, fmt.Errorf("deactivating bucket: %w", err)
		}
		result = tag.RowsAffected()
	}
	return result, nil
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var e domain.Entry
	var metricsJSON []byte
	err := row.Scan(
		&e.ID,
		&e.ParticipantID,
		&e.Type,
		&e.UserRole,
		&e.Period,
		&e.PeriodStart,
		&e.PeriodEnd,
		&e.TotalScore,
		&e.Rank,
		&e.PreviousRank,
		&metricsJSON,
		&e.LastUpdated,
		&e.IsActive,
	)
	if err != nil {
		return nil, err
	}

	metrics, err := domain.UnmarshalMetrics(e.UserRole, metricsJSON)
	if err != nil {
		return nil, err
	}
	e.Metrics = metrics
	return &e, nil
}
