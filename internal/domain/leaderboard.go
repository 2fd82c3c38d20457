package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies which leaderboard a participant competes on.
type Role string

const (
	RoleProvider Role = "provider"
	RoleSeller   Role = "seller"
	RoleAgent    Role = "call_center_agent"
)

// Roles lists every leaderboard role.
func Roles() []Role {
	return []Role{RoleProvider, RoleSeller, RoleAgent}
}

// IsValid reports whether the role is one of the known leaderboard roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleProvider, RoleSeller, RoleAgent:
		return true
	}
	return false
}

// Period represents a leaderboard time bucket granularity.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
	PeriodAllTime Period = "all_time"
)

// Periods lists every supported period.
func Periods() []Period {
	return []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAllTime}
}

// IsValid reports whether the period is supported.
func (p Period) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAllTime:
		return true
	}
	return false
}

// ApprovalStatus is the moderation state of a participant account.
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Participant is a platform user eligible for exactly one leaderboard role.
// Owned by the external user-management system; read-only here.
type Participant struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Role   Role           `json:"role"`
	Status ApprovalStatus `json:"status"`
}

// IsEligible reports whether the participant can appear on a leaderboard.
func (p Participant) IsEligible() bool {
	return p.Status == ApprovalApproved && p.Role.IsValid()
}

// Entry is one persisted leaderboard snapshot row: a participant's metrics,
// score and rank for a specific (type, period, window) bucket.
type Entry struct {
	ID            string        `json:"id"`
	ParticipantID string        `json:"participant_id"`
	Type          Role          `json:"leaderboard_type"`
	UserRole      Role          `json:"user_role"`
	Period        Period        `json:"period"`
	PeriodStart   time.Time     `json:"period_start"`
	PeriodEnd     time.Time     `json:"period_end"`
	TotalScore    float64       `json:"total_score"`
	Rank          int           `json:"rank"`
	PreviousRank  *int          `json:"previous_rank,omitempty"`
	Metrics       MetricsBundle `json:"metrics"`
	LastUpdated   time.Time     `json:"last_updated"`
	IsActive      bool          `json:"is_active"`
}

// Movement describes rank change relative to the previous snapshot.
type Movement string

const (
	MovementUp     Movement = "up"
	MovementDown   Movement = "down"
	MovementStable Movement = "stable"
	MovementNew    Movement = "new"
)

// Movement returns the rank movement indicator for the entry.
func (e *Entry) Movement() Movement {
	if e.PreviousRank == nil {
		return MovementNew
	}
	switch {
	case e.Rank < *e.PreviousRank:
		return MovementUp
	case e.Rank > *e.PreviousRank:
		return MovementDown
	default:
		return MovementStable
	}
}

// RankedEntry is the outward-facing row served to presentation layers.
type RankedEntry struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Rank           int            `json:"rank"`
	Score          float64        `json:"score"`
	Movement       Movement       `json:"movement"`
	AdditionalInfo map[string]any `json:"additional_info,omitempty"`
}

// Page is a paginated leaderboard view.
type Page struct {
	Entries         []RankedEntry `json:"entries"`
	TotalCount      int           `json:"total_count"`
	HasNextPage     bool          `json:"has_next_page"`
	HasPreviousPage bool          `json:"has_previous_page"`
	TotalPages      int           `json:"total_pages"`
	CurrentPage     int           `json:"current_page"`
}

// Position is an individual participant's live standing.
type Position struct {
	Rank              int     `json:"rank"`
	Score             float64 `json:"score"`
	TotalParticipants int     `json:"total_participants"`
}

// UnmarshalMetrics decodes a role-specific metrics payload.
func UnmarshalMetrics(role Role, data []byte) (MetricsBundle, error) {
	switch role {
	case RoleProvider:
		var m ProviderMetrics
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decoding provider metrics: %w", err)
		}
		return m, nil
	case RoleSeller:
		var m SellerMetrics
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decoding seller metrics: %w", err)
		}
		return m, nil
	case RoleAgent:
		var m AgentMetrics
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decoding agent metrics: %w", err)
		}
		return m, nil
	}
	return nil, ErrInvalidRole
}
