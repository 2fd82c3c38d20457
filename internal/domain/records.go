package domain

import "time"

// OrderStatus is the lifecycle state of an order record.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderReturned  OrderStatus = "RETURNED"
)

// CallStatus is the outcome of a single call attempt.
type CallStatus string

const (
	CallAnswered CallStatus = "answered"
	CallNoAnswer CallStatus = "no_answer"
	CallBusy     CallStatus = "busy"
)

// CallAttempt is one phone call made against an order by an agent.
type CallAttempt struct {
	AgentID         string     `json:"agent_id"`
	Status          CallStatus `json:"status"`
	DurationSeconds float64    `json:"duration_seconds"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Order is a transactional order record as read from the external store.
// Provider, seller and agent references may independently be empty.
type Order struct {
	ID              string        `json:"id"`
	ProviderID      string        `json:"provider_id,omitempty"`
	SellerID        string        `json:"seller_id,omitempty"`
	AgentID         string        `json:"agent_id,omitempty"`
	Status          OrderStatus   `json:"status"`
	FinalTotalPrice float64       `json:"final_total_price"`
	CallAttempts    []CallAttempt `json:"call_attempts,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty"`
}

// ProviderRating is a customer rating of a delivery provider.
type ProviderRating struct {
	ProviderID   string    `json:"provider_id"`
	OverallScore float64   `json:"overall_score"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AgentRatingStatus is the submission state of an agent rating.
type AgentRatingStatus string

const (
	AgentRatingDraft     AgentRatingStatus = "DRAFT"
	AgentRatingSubmitted AgentRatingStatus = "SUBMITTED"
)

// AgentRating is a periodic customer-satisfaction rating of an agent. It
// covers its own [PeriodStart, PeriodEnd] range; matching against a query
// window uses overlap, not containment.
type AgentRating struct {
	AgentID     string            `json:"agent_id"`
	FinalScore  float64           `json:"final_score"`
	Status      AgentRatingStatus `json:"status"`
	PeriodStart time.Time         `json:"period_start"`
	PeriodEnd   time.Time         `json:"period_end"`
}
