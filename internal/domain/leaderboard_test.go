package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryMovement(t *testing.T) {
	prev := func(r int) *int { return &r }

	tests := []struct {
		name     string
		entry    Entry
		expected Movement
	}{
		{"first appearance", Entry{Rank: 3}, MovementNew},
		{"climbed", Entry{Rank: 2, PreviousRank: prev(5)}, MovementUp},
		{"dropped", Entry{Rank: 7, PreviousRank: prev(4)}, MovementDown},
		{"unchanged", Entry{Rank: 4, PreviousRank: prev(4)}, MovementStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entry.Movement())
		})
	}
}

func TestParticipantIsEligible(t *testing.T) {
	assert.True(t, Participant{ID: "p1", Role: RoleSeller, Status: ApprovalApproved}.IsEligible())
	assert.False(t, Participant{ID: "p2", Role: RoleSeller, Status: ApprovalPending}.IsEligible())
	assert.False(t, Participant{ID: "p3", Role: Role("driver"), Status: ApprovalApproved}.IsEligible())
}

func TestUnmarshalMetrics(t *testing.T) {
	payload := []byte(`{"total_calls": 12, "customer_satisfaction_score": 4.1}`)

	bundle, err := UnmarshalMetrics(RoleAgent, payload)
	require.NoError(t, err)

	m, ok := bundle.(AgentMetrics)
	require.True(t, ok)
	assert.Equal(t, 12, m.TotalCalls)
	assert.Equal(t, 4.1, m.CustomerSatisfactionScore)

	_, err = UnmarshalMetrics(Role("driver"), payload)
	assert.ErrorIs(t, err, ErrInvalidRole)
}
