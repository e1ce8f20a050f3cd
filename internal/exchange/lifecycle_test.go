package exchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookexchange/internal/entities"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name           string
		from, to       entities.ExchangeStatus
		wantBook       BookChange
		wantCompletion bool
		wantErr        bool
	}{
		{name: "accept", from: entities.ExchangeStatusPending, to: entities.ExchangeStatusAccepted, wantBook: BookUnchanged},
		{name: "reject releases book", from: entities.ExchangeStatusPending, to: entities.ExchangeStatusRejected, wantBook: BookRelease},
		{name: "cancel releases book", from: entities.ExchangeStatusPending, to: entities.ExchangeStatusCancelled, wantBook: BookRelease},
		{name: "complete", from: entities.ExchangeStatusAccepted, to: entities.ExchangeStatusCompleted, wantBook: BookUnchanged, wantCompletion: true},
		{name: "pending straight to completed", from: entities.ExchangeStatusPending, to: entities.ExchangeStatusCompleted, wantErr: true},
		{name: "cancel after accept", from: entities.ExchangeStatusAccepted, to: entities.ExchangeStatusCancelled, wantErr: true},
		{name: "reject after accept", from: entities.ExchangeStatusAccepted, to: entities.ExchangeStatusRejected, wantErr: true},
		{name: "self transition", from: entities.ExchangeStatusPending, to: entities.ExchangeStatusPending, wantErr: true},
		{name: "back to pending", from: entities.ExchangeStatusAccepted, to: entities.ExchangeStatusPending, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			effect, err := Plan(tt.from, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
				var te *TransitionError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, tt.from, te.From)
				assert.Equal(t, tt.to, te.To)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, effect.Status)
			assert.Equal(t, tt.wantBook, effect.Book)
			assert.Equal(t, tt.wantCompletion, effect.SetCompletion)
		})
	}
}

func TestPlan_TerminalStatesHaveNoExit(t *testing.T) {
	terminal := []entities.ExchangeStatus{
		entities.ExchangeStatusRejected,
		entities.ExchangeStatusCancelled,
		entities.ExchangeStatusCompleted,
	}
	for _, from := range terminal {
		assert.Nil(t, Next(from))
		for _, to := range entities.ExchangeStatuses {
			_, err := Plan(from, to)
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, to)
		}
	}
}

func TestPlanCreate(t *testing.T) {
	effect := PlanCreate()
	assert.Equal(t, entities.ExchangeStatusPending, effect.Status)
	assert.Equal(t, BookReserve, effect.Book)
	assert.False(t, effect.SetCompletion)
}

func TestNext_ReturnsCopy(t *testing.T) {
	next := Next(entities.ExchangeStatusPending)
	require.Len(t, next, 3)
	next[0] = entities.ExchangeStatusCompleted
	assert.True(t, CanTransition(entities.ExchangeStatusPending, entities.ExchangeStatusAccepted))
}
