package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExchangeStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    ExchangeStatus
		wantErr bool
	}{
		{in: "PENDING", want: ExchangeStatusPending},
		{in: "accepted", want: ExchangeStatusAccepted},
		{in: " Cancelled ", want: ExchangeStatusCancelled},
		{in: "COMPLETED", want: ExchangeStatusCompleted},
		{in: "rejected", want: ExchangeStatusRejected},
		{in: "CANCELED", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExchangeStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExchangeStatus_OpenAndTerminal(t *testing.T) {
	for _, s := range ExchangeStatuses {
		assert.NotEqual(t, s.IsOpen(), s.IsTerminal(), "status %s must be exactly one of open/terminal", s)
	}
	assert.True(t, ExchangeStatusPending.IsOpen())
	assert.True(t, ExchangeStatusAccepted.IsOpen())
	assert.True(t, ExchangeStatusCompleted.IsTerminal())
}

func TestExchange_IsParticipant(t *testing.T) {
	e := &Exchange{RequesterID: "1", ProviderID: "2"}
	assert.True(t, e.IsParticipant("1"))
	assert.True(t, e.IsParticipant("2"))
	assert.False(t, e.IsParticipant("3"))
	assert.False(t, e.IsParticipant(""))
}
