package models

import (
	"testing"

	"github.com/avvvet/draught-services/internal/draughts"
	"github.com/stretchr/testify/assert"
)

func TestIsPlayerTurn(t *testing.T) {
	opponent := int64(2)
	g := &Game{
		CreatorID:     1,
		OpponentID:    &opponent,
		CreatorColor:  draughts.Red,
		OpponentColor: draughts.Black,
		CurrentTurn:   draughts.Red,
		Status:        GameInProgress,
	}

	assert.True(t, g.IsPlayerTurn(1))
	assert.False(t, g.IsPlayerTurn(2))
	assert.False(t, g.IsPlayerTurn(3))

	g.CurrentTurn = draughts.Black
	assert.True(t, g.IsPlayerTurn(2))

	g.Status = GameCompleted
	assert.False(t, g.IsPlayerTurn(2))
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status GameStatus
		want   bool
	}{
		{GameWaiting, false},
		{GameInProgress, false},
		{GameCompleted, true},
		{GameCancelled, true},
	}
	for _, tt := range tests {
		g := &Game{Status: tt.status}
		assert.Equal(t, tt.want, g.IsTerminal(), tt.status)
	}
}
