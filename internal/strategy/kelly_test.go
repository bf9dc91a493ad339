package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKelly(t *testing.T) {
	t.Run("quarter kelly under cap", func(t *testing.T) {
		k, err := Kelly(0.55, 100, 0.25, 0.05, 1000)
		require.NoError(t, err)
		assert.InDelta(t, 0.1, k.FullKelly, 1e-9)
		assert.InDelta(t, 0.025, k.Fraction, 1e-9)
		assert.Equal(t, 25.0, k.Stake)
		assert.Equal(t, 100.0, k.FullStake)
		assert.False(t, k.CappedAtMax)
		assert.InDelta(t, 0.1, k.Edge, 1e-9)
	})

	t.Run("capped at max stake", func(t *testing.T) {
		k, err := Kelly(0.55, 100, 1, 0.05, 1000)
		require.NoError(t, err)
		assert.True(t, k.CappedAtMax)
		assert.Equal(t, 0.05, k.Fraction)
		assert.Equal(t, 50.0, k.Stake)
	})

	t.Run("no edge", func(t *testing.T) {
		k, err := Kelly(0.4, 100, 0.25, 0.05, 1000)
		require.NoError(t, err)
		assert.True(t, k.NoEdge)
		assert.Zero(t, k.Stake)
		assert.Zero(t, k.FullKelly)
	})

	t.Run("invalid inputs", func(t *testing.T) {
		_, err := Kelly(0, 100, 0.25, 0.05, 1000)
		assert.ErrorIs(t, err, ErrInvalidProbability)

		_, err = Kelly(0.5, 50, 0.25, 0.05, 1000)
		assert.ErrorIs(t, err, ErrInvalidOdds)

		_, err = Kelly(0.5, 100, 1.5, 0.05, 1000)
		assert.Error(t, err)

		_, err = Kelly(0.5, 100, 0.25, 0.05, 0)
		assert.Error(t, err)
	})
}

func TestMoneyHelpers(t *testing.T) {
	assert.Equal(t, 10.13, RoundMoney(10.125))
	assert.Equal(t, 0.3, SumMoney(0.1, 0.2))
}
