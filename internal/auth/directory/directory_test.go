package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevDirectory_AnyPassword(t *testing.T) {
	ctx := context.Background()
	d, err := NewDevDirectory("")
	require.NoError(t, err)

	t.Run("seeded agent", func(t *testing.T) {
		agent, err := d.Authenticate(ctx, "DIR-056", "whatever")
		require.NoError(t, err)
		assert.Equal(t, "DIRECTEUR", agent.Role)
		assert.Equal(t, "M. BEN AMOR", agent.Nom)
		assert.Equal(t, "056", agent.Agence)
	})

	t.Run("national agent has no agency", func(t *testing.T) {
		agent, err := d.Authenticate(ctx, "CP-001", "x")
		require.NoError(t, err)
		assert.Equal(t, "CP", agent.Role)
		assert.Empty(t, agent.Agence)
		assert.Equal(t, "Grand Tunis", agent.Region)
	})

	t.Run("unknown matricule becomes a cashier of 056", func(t *testing.T) {
		agent, err := d.Authenticate(ctx, "CAI-999", "x")
		require.NoError(t, err)
		assert.Equal(t, "CAISSIER", agent.Role)
		assert.Equal(t, "CAI-999", agent.Nom)
		assert.Equal(t, "056", agent.Agence)
	})

	t.Run("empty password refused", func(t *testing.T) {
		_, err := d.Authenticate(ctx, "CAI-001", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestDevDirectory_SharedPassword(t *testing.T) {
	ctx := context.Background()
	d, err := NewDevDirectory("s3cret")
	require.NoError(t, err)

	_, err = d.Authenticate(ctx, "SUP-056", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	agent, err := d.Authenticate(ctx, "SUP-056", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "SUPERVISEUR", agent.Role)
}

func TestDevDirectory_SeededCopyIsIsolated(t *testing.T) {
	d, err := NewDevDirectory("")
	require.NoError(t, err)

	agent, err := d.Authenticate(context.Background(), "CAI-001", "x")
	require.NoError(t, err)
	agent.Role = "ADMIN"

	again, err := d.Authenticate(context.Background(), "CAI-001", "x")
	require.NoError(t, err)
	assert.Equal(t, "CAISSIER", again.Role)
}
