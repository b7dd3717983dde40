package users_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipclub-bot/internal/models"
	"vipclub-bot/internal/store"
	"vipclub-bot/internal/users"
)

func TestRegisterCreatesOnce(t *testing.T) {
	mem := store.NewMemory()
	svc := users.NewService(mem)
	ctx := context.Background()

	user, created, err := svc.Register(ctx, "42", "joao", "João")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "42", user.ID)
	assert.Nil(t, user.CurrentSubscriptionID)

	again, created, err := svc.Register(ctx, "42", "other", "Other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "joao", again.Username, "existing user must not be overwritten")
}

func TestRegisterValidation(t *testing.T) {
	svc := users.NewService(store.NewMemory())

	_, _, err := svc.Register(context.Background(), "", "joao", "João")
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestGet(t *testing.T) {
	mem := store.NewMemory()
	svc := users.NewService(mem)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "42", "joao", "João")
	require.NoError(t, err)

	user, err := svc.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "joao", user.Username)

	_, err = svc.Get(ctx, "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
}
