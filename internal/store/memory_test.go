package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipclub-bot/internal/models"
	"vipclub-bot/internal/store"
)

func TestUpdatePaymentStatusPrecondition(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SavePayment(ctx, &models.Payment{
		ID:     "pay-1",
		UserID: "42",
		Status: models.PaymentPending,
	}))

	require.NoError(t, mem.UpdatePaymentStatus(ctx, "pay-1", models.PaymentPending, models.PaymentApproved))

	// Second conditional write finds the status no longer PENDING.
	err := mem.UpdatePaymentStatus(ctx, "pay-1", models.PaymentPending, models.PaymentApproved)
	require.ErrorIs(t, err, store.ErrPreconditionFailed)

	err = mem.UpdatePaymentStatus(ctx, "missing", models.PaymentPending, models.PaymentApproved)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveSubscriptionRejectsSecondPerPayment(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	first := &models.Subscription{ID: "sub-1", UserID: "42", PaymentID: "pay-1", Active: true}
	require.NoError(t, mem.SaveSubscription(ctx, first))

	// Updating the same subscription is fine.
	first.Active = false
	require.NoError(t, mem.SaveSubscription(ctx, first))

	err := mem.SaveSubscription(ctx, &models.Subscription{ID: "sub-2", UserID: "42", PaymentID: "pay-1"})
	require.ErrorIs(t, err, store.ErrDuplicate)
	assert.Equal(t, 1, mem.SubscriptionCount())
}

func TestDeactivateSubscription(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveSubscription(ctx, &models.Subscription{
		ID: "sub-1", UserID: "42", PaymentID: "pay-1", Active: true,
	}))

	require.NoError(t, mem.DeactivateSubscription(ctx, "sub-1"))

	err := mem.DeactivateSubscription(ctx, "sub-1")
	require.ErrorIs(t, err, store.ErrPreconditionFailed)

	err = mem.DeactivateSubscription(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubscriptionByPayment(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveSubscription(ctx, &models.Subscription{
		ID: "sub-1", UserID: "42", PaymentID: "pay-1", Active: true,
	}))

	sub, err := mem.SubscriptionByPayment(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)

	_, err = mem.SubscriptionByPayment(ctx, "pay-2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SavePayment(ctx, &models.Payment{
		ID: "pay-1", UserID: "42", Status: models.PaymentPending,
	}))

	boom := errors.New("boom")
	err := mem.Transaction(ctx, func(tx store.Store) error {
		if err := tx.UpdatePaymentStatus(ctx, "pay-1", models.PaymentPending, models.PaymentApproved); err != nil {
			return err
		}
		if err := tx.SaveSubscription(ctx, &models.Subscription{ID: "sub-1", PaymentID: "pay-1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := mem.GetPayment(ctx, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Equal(t, 0, mem.SubscriptionCount())
}

func TestPendingPaymentsExpiredBefore(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, mem.SavePayment(ctx, &models.Payment{
		ID: "stale", Status: models.PaymentPending, ExpiresAt: now.Add(-time.Hour),
	}))
	require.NoError(t, mem.SavePayment(ctx, &models.Payment{
		ID: "fresh", Status: models.PaymentPending, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, mem.SavePayment(ctx, &models.Payment{
		ID: "done", Status: models.PaymentApproved, ExpiresAt: now.Add(-time.Hour),
	}))

	stale, err := mem.PendingPaymentsExpiredBefore(ctx, now)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "stale", stale[0].ID)
}
