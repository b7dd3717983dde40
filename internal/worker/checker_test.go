package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipclub-bot/internal/catalog"
	"vipclub-bot/internal/models"
	"vipclub-bot/internal/payment"
	"vipclub-bot/internal/store"
	"vipclub-bot/internal/worker"
)

type fakeNotifier struct {
	sent map[string][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(map[string][]string)}
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, text string) error {
	f.sent[userID] = append(f.sent[userID], text)
	return nil
}

func TestRunCycle(t *testing.T) {
	mem := store.NewMemory()
	notifier := newFakeNotifier()
	payments := payment.NewService(mem, catalog.New())
	checker := worker.NewChecker(mem, nil, payments, notifier)
	ctx := context.Background()
	now := time.Now()

	// Ends tomorrow: gets a renewal notice.
	require.NoError(t, mem.SaveSubscription(ctx, &models.Subscription{
		ID: "sub-soon", UserID: "1", PaymentID: "pay-1",
		EndDate: now.Add(24 * time.Hour), Active: true,
	}))
	// Past the grace window: gets an expiry notice.
	require.NoError(t, mem.SaveSubscription(ctx, &models.Subscription{
		ID: "sub-gone", UserID: "2", PaymentID: "pay-2",
		EndDate: now.Add(-72 * time.Hour), Active: true,
	}))
	// Far from ending: stays quiet.
	require.NoError(t, mem.SaveSubscription(ctx, &models.Subscription{
		ID: "sub-far", UserID: "3", PaymentID: "pay-3",
		EndDate: now.Add(30 * 24 * time.Hour), Active: true,
	}))
	// Pending payment past its window: cancelled.
	require.NoError(t, mem.SavePayment(ctx, &models.Payment{
		ID: "pay-stale", UserID: "1", PlanID: models.PlanMonthly,
		Status: models.PaymentPending, ExpiresAt: now.Add(-time.Hour),
	}))

	checker.RunCycle(ctx)

	require.Len(t, notifier.sent["1"], 1)
	assert.Contains(t, notifier.sent["1"][0], "vence")
	require.Len(t, notifier.sent["2"], 1)
	assert.Contains(t, notifier.sent["2"][0], "expirou")
	assert.Empty(t, notifier.sent["3"])

	stale, err := mem.GetPayment(ctx, "pay-stale")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, stale.Status)

	// The expired subscription record itself is untouched.
	gone, err := mem.GetSubscription(ctx, "sub-gone")
	require.NoError(t, err)
	assert.True(t, gone.Active)
}
