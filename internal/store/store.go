package store

import (
	"context"
	"errors"
	"time"

	"vipclub-bot/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrPreconditionFailed is returned when a conditional write finds the
	// stored value no longer matches the expected prior state.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrDuplicate is returned when a write violates a uniqueness
	// constraint, e.g. a second subscription for the same payment.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the narrow contract the services consume. The backing store owns
// durability and consistency; the conditional updates are the only
// concurrency guard the callers rely on.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	// SetUserSubscription points the user at its most recent subscription,
	// overwriting any prior pointer.
	SetUserSubscription(ctx context.Context, userID, subscriptionID string) error

	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	SavePayment(ctx context.Context, payment *models.Payment) error
	// UpdatePaymentStatus transitions a payment only if its stored status
	// still equals from. Returns ErrPreconditionFailed when another writer
	// got there first.
	UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) error
	PendingPaymentsExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.Payment, error)

	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	// SubscriptionByPayment finds the subscription created from a payment,
	// or ErrNotFound. Backed by a unique index on payment id.
	SubscriptionByPayment(ctx context.Context, paymentID string) (*models.Subscription, error)
	// DeactivateSubscription flips active true -> false. Returns
	// ErrPreconditionFailed when the subscription is already inactive.
	DeactivateSubscription(ctx context.Context, id string) error
	ActiveSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error)
	ActiveSubscriptionsEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Subscription, error)

	GetResponse(ctx context.Context, key string) (string, error)

	SaveEvent(ctx context.Context, event *models.Event) error
	EventsByUser(ctx context.Context, userID string) ([]models.Event, error)

	// Transaction runs fn against a store view whose writes commit together
	// or not at all.
	Transaction(ctx context.Context, fn func(Store) error) error
}
