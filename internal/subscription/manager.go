package subscription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"vipclub-bot/internal/catalog"
	"vipclub-bot/internal/models"
	"vipclub-bot/internal/store"
)

// GraceWindow is how long VIP privileges hold past a subscription's end
// date, leaving time for the renewal notice before access is reported as
// expired. Applied at read time only; stored records never change.
const GraceWindow = 24 * time.Hour

// Status is the derived privilege of a user, never stored.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusGrace   Status = "GRACE"
	StatusExpired Status = "EXPIRED"
)

// Manager drives the payment -> subscription state machine: it confirms
// payments, creates subscriptions exactly once per approved payment, and
// derives the effective privilege of a user.
type Manager struct {
	Store   store.Store
	Catalog *catalog.Catalog
}

func NewManager(st store.Store, cat *catalog.Catalog) *Manager {
	return &Manager{Store: st, Catalog: cat}
}

// ConfirmPayment approves a pending payment and creates its subscription.
// Safe to re-invoke with the same id any number of times, concurrently or
// after a partial failure: at most one subscription is ever created per
// payment, and a retried call finishes whatever the first one left undone.
func (m *Manager) ConfirmPayment(ctx context.Context, paymentID string) (*models.Subscription, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("%w: empty payment id", models.ErrValidation)
	}

	payment, err := m.Store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case models.PaymentApproved:
		return m.completeReplay(ctx, payment)
	case models.PaymentRejected, models.PaymentCancelled:
		return nil, fmt.Errorf("payment %s is %s: %w", paymentID, payment.Status, models.ErrInvalidTransition)
	}

	if time.Now().After(payment.ExpiresAt) {
		return nil, fmt.Errorf("payment %s past its window: %w", paymentID, models.ErrPaymentExpired)
	}

	var sub *models.Subscription
	err = m.Store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.UpdatePaymentStatus(ctx, paymentID, models.PaymentPending, models.PaymentApproved); err != nil {
			return err
		}
		created, err := m.createSubscription(ctx, tx, payment)
		if err != nil {
			return err
		}
		sub = created
		return tx.SetUserSubscription(ctx, payment.UserID, created.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) || errors.Is(err, store.ErrDuplicate) {
			// Another caller won the conditional write. Not an error:
			// fall back to the replay path and return its result.
			return m.completeReplay(ctx, payment)
		}
		return nil, err
	}

	log.Printf("Payment %s approved, subscription %s created for user %s (plan %s, until %s)",
		paymentID, sub.ID, sub.UserID, sub.PlanID, sub.EndDate.Format("2006-01-02"))
	return sub, nil
}

// completeReplay handles a confirmation signal for an already approved
// payment: find the subscription the original confirmation created and
// finish the user pointer update if it never landed.
func (m *Manager) completeReplay(ctx context.Context, payment *models.Payment) (*models.Subscription, error) {
	sub, err := m.Store.SubscriptionByPayment(ctx, payment.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Approval committed but the subscription write never landed
		// (possible on stores without multi-document transactions).
		// Resume creation from that point.
		return m.resumeCreation(ctx, payment)
	}
	if err != nil {
		return nil, err
	}

	if err := m.repairUserPointer(ctx, payment.UserID, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// resumeCreation re-runs steps the original confirmation lost after the
// status flip. The re-check runs inside the transaction so two replayers
// cannot both create.
func (m *Manager) resumeCreation(ctx context.Context, payment *models.Payment) (*models.Subscription, error) {
	var sub *models.Subscription
	err := m.Store.Transaction(ctx, func(tx store.Store) error {
		existing, err := tx.SubscriptionByPayment(ctx, payment.ID)
		if err == nil {
			sub = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		created, err := m.createSubscription(ctx, tx, payment)
		if err != nil {
			return err
		}
		sub = created
		return tx.SetUserSubscription(ctx, payment.UserID, created.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return m.Store.SubscriptionByPayment(ctx, payment.ID)
		}
		return nil, err
	}

	log.Printf("Resumed confirmation of payment %s, subscription %s", payment.ID, sub.ID)
	return sub, nil
}

func (m *Manager) createSubscription(ctx context.Context, tx store.Store, payment *models.Payment) (*models.Subscription, error) {
	plan, err := m.Catalog.Resolve(payment.PlanID)
	if err != nil {
		return nil, err
	}

	start := today()
	sub := &models.Subscription{
		ID:        uuid.NewString(),
		UserID:    payment.UserID,
		PaymentID: payment.ID,
		PlanID:    plan.ID,
		StartDate: start,
		EndDate:   plan.EndDate(start),
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := tx.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// repairUserPointer finishes the pointer update of an interrupted
// confirmation. The pointer always tracks the most recent subscription, so
// a replayed old payment never moves it backwards.
func (m *Manager) repairUserPointer(ctx context.Context, userID string, sub *models.Subscription) error {
	user, err := m.Store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.CurrentSubscriptionID != nil {
		if *user.CurrentSubscriptionID == sub.ID {
			return nil
		}
		current, err := m.Store.GetSubscription(ctx, *user.CurrentSubscriptionID)
		if err == nil && !current.CreatedAt.Before(sub.CreatedAt) {
			return nil
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return m.Store.SetUserSubscription(ctx, userID, sub.ID)
}

// CancelSubscription flips a subscription to inactive. Cancelling an
// already inactive subscription is a no-op success. The user pointer is
// left in place: privilege derivation reports inactive pointers as EXPIRED.
func (m *Manager) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return fmt.Errorf("%w: empty subscription id", models.ErrValidation)
	}

	err := m.Store.DeactivateSubscription(ctx, subscriptionID)
	if errors.Is(err, store.ErrPreconditionFailed) {
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("Subscription %s cancelled", subscriptionID)
	return nil
}

// Status derives the effective privilege of a user. Read-only.
func (m *Manager) Status(ctx context.Context, userID string) (Status, error) {
	user, err := m.Store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return StatusExpired, nil
	}
	if err != nil {
		return StatusExpired, err
	}
	if user.CurrentSubscriptionID == nil {
		return StatusExpired, nil
	}

	sub, err := m.Store.GetSubscription(ctx, *user.CurrentSubscriptionID)
	if errors.Is(err, store.ErrNotFound) {
		return StatusExpired, nil
	}
	if err != nil {
		return StatusExpired, err
	}
	if !sub.Active {
		return StatusExpired, nil
	}

	now := today()
	if !now.After(sub.EndDate) {
		return StatusActive, nil
	}
	if !now.After(sub.EndDate.Add(GraceWindow)) {
		return StatusGrace, nil
	}
	return StatusExpired, nil
}

// today returns the current date at UTC midnight. Subscription bounds are
// whole dates, not instants.
func today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
