package payment

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

// Service creates payment records and handles their terminal transitions.
// Approval goes through the subscription manager instead, because approving
// a payment also creates the subscription.
type Service struct {
	Store   store.Store
	Catalog *catalog.Catalog
}

func NewService(st store.Store, cat *catalog.Catalog) *Service {
	return &Service{Store: st, Catalog: cat}
}

// Create persists a new pending payment. externalID is the gateway's id for
// the purchase when there is one; otherwise a fresh id is generated.
func (s *Service) Create(ctx context.Context, userID string, planID models.PlanID, externalID string) (*models.Payment, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", models.ErrValidation)
	}
	if _, err := s.Catalog.Resolve(planID); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	id := externalID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	payment := &models.Payment{
		ID:        id,
		UserID:    userID,
		PlanID:    planID,
		Status:    models.PaymentPending,
		CreatedAt: now,
		ExpiresAt: now.Add(models.PaymentWindow),
	}
	if err := s.Store.SavePayment(ctx, payment); err != nil {
		return nil, err
	}

	log.Printf("Created payment %s for user %s (plan %s)", payment.ID, userID, planID)
	return payment, nil
}

// MarkRejected moves a pending payment to REJECTED. Re-invoking on an
// already rejected payment is a no-op success.
func (s *Service) MarkRejected(ctx context.Context, paymentID string) error {
	return s.markTerminal(ctx, paymentID, models.PaymentRejected)
}

// MarkCancelled moves a pending payment to CANCELLED. Re-invoking on an
// already cancelled payment is a no-op success.
func (s *Service) MarkCancelled(ctx context.Context, paymentID string) error {
	return s.markTerminal(ctx, paymentID, models.PaymentCancelled)
}

func (s *Service) markTerminal(ctx context.Context, paymentID string, target models.PaymentStatus) error {
	payment, err := s.Store.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.Status == target {
		return nil
	}
	if payment.Status.Terminal() {
		return fmt.Errorf("payment %s is %s, cannot mark %s: %w",
			paymentID, payment.Status, target, models.ErrInvalidTransition)
	}

	err = s.Store.UpdatePaymentStatus(ctx, paymentID, models.PaymentPending, target)
	if errors.Is(err, store.ErrPreconditionFailed) {
		// Lost a race; re-read and apply the same idempotency rule.
		payment, rerr := s.Store.GetPayment(ctx, paymentID)
		if rerr != nil {
			return rerr
		}
		if payment.Status == target {
			return nil
		}
		return fmt.Errorf("payment %s is %s, cannot mark %s: %w",
			paymentID, payment.Status, target, models.ErrInvalidTransition)
	}
	if err != nil {
		return err
	}

	log.Printf("Payment %s marked %s", paymentID, target)
	return nil
}
