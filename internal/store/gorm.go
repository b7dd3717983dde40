package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vipclub-bot/internal/models"
)

// Gorm is the PostgreSQL-backed store. Collections map to tables and the
// conditional updates are plain guarded UPDATEs checked via RowsAffected.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := g.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &user, nil
}

func (g *Gorm) SaveUser(ctx context.Context, user *models.User) error {
	if err := g.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("save user %s: %w", user.ID, err)
	}
	return nil
}

func (g *Gorm) SetUserSubscription(ctx context.Context, userID, subscriptionID string) error {
	res := g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("current_subscription_id", subscriptionID)
	if res.Error != nil {
		return fmt.Errorf("set subscription for user %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (g *Gorm) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := g.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get payment %s: %w", id, err)
	}
	return &payment, nil
}

func (g *Gorm) SavePayment(ctx context.Context, payment *models.Payment) error {
	if err := g.db.WithContext(ctx).Save(payment).Error; err != nil {
		return fmt.Errorf("save payment %s: %w", payment.ID, err)
	}
	return nil
}

func (g *Gorm) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) error {
	res := g.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("update payment %s status: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := g.GetPayment(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("payment %s not %s: %w", id, from, ErrPreconditionFailed)
	}
	return nil
}

func (g *Gorm) PendingPaymentsExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := g.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.PaymentPending, cutoff).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("query expired pending payments: %w", err)
	}
	return payments, nil
}

func (g *Gorm) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := g.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subscription %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return &sub, nil
}

func (g *Gorm) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	if err := g.db.WithContext(ctx).Save(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("subscription for payment %s: %w", sub.PaymentID, ErrDuplicate)
		}
		return fmt.Errorf("save subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (g *Gorm) SubscriptionByPayment(ctx context.Context, paymentID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := g.db.WithContext(ctx).First(&sub, "payment_id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("subscription for payment %s: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("subscription for payment %s: %w", paymentID, err)
	}
	return &sub, nil
}

func (g *Gorm) DeactivateSubscription(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate subscription %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := g.GetSubscription(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("subscription %s already inactive: %w", id, ErrPreconditionFailed)
	}
	return nil
}

func (g *Gorm) ActiveSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := g.db.WithContext(ctx).
		Where("active = ? AND end_date BETWEEN ? AND ?", true, from, to).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("query expiring subscriptions: %w", err)
	}
	return subs, nil
}

func (g *Gorm) ActiveSubscriptionsEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := g.db.WithContext(ctx).
		Where("active = ? AND end_date < ?", true, cutoff).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("query ended subscriptions: %w", err)
	}
	return subs, nil
}

func (g *Gorm) GetResponse(ctx context.Context, key string) (string, error) {
	var resp models.Response
	if err := g.db.WithContext(ctx).First(&resp, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("response %s: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("get response %s: %w", key, err)
	}
	return resp.Text, nil
}

func (g *Gorm) SaveEvent(ctx context.Context, event *models.Event) error {
	if err := g.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("save event %s: %w", event.ID, err)
	}
	return nil
}

func (g *Gorm) EventsByUser(ctx context.Context, userID string) ([]models.Event, error) {
	var events []models.Event
	err := g.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("query events for user %s: %w", userID, err)
	}
	return events, nil
}

func (g *Gorm) Transaction(ctx context.Context, fn func(Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}
