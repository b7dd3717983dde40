package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"vipclub-bot/internal/payment"
	"vipclub-bot/internal/store"
	"vipclub-bot/internal/subscription"
)

// Notifier delivers a plain text message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID, text string) error
}

// Checker is the hourly sweep: renewal notices before a subscription ends,
// an expiry notice once it leaves the grace window, and cleanup of pending
// payments past their window. Redis keys keep each notice from repeating;
// without Redis the dedup is skipped.
type Checker struct {
	Store    store.Store
	Redis    *redis.Client
	Payments *payment.Service
	Notifier Notifier
}

func NewChecker(st store.Store, rdb *redis.Client, payments *payment.Service, notifier Notifier) *Checker {
	return &Checker{
		Store:    st,
		Redis:    rdb,
		Payments: payments,
		Notifier: notifier,
	}
}

func (c *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	log.Println("Background subscription worker started")

	// Run once at start
	c.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Background subscription worker stopped")
			return
		case <-ticker.C:
			c.RunCycle(ctx)
		}
	}
}

func (c *Checker) RunCycle(ctx context.Context) {
	log.Println("Running subscription check cycle...")
	now := time.Now()

	c.notifyExpiring(ctx, now)
	c.notifyExpired(ctx, now)
	c.cancelStalePayments(ctx, now)
}

// notifyExpiring warns users whose subscription ends within the next two
// days.
func (c *Checker) notifyExpiring(ctx context.Context, now time.Time) {
	expiring, err := c.Store.ActiveSubscriptionsEndingBetween(ctx, now, now.Add(48*time.Hour))
	if err != nil {
		log.Printf("Error querying expiring subscriptions: %v", err)
		return
	}

	for _, sub := range expiring {
		key := fmt.Sprintf("notified_expiring_%s", sub.ID)
		if c.alreadyNotified(ctx, key) {
			continue
		}
		msg := fmt.Sprintf("⚠️ Sua assinatura vence em %s! Renove para não perder o acesso VIP.",
			sub.EndDate.Format("02/01/2006"))
		if err := c.Notifier.Notify(ctx, sub.UserID, msg); err != nil {
			log.Printf("Failed to send renewal notice to user %s: %v", sub.UserID, err)
			continue
		}
		c.markNotified(ctx, key, 72*time.Hour)
		log.Printf("Sent renewal notice to user %s (subscription %s)", sub.UserID, sub.ID)
	}
}

// notifyExpired tells users their grace window is over. The subscription
// record is left untouched: privilege derivation already reports EXPIRED,
// and renewal creates a new subscription.
func (c *Checker) notifyExpired(ctx context.Context, now time.Time) {
	cutoff := now.Add(-subscription.GraceWindow)
	expired, err := c.Store.ActiveSubscriptionsEndedBefore(ctx, cutoff)
	if err != nil {
		log.Printf("Error querying expired subscriptions: %v", err)
		return
	}

	for _, sub := range expired {
		key := fmt.Sprintf("notified_expired_%s", sub.ID)
		if c.alreadyNotified(ctx, key) {
			continue
		}
		msg := "❌ Sua assinatura expirou e o acesso VIP foi encerrado. Assine novamente com /start."
		if err := c.Notifier.Notify(ctx, sub.UserID, msg); err != nil {
			log.Printf("Failed to send expiry notice to user %s: %v", sub.UserID, err)
			continue
		}
		// No TTL: the expiry notice goes out once per subscription.
		c.markNotified(ctx, key, 0)
		log.Printf("Sent expiry notice to user %s (subscription %s)", sub.UserID, sub.ID)
	}
}

// cancelStalePayments closes pending payments past their 3-hour window, so
// the audit trail reflects that the purchase never completed.
func (c *Checker) cancelStalePayments(ctx context.Context, now time.Time) {
	stale, err := c.Store.PendingPaymentsExpiredBefore(ctx, now)
	if err != nil {
		log.Printf("Error querying stale payments: %v", err)
		return
	}

	for _, p := range stale {
		if err := c.Payments.MarkCancelled(ctx, p.ID); err != nil {
			log.Printf("Failed to cancel stale payment %s: %v", p.ID, err)
			continue
		}
		log.Printf("Cancelled stale payment %s (expired %s)", p.ID, p.ExpiresAt.Format(time.RFC3339))
	}
}

func (c *Checker) alreadyNotified(ctx context.Context, key string) bool {
	if c.Redis == nil {
		return false
	}
	exists, err := c.Redis.Exists(ctx, key).Result()
	if err != nil {
		log.Printf("Redis check failed for %s: %v", key, err)
		return false
	}
	return exists > 0
}

func (c *Checker) markNotified(ctx context.Context, key string, ttl time.Duration) {
	if c.Redis == nil {
		return
	}
	if err := c.Redis.Set(ctx, key, "true", ttl).Err(); err != nil {
		log.Printf("Redis set failed for %s: %v", key, err)
	}
}
