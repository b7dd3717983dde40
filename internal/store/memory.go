package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vipclub-bot/internal/models"
)

// Memory is a map-backed Store with the same conditional-write and
// transaction semantics as the PostgreSQL implementation. Used by the tests
// and for local runs without a database.
type Memory struct {
	mu sync.Mutex
	d  *memData
}

type memData struct {
	users         map[string]models.User
	payments      map[string]models.Payment
	subscriptions map[string]models.Subscription
	responses     map[string]string
	events        []models.Event
}

func NewMemory() *Memory {
	return &Memory{d: &memData{
		users:         make(map[string]models.User),
		payments:      make(map[string]models.Payment),
		subscriptions: make(map[string]models.Subscription),
		responses:     make(map[string]string),
	}}
}

// SetResponse seeds a canned reply. Production rows are edited directly in
// the store, so this only exists on the in-memory implementation.
func (m *Memory) SetResponse(key, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.d.responses[key] = text
}

// SubscriptionCount reports how many subscription documents exist.
func (m *Memory) SubscriptionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.d.subscriptions)
}

func (m *Memory) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.getUser(id)
}

func (m *Memory) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.saveUser(user)
}

func (m *Memory) SetUserSubscription(ctx context.Context, userID, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.setUserSubscription(userID, subscriptionID)
}

func (m *Memory) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.getPayment(id)
}

func (m *Memory) SavePayment(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.savePayment(payment)
}

func (m *Memory) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.updatePaymentStatus(id, from, to)
}

func (m *Memory) PendingPaymentsExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.pendingPaymentsExpiredBefore(cutoff)
}

func (m *Memory) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.getSubscription(id)
}

func (m *Memory) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.saveSubscription(sub)
}

func (m *Memory) SubscriptionByPayment(ctx context.Context, paymentID string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.subscriptionByPayment(paymentID)
}

func (m *Memory) DeactivateSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.deactivateSubscription(id)
}

func (m *Memory) ActiveSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.activeSubscriptionsEndingBetween(from, to)
}

func (m *Memory) ActiveSubscriptionsEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.activeSubscriptionsEndedBefore(cutoff)
}

func (m *Memory) GetResponse(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.getResponse(key)
}

func (m *Memory) SaveEvent(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.saveEvent(event)
}

func (m *Memory) EventsByUser(ctx context.Context, userID string) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.d.eventsByUser(userID)
}

// Transaction holds the store lock for the whole block and rolls the data
// back when fn fails, so concurrent callers observe either all of the
// block's writes or none of them.
func (m *Memory) Transaction(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.d.clone()
	if err := fn(&memTx{d: m.d}); err != nil {
		m.d = snapshot
		return err
	}
	return nil
}

// memTx exposes the data without re-locking; it only ever runs under the
// Memory lock held by Transaction.
type memTx struct {
	d *memData
}

func (t *memTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	return t.d.getUser(id)
}

func (t *memTx) SaveUser(ctx context.Context, user *models.User) error {
	return t.d.saveUser(user)
}

func (t *memTx) SetUserSubscription(ctx context.Context, userID, subscriptionID string) error {
	return t.d.setUserSubscription(userID, subscriptionID)
}

func (t *memTx) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return t.d.getPayment(id)
}

func (t *memTx) SavePayment(ctx context.Context, payment *models.Payment) error {
	return t.d.savePayment(payment)
}

func (t *memTx) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) error {
	return t.d.updatePaymentStatus(id, from, to)
}

func (t *memTx) PendingPaymentsExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.Payment, error) {
	return t.d.pendingPaymentsExpiredBefore(cutoff)
}

func (t *memTx) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	return t.d.getSubscription(id)
}

func (t *memTx) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	return t.d.saveSubscription(sub)
}

func (t *memTx) SubscriptionByPayment(ctx context.Context, paymentID string) (*models.Subscription, error) {
	return t.d.subscriptionByPayment(paymentID)
}

func (t *memTx) DeactivateSubscription(ctx context.Context, id string) error {
	return t.d.deactivateSubscription(id)
}

func (t *memTx) ActiveSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	return t.d.activeSubscriptionsEndingBetween(from, to)
}

func (t *memTx) ActiveSubscriptionsEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Subscription, error) {
	return t.d.activeSubscriptionsEndedBefore(cutoff)
}

func (t *memTx) GetResponse(ctx context.Context, key string) (string, error) {
	return t.d.getResponse(key)
}

func (t *memTx) SaveEvent(ctx context.Context, event *models.Event) error {
	return t.d.saveEvent(event)
}

func (t *memTx) EventsByUser(ctx context.Context, userID string) ([]models.Event, error) {
	return t.d.eventsByUser(userID)
}

func (t *memTx) Transaction(ctx context.Context, fn func(Store) error) error {
	// Already inside a transaction, run against the same view.
	return fn(t)
}

func (d *memData) clone() *memData {
	c := &memData{
		users:         make(map[string]models.User, len(d.users)),
		payments:      make(map[string]models.Payment, len(d.payments)),
		subscriptions: make(map[string]models.Subscription, len(d.subscriptions)),
		responses:     make(map[string]string, len(d.responses)),
		events:        make([]models.Event, len(d.events)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.subscriptions {
		c.subscriptions[k] = v
	}
	for k, v := range d.responses {
		c.responses[k] = v
	}
	copy(c.events, d.events)
	return c
}

func (d *memData) getUser(id string) (*models.User, error) {
	user, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &user, nil
}

func (d *memData) saveUser(user *models.User) error {
	d.users[user.ID] = *user
	return nil
}

func (d *memData) setUserSubscription(userID, subscriptionID string) error {
	user, ok := d.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	user.CurrentSubscriptionID = &subscriptionID
	d.users[userID] = user
	return nil
}

func (d *memData) getPayment(id string) (*models.Payment, error) {
	payment, ok := d.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	return &payment, nil
}

func (d *memData) savePayment(payment *models.Payment) error {
	d.payments[payment.ID] = *payment
	return nil
}

func (d *memData) updatePaymentStatus(id string, from, to models.PaymentStatus) error {
	payment, ok := d.payments[id]
	if !ok {
		return fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	if payment.Status != from {
		return fmt.Errorf("payment %s not %s: %w", id, from, ErrPreconditionFailed)
	}
	payment.Status = to
	payment.UpdatedAt = time.Now()
	d.payments[id] = payment
	return nil
}

func (d *memData) pendingPaymentsExpiredBefore(cutoff time.Time) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range d.payments {
		if p.Status == models.PaymentPending && p.ExpiresAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *memData) getSubscription(id string) (*models.Subscription, error) {
	sub, ok := d.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("subscription %s: %w", id, ErrNotFound)
	}
	return &sub, nil
}

func (d *memData) saveSubscription(sub *models.Subscription) error {
	for _, existing := range d.subscriptions {
		if existing.PaymentID == sub.PaymentID && existing.ID != sub.ID {
			return fmt.Errorf("subscription for payment %s: %w", sub.PaymentID, ErrDuplicate)
		}
	}
	d.subscriptions[sub.ID] = *sub
	return nil
}

func (d *memData) subscriptionByPayment(paymentID string) (*models.Subscription, error) {
	for _, sub := range d.subscriptions {
		if sub.PaymentID == paymentID {
			s := sub
			return &s, nil
		}
	}
	return nil, fmt.Errorf("subscription for payment %s: %w", paymentID, ErrNotFound)
}

func (d *memData) deactivateSubscription(id string) error {
	sub, ok := d.subscriptions[id]
	if !ok {
		return fmt.Errorf("subscription %s: %w", id, ErrNotFound)
	}
	if !sub.Active {
		return fmt.Errorf("subscription %s already inactive: %w", id, ErrPreconditionFailed)
	}
	sub.Active = false
	sub.UpdatedAt = time.Now()
	d.subscriptions[id] = sub
	return nil
}

func (d *memData) activeSubscriptionsEndingBetween(from, to time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range d.subscriptions {
		if s.Active && !s.EndDate.Before(from) && !s.EndDate.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (d *memData) activeSubscriptionsEndedBefore(cutoff time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range d.subscriptions {
		if s.Active && s.EndDate.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (d *memData) getResponse(key string) (string, error) {
	text, ok := d.responses[key]
	if !ok {
		return "", fmt.Errorf("response %s: %w", key, ErrNotFound)
	}
	return text, nil
}

func (d *memData) saveEvent(event *models.Event) error {
	d.events = append(d.events, *event)
	return nil
}

func (d *memData) eventsByUser(userID string) ([]models.Event, error) {
	var out []models.Event
	for _, e := range d.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
