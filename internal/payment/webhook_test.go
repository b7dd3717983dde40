package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipclub-bot/internal/catalog"
	"vipclub-bot/internal/models"
	"vipclub-bot/internal/payment"
	"vipclub-bot/internal/store"
	"vipclub-bot/internal/subscription"
)

func newWebhook(t *testing.T) (*payment.WebhookHandler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	cat := catalog.New()
	manager := subscription.NewManager(mem, cat)
	payments := payment.NewService(mem, cat)
	return payment.NewWebhookHandler(manager, payments), mem
}

func post(handler *payment.WebhookHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)
	return rec
}

func TestWebhookApprovesPayment(t *testing.T) {
	handler, mem := newWebhook(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveUser(ctx, &models.User{ID: "42"}))
	svc := payment.NewService(mem, catalog.New())
	p, err := svc.Create(ctx, "42", models.PlanMonthly, "mp-1")
	require.NoError(t, err)

	rec := post(handler, `{"type":"payment","action":"payment.approved","data":{"id":"mp-1"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := mem.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentApproved, stored.Status)
	assert.Equal(t, 1, mem.SubscriptionCount())
}

func TestWebhookRedelivery(t *testing.T) {
	handler, mem := newWebhook(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveUser(ctx, &models.User{ID: "42"}))
	svc := payment.NewService(mem, catalog.New())
	_, err := svc.Create(ctx, "42", models.PlanMonthly, "mp-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		rec := post(handler, `{"type":"payment","action":"payment.approved","data":{"id":"mp-1"}}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, mem.SubscriptionCount())
}

func TestWebhookRejectsPayment(t *testing.T) {
	handler, mem := newWebhook(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveUser(ctx, &models.User{ID: "42"}))
	svc := payment.NewService(mem, catalog.New())
	_, err := svc.Create(ctx, "42", models.PlanMonthly, "mp-1")
	require.NoError(t, err)

	rec := post(handler, `{"type":"payment","action":"payment.rejected","data":{"id":"mp-1"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := mem.GetPayment(ctx, "mp-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, stored.Status)
}

func TestWebhookTerminalFailuresAreNotRetried(t *testing.T) {
	handler, mem := newWebhook(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveUser(ctx, &models.User{ID: "42"}))
	svc := payment.NewService(mem, catalog.New())
	_, err := svc.Create(ctx, "42", models.PlanMonthly, "mp-1")
	require.NoError(t, err)
	require.NoError(t, svc.MarkRejected(ctx, "mp-1"))

	// Confirming a rejected payment is terminal; 200 stops redelivery.
	rec := post(handler, `{"type":"payment","action":"payment.approved","data":{"id":"mp-1"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, mem.SubscriptionCount())

	// So is a confirmation for a payment that never existed.
	rec = post(handler, `{"type":"payment","action":"payment.approved","data":{"id":"ghost"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookBadRequests(t *testing.T) {
	handler, _ := newWebhook(t)

	rec := post(handler, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(handler, `{"type":"payment","action":"payment.approved","data":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/webhook/payments", nil)
	recorder := httptest.NewRecorder()
	handler.HandleWebhook(recorder, req)
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}

func TestWebhookIgnoresOtherActions(t *testing.T) {
	handler, _ := newWebhook(t)

	rec := post(handler, `{"type":"payment","action":"payment.updated","data":{"id":"mp-1"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
