package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/database/memory"
	"storefront/internal/models"
	"storefront/internal/orders"
	"storefront/internal/payment"
)

const testWebhookSecret = "whsec_test"

func newWebhookRouter(secret string, store *memory.Orders) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/payment-webhook", PaymentWebhook(secret, orders.NewService(store)))
	return r
}

func postWebhook(r *gin.Engine, body []byte, header, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payment-webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(header, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func capturedBody(gatewayOrderID string) []byte {
	return []byte(`{"entity":"event","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"` + gatewayOrderID + `","amount":54800,"status":"captured"}}}}`)
}

func seedConfirmedOrder(store *memory.Orders, gatewayOrderID string) models.Order {
	return store.Put(models.Order{
		UserID:          "user-1",
		Status:          models.StatusConfirmed,
		StatusHistory:   []models.StatusEntry{{Status: models.StatusConfirmed, Timestamp: time.Now()}},
		PaymentStatus:   models.PaymentCaptured,
		PaymentID:       "pay_1",
		RazorpayOrderID: gatewayOrderID,
	})
}

func TestWebhookForUnknownOrderIsAcknowledgedWithoutWrites(t *testing.T) {
	store := memory.NewOrders()
	r := newWebhookRouter(testWebhookSecret, store)
	body := capturedBody("order_abc")

	w := postWebhook(r, body, "X-Razorpay-Signature", payment.Sign(testWebhookSecret, body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Zero(t, store.Writes())
	assert.Zero(t, store.Count())
}

func TestWebhookSignedWithWrongSecretIsRejected(t *testing.T) {
	store := memory.NewOrders()
	seeded := store.Put(models.Order{
		UserID:          "user-1",
		Status:          models.StatusOrderPlaced,
		StatusHistory:   []models.StatusEntry{{Status: models.StatusOrderPlaced}},
		PaymentStatus:   models.PaymentPending,
		RazorpayOrderID: "order_abc",
	})
	r := newWebhookRouter(testWebhookSecret, store)
	body := capturedBody("order_abc")

	for _, signature := range []string{
		payment.Sign("key_secret", body),
		payment.Sign(testWebhookSecret, append(body, ' ')),
		"zz",
	} {
		w := postWebhook(r, body, "X-Razorpay-Signature", signature)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w := postWebhook(r, body, "X-Razorpay-Signature", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, store.Writes())
	after, err := store.FindByID(context.Background(), seeded.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusOrderPlaced, after.Status)
	assert.Len(t, after.StatusHistory, 1)
}

func TestWebhookVerifiesRawBytes(t *testing.T) {
	store := memory.NewOrders()
	r := newWebhookRouter(testWebhookSecret, store)
	compact := capturedBody("order_abc")
	pretty := []byte("{\n  \"event\": \"payment.captured\",\n  \"payload\": {\"payment\": {\"entity\": {\"id\": \"pay_1\", \"order_id\": \"order_abc\"}}}\n}")

	w := postWebhook(r, pretty, "X-Razorpay-Signature", payment.Sign(testWebhookSecret, compact))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postWebhook(r, pretty, "X-Razorpay-Signature", payment.Sign(testWebhookSecret, pretty))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookAcceptsGenericSignatureHeader(t *testing.T) {
	store := memory.NewOrders()
	r := newWebhookRouter(testWebhookSecret, store)
	body := capturedBody("order_abc")

	w := postWebhook(r, body, "X-Signature", payment.Sign(testWebhookSecret, body))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookWithoutSecretFailsClosed(t *testing.T) {
	store := memory.NewOrders()
	seedConfirmedOrder(store, "order_abc")
	r := newWebhookRouter("", store)
	body := capturedBody("order_abc")

	w := postWebhook(r, body, "X-Razorpay-Signature", payment.Sign("", body))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, store.Writes())
}

func TestWebhookRedeliveryLeavesConfirmedOrderAlone(t *testing.T) {
	store := memory.NewOrders()
	seeded := seedConfirmedOrder(store, "order_abc")
	r := newWebhookRouter(testWebhookSecret, store)
	body := capturedBody("order_abc")
	signature := payment.Sign(testWebhookSecret, body)

	for i := 0; i < 3; i++ {
		w := postWebhook(r, body, "X-Razorpay-Signature", signature)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	after, err := store.FindByID(context.Background(), seeded.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, after.Status)
	assert.Len(t, after.StatusHistory, 1)
	assert.Zero(t, store.Writes())
}

func TestWebhookIgnoresUnknownAndUndecodableEvents(t *testing.T) {
	store := memory.NewOrders()
	r := newWebhookRouter(testWebhookSecret, store)

	for _, body := range [][]byte{
		[]byte(`{"event":"subscription.charged","payload":{}}`),
		[]byte(`not json at all`),
	} {
		w := postWebhook(r, body, "X-Razorpay-Signature", payment.Sign(testWebhookSecret, body))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Zero(t, store.Writes())
}

func TestWebhookStoreFailureAsksForRedelivery(t *testing.T) {
	store := memory.NewOrders()
	store.SetUnavailable(true)
	r := newWebhookRouter(testWebhookSecret, store)
	body := capturedBody("order_abc")

	w := postWebhook(r, body, "X-Razorpay-Signature", payment.Sign(testWebhookSecret, body))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
