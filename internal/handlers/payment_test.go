package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"storefront/internal/apperr"
	"storefront/internal/payment"
)

type stubGateway struct {
	err     error
	amounts []int64
}

func (g *stubGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (payment.GatewayOrder, error) {
	g.amounts = append(g.amounts, amountMinor)
	if g.err != nil {
		return payment.GatewayOrder{}, g.err
	}
	return payment.GatewayOrder{ID: "order_abc", Amount: amountMinor, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreatePaymentOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		body        string
		gatewayErr  error
		wantStatus  int
		wantBody    string
		wantAmounts []int64
	}{
		{
			name:        "converts to minor units",
			body:        `{"amount":548,"receipt":"rcpt_1"}`,
			wantStatus:  http.StatusOK,
			wantBody:    `{"id":"order_abc","amount":54800,"currency":"INR"}`,
			wantAmounts: []int64{54800},
		},
		{name: "missing amount", body: `{"receipt":"rcpt_1"}`, wantStatus: http.StatusBadRequest},
		{name: "negative amount", body: `{"amount":-5}`, wantStatus: http.StatusBadRequest},
		{name: "sub-paisa amount", body: `{"amount":10.005}`, wantStatus: http.StatusBadRequest},
		{name: "malformed body", body: `{"amount":`, wantStatus: http.StatusBadRequest},
		{
			name:        "gateway down",
			body:        `{"amount":548}`,
			gatewayErr:  &apperr.GatewayError{Op: "create order", StatusCode: http.StatusServiceUnavailable, Err: errors.New("unavailable")},
			wantStatus:  http.StatusBadGateway,
			wantBody:    `{"error":"payment system unavailable, try again"}`,
			wantAmounts: []int64{54800},
		},
		{
			name:        "credentials missing",
			body:        `{"amount":548}`,
			gatewayErr:  apperr.ErrMisconfigured,
			wantStatus:  http.StatusInternalServerError,
			wantAmounts: []int64{54800},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &stubGateway{err: tt.gatewayErr}
			r := gin.New()
			r.POST("/api/payment/create-order", CreatePaymentOrder(gateway, "INR"))

			w := doJSON(r, http.MethodPost, "/api/payment/create-order", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			assert.Equal(t, tt.wantAmounts, gateway.amounts)
		})
	}
}

func TestVerifyPayment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "key_secret"
	valid := payment.Sign(secret, []byte("order_abc|pay_1"))

	tests := []struct {
		name       string
		secret     string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid signature",
			secret:     secret,
			body:       `{"razorpay_order_id":"order_abc","razorpay_payment_id":"pay_1","razorpay_signature":"` + valid + `"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"verified":true}`,
		},
		{
			name:       "payment id swapped",
			secret:     secret,
			body:       `{"razorpay_order_id":"order_abc","razorpay_payment_id":"pay_2","razorpay_signature":"` + valid + `"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"verified":false}`,
		},
		{
			name:       "missing signature",
			secret:     secret,
			body:       `{"razorpay_order_id":"order_abc","razorpay_payment_id":"pay_1"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "secret not configured",
			secret:     "",
			body:       `{"razorpay_order_id":"order_abc","razorpay_payment_id":"pay_1","razorpay_signature":"` + valid + `"}`,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/api/payment/verify", VerifyPayment(tt.secret))

			w := doJSON(r, http.MethodPost, "/api/payment/verify", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}
