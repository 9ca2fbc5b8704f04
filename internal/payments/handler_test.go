package payments

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecocart/storefront/internal/auth"
	"github.com/ecocart/storefront/internal/domain"
)

func TestHandler_HandleCreateCheckoutSession(t *testing.T) {
	provider := &stubProvider{}
	h := newHarness(t, provider)
	handler := NewHandler(h.svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	order := h.addOrder()

	post := func(body, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/create-checkout-session", strings.NewReader(body))
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		req = req.WithContext(auth.WithUser(req.Context(), h.user))
		rec := httptest.NewRecorder()
		handler.HandleCreateCheckoutSession(rec, req)
		return rec
	}

	t.Run("card returns provider url", func(t *testing.T) {
		rec := post(`{"orderId":"`+order.ID.Hex()+`","paymentMethod":"card"}`, "https://shop.example")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result domain.CheckoutResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.NotEmpty(t, result.URL)
		assert.Equal(t, "https://shop.example/cart", provider.created[0].CancelURL)
	})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing order id", `{"paymentMethod":"cod"}`, http.StatusBadRequest},
		{"unknown method", `{"orderId":"` + order.ID.Hex() + `","paymentMethod":"cash"}`, http.StatusBadRequest},
		{"unknown order", `{"orderId":"65f000000000000000000000","paymentMethod":"cod"}`, http.StatusNotFound},
		{"malformed body", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(tt.body, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_HandleConfirmPayment(t *testing.T) {
	provider := &stubProvider{}
	h := newHarness(t, provider)
	handler := NewHandler(h.svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/confirm-payment", strings.NewReader(body))
		req = req.WithContext(auth.WithUser(req.Context(), h.user))
		rec := httptest.NewRecorder()
		handler.HandleConfirmPayment(rec, req)
		return rec
	}

	rec := post(`{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrNoConfirmation.Error())

	rec = post(`{"sessionId":"cs_test_unpaid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "payment not completed")

	provider.markPaid("cs_test_orphan")
	rec = post(`{"sessionId":"cs_test_orphan"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ProviderErrorIsNotLeaked(t *testing.T) {
	h := newHarness(t, &stubProvider{err: assert.AnError})
	handler := NewHandler(h.svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodPost, "/payments/confirm-payment", strings.NewReader(`{"sessionId":"cs_test_1"}`))
	req = req.WithContext(auth.WithUser(req.Context(), h.user))
	rec := httptest.NewRecorder()

	handler.HandleConfirmPayment(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestRequestOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"", ""},
		{"https://shop.example", "https://shop.example"},
		{"http://localhost:3000/", "http://localhost:3000"},
		{"javascript:alert(1)", ""},
		{"ftp://files.example", ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, requestOrigin(req), "origin %q", tt.origin)
	}
}
