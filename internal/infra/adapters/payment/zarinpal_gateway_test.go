//go:build !integration

package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/infra/adapters/payment"
)

func TestZarinPalGateway(t *testing.T) {
	ctx := context.Background()

	newGateway := func(t *testing.T, h http.HandlerFunc) *payment.ZarinPalGateway {
		t.Helper()
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)
		gw, err := payment.NewZarinPalGateway("merchant-1", "https://vpn.example/cb", srv.URL, true)
		require.NoError(t, err)
		return gw
	}

	t.Run("should return authority and start-pay url", func(t *testing.T) {
		gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/pg/v4/payment/request.json", r.URL.Path)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://vpn.example/cb", body["callback_url"])
			_, _ = w.Write([]byte(`{"data":{"code":100,"authority":"A0001"}}`))
		})

		ref, payURL, err := gw.RequestPayment(ctx, 900, "basic x1", "", nil)

		require.NoError(t, err)
		assert.Equal(t, "A0001", ref)
		assert.Contains(t, payURL, "/pg/StartPay/A0001")
	})

	t.Run("should treat already-verified as success", func(t *testing.T) {
		gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"code":101,"ref_id":778899}}`))
		})

		refID, err := gw.VerifyPayment(ctx, "A0001", 900)

		require.NoError(t, err)
		assert.Equal(t, "778899", refID)
	})

	t.Run("should report an unverified payment as terminal", func(t *testing.T) {
		gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"code":-51},"errors":{"message":"failed"}}`))
		})

		_, err := gw.VerifyPayment(ctx, "A0001", 900)

		assert.ErrorIs(t, err, domain.ErrPaymentNotVerified)
		assert.False(t, domain.IsRetryable(err))
	})

	t.Run("should report a 5xx as retryable", func(t *testing.T) {
		gw := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := gw.VerifyPayment(ctx, "A0001", 900)

		assert.True(t, domain.IsRetryable(err))
	})
}

func TestNoopPaymentGateway(t *testing.T) {
	ctx := context.Background()
	gw := payment.NewNoopPaymentGateway("")

	ref, payURL, err := gw.RequestPayment(ctx, 500, "d", "", nil)
	require.NoError(t, err)
	assert.Contains(t, payURL, ref)

	_, err = gw.VerifyPayment(ctx, ref, 400)
	assert.ErrorIs(t, err, domain.ErrPaymentNotVerified)

	refID, err := gw.VerifyPayment(ctx, ref, 500)
	require.NoError(t, err)
	assert.Equal(t, "ref-"+ref, refID)
}
