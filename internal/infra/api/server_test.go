//go:build !integration

package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/infra/api"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type confirmFunc func(ctx context.Context, ref string, ok bool) (*usecase.ConfirmResult, error)

func (f confirmFunc) ConfirmPayment(ctx context.Context, ref string, ok bool) (*usecase.ConfirmResult, error) {
	return f(ctx, ref, ok)
}

func newCallbackRouter(f confirmFunc) http.Handler {
	r := chi.NewRouter()
	api.NewServer(f, "", "https://t.me/reseller_bot", logging.Nop()).Register(r)
	return r
}

func callback(h http.Handler, query string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payment/callback"+query, nil))
	return rec
}

func TestServer_Callback(t *testing.T) {
	t.Run("should verify an OK callback and show the link", func(t *testing.T) {
		// --- Arrange ---
		var gotRef string
		var gotOK bool
		h := newCallbackRouter(func(_ context.Context, ref string, ok bool) (*usecase.ConfirmResult, error) {
			gotRef, gotOK = ref, ok
			return &usecase.ConfirmResult{
				Order:       &model.Order{ID: "o1"},
				Provisioned: &usecase.ProvisionResult{Link: "https://sub.example/tok"},
			}, nil
		})

		// --- Act ---
		rec := callback(h, "?Authority=A123&Status=OK")

		// --- Assert ---
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "A123", gotRef)
		assert.True(t, gotOK)
		assert.Contains(t, rec.Body.String(), "https://sub.example/tok")
		assert.Contains(t, rec.Body.String(), "https://t.me/reseller_bot")
	})

	t.Run("should pass a NOK status through as not ok", func(t *testing.T) {
		var gotOK = true
		h := newCallbackRouter(func(_ context.Context, _ string, ok bool) (*usecase.ConfirmResult, error) {
			gotOK = ok
			return &usecase.ConfirmResult{}, domain.ErrPaymentNotVerified
		})
		rec := callback(h, "?Authority=A123&Status=NOK")
		assert.False(t, gotOK)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "not approved")
	})

	t.Run("should reject a missing authority", func(t *testing.T) {
		h := newCallbackRouter(func(context.Context, string, bool) (*usecase.ConfirmResult, error) {
			t.Fatal("confirm must not be called")
			return nil, nil
		})
		assert.Equal(t, http.StatusBadRequest, callback(h, "?Status=OK").Code)
	})

	t.Run("should answer a repeated callback as success", func(t *testing.T) {
		h := newCallbackRouter(func(context.Context, string, bool) (*usecase.ConfirmResult, error) {
			return &usecase.ConfirmResult{AlreadyApplied: true}, nil
		})
		rec := callback(h, "?Authority=A123&Status=OK")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "already confirmed")
	})

	t.Run("should map outcomes to status codes", func(t *testing.T) {
		cases := map[error]int{
			domain.ErrNotFound: http.StatusNotFound,
			domain.WrapOp("verify_payment", "zarinpal", domain.ErrRemoteUnavailable): http.StatusServiceUnavailable,
			domain.ErrPersistence: http.StatusInternalServerError,
		}
		for err, code := range cases {
			h := newCallbackRouter(func(context.Context, string, bool) (*usecase.ConfirmResult, error) { return nil, err })
			assert.Equal(t, code, callback(h, "?Authority=A1&Status=OK").Code, err.Error())
		}
	})
}

func TestServer_HealthAndMetrics(t *testing.T) {
	h := newCallbackRouter(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
}
