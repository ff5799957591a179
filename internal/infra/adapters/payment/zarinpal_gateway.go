// File: internal/infra/adapters/payment/zarinpal_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*ZarinPalGateway)(nil)

const (
	zarinpalLive    = "https://api.zarinpal.com"
	zarinpalSandbox = "https://sandbox.zarinpal.com"
)

// ZarinPalGateway implements adapter.PaymentGateway over the REST v4 API.
type ZarinPalGateway struct {
	merchantID string
	callback   string
	base       string
	client     *http.Client
}

// NewZarinPalGateway builds a gateway. baseURL overrides the live/sandbox
// host when set.
func NewZarinPalGateway(merchantID, callbackURL, baseURL string, sandbox bool) (*ZarinPalGateway, error) {
	if merchantID == "" {
		return nil, errors.New("merchant id empty")
	}
	if _, err := url.Parse(callbackURL); err != nil {
		return nil, fmt.Errorf("invalid callback url: %w", err)
	}
	base := zarinpalLive
	if sandbox {
		base = zarinpalSandbox
	}
	if baseURL != "" {
		base = strings.TrimRight(baseURL, "/")
	}
	return &ZarinPalGateway{
		merchantID: merchantID,
		callback:   callbackURL,
		base:       base,
		client:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (z *ZarinPalGateway) Name() string { return "zarinpal" }

func (z *ZarinPalGateway) endpoint(path string) string { return z.base + "/pg/v4" + path }

// RequestPayment calls /payment/request.json and returns (authority, payURL).
func (z *ZarinPalGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL string, meta map[string]interface{}) (string, string, error) {
	if callbackURL == "" {
		callbackURL = z.callback
	}
	payload := map[string]any{
		"merchant_id":  z.merchantID,
		"amount":       amount,
		"description":  description,
		"callback_url": callbackURL,
	}
	if meta != nil {
		payload["metadata"] = meta
	}
	var out struct {
		Data struct {
			Authority string `json:"authority"`
			Code      int    `json:"code"`
		} `json:"data"`
	}
	if err := z.post(ctx, "/payment/request.json", payload, &out); err != nil {
		return "", "", err
	}
	if out.Data.Code != 100 || out.Data.Authority == "" {
		return "", "", fmt.Errorf("%w: zarinpal request code %d", domain.ErrMalformedResponse, out.Data.Code)
	}
	return out.Data.Authority, z.base + "/pg/StartPay/" + out.Data.Authority, nil
}

// VerifyPayment calls /payment/verify.json and returns the provider refID.
// Code 101 means already verified and counts as success.
func (z *ZarinPalGateway) VerifyPayment(ctx context.Context, authority string, expectedAmount int64) (string, error) {
	payload := map[string]any{
		"merchant_id": z.merchantID,
		"amount":      expectedAmount,
		"authority":   authority,
	}
	var out struct {
		Data struct {
			Code  int   `json:"code"`
			RefID int64 `json:"ref_id"`
		} `json:"data"`
	}
	if err := z.post(ctx, "/payment/verify.json", payload, &out); err != nil {
		return "", err
	}
	if (out.Data.Code != 100 && out.Data.Code != 101) || out.Data.RefID == 0 {
		return "", fmt.Errorf("%w: zarinpal verify code %d", domain.ErrPaymentNotVerified, out.Data.Code)
	}
	return strconv.FormatInt(out.Data.RefID, 10), nil
}

func (z *ZarinPalGateway) post(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.endpoint(path), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := z.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: zarinpal http %d", domain.ErrRemoteUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
