// File: internal/infra/adapters/panel/xui_client.go
package panel

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vpn-subscription/internal/domain"
	"vpn-subscription/internal/domain/model"
	"vpn-subscription/internal/domain/ports/adapter"
)

var _ adapter.PanelClient = (*XUIClient)(nil)

const gigabyte = int64(1) << 30

// XUIClient talks to 3x-ui style panels. The session token it returns
// from Login is the raw "name=value" cookie pair.
type XUIClient struct {
	client *http.Client
}

// NewXUIClient builds a client. insecureTLS skips certificate checks for
// panels on self-signed certs.
func NewXUIClient(timeout time.Duration, insecureTLS bool) *XUIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if insecureTLS {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &XUIClient{client: &http.Client{
		Timeout:   timeout,
		Transport: tr,
		// a redirect means the panel bounced us to its login page
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}}
}

// envelope is the panel's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

type xuiClient struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	LimitIP    int    `json:"limitIp"`
	TotalGB    int64  `json:"totalGB"` // bytes, despite the name
	ExpiryTime int64  `json:"expiryTime"`
	Enable     bool   `json:"enable"`
	SubID      string `json:"subId"`
	Flow       string `json:"flow"`
}

type xuiTraffic struct {
	Email      string `json:"email"`
	Up         int64  `json:"up"`
	Down       int64  `json:"down"`
	Total      int64  `json:"total"`
	ExpiryTime int64  `json:"expiryTime"`
	Enable     bool   `json:"enable"`
}

func (c *XUIClient) Login(ctx context.Context, srv *model.Server) (string, error) {
	form := url.Values{}
	form.Set("username", srv.Username)
	form.Set("password", srv.Password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.BaseURL()+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: login http %d", domain.ErrRemoteUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", domain.ErrInvalidCredentials
	}

	env, err := decode(resp.Body)
	if err != nil {
		return "", err
	}
	if !env.Success {
		if needsSecondFactor(env.Msg) {
			return "", domain.ErrSecondFactorRequired
		}
		return "", domain.ErrInvalidCredentials
	}
	for _, ck := range resp.Cookies() {
		if ck.Value != "" {
			return ck.Name + "=" + ck.Value, nil
		}
	}
	return "", fmt.Errorf("%w: login succeeded without a session cookie", domain.ErrMalformedResponse)
}

// UpsertClient tries updateClient first and falls back to addClient when
// the panel does not know the identity.
func (c *XUIClient) UpsertClient(ctx context.Context, srv *model.Server, token string, spec adapter.ClientSpec) error {
	body, err := clientBody(spec)
	if err != nil {
		return err
	}
	env, err := c.call(ctx, srv, token, http.MethodPost, "/panel/api/inbounds/updateClient/"+url.PathEscape(spec.ClientID), body)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err == nil && env.Success {
		return nil
	}
	env, err = c.call(ctx, srv, token, http.MethodPost, "/panel/api/inbounds/addClient", body)
	if err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("%w: add client: %s", domain.ErrConflict, env.Msg)
	}
	return nil
}

func (c *XUIClient) DeleteClient(ctx context.Context, srv *model.Server, token string, inboundID int, clientID string) error {
	path := fmt.Sprintf("/panel/api/inbounds/%d/delClient/%s", inboundID, url.PathEscape(clientID))
	env, err := c.call(ctx, srv, token, http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	if !env.Success {
		if strings.Contains(strings.ToLower(env.Msg), "not found") || strings.Contains(strings.ToLower(env.Msg), "no client") {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: delete client: %s", domain.ErrConflict, env.Msg)
	}
	return nil
}

func (c *XUIClient) GetClientStats(ctx context.Context, srv *model.Server, token string, email string) (*adapter.ClientStats, error) {
	env, err := c.call(ctx, srv, token, http.MethodGet, "/panel/api/inbounds/getClientTraffics/"+url.PathEscape(email), nil)
	if err != nil {
		return nil, err
	}
	if !env.Success || len(env.Obj) == 0 || string(env.Obj) == "null" {
		return nil, domain.ErrNotFound
	}
	var tr xuiTraffic
	if err := json.Unmarshal(env.Obj, &tr); err != nil {
		return nil, fmt.Errorf("%w: traffic: %v", domain.ErrMalformedResponse, err)
	}
	stats := &adapter.ClientStats{
		Email:      tr.Email,
		UpBytes:    tr.Up,
		DownBytes:  tr.Down,
		TotalBytes: tr.Total,
		Enabled:    tr.Enable,
	}
	if tr.ExpiryTime > 0 {
		t := time.UnixMilli(tr.ExpiryTime).UTC()
		stats.ExpiresAt = &t
	}
	return stats, nil
}

func (c *XUIClient) call(ctx context.Context, srv *model.Server, token, method, path string, body []byte) (*envelope, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, srv.BaseURL()+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: http %d", domain.ErrRemoteUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode >= 300 && resp.StatusCode < 400:
		return nil, domain.ErrSessionRejected
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: http %d", domain.ErrMalformedResponse, resp.StatusCode)
	}
	return decode(resp.Body)
}

func decode(r io.Reader) (*envelope, error) {
	var env envelope
	if err := json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return &env, nil
}

// clientBody renders the inbound payload; settings is a JSON string, not an object.
func clientBody(spec adapter.ClientSpec) ([]byte, error) {
	cl := xuiClient{
		ID:      spec.ClientID,
		Email:   spec.Email,
		LimitIP: spec.DeviceLimit,
		TotalGB: spec.TrafficLimitGB * gigabyte,
		Enable:  spec.Enabled,
		SubID:   spec.SubID,
	}
	if !spec.ExpiresAt.IsZero() {
		cl.ExpiryTime = spec.ExpiresAt.UnixMilli()
	}
	settings, err := json.Marshal(map[string]any{"clients": []xuiClient{cl}})
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"id":       spec.InboundID,
		"settings": string(settings),
	})
}

func needsSecondFactor(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "two-factor") || strings.Contains(m, "two factor") ||
		strings.Contains(m, "2fa") || strings.Contains(m, "otp")
}

