package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SessionTTL bounds how long a panel session token is reused.
const SessionTTL = time.Hour

// Server is a VPN panel the service provisions clients on.
type Server struct {
	ID        string
	Name      string
	Scheme    string // http | https
	Host      string
	Port      int
	BasePath  string // panel web base path, e.g. "/xui"
	Username  string
	Password  string
	InboundID int      // panel inbound the clients are attached to
	TariffIDs []string // empty = serves every tariff
	Active    bool
	// SubBaseURL is the public subscription endpoint, e.g. https://sub.example.com/sub
	SubBaseURL string

	SessionToken    string
	SessionIssuedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Server) IsZero() bool { return s == nil || s.ID == "" }

func (s *Server) HasAddress() bool { return s.Host != "" && s.Port > 0 }

func (s *Server) HasCredentials() bool { return s.Username != "" && s.Password != "" }

// HasLiveSession reports a cached token strictly younger than SessionTTL.
func (s *Server) HasLiveSession(now time.Time) bool {
	if s.SessionToken == "" || s.SessionIssuedAt == nil {
		return false
	}
	return now.Sub(*s.SessionIssuedAt) < SessionTTL
}

// Serves reports whether the server may host a subscriber on tariffID.
func (s *Server) Serves(tariffID string) bool {
	if len(s.TariffIDs) == 0 {
		return true
	}
	for _, id := range s.TariffIDs {
		if id == tariffID {
			return true
		}
	}
	return false
}

// BaseURL returns scheme://host:port/basepath without a trailing slash.
func (s *Server) BaseURL() string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: fmt.Sprintf("%s:%d", s.Host, s.Port)}
	base := strings.TrimSuffix(u.String(), "/")
	if p := strings.Trim(s.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}

// SubscriptionLink builds the public link for a subscription token.
func (s *Server) SubscriptionLink(fallbackBase, subToken string) string {
	base := s.SubBaseURL
	if base == "" {
		base = fallbackBase
	}
	if base == "" || subToken == "" {
		return ""
	}
	return strings.TrimSuffix(base, "/") + "/" + subToken
}

// Redacted returns a copy safe for logs and API output.
func (s *Server) Redacted() *Server {
	cp := *s
	if cp.Password != "" {
		cp.Password = "***"
	}
	if cp.SessionToken != "" {
		cp.SessionToken = "***"
	}
	cp.TariffIDs = append([]string(nil), s.TariffIDs...)
	return &cp
}
