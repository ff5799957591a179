package web

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadLogin     = errors.New("invalid username or password")
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// ===== Session/JWT primitives =====

type AuthConfig struct {
	Username     string
	PasswordHash []byte // bcrypt
	HMACSecret   []byte
	CookieName   string
	CookieDomain string
	SecureCookie bool
	TTL          time.Duration
}

type AuthManager struct {
	cfg AuthConfig
	now func() time.Time
}

func NewAuthManager(cfg AuthConfig) *AuthManager {
	if cfg.CookieName == "" {
		cfg.CookieName = "admin_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &AuthManager{cfg: cfg, now: time.Now}
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// HashPassword is what operators run once to fill admin.password_hash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Login checks the operator credentials and mints a session. The cookie is
// set when w is non-nil.
func (a *AuthManager) Login(w http.ResponseWriter, username, password string) (string, time.Time, error) {
	if len(a.cfg.PasswordHash) == 0 || len(a.cfg.HMACSecret) == 0 {
		return "", time.Time{}, ErrBadLogin
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) == 1
	if err := bcrypt.CompareHashAndPassword(a.cfg.PasswordHash, []byte(password)); err != nil || !userOK {
		return "", time.Time{}, ErrBadLogin
	}
	return a.Mint(w, username)
}

func (a *AuthManager) Mint(w http.ResponseWriter, subject string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.cfg.TTL)
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   subject,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.cfg.HMACSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	if w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     a.cfg.CookieName,
			Value:    signed,
			Path:     "/",
			Domain:   a.cfg.CookieDomain,
			MaxAge:   int(a.cfg.TTL.Seconds()),
			HttpOnly: true,
			Secure:   a.cfg.SecureCookie,
			SameSite: http.SameSiteStrictMode,
		})
	}
	return signed, exp, nil
}

func (a *AuthManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// Authenticate returns the session subject.
func (a *AuthManager) Authenticate(r *http.Request) (string, error) {
	claims, err := a.ParseFromRequest(r)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
	}
	if c, err := r.Cookie(a.cfg.CookieName); err == nil {
		return a.parse(c.Value)
	}
	return nil, ErrMissingToken
}

func (a *AuthManager) parse(tok string) (*AdminClaims, error) {
	if len(a.cfg.HMACSecret) == 0 {
		return nil, ErrInvalidToken
	}
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !tkn.Valid || claims.Role != "admin" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
