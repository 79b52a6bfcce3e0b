package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "leander"

	// DefaultCookieName names the session cookie.
	DefaultCookieName = "leander"

	// StateCookieName holds the OAuth nonce between /login and the callback.
	StateCookieName = "leander_oauth_state"
)

var (
	ErrNoSession      = errors.New("no session")
	ErrSessionExpired = errors.New("session expired")
)

type contextKey string

const (
	accessTokenKey contextKey = "accessToken"
	bearerKey      contextKey = "bearer"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	AccessToken string `json:"gat"`
}

// Sessions issues and verifies the signed cookie that carries a user's
// GitHub access token between requests.
type Sessions struct {
	secret     []byte
	maxAge     time.Duration
	cookieName string
	secure     bool
	nowFunc    func() time.Time
}

// SessionOption configures Sessions.
type SessionOption func(*Sessions)

func WithCookieName(name string) SessionOption {
	return func(s *Sessions) {
		if name != "" {
			s.cookieName = name
		}
	}
}

// WithSecureCookie marks the cookies Secure; enable it behind HTTPS.
func WithSecureCookie(secure bool) SessionOption {
	return func(s *Sessions) { s.secure = secure }
}

func WithSessionNowFunc(fn func() time.Time) SessionOption {
	return func(s *Sessions) { s.nowFunc = fn }
}

// NewSessions requires a secret of at least 16 bytes.
func NewSessions(secret string, maxAge time.Duration, opts ...SessionOption) (*Sessions, error) {
	if len(secret) < 16 {
		return nil, errors.New("session secret must be at least 16 characters")
	}
	if maxAge <= 0 {
		return nil, errors.New("session max age must be positive")
	}
	s := &Sessions{
		secret:     []byte(secret),
		maxAge:     maxAge,
		cookieName: DefaultCookieName,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a session token carrying accessToken.
func (s *Sessions) Issue(accessToken string) (string, error) {
	now := s.nowFunc()
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
		},
		AccessToken: accessToken,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies a session token and returns the access token inside it.
func (s *Sessions) Parse(tokenStr string) (string, error) {
	var c sessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrSessionExpired
		}
		return "", fmt.Errorf("invalid session: %w", err)
	}
	if c.AccessToken == "" {
		return "", errors.New("invalid session: no access token")
	}
	return c.AccessToken, nil
}

// SetCookie issues a session for accessToken and stores it in the response.
func (s *Sessions) SetCookie(w http.ResponseWriter, accessToken string) error {
	signed, err := s.Issue(accessToken)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetStateCookie stores the OAuth nonce for ten minutes.
func (s *Sessions) SetStateCookie(w http.ResponseWriter, nonce string) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    nonce,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TakeStateCookie returns the OAuth nonce and clears it; it is single use.
func (s *Sessions) TakeStateCookie(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(StateCookieName)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: StateCookieName, Value: "", Path: "/", MaxAge: -1})
	return c.Value
}

// AccessToken resolves the caller's GitHub token. An Authorization: Bearer
// header carries the raw token; otherwise the session cookie is verified.
func (s *Sessions) AccessToken(r *http.Request) (string, error) {
	token, _, err := s.credential(r)
	return token, err
}

// credential is AccessToken, also reporting whether the token came from a
// bearer header rather than the signed session.
func (s *Sessions) credential(r *http.Request) (token string, bearer bool, err error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", true, errors.New("malformed Authorization header")
		}
		return strings.TrimSpace(token), true, nil
	}

	c, err := r.Cookie(s.cookieName)
	if err != nil || c.Value == "" {
		return "", false, ErrNoSession
	}
	token, err = s.Parse(c.Value)
	return token, false, err
}

// Middleware puts the caller's access token, when there is one, into the
// request context. Anonymous requests pass through; the resolvers reject them.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, bearer, err := s.credential(r); err == nil {
			ctx := WithAccessToken(r.Context(), token)
			if bearer {
				ctx = context.WithValue(ctx, bearerKey, true)
			}
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// FromBearer reports whether the token Middleware stored came from an
// Authorization header. Such tokens are unverified until used upstream.
func FromBearer(ctx context.Context) bool {
	bearer, _ := ctx.Value(bearerKey).(bool)
	return bearer
}

// AccessTokenFrom returns the token stored by Middleware.
func AccessTokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok && token != ""
}
