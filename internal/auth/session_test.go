package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func createTestSessions(t *testing.T, now *time.Time) *Sessions {
	t.Helper()
	s, err := NewSessions(testSecret, time.Hour, WithSessionNowFunc(func() time.Time { return *now }))
	require.NoError(t, err)
	return s
}

func TestNewSessions_Validation(t *testing.T) {
	_, err := NewSessions("short", time.Hour)
	assert.Error(t, err)

	_, err = NewSessions(testSecret, 0)
	assert.Error(t, err)
}

func TestSessions_IssueAndParse(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s := createTestSessions(t, &now)

	signed, err := s.Issue("gho_abc")
	require.NoError(t, err)

	token, err := s.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "gho_abc", token)

	t.Run("expired", func(t *testing.T) {
		later := now.Add(2 * time.Hour)
		s2 := createTestSessions(t, &later)

		_, err := s2.Parse(signed)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewSessions("ffffffffffffffffffffffffffffffff", time.Hour)
		require.NoError(t, err)

		_, err = other.Parse(signed)
		assert.Error(t, err)
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			AccessToken: "gho_forged",
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = s.Parse(unsigned)
		assert.Error(t, err)
	})
}

func TestSessions_AccessToken(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s := createTestSessions(t, &now)

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer gho_header")

		token, err := s.AccessToken(r)

		require.NoError(t, err)
		assert.Equal(t, "gho_header", token)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic abc")

		_, err := s.AccessToken(r)
		assert.Error(t, err)
	})

	t.Run("session cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, s.SetCookie(rec, "gho_cookie"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, DefaultCookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(cookies[0])

		token, err := s.AccessToken(r)
		require.NoError(t, err)
		assert.Equal(t, "gho_cookie", token)
	})

	t.Run("anonymous", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		_, err := s.AccessToken(r)
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestSessions_Middleware(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s := createTestSessions(t, &now)

	var got string
	var found, bearer bool
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = AccessTokenFrom(r.Context())
		bearer = FromBearer(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer gho_mw")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, found)
	assert.True(t, bearer)
	assert.Equal(t, "gho_mw", got)

	signed, err := s.Issue("gho_cookie")
	require.NoError(t, err)
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: signed})
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, found)
	assert.False(t, bearer)
	assert.Equal(t, "gho_cookie", got)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, found)
	assert.False(t, bearer)
}

func TestSessions_ClearCookie(t *testing.T) {
	now := time.Now()
	s := createTestSessions(t, &now)
	rec := httptest.NewRecorder()

	s.ClearCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestState(t *testing.T) {
	st := NewState("/dashboard?page=2")
	require.NotEmpty(t, st.Nonce)

	decoded, err := DecodeState(st.Encode(), st.Nonce)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard?page=2", decoded.ReturnTo)

	_, err = DecodeState(st.Encode(), "other")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = DecodeState("%%%", st.Nonce)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSafeReturnTo(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"/issues/7", "/issues/7"},
		{"", ""},
		{"https://evil.example", ""},
		{"//evil.example", ""},
		{"/\\evil.example", ""},
		{"relative", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeReturnTo(tt.in))
		})
	}
}

func TestGitHubProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_exchanged", "token_type": "bearer"})
	}))
	defer srv.Close()

	p := NewGitHubProvider("cid", "csecret", "http://localhost/github/login/callback").withEndpoint(oauth2.Endpoint{
		AuthURL:   srv.URL + "/authorize",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	})

	t.Run("auth url", func(t *testing.T) {
		u, err := url.Parse(p.AuthURL("st"))
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "cid", q.Get("client_id"))
		assert.Equal(t, "st", q.Get("state"))
		assert.Equal(t, "read:org repo", q.Get("scope"))
	})

	t.Run("exchange", func(t *testing.T) {
		token, err := p.Exchange(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, "gho_exchanged", token)
	})

	t.Run("exchange failure", func(t *testing.T) {
		_, err := p.Exchange(context.Background(), "bad")
		assert.Error(t, err)
	})
}
