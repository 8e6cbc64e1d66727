package identity_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/beacon/internal/identity"
	"github.com/noah-isme/beacon/internal/shared"
	"github.com/noah-isme/beacon/internal/token"
	_ "github.com/noah-isme/beacon/testing"
)

type memoryRepo struct {
	byEmail map[string]*identity.Identity
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: make(map[string]*identity.Identity), nextID: 1}
}

func (m *memoryRepo) FindByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	if rec, ok := m.byEmail[email]; ok {
		return rec, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memoryRepo) Insert(ctx context.Context, name, email, passwordHash string, role identity.Role) (*identity.Projection, error) {
	if _, ok := m.byEmail[email]; ok {
		return nil, shared.ErrEmailTaken
	}
	rec := &identity.Identity{
		ID:           m.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	m.nextID++
	m.byEmail[email] = rec
	proj := rec.Project()
	return &proj, nil
}

func newTestRouter(t *testing.T, tokenTTL time.Duration) (http.Handler, *token.Issuer) {
	t.Helper()
	issuer := token.NewIssuer("test-secret", tokenTTL)
	service := identity.NewService(nil, newMemoryRepo(), identity.NewBcryptHasher(4), issuer, nil)
	cookies := shared.NewCookieManager(15*time.Minute, false)
	handler := identity.NewHandler(nil, service, issuer, cookies, nil)

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r, issuer
}

func postJSON(t *testing.T, router http.Handler, path string, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func tokenCookie(t *testing.T, res *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == identity.TokenCookie {
			return c
		}
	}
	return nil
}

func TestSignupFlow(t *testing.T) {
	router, issuer := newTestRouter(t, time.Hour)

	res := postJSON(t, router, "/signup", map[string]any{
		"name":     "A",
		"email":    "a@b.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, res.Code)

	var body struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		Role      string    `json:"role"`
		CreatedAt time.Time `json:"created_at"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "A", body.Name)
	assert.Equal(t, "a@b.com", body.Email)
	assert.Equal(t, "user", body.Role)
	assert.NotZero(t, body.ID)
	assert.False(t, body.CreatedAt.IsZero())

	cookie := tokenCookie(t, res)
	require.NotNil(t, cookie, "session cookie must be set")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	claims, err := issuer.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Email)

	// Same normalized email again is a conflict, not a generic failure.
	dup := postJSON(t, router, "/signup", map[string]any{
		"email":    "A@B.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, dup.Code)
}

func TestSignupValidationFailure(t *testing.T) {
	router, _ := newTestRouter(t, time.Hour)

	res := postJSON(t, router, "/signup", map[string]any{
		"email":    "nope",
		"password": "bad",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "email must be a valid email address")
	assert.Contains(t, res.Body.String(), "password must be at least 6 characters")
	assert.Nil(t, tokenCookie(t, res))
}

func TestSignupMalformedJSON(t *testing.T) {
	router, _ := newTestRouter(t, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewReader([]byte("{not json")))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSigninFlow(t *testing.T) {
	router, issuer := newTestRouter(t, time.Hour)

	require.Equal(t, http.StatusCreated, postJSON(t, router, "/signup", map[string]any{
		"email":    "a@b.com",
		"password": "secret1",
	}).Code)

	wrong := postJSON(t, router, "/signin", map[string]any{
		"email":    "a@b.com",
		"password": "wrong1",
	})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)

	unknown := postJSON(t, router, "/signin", map[string]any{
		"email":    "ghost@b.com",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	// Unknown email and wrong password are indistinguishable.
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	ok := postJSON(t, router, "/signin", map[string]any{
		"email":    "a@b.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, ok.Code)
	cookie := tokenCookie(t, ok)
	require.NotNil(t, cookie)
	claims, err := issuer.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Email)
}

func TestSignoutClearsCookie(t *testing.T) {
	router, _ := newTestRouter(t, time.Hour)

	res := postJSON(t, router, "/signout", map[string]any{})
	assert.Equal(t, http.StatusOK, res.Code)

	cookie := tokenCookie(t, res)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestMe(t *testing.T) {
	router, _ := newTestRouter(t, time.Hour)

	signup := postJSON(t, router, "/signup", map[string]any{
		"email":    "a@b.com",
		"password": "secret1",
		"role":     "admin",
	})
	require.Equal(t, http.StatusCreated, signup.Code)
	cookie := tokenCookie(t, signup)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"email":"a@b.com"`)
	assert.Contains(t, res.Body.String(), `"role":"admin"`)

	// Without a cookie.
	bare := httptest.NewRecorder()
	router.ServeHTTP(bare, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, bare.Code)

	// Tampered token.
	tampered := httptest.NewRequest(http.MethodGet, "/me", nil)
	tampered.AddCookie(&http.Cookie{Name: identity.TokenCookie, Value: cookie.Value + "x"})
	tamperedRes := httptest.NewRecorder()
	router.ServeHTTP(tamperedRes, tampered)
	assert.Equal(t, http.StatusUnauthorized, tamperedRes.Code)

	// Expired token is reported identically to a tampered one.
	expired, err := token.NewIssuer("test-secret", -time.Second).Sign(1, "a@b.com", "admin")
	require.NoError(t, err)
	expReq := httptest.NewRequest(http.MethodGet, "/me", nil)
	expReq.AddCookie(&http.Cookie{Name: identity.TokenCookie, Value: expired})
	expRes := httptest.NewRecorder()
	router.ServeHTTP(expRes, expReq)
	assert.Equal(t, http.StatusUnauthorized, expRes.Code)
	assert.Equal(t, tamperedRes.Body.String(), expRes.Body.String())
}
