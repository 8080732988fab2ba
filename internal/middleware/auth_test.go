// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/tourways/internal/core"
)

type fakeVerifier struct {
	claims map[string]*TokenClaims
}

func (f *fakeVerifier) Verify(
	ctx context.Context,
	token string,
) (*TokenClaims, error) {
	claims, ok := f.claims[token]
	if !ok {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}
	return claims, nil
}

type fakeLoader struct {
	identities map[string]*Identity
}

func (f *fakeLoader) LoadIdentity(
	ctx context.Context,
	userID string,
) (*Identity, error) {
	ident, ok := f.identities[userID]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return ident, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestAuthenticatorMissingToken(t *testing.T) {
	handler := Authenticator(&fakeVerifier{}, &fakeLoader{})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatorInvalidToken(t *testing.T) {
	handler := Authenticator(
		&fakeVerifier{claims: map[string]*TokenClaims{}},
		&fakeLoader{},
	)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_INVALID", errorCode(t, rec))
}

func TestAuthenticatorDeletedUser(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*TokenClaims{
		"good": {UserID: "ghost", IssuedAt: time.Now()},
	}}
	handler := Authenticator(
		verifier,
		&fakeLoader{identities: map[string]*Identity{}},
	)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatorStaleToken(t *testing.T) {
	changedAt := time.Now()
	issuedAt := changedAt.Add(-time.Hour)

	verifier := &fakeVerifier{claims: map[string]*TokenClaims{
		"stale": {UserID: "u1", IssuedAt: issuedAt},
	}}
	loader := &fakeLoader{identities: map[string]*Identity{
		"u1": {ID: "u1", Role: "user", PasswordChangedAt: &changedAt},
	}}

	handler := Authenticator(verifier, loader)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "TOKEN_STALE", errorCode(t, rec))
}

func TestAuthenticatorFreshTokenAfterChange(t *testing.T) {
	// The change is backdated; a token issued in the same second
	// passes the staleness check.
	changedAt := time.Now().Add(-time.Second)
	issuedAt := time.Now()

	verifier := &fakeVerifier{claims: map[string]*TokenClaims{
		"fresh": {UserID: "u1", IssuedAt: issuedAt},
	}}
	loader := &fakeLoader{identities: map[string]*Identity{
		"u1": {ID: "u1", Role: "user", PasswordChangedAt: &changedAt},
	}}

	var gotUserID, gotRole string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		gotRole = GetUserRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Authenticator(verifier, loader)(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer fresh")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", gotUserID)
	assert.Equal(t, "user", gotRole)
}

func TestAuthenticatorNeverChangedPassword(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*TokenClaims{
		"t": {UserID: "u1", IssuedAt: time.Now().Add(-24 * time.Hour)},
	}}
	loader := &fakeLoader{identities: map[string]*Identity{
		"u1": {ID: "u1", Role: "user"},
	}}

	handler := Authenticator(verifier, loader)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuthenticatorAnonymous(t *testing.T) {
	var authed bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed = IsAuthenticated(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := OptionalAuthenticator(&fakeVerifier{}, &fakeLoader{})(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, authed)
}

func TestOptionalAuthenticatorAttachesIdentity(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*TokenClaims{
		"good": {UserID: "u1", IssuedAt: time.Now()},
	}}
	loader := &fakeLoader{identities: map[string]*Identity{
		"u1": {ID: "u1", Role: "lead-guide"},
	}}

	var gotRole string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = GetUserRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := OptionalAuthenticator(verifier, loader)(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lead-guide", gotRole)
}

func TestOptionalAuthenticatorDegradesOnBadToken(t *testing.T) {
	changedAt := time.Now()
	verifier := &fakeVerifier{claims: map[string]*TokenClaims{
		"stale": {UserID: "u1", IssuedAt: changedAt.Add(-time.Hour)},
	}}
	loader := &fakeLoader{identities: map[string]*Identity{
		"u1": {ID: "u1", Role: "admin", PasswordChangedAt: &changedAt},
	}}

	var authed bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed = IsAuthenticated(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := OptionalAuthenticator(verifier, loader)(inner)

	for _, token := range []string{"garbage", "stale"} {
		authed = true
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		// Anonymous pass-through, never a rejection.
		assert.Equal(t, http.StatusOK, rec.Code, "token %q", token)
		assert.False(t, authed, "token %q", token)
	}
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	handler := RequireRole("admin")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Missing authentication reports 401, not 403.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleForbidden(t *testing.T) {
	handler := RequireRole("admin", "lead-guide")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRoleKey, "user")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAllowed(t *testing.T) {
	handler := RequireRole("admin", "lead-guide")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRoleKey, "lead-guide")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ExtractToken(req))

	req.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", ExtractToken(req))

	req.Header.Set("Authorization", "bearer abc123")
	assert.Equal(t, "abc123", ExtractToken(req))

	req.Header.Set("Authorization", "Basic abc123")
	assert.Empty(t, ExtractToken(req))
}
