package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/auth"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

// countingStore records whether the middleware reached identity persistence
type countingStore struct {
	calls int
}

func (s *countingStore) Upsert(_ context.Context, id auth.Identity) (*models.User, error) {
	s.calls++
	return &models.User{ExternalID: id.Subject, Email: id.Email, Name: id.Name}, nil
}

func newVerifier(t *testing.T, keys testutil.Keys) *auth.Verifier {
	v, err := auth.NewVerifier(keys.PublicPEM, zap.NewNop())
	require.NoError(t, err)
	return v
}

func setupTestRouter(db *gorm.DB, verifier *auth.Verifier, store auth.IdentityStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := auth.NewHandler(db, zap.NewNop())
	handler.RegisterRoutes(r.Group("/auth", auth.AuthMiddleware(verifier, store, zap.NewNop())))
	return r
}

func TestExtractBearerToken(t *testing.T) {
	token, err := auth.ExtractBearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = auth.ExtractBearerToken("bEaReR xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	bad := []string{"", "Bearer", "Bearer ", "Basic abc", "Bearer a b", "Token abc", "Bearerabc"}
	for _, header := range bad {
		_, err := auth.ExtractBearerToken(header)
		assert.Error(t, err, "header %q", header)
	}
}

func TestMalformedHeadersNeverReachVerification(t *testing.T) {
	keys := testutil.NewKeys(t)
	store := &countingStore{}
	router := setupTestRouter(nil, newVerifier(t, keys), store)

	for _, header := range []string{"", "Bearer", "Basic dXNlcjpwYXNz", "Bearer a b"} {
		req, _ := http.NewRequest("GET", "/auth/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, "header %q", header)
	}
	assert.Zero(t, store.calls)
}

func TestVerifyAcceptsConfiguredKey(t *testing.T) {
	keys := testutil.NewKeys(t)
	v := newVerifier(t, keys)

	claims, err := v.Verify(keys.Token(t, jwt.MapClaims{"sub": "u1", "email": "a@b.com"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@b.com", claims.ResolvedEmail())
}

func TestVerifyRejectsOtherKey(t *testing.T) {
	keys := testutil.NewKeys(t)
	other := testutil.NewKeys(t)
	v := newVerifier(t, keys)

	_, err := v.Verify(other.Token(t, jwt.MapClaims{"sub": "u1"}))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	keys := testutil.NewKeys(t)
	v := newVerifier(t, keys)
	claims := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()}

	// HMAC keyed with the public key bytes: the classic algorithm confusion attack
	hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(keys.PublicPEM))
	require.NoError(t, err)
	_, err = v.Verify(hs)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	ps, err := jwt.NewWithClaims(jwt.SigningMethodPS256, claims).SignedString(keys.Private)
	require.NoError(t, err)
	_, err = v.Verify(ps)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(none)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsExpiredAndSubjectless(t *testing.T) {
	keys := testutil.NewKeys(t)
	v := newVerifier(t, keys)

	_, err := v.Verify(keys.Token(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()}))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify(keys.Token(t, jwt.MapClaims{"email": "a@b.com"}))
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = v.Verify("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyWithoutKeyLogsMisconfiguration(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	v, err := auth.NewVerifier("", zap.New(core))
	require.NoError(t, err)
	assert.False(t, v.Configured())

	_, err = v.Verify("anything")
	assert.ErrorIs(t, err, auth.ErrNotConfigured)
	assert.Equal(t, 1, logs.Len())
}

func TestNewVerifierRejectsGarbagePEM(t *testing.T) {
	_, err := auth.NewVerifier("not a pem", zap.NewNop())
	assert.Error(t, err)
}

func TestClaimFallbacks(t *testing.T) {
	c := &auth.Claims{EmailAddress: "alt@b.com", FirstName: "Ada", LastName: "Lovelace"}
	c.Subject = "u1"
	assert.Equal(t, "alt@b.com", c.ResolvedEmail())
	require.NotNil(t, c.ResolvedName())
	assert.Equal(t, "Ada Lovelace", *c.ResolvedName())

	c = &auth.Claims{FirstName: "Ada"}
	c.Subject = "u2"
	assert.Equal(t, "u2@users.catalog.invalid", c.ResolvedEmail())
	assert.Equal(t, "Ada", *c.ResolvedName())

	c = &auth.Claims{Name: "Explicit", FirstName: "Ada"}
	assert.Equal(t, "Explicit", *c.ResolvedName())

	assert.Nil(t, (&auth.Claims{}).ResolvedName())
}

func TestUpsertCreatesThenUpdatesSameRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := auth.NewGormIdentityStore(db)
	ctx := context.Background()

	first, err := store.Upsert(ctx, auth.Identity{Subject: "u1", Email: "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, models.SystemRoleStaff, first.SystemRole)

	name := "Ada"
	second, err := store.Upsert(ctx, auth.Identity{Subject: "u1", Email: "new@b.com", Name: &name})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.User{}).Where("external_id = ?", "u1").Count(&count)
	assert.Equal(t, int64(1), count)

	var stored models.User
	require.NoError(t, db.First(&stored, first.ID).Error)
	assert.Equal(t, "new@b.com", stored.Email)
	require.NotNil(t, stored.Name)
	assert.Equal(t, "Ada", *stored.Name)
}

func TestMe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	keys := testutil.NewKeys(t)
	router := setupTestRouter(db, newVerifier(t, keys), auth.NewGormIdentityStore(db))

	user := testutil.CreateUser(t, db, "u1", "old@b.com")
	org := testutil.CreateOrg(t, db, "oakmont")
	testutil.AddMember(t, db, org, user, models.OrgRoleAdmin)

	req, _ := http.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+keys.Token(t, jwt.MapClaims{
		"sub": "u1", "email": "a@b.com", "first_name": "Ada", "last_name": "Lovelace",
	}))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body auth.UserResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, user.ID, body.ID)
	assert.Equal(t, "a@b.com", body.Email)
	require.NotNil(t, body.Name)
	assert.Equal(t, "Ada Lovelace", *body.Name)
	require.Len(t, body.Memberships, 1)
	assert.Equal(t, "oakmont", body.Memberships[0].OrganizationSlug)
	assert.Equal(t, "admin", body.Memberships[0].Role)
}

func TestMeWithoutAuth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(db, newVerifier(t, testutil.NewKeys(t)), auth.NewGormIdentityStore(db))

	req, _ := http.NewRequest("GET", "/auth/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRequirePlatformAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	keys := testutil.NewKeys(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/platform", auth.AuthMiddleware(newVerifier(t, keys), auth.NewGormIdentityStore(db), zap.NewNop()),
		auth.RequirePlatformAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest("GET", "/platform", nil)
	req.Header.Set("Authorization", keys.BearerFor(t, "u1", "a@b.com"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	db.Model(&models.User{}).Where("external_id = ?", "u1").Update("system_role", models.SystemRolePlatformAdmin)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}
