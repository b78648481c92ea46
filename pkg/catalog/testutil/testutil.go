// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/auth"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/database"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupTestDB opens a migrated in-memory database
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:", zap.NewNop())
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, models.AutoMigrate(db), "Failed to run migrations")
	return db
}

// CreateUser inserts an identity with the given subject
func CreateUser(t *testing.T, db *gorm.DB, subject, email string) models.User {
	t.Helper()
	user := models.User{
		ExternalID: subject,
		Email:      email,
		SystemRole: models.SystemRoleStaff,
	}
	require.NoError(t, db.Create(&user).Error, "Failed to create test user")
	return user
}

// CreateOrg inserts an organization
func CreateOrg(t *testing.T, db *gorm.DB, slug string) models.Organization {
	t.Helper()
	org := models.Organization{Name: slug + " club", Slug: slug, Timezone: "UTC"}
	require.NoError(t, db.Create(&org).Error, "Failed to create test organization")
	return org
}

// AddMember gives user the role in org
func AddMember(t *testing.T, db *gorm.DB, org models.Organization, user models.User, role models.OrgRole) models.OrganizationMembership {
	t.Helper()
	m := models.OrganizationMembership{OrganizationID: org.ID, UserID: user.ID, Role: role}
	require.NoError(t, db.Create(&m).Error, "Failed to create test membership")
	return m
}

// CreateCustomer inserts a customer in org
func CreateCustomer(t *testing.T, db *gorm.DB, org models.Organization, first, last string) models.Customer {
	t.Helper()
	c := models.Customer{OrganizationID: org.ID, FirstName: first, LastName: last, Status: models.CustomerStatusActive}
	require.NoError(t, db.Create(&c).Error, "Failed to create test customer")
	return c
}

// Member is a user with a role in an organization, ready to be used as a
// request principal
type Member struct {
	User       models.User
	Org        models.Organization
	Membership models.OrganizationMembership
}

// NewMember creates a user holding role in org
func NewMember(t *testing.T, db *gorm.DB, org models.Organization, subject string, role models.OrgRole) Member {
	t.Helper()
	user := CreateUser(t, db, subject, subject+"@"+org.Slug+".test")
	return Member{User: user, Org: org, Membership: AddMember(t, db, org, user, role)}
}

// Middleware sets the member as the authenticated user and resolved tenant,
// standing in for the auth and tenant middleware in handler tests
func (m Member) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := m.User
		c.Set(auth.ContextKeyUser, &user)
		c.Set(tenant.ContextKeyTenant, &tenant.Context{Organization: m.Org, Membership: m.Membership})
		c.Next()
	}
}

// Keys is an RSA key pair for signing test tokens
type Keys struct {
	Private   *rsa.PrivateKey
	PublicPEM string
}

// NewKeys generates a fresh RSA key pair
func NewKeys(t *testing.T) Keys {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return Keys{Private: priv, PublicPEM: string(block)}
}

// Token signs claims with RS256, adding an hour of validity if unset
func (k Keys) Token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(k.Private)
	require.NoError(t, err)
	return signed
}

// BearerFor returns an Authorization header value for subject
func (k Keys) BearerFor(t *testing.T, subject, email string) string {
	t.Helper()
	return "Bearer " + k.Token(t, jwt.MapClaims{"sub": subject, "email": email})
}
