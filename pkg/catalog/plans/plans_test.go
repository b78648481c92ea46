package plans_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/plans"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	router    *gin.Engine
	org       models.Organization
	downtown  models.Location
	riverside models.Location
}

func setup(t *testing.T) fixture {
	gin.SetMode(gin.TestMode)
	db := testutil.SetupTestDB(t)
	org := testutil.CreateOrg(t, db, "oakmont")
	other := testutil.CreateOrg(t, db, "riverside")
	member := testutil.NewMember(t, db, org, "sub-admin", models.OrgRoleAdmin)

	downtown := models.Location{OrganizationID: org.ID, Name: "Downtown"}
	require.NoError(t, db.Create(&downtown).Error)
	foreign := models.Location{OrganizationID: other.ID, Name: "Riverside"}
	require.NoError(t, db.Create(&foreign).Error)

	r := gin.New()
	plans.NewHandler(db, zap.NewNop()).RegisterRoutes(r.Group("/api", member.Middleware()))
	return fixture{db: db, router: r, org: org, downtown: downtown, riverside: foreign}
}

func (f fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCreatePlanTypes(t *testing.T) {
	f := setup(t)

	cases := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"recurring defaults to monthly", map[string]interface{}{"name": "Monthly", "plan_type": "recurring", "price_cents": 4900}, http.StatusCreated},
		{"fixed term", map[string]interface{}{"name": "Summer", "plan_type": "fixed_term", "price_cents": 15000, "term_months": 3}, http.StatusCreated},
		{"fixed term without term", map[string]interface{}{"name": "Summer", "plan_type": "fixed_term", "price_cents": 15000}, http.StatusBadRequest},
		{"fixed term with zero term", map[string]interface{}{"name": "Summer", "plan_type": "fixed_term", "term_months": 0}, http.StatusBadRequest},
		{"punch card", map[string]interface{}{"name": "10 visits", "plan_type": "punch_card", "price_cents": 9000, "visit_limit": 10}, http.StatusCreated},
		{"punch card without limit", map[string]interface{}{"name": "10 visits", "plan_type": "punch_card"}, http.StatusBadRequest},
		{"negative price", map[string]interface{}{"name": "Free", "plan_type": "recurring", "price_cents": -1}, http.StatusBadRequest},
		{"unknown type", map[string]interface{}{"name": "Odd", "plan_type": "lifetime"}, http.StatusBadRequest},
		{"bad interval", map[string]interface{}{"name": "Weekly", "plan_type": "recurring", "billing_interval": "weekly"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/membership-plans", tc.body)
			assert.Equal(t, tc.status, w.Code, "Expected status %d, got %d: %s", tc.status, w.Code, w.Body.String())
		})
	}

	var monthly models.MembershipPlan
	require.NoError(t, f.db.Where("name = ?", "Monthly").First(&monthly).Error)
	assert.Equal(t, "monthly", monthly.BillingInterval)
	assert.True(t, monthly.Active)
	assert.Nil(t, monthly.TermMonths)

	var count int64
	f.db.Model(&models.MembershipPlan{}).Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestCreatePlanWithLocations(t *testing.T) {
	f := setup(t)

	w := f.do(t, http.MethodPost, "/api/membership-plans", map[string]interface{}{
		"name":         "Downtown Unlimited",
		"plan_type":    "recurring",
		"price_cents":  9900,
		"active":       false,
		"location_ids": []uint{f.downtown.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, "Expected status 201, got %d: %s", w.Code, w.Body.String())
	var plan plans.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, []uint{f.downtown.ID}, plan.LocationIDs)
	assert.False(t, plan.Active)

	var stored models.MembershipPlan
	require.NoError(t, f.db.Preload("Locations").First(&stored, plan.ID).Error)
	require.Len(t, stored.Locations, 1)
	assert.False(t, stored.Active)
}

func TestCreatePlanRollsBackOnForeignLocation(t *testing.T) {
	f := setup(t)

	w := f.do(t, http.MethodPost, "/api/membership-plans", map[string]interface{}{
		"name":         "Everywhere",
		"plan_type":    "recurring",
		"location_ids": []uint{f.downtown.ID, f.riverside.ID},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "Expected status 400, got %d: %s", w.Code, w.Body.String())

	var planCount, links int64
	f.db.Model(&models.MembershipPlan{}).Count(&planCount)
	f.db.Table("membership_plan_locations").Count(&links)
	assert.Zero(t, planCount)
	assert.Zero(t, links)
}

func TestUpdateAndDeletePlan(t *testing.T) {
	f := setup(t)
	uptown := models.Location{OrganizationID: f.org.ID, Name: "Uptown"}
	require.NoError(t, f.db.Create(&uptown).Error)

	w := f.do(t, http.MethodPost, "/api/membership-plans", map[string]interface{}{
		"name": "Summer", "plan_type": "fixed_term", "term_months": 3, "location_ids": []uint{f.downtown.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var plan plans.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	path := fmt.Sprintf("/api/membership-plans/%d", plan.ID)

	w = f.do(t, http.MethodPut, path, map[string]interface{}{
		"name": "Ten Pack", "plan_type": "punch_card", "visit_limit": 10, "location_ids": []uint{uptown.ID},
	})
	require.Equal(t, http.StatusOK, w.Code, "Expected status 200, got %d: %s", w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, "punch_card", plan.PlanType)
	assert.Nil(t, plan.TermMonths, "fields of the old plan type are cleared")
	assert.Equal(t, []uint{uptown.ID}, plan.LocationIDs)

	w = f.do(t, http.MethodGet, "/api/membership-plans?active=true", nil)
	var list []plans.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, []uint{uptown.ID}, list[0].LocationIDs)

	w = f.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlanTenantIsolation(t *testing.T) {
	f := setup(t)
	other := models.MembershipPlan{
		OrganizationID: f.riverside.OrganizationID,
		Name:           "Theirs",
		PlanType:       models.PlanTypeRecurring,
		Active:         true,
	}
	require.NoError(t, f.db.Create(&other).Error)

	path := fmt.Sprintf("/api/membership-plans/%d", other.ID)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, nil).Code)
	w := f.do(t, http.MethodPut, path, map[string]interface{}{"name": "Mine", "plan_type": "recurring"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
