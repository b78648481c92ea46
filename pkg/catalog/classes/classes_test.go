package classes_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/classes"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/metrics"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	router  *gin.Engine
	clock   *clock.Mock
	metrics *metrics.Metrics
	member  testutil.Member
}

func setupTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)
	db := testutil.SetupTestDB(t)
	org := testutil.CreateOrg(t, db, "oakmont")
	member := testutil.NewMember(t, db, org, "sub-admin", models.OrgRoleAdmin)

	clk := clock.NewMock()
	clk.Set(time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC))
	m := metrics.New()

	svc := classes.NewService(db, clk, 3, m, zap.NewNop())
	handler := classes.NewHandler(db, svc, zap.NewNop())

	r := gin.New()
	handler.RegisterRoutes(r.Group("/api", member.Middleware()))

	return &testEnv{db: db, router: r, clock: clk, metrics: m, member: member}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createTemplate(t *testing.T, body map[string]interface{}) classes.TemplateResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/class-templates", body)
	require.Equal(t, http.StatusCreated, w.Code, "Expected status 201, got %d: %s", w.Code, w.Body.String())
	var resp classes.TemplateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (e *testEnv) listSessions(t *testing.T, query string) []classes.SessionResponse {
	t.Helper()
	w := e.do(t, http.MethodGet, "/api/class-sessions"+query, nil)
	require.Equal(t, http.StatusOK, w.Code, "Expected status 200, got %d: %s", w.Code, w.Body.String())
	var sessions []classes.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	return sessions
}

func dailyTemplate(start, end string) map[string]interface{} {
	return map[string]interface{}{
		"name":         "Evening Yoga",
		"start_date":   start,
		"end_date":     end,
		"days_of_week": []int{1, 2, 3, 4, 5, 6, 7},
		"start_time":   "18:00",
		"end_time":     "19:00",
		"capacity":     10,
	}
}

func TestCreateTemplateGeneratesSessions(t *testing.T) {
	e := setupTestEnv(t)

	resp := e.createTemplate(t, map[string]interface{}{
		"name":         "Spin",
		"start_date":   "2025-01-01",
		"end_date":     "2025-01-15",
		"days_of_week": []int{3},
		"start_time":   "09:00",
		"end_time":     "10:00",
		"capacity":     12,
		"room":         "Studio A",
	})
	require.NotNil(t, resp.SessionsCreated)
	assert.Equal(t, 3, *resp.SessionsCreated)
	assert.Equal(t, "2025-01-15", *resp.EndDate)

	sessions := e.listSessions(t, "")
	require.Len(t, sessions, 3)
	assert.Equal(t, "2025-01-01T09:00:00Z", sessions[0].StartsAt)
	assert.Equal(t, "2025-01-08T09:00:00Z", sessions[1].StartsAt)
	assert.Equal(t, "2025-01-15T09:00:00Z", sessions[2].StartsAt)
	for _, s := range sessions {
		assert.Equal(t, 12, s.Capacity)
		assert.Equal(t, "Studio A", s.Room)
		assert.Equal(t, "scheduled", s.Status)
		assert.Equal(t, resp.ID, s.TemplateID)
	}

	assert.Equal(t, float64(3), promtest.ToFloat64(e.metrics.SessionsGenerated))
}

func TestCreateTemplateInOrganizationTimezone(t *testing.T) {
	e := setupTestEnv(t)
	require.NoError(t, e.db.Model(&models.Organization{}).Where("id = ?", e.member.Org.ID).
		Update("timezone", "America/New_York").Error)
	e.member.Org.Timezone = "America/New_York"
	e.router = gin.New()
	svc := classes.NewService(e.db, e.clock, 3, e.metrics, zap.NewNop())
	classes.NewHandler(e.db, svc, zap.NewNop()).RegisterRoutes(e.router.Group("/api", e.member.Middleware()))

	e.createTemplate(t, dailyTemplate("2025-01-06", "2025-01-06"))
	sessions := e.listSessions(t, "")
	require.Len(t, sessions, 1)
	assert.Equal(t, "2025-01-06T23:00:00Z", sessions[0].StartsAt, "18:00 EST")
}

func TestCreateTemplateOpenEnded(t *testing.T) {
	e := setupTestEnv(t)
	body := dailyTemplate("2025-01-01", "")
	body["days_of_week"] = []int{3}
	delete(body, "end_date")

	resp := e.createTemplate(t, body)
	assert.Nil(t, resp.EndDate)
	assert.Equal(t, 13, *resp.SessionsCreated, "three month horizon")

	sessions := e.listSessions(t, "")
	assert.Equal(t, "2025-03-26T18:00:00Z", sessions[len(sessions)-1].StartsAt)
}

func TestCreateTemplateOpenEndedStartedInPast(t *testing.T) {
	e := setupTestEnv(t)
	body := dailyTemplate("2024-06-05", "")
	body["days_of_week"] = []int{3}
	delete(body, "end_date")

	// History back to the start date, plus three months ahead of today
	resp := e.createTemplate(t, body)
	assert.Equal(t, 43, *resp.SessionsCreated)

	sessions := e.listSessions(t, "")
	require.Len(t, sessions, 43)
	assert.Equal(t, "2024-06-05T18:00:00Z", sessions[0].StartsAt)
	assert.Equal(t, "2025-03-26T18:00:00Z", sessions[len(sessions)-1].StartsAt)

	upcoming := e.listSessions(t, "?from=2025-01-01")
	assert.Len(t, upcoming, 13, "bookable sessions through the horizon")
}

func TestCreateTemplateValidation(t *testing.T) {
	e := setupTestEnv(t)
	other := testutil.CreateOrg(t, e.db, "riverside")
	foreign := models.Location{OrganizationID: other.ID, Name: "Riverside Main"}
	require.NoError(t, e.db.Create(&foreign).Error)

	cases := map[string]func(map[string]interface{}){
		"missing name":       func(b map[string]interface{}) { delete(b, "name") },
		"bad start date":     func(b map[string]interface{}) { b["start_date"] = "01/02/2025" },
		"day out of range":   func(b map[string]interface{}) { b["days_of_week"] = []int{8} },
		"empty days":         func(b map[string]interface{}) { b["days_of_week"] = []int{} },
		"end before start":   func(b map[string]interface{}) { b["end_time"] = "17:00" },
		"bad time":           func(b map[string]interface{}) { b["start_time"] = "6pm" },
		"zero capacity":      func(b map[string]interface{}) { b["capacity"] = 0 },
		"end date first":     func(b map[string]interface{}) { b["end_date"] = "2024-12-01" },
		"foreign location":   func(b map[string]interface{}) { b["location_id"] = foreign.ID },
		"unknown instructor": func(b map[string]interface{}) { b["instructor_id"] = 9999 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			body := dailyTemplate("2025-01-01", "2025-01-10")
			mutate(body)
			w := e.do(t, http.MethodPost, "/api/class-templates", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, "Expected status 400, got %d: %s", w.Code, w.Body.String())
		})
	}

	var count int64
	e.db.Model(&models.ClassTemplate{}).Count(&count)
	assert.Zero(t, count, "rejected templates leave nothing behind")
}

func TestUpdateTemplateRegeneratesFutureSessions(t *testing.T) {
	e := setupTestEnv(t)
	customer := testutil.CreateCustomer(t, e.db, e.member.Org, "Ada", "Lovelace")
	tmpl := e.createTemplate(t, dailyTemplate("2025-01-01", "2025-01-10"))
	before := e.listSessions(t, "")
	require.Len(t, before, 10)

	// Today is 2025-01-05; book a customer into tomorrow's class
	e.clock.Set(time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC))
	tomorrow := before[5]
	require.Equal(t, "2025-01-06T18:00:00Z", tomorrow.StartsAt)
	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/class-sessions/%d/roster", tomorrow.ID), map[string]interface{}{
		"customer_id": customer.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, "Expected status 201, got %d: %s", w.Code, w.Body.String())

	w = e.do(t, http.MethodPut, fmt.Sprintf("/api/class-templates/%d", tmpl.ID), map[string]interface{}{
		"start_time": "07:00",
		"end_time":   "08:00",
	})
	require.Equal(t, http.StatusOK, w.Code, "Expected status 200, got %d: %s", w.Code, w.Body.String())
	var updated classes.TemplateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "07:00", updated.StartTime)
	assert.Equal(t, int64(5), *updated.SessionsDeleted)
	assert.Equal(t, 6, *updated.SessionsCreated)

	after := e.listSessions(t, "")
	require.Len(t, after, 11)
	for i := 0; i < 4; i++ {
		assert.Equal(t, before[i].ID, after[i].ID, "past sessions are untouched")
		assert.Equal(t, before[i].StartsAt, after[i].StartsAt)
	}

	var kept *classes.SessionResponse
	for i := range after {
		if after[i].ID == tomorrow.ID {
			kept = &after[i]
		}
	}
	require.NotNil(t, kept, "rostered session survives regeneration")
	assert.Equal(t, "2025-01-06T18:00:00Z", kept.StartsAt)
	assert.Equal(t, int64(1), kept.Booked)

	moved := e.listSessions(t, "?from=2025-01-05")
	var early int
	for _, s := range moved {
		if s.StartsAt[11:16] == "07:00" {
			early++
		}
	}
	assert.Equal(t, 6, early)
}

func TestUpdateTemplateWithoutScheduleChange(t *testing.T) {
	e := setupTestEnv(t)
	tmpl := e.createTemplate(t, dailyTemplate("2025-01-01", "2025-01-05"))
	before := e.listSessions(t, "")

	w := e.do(t, http.MethodPut, fmt.Sprintf("/api/class-templates/%d", tmpl.ID), map[string]interface{}{
		"name":        "Morning Yoga",
		"description": "Bring a mat",
	})
	require.Equal(t, http.StatusOK, w.Code, "Expected status 200, got %d: %s", w.Code, w.Body.String())
	var updated classes.TemplateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Morning Yoga", updated.Name)
	assert.Equal(t, 0, *updated.SessionsCreated)

	after := e.listSessions(t, "")
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
	}
}

func TestDeleteTemplate(t *testing.T) {
	e := setupTestEnv(t)
	tmpl := e.createTemplate(t, dailyTemplate("2025-01-01", "2025-01-10"))
	e.clock.Set(time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC))

	w := e.do(t, http.MethodDelete, fmt.Sprintf("/api/class-templates/%d", tmpl.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, "Expected status 200, got %d", w.Code)

	sessions := e.listSessions(t, "")
	assert.Len(t, sessions, 3, "sessions before today stay as history")

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/class-templates/%d", tmpl.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "Expected status 404, got %d", w.Code)

	assert.Equal(t, float64(7), promtest.ToFloat64(e.metrics.SessionsDeleted))
}

func TestDeleteTemplateFailureRollsBack(t *testing.T) {
	e := setupTestEnv(t)
	tmpl := e.createTemplate(t, dailyTemplate("2025-01-01", "2025-01-10"))

	err := e.db.Callback().Delete().Before("gorm:delete").Register("fail_template_delete", func(db *gorm.DB) {
		if db.Statement.Table == "class_templates" {
			db.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	w := e.do(t, http.MethodDelete, fmt.Sprintf("/api/class-templates/%d", tmpl.ID), nil)
	require.Equal(t, http.StatusInternalServerError, w.Code, "Expected status 500, got %d", w.Code)

	assert.Len(t, e.listSessions(t, ""), 10, "removed sessions are rolled back")
	assert.Zero(t, promtest.ToFloat64(e.metrics.SessionsDeleted))
}

func TestUpdateTemplateClearsLocationAndInstructor(t *testing.T) {
	e := setupTestEnv(t)
	studio := models.Location{OrganizationID: e.member.Org.ID, Name: "Main Studio"}
	require.NoError(t, e.db.Create(&studio).Error)

	body := dailyTemplate("2025-01-01", "2025-01-05")
	body["location_id"] = studio.ID
	body["instructor_id"] = e.member.User.ID
	tmpl := e.createTemplate(t, body)
	require.NotNil(t, tmpl.LocationID)
	require.NotNil(t, tmpl.InstructorID)

	// Omitting the ids keeps them
	w := e.do(t, http.MethodPut, fmt.Sprintf("/api/class-templates/%d", tmpl.ID), map[string]interface{}{
		"room": "Studio B",
	})
	require.Equal(t, http.StatusOK, w.Code, "Expected status 200, got %d: %s", w.Code, w.Body.String())
	var updated classes.TemplateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.NotNil(t, updated.LocationID)
	assert.Equal(t, studio.ID, *updated.LocationID)

	w = e.do(t, http.MethodPut, fmt.Sprintf("/api/class-templates/%d", tmpl.ID), map[string]interface{}{
		"location_id":   0,
		"instructor_id": 0,
	})
	require.Equal(t, http.StatusOK, w.Code, "Expected status 200, got %d: %s", w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Nil(t, updated.LocationID)
	assert.Nil(t, updated.InstructorID)

	var stored models.ClassTemplate
	require.NoError(t, e.db.First(&stored, tmpl.ID).Error)
	assert.Nil(t, stored.LocationID)
	assert.Nil(t, stored.InstructorID)

	sessions := e.listSessions(t, "")
	require.Len(t, sessions, 5)
	for _, s := range sessions {
		assert.Nil(t, s.LocationID)
		assert.Nil(t, s.InstructorID)
		assert.Equal(t, "Studio B", s.Room)
	}
}

func TestRosterCapacity(t *testing.T) {
	e := setupTestEnv(t)
	ada := testutil.CreateCustomer(t, e.db, e.member.Org, "Ada", "Lovelace")
	grace := testutil.CreateCustomer(t, e.db, e.member.Org, "Grace", "Hopper")
	body := dailyTemplate("2025-01-02", "2025-01-02")
	body["capacity"] = 1
	e.createTemplate(t, body)
	session := e.listSessions(t, "")[0]
	rosterPath := fmt.Sprintf("/api/class-sessions/%d/roster", session.ID)

	w := e.do(t, http.MethodPost, rosterPath, map[string]interface{}{"customer_id": ada.ID})
	require.Equal(t, http.StatusCreated, w.Code, "Expected status 201, got %d: %s", w.Code, w.Body.String())
	var entry classes.RosterEntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))

	w = e.do(t, http.MethodPost, rosterPath, map[string]interface{}{"customer_id": grace.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code, "Expected status 400, got %d", w.Code)
	assert.Contains(t, w.Body.String(), "full")

	w = e.do(t, http.MethodPost, rosterPath, map[string]interface{}{"customer_id": ada.ID})
	assert.Equal(t, http.StatusConflict, w.Code, "Expected status 409, got %d", w.Code)

	// Cancelling frees the seat
	w = e.do(t, http.MethodPatch, fmt.Sprintf("%s/%d", rosterPath, entry.ID), map[string]interface{}{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, "Expected status 200, got %d: %s", w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, rosterPath, map[string]interface{}{"customer_id": grace.ID})
	assert.Equal(t, http.StatusCreated, w.Code, "Expected status 201, got %d: %s", w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, rosterPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var roster []classes.RosterEntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roster))
	require.Len(t, roster, 2)
	assert.Equal(t, "Ada Lovelace", roster[0].CustomerName)
	assert.Equal(t, "cancelled", roster[0].Status)
}

func TestRosterAttendance(t *testing.T) {
	e := setupTestEnv(t)
	ada := testutil.CreateCustomer(t, e.db, e.member.Org, "Ada", "Lovelace")
	e.createTemplate(t, dailyTemplate("2025-01-02", "2025-01-02"))
	session := e.listSessions(t, "")[0]
	rosterPath := fmt.Sprintf("/api/class-sessions/%d/roster", session.ID)

	w := e.do(t, http.MethodPost, rosterPath, map[string]interface{}{"customer_id": ada.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var entry classes.RosterEntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))

	e.clock.Set(time.Date(2025, 1, 2, 17, 55, 0, 0, time.UTC))
	w = e.do(t, http.MethodPatch, fmt.Sprintf("%s/%d", rosterPath, entry.ID), map[string]interface{}{"status": "attended"})
	require.Equal(t, http.StatusOK, w.Code, "Expected status 200, got %d: %s", w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	require.NotNil(t, entry.CheckedInAt)
	assert.Equal(t, "2025-01-02T17:55:00Z", *entry.CheckedInAt)

	w = e.do(t, http.MethodPatch, fmt.Sprintf("%s/%d", rosterPath, entry.ID), map[string]interface{}{"status": "late"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "Expected status 400, got %d", w.Code)

	w = e.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", rosterPath, entry.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", rosterPath, entry.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "Expected status 404, got %d", w.Code)
}

func TestUpdateSession(t *testing.T) {
	e := setupTestEnv(t)
	ada := testutil.CreateCustomer(t, e.db, e.member.Org, "Ada", "Lovelace")
	e.createTemplate(t, dailyTemplate("2025-01-02", "2025-01-03"))
	sessions := e.listSessions(t, "")
	path := fmt.Sprintf("/api/class-sessions/%d", sessions[0].ID)

	w := e.do(t, http.MethodPatch, path, map[string]interface{}{"cancellation_reason": "Instructor ill"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "reason needs a cancelled status")

	w = e.do(t, http.MethodPatch, path, map[string]interface{}{
		"status":              "cancelled",
		"cancellation_reason": "Instructor ill",
	})
	require.Equal(t, http.StatusOK, w.Code, "Expected status 200, got %d: %s", w.Code, w.Body.String())
	var session classes.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, "cancelled", session.Status)
	assert.Equal(t, "Instructor ill", *session.CancellationReason)

	w = e.do(t, http.MethodPost, path+"/roster", map[string]interface{}{"customer_id": ada.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code, "cancelled sessions take no bookings")

	cancelled := e.listSessions(t, "?status=cancelled")
	require.Len(t, cancelled, 1)
	assert.Equal(t, sessions[0].ID, cancelled[0].ID)

	w = e.do(t, http.MethodGet, "/api/class-sessions?status=postponed", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSessionsRange(t *testing.T) {
	e := setupTestEnv(t)
	tmpl := e.createTemplate(t, dailyTemplate("2025-01-01", "2025-01-10"))

	assert.Len(t, e.listSessions(t, "?from=2025-01-03&to=2025-01-05"), 3, "to is an inclusive day")
	assert.Len(t, e.listSessions(t, "?from=2025-01-03T18:00:01Z"), 7)
	assert.Len(t, e.listSessions(t, fmt.Sprintf("?template_id=%d", tmpl.ID)), 10)
	assert.Empty(t, e.listSessions(t, fmt.Sprintf("?template_id=%d", tmpl.ID+1)))

	w := e.do(t, http.MethodGet, "/api/class-sessions?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCrossTenantAccess(t *testing.T) {
	e := setupTestEnv(t)
	other := testutil.CreateOrg(t, e.db, "riverside")
	stranger := testutil.CreateCustomer(t, e.db, other, "Grace", "Hopper")
	foreign := models.ClassTemplate{
		OrganizationID: other.ID,
		Name:           "Riverside Spin",
		StartDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DaysOfWeek:     []int{3},
		StartTime:      "09:00",
		EndTime:        "10:00",
		Capacity:       5,
	}
	require.NoError(t, e.db.Create(&foreign).Error)
	foreignSession := models.ClassSession{
		OrganizationID: other.ID,
		TemplateID:     foreign.ID,
		StartsAt:       time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:         time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Capacity:       5,
		Status:         models.SessionStatusScheduled,
	}
	require.NoError(t, e.db.Create(&foreignSession).Error)

	paths := []string{
		fmt.Sprintf("/api/class-templates/%d", foreign.ID),
		fmt.Sprintf("/api/class-sessions/%d", foreignSession.ID),
		fmt.Sprintf("/api/class-sessions/%d/roster", foreignSession.ID),
	}
	for _, p := range paths {
		w := e.do(t, http.MethodGet, p, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "GET %s: expected 404, got %d", p, w.Code)
	}
	assert.Empty(t, e.listSessions(t, ""))

	w := e.do(t, http.MethodPut, fmt.Sprintf("/api/class-templates/%d", foreign.ID), map[string]interface{}{"name": "Mine"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A customer of another organization cannot be booked into our session
	e.createTemplate(t, dailyTemplate("2025-01-02", "2025-01-02"))
	ours := e.listSessions(t, "")[0]
	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/class-sessions/%d/roster", ours.ID), map[string]interface{}{
		"customer_id": stranger.ID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code, "Expected status 404, got %d", w.Code)
}

func TestScheduleChanged(t *testing.T) {
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	loc := uint(4)
	base := models.ClassTemplate{
		Name:       "Spin",
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    &end,
		DaysOfWeek: []int{1, 3},
		StartTime:  "09:00",
		EndTime:    "10:00",
		Capacity:   10,
		LocationID: &loc,
	}

	same := base
	same.Name = "Spin Plus"
	same.Description = "harder"
	otherLoc := uint(4)
	same.LocationID = &otherLoc
	assert.False(t, classes.ScheduleChanged(&base, &same))

	changes := map[string]func(*models.ClassTemplate){
		"days":       func(t *models.ClassTemplate) { t.DaysOfWeek = []int{1, 4} },
		"end date":   func(t *models.ClassTemplate) { t.EndDate = nil },
		"start time": func(t *models.ClassTemplate) { t.StartTime = "09:30" },
		"capacity":   func(t *models.ClassTemplate) { t.Capacity = 11 },
		"room":       func(t *models.ClassTemplate) { t.Room = "B" },
		"location":   func(t *models.ClassTemplate) { t.LocationID = nil },
		"instructor": func(t *models.ClassTemplate) { id := uint(2); t.InstructorID = &id },
	}
	for name, change := range changes {
		changed := base
		change(&changed)
		assert.True(t, classes.ScheduleChanged(&base, &changed), name)
	}
}
