package locations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestRouter(db *gorm.DB, member testutil.Member) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(db, zap.NewNop()).RegisterRoutes(r.Group("/api", member.Middleware()))
	return r
}

func TestLocationCRUD(t *testing.T) {
	db := testutil.SetupTestDB(t)
	org := testutil.CreateOrg(t, db, "oakmont")
	router := setupTestRouter(db, testutil.NewMember(t, db, org, "sub-admin", models.OrgRoleAdmin))

	body, _ := json.Marshal(LocationRequest{Name: "Downtown", Address: "1 Main St"})
	req := httptest.NewRequest(http.MethodPost, "/api/locations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created LocationResponse
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Name != "Downtown" {
		t.Errorf("Expected name 'Downtown', got '%s'", created.Name)
	}

	body, _ = json.Marshal(LocationRequest{Name: "Uptown"})
	req = httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/locations/%d", created.ID), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/locations", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var list []LocationResponse
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Name != "Uptown" || list[0].Address != "" {
		t.Errorf("Expected one location 'Uptown' without address, got %+v", list)
	}

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/locations/%d", created.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/locations/%d", created.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestLocationValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	org := testutil.CreateOrg(t, db, "oakmont")
	router := setupTestRouter(db, testutil.NewMember(t, db, org, "sub-admin", models.OrgRoleAdmin))

	req := httptest.NewRequest(http.MethodPost, "/api/locations", bytes.NewBufferString(`{"address":"no name"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/locations/abc", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid ID, got %d", w.Code)
	}
}

func TestLocationTenantIsolation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	oakmont := testutil.CreateOrg(t, db, "oakmont")
	riverside := testutil.CreateOrg(t, db, "riverside")
	router := setupTestRouter(db, testutil.NewMember(t, db, oakmont, "sub-admin", models.OrgRoleAdmin))

	theirs := models.Location{OrganizationID: riverside.ID, Name: "Riverside"}
	db.Create(&theirs)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		body, _ := json.Marshal(LocationRequest{Name: "Taken"})
		req := httptest.NewRequest(method, fmt.Sprintf("/api/locations/%d", theirs.ID), bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", method, w.Code)
		}
	}

	var stored models.Location
	db.First(&stored, theirs.ID)
	if stored.Name != "Riverside" {
		t.Errorf("Expected other tenant's location untouched, got '%s'", stored.Name)
	}
}
