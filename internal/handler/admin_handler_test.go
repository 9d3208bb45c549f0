package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/internal/testutil"
	"github.com/tastecircle/tastecircle/pkg/database"
	"gorm.io/gorm"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.OpenDB(t)
	database.SetDB(db)
	return db
}

// newAdminContext builds an echo context with a JSON body, a resolved
// principal, and the :id route param.
func newAdminContext(t *testing.T, method, body string, principal *model.User, targetID uint) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("principal", principal)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(targetID), 10))
	return c, rec
}

func createAdminAndTarget(t *testing.T, db *gorm.DB) (*model.User, *model.User) {
	t.Helper()
	admin := &model.User{Subject: "admin", Email: "admin@example.com", Role: model.RoleAdmin}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	target := &model.User{Subject: "target", Email: "target@example.com", Name: "Target", Role: model.RoleCustomer}
	if err := db.Create(target).Error; err != nil {
		t.Fatalf("failed to create target: %v", err)
	}
	return admin, target
}

func TestUpdateUserRole(t *testing.T) {
	db := setupHandlerDB(t)
	admin, target := createAdminAndTarget(t, db)

	c, rec := newAdminContext(t, http.MethodPatch, `{"role":"merchant"}`, admin, target.ID)
	if err := UpdateUserRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got model.User
	if err := db.First(&got, target.ID).Error; err != nil {
		t.Fatalf("failed to reload target: %v", err)
	}
	if got.Role != model.RoleMerchant {
		t.Errorf("expected role merchant, got %q", got.Role)
	}
}

func TestUpdateUserRoleRejectsSelfChange(t *testing.T) {
	db := setupHandlerDB(t)
	admin, _ := createAdminAndTarget(t, db)

	c, rec := newAdminContext(t, http.MethodPatch, `{"role":"super_admin"}`, admin, admin.ID)
	if err := UpdateUserRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for self role change, got %d", rec.Code)
	}

	var got model.User
	if err := db.First(&got, admin.ID).Error; err != nil {
		t.Fatalf("failed to reload admin: %v", err)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("role must be unchanged, got %q", got.Role)
	}
}

func TestUpdateUserRoleRejectsUnknownRole(t *testing.T) {
	db := setupHandlerDB(t)
	admin, target := createAdminAndTarget(t, db)

	c, rec := newAdminContext(t, http.MethodPatch, `{"role":"overlord"}`, admin, target.ID)
	if err := UpdateUserRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", rec.Code)
	}
}

func TestUpdateUserRoleUnknownUser(t *testing.T) {
	db := setupHandlerDB(t)
	admin, _ := createAdminAndTarget(t, db)

	c, rec := newAdminContext(t, http.MethodPatch, `{"role":"merchant"}`, admin, 9999)
	if err := UpdateUserRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestDisableUser(t *testing.T) {
	db := setupHandlerDB(t)
	admin, target := createAdminAndTarget(t, db)

	c, rec := newAdminContext(t, http.MethodPost, "", admin, target.ID)
	if err := DisableUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Disabled user is invisible through the default scope.
	var got model.User
	if err := db.First(&got, target.ID).Error; err == nil {
		t.Error("expected disabled user to be soft-deleted")
	}
	if err := db.Unscoped().First(&got, target.ID).Error; err != nil {
		t.Fatalf("expected soft-deleted row to remain: %v", err)
	}
	if !got.DeletedAt.Valid {
		t.Error("expected deleted_at to be set")
	}
}

func TestDisableUserRejectsSelf(t *testing.T) {
	db := setupHandlerDB(t)
	admin, _ := createAdminAndTarget(t, db)

	c, rec := newAdminContext(t, http.MethodPost, "", admin, admin.ID)
	if err := DisableUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for self disable, got %d", rec.Code)
	}
}

func TestAnonymizeUser(t *testing.T) {
	db := setupHandlerDB(t)
	admin, target := createAdminAndTarget(t, db)

	group := &model.FoodieGroup{Slug: "anon-group", Name: "Anon Group"}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	membership := model.GroupMembership{UserID: target.ID, GroupID: group.ID, Role: model.MembershipRoleCustomer}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("failed to create membership: %v", err)
	}

	c, rec := newAdminContext(t, http.MethodPost, "", admin, target.ID)
	if err := AnonymizeUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got model.User
	if err := db.Unscoped().First(&got, target.ID).Error; err != nil {
		t.Fatalf("failed to reload target: %v", err)
	}
	if !got.Anonymized {
		t.Error("expected anonymized flag set")
	}
	if got.Email == "target@example.com" || got.Name == "Target" {
		t.Error("expected identity scrubbed")
	}
	if !got.DeletedAt.Valid {
		t.Error("expected account soft-deleted")
	}

	var memberships int64
	db.Model(&model.GroupMembership{}).Where("user_id = ?", target.ID).Count(&memberships)
	if memberships != 0 {
		t.Error("expected memberships revoked")
	}
}

func TestAnonymizeUserRefusedWhileOwningMerchants(t *testing.T) {
	db := setupHandlerDB(t)
	admin, target := createAdminAndTarget(t, db)

	merchant := model.Merchant{Name: "Owned Diner", OwnerID: target.ID}
	if err := db.Create(&merchant).Error; err != nil {
		t.Fatalf("failed to create merchant: %v", err)
	}

	c, rec := newAdminContext(t, http.MethodPost, "", admin, target.ID)
	if err := AnonymizeUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 while owning merchants, got %d", rec.Code)
	}

	var got model.User
	if err := db.First(&got, target.ID).Error; err != nil {
		t.Fatalf("target must be untouched: %v", err)
	}
	if got.Anonymized {
		t.Error("target must not be anonymized")
	}
}

func TestAnonymizeUserRejectsSelf(t *testing.T) {
	db := setupHandlerDB(t)
	admin, _ := createAdminAndTarget(t, db)

	c, rec := newAdminContext(t, http.MethodPost, "", admin, admin.ID)
	if err := AnonymizeUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for self anonymize, got %d", rec.Code)
	}
}
