package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/internal/testutil"
	"github.com/tastecircle/tastecircle/pkg/config"
	"github.com/tastecircle/tastecircle/pkg/database"
	"github.com/tastecircle/tastecircle/pkg/jwtutil"
)

func setupAuth(t *testing.T) {
	t.Helper()
	database.SetDB(testutil.OpenDB(t))
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, token string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := mw(okHandler)(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec
}

func TestResolvePrincipalAutoProvisions(t *testing.T) {
	db := testutil.OpenDB(t)

	claims := &jwtutil.UserClaims{}
	claims.Subject = "new-subject"

	user, err := resolvePrincipal(db, claims)
	if err != nil {
		t.Fatalf("resolvePrincipal failed: %v", err)
	}
	if user.Role != model.RoleCustomer {
		t.Errorf("auto-provisioned user should be a customer, got %q", user.Role)
	}
	if user.Email == "" || user.Name == "" {
		t.Error("auto-provisioned user needs fallback email and name")
	}

	// Second resolution returns the same row.
	again, err := resolvePrincipal(db, claims)
	if err != nil {
		t.Fatalf("second resolution failed: %v", err)
	}
	if again.ID != user.ID {
		t.Error("expected the same user on repeat resolution")
	}
}

func TestResolvePrincipalUsesClaimIdentity(t *testing.T) {
	db := testutil.OpenDB(t)

	claims := &jwtutil.UserClaims{Email: "alice@example.com", Name: "Alice"}
	claims.Subject = "alice-subject"

	user, err := resolvePrincipal(db, claims)
	if err != nil {
		t.Fatalf("resolvePrincipal failed: %v", err)
	}
	if user.Email != "alice@example.com" || user.Name != "Alice" {
		t.Errorf("claim identity not carried over: %q %q", user.Email, user.Name)
	}
}

func TestResolvePrincipalRejectsDisabledUser(t *testing.T) {
	db := testutil.OpenDB(t)

	user := &model.User{Subject: "disabled-subject", Email: "gone@example.com", Role: model.RoleCustomer}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if err := db.Delete(user).Error; err != nil {
		t.Fatalf("failed to soft-delete user: %v", err)
	}

	claims := &jwtutil.UserClaims{}
	claims.Subject = "disabled-subject"

	_, err := resolvePrincipal(db, claims)
	if !errors.Is(err, errPrincipalDisabled) {
		t.Fatalf("expected errPrincipalDisabled, got %v", err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	setupAuth(t)

	t.Run("missing token", func(t *testing.T) {
		rec := doRequest(t, AuthMiddleware, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doRequest(t, AuthMiddleware, "not-a-jwt")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid token resolves principal", func(t *testing.T) {
		token, err := jwtutil.GenerateToken("mw-subject", "mw@example.com", "MW User")
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		rec := doRequest(t, AuthMiddleware, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var user model.User
		if err := database.GetDB().Where("subject = ?", "mw-subject").First(&user).Error; err != nil {
			t.Fatalf("expected principal provisioned: %v", err)
		}
	})

	t.Run("disabled user fails closed", func(t *testing.T) {
		user := &model.User{Subject: "mw-disabled", Email: "mwd@example.com", Role: model.RoleCustomer}
		if err := database.GetDB().Create(user).Error; err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if err := database.GetDB().Delete(user).Error; err != nil {
			t.Fatalf("failed to soft-delete user: %v", err)
		}

		token, err := jwtutil.GenerateToken("mw-disabled", "", "")
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
		rec := doRequest(t, AuthMiddleware, token)
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403 for disabled user, got %d", rec.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()

	run := func(role string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != "" {
			c.Set(principalKey, &model.User{ID: 1, Role: role})
		}
		if err := RequireAdmin(okHandler)(c); err != nil {
			t.Fatalf("middleware returned error: %v", err)
		}
		return rec.Code
	}

	if code := run(model.RoleCustomer); code != http.StatusForbidden {
		t.Errorf("customer: expected 403, got %d", code)
	}
	if code := run(""); code != http.StatusForbidden {
		t.Errorf("no principal: expected 403, got %d", code)
	}
	if code := run(model.RoleAdmin); code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", code)
	}
	if code := run(model.RoleSuperAdmin); code != http.StatusOK {
		t.Errorf("super admin: expected 200, got %d", code)
	}
}
