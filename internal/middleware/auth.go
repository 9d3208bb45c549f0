package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/internal/policy"
	"github.com/tastecircle/tastecircle/pkg/database"
	"github.com/tastecircle/tastecircle/pkg/jwtutil"
	"github.com/tastecircle/tastecircle/pkg/logger"
	"github.com/tastecircle/tastecircle/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const principalKey = "principal"

// AuthMiddleware validates the bearer token and resolves the principal: the
// internal user matching the token subject, auto-provisioned as a customer on
// first sight. A soft-deleted user is treated as disabled and fails closed.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Warn("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		if claims.Subject == "" {
			prometheus.RecordAuthError("missing_subject")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		user, err := resolvePrincipal(database.GetDB(), claims)
		if err != nil {
			if errors.Is(err, errPrincipalDisabled) {
				prometheus.RecordAuthError("disabled_user")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
			}
			log.Error("Failed to resolve principal", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication failed"})
		}

		c.Set(principalKey, user)
		return next(c)
	}
}

// RequireAdmin gates a route on the platform-admin predicate. Must run after
// AuthMiddleware.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal := Principal(c)
		if !policy.IsAdmin(principal) {
			prometheus.RecordAuthError("forbidden")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		}
		return next(c)
	}
}

// Principal returns the resolved user for the current request, or nil on
// unauthenticated routes.
func Principal(c echo.Context) *model.User {
	user, ok := c.Get(principalKey).(*model.User)
	if !ok {
		return nil
	}
	return user
}

var errPrincipalDisabled = errors.New("principal is disabled")

// resolvePrincipal maps a verified token subject to the internal user,
// creating one with role customer when the subject is unseen. The unscoped
// lookup distinguishes a disabled (soft-deleted) user from an unknown one.
func resolvePrincipal(db *gorm.DB, claims *jwtutil.UserClaims) (*model.User, error) {
	var user model.User
	err := db.Unscoped().Where("subject = ?", claims.Subject).First(&user).Error
	if err == nil {
		if user.DeletedAt.Valid {
			return nil, errPrincipalDisabled
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = model.User{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Role:    model.RoleCustomer,
	}
	if user.Email == "" {
		user.Email = fmt.Sprintf("%s@users.tastecircle.invalid", claims.Subject)
	}
	if user.Name == "" {
		user.Name = "Member " + claims.Subject
	}

	if err := db.Create(&user).Error; err != nil {
		// Two first-sight requests raced; the other one won the insert.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := db.Where("subject = ?", claims.Subject).First(&user).Error; err != nil {
				return nil, err
			}
			return &user, nil
		}
		return nil, err
	}
	return &user, nil
}
