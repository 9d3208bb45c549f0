package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tastecircle/tastecircle/internal/middleware"
	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/pkg/database"
	"github.com/tastecircle/tastecircle/pkg/logger"
	"github.com/tastecircle/tastecircle/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UpdateUserRole changes a user's role. A user can never change their own
// role, independent of how privileged they are; this guard prevents an admin
// from locking themselves out or escalating by accident.
func UpdateUserRole(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if !model.IsValidRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be one of admin, merchant, customer, foodie_group_admin, super_admin"})
	}

	if uint(targetID) == principal.ID {
		prometheus.RecordAuthError("self_role_change")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot change your own role"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var target model.User
	if result := database.GetDB().First(&target, targetID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	if err := database.GetDB().Model(&target).Update("role", req.Role).Error; err != nil {
		log.Error("Failed to update user role", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role update failed"})
	}

	log.Info("User role updated",
		zap.Uint("user_id", target.ID),
		zap.String("role", req.Role),
		zap.Uint("actor_id", principal.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Role updated successfully",
		"user": map[string]interface{}{
			"id":   target.ID,
			"role": req.Role,
		},
	})
}

// DisableUser soft-deletes a user account. Self-disable is rejected.
func DisableUser(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	if uint(targetID) == principal.ID {
		prometheus.RecordAuthError("self_disable")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot disable your own account"})
	}

	var target model.User
	if result := database.GetDB().First(&target, targetID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&target).Error; err != nil {
		log.Error("Failed to disable user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "disable failed"})
	}

	log.Info("User disabled", zap.Uint("user_id", target.ID), zap.Uint("actor_id", principal.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "User disabled"})
}

// AnonymizeUser scrubs a user's identity and soft-deletes the account plus
// its group memberships in one transaction. The operation is refused while
// the user still owns merchants: ownership must be transferred first so
// merchant-scoped authorization never dangles.
func AnonymizeUser(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	if uint(targetID) == principal.ID {
		prometheus.RecordAuthError("self_anonymize")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot anonymize your own account"})
	}

	db := database.GetDB()

	var target model.User
	if result := db.First(&target, targetID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	var ownedMerchants int64
	if err := db.Model(&model.Merchant{}).Where("owner_id = ?", target.ID).Count(&ownedMerchants).Error; err != nil {
		log.Error("Failed to count owned merchants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "anonymization failed"})
	}
	if ownedMerchants > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "user still owns merchants; transfer ownership before anonymizing",
		})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"email":      fmt.Sprintf("anonymized-%d@removed.tastecircle.invalid", target.ID),
			"name":       "Anonymized User",
			"anonymized": true,
		}
		if err := tx.Model(&target).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", target.ID).Delete(&model.GroupMembership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&target).Error
	})
	if err != nil {
		log.Error("Failed to anonymize user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "anonymization failed"})
	}

	log.Info("User anonymized", zap.Uint("user_id", target.ID), zap.Uint("actor_id", principal.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "User anonymized"})
}

// ListUsers returns all active users for the admin console.
func ListUsers(c echo.Context) error {
	var users []model.User
	if err := database.GetDB().Order("id").Find(&users).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list users"})
		}
	}
	return c.JSON(http.StatusOK, users)
}
