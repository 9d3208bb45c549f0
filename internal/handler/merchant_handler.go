package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tastecircle/tastecircle/internal/middleware"
	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/internal/policy"
	"github.com/tastecircle/tastecircle/pkg/database"
	"github.com/tastecircle/tastecircle/pkg/logger"
	"github.com/tastecircle/tastecircle/prometheus"
	"go.uber.org/zap"
)

// ListMerchants returns all merchants. Public listing by design.
func ListMerchants(c echo.Context) error {
	var merchants []model.Merchant
	defer prometheus.TrackDBOperation("query")(time.Now())
	if err := database.GetDB().Order("name").Find(&merchants).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list merchants"})
	}
	return c.JSON(http.StatusOK, merchants)
}

// CreateMerchant creates a merchant owned by the principal.
func CreateMerchant(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	var req struct {
		Name    string `json:"name"`
		LogoURL string `json:"logo_url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	merchant := model.Merchant{
		Name:    req.Name,
		LogoURL: req.LogoURL,
		OwnerID: principal.ID,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&merchant); result.Error != nil {
		log.Error("Failed to create merchant", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "merchant creation failed"})
	}

	log.Info("Merchant created",
		zap.String("name", merchant.Name),
		zap.Uint("id", merchant.ID),
		zap.Uint("owner_id", merchant.OwnerID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Merchant created successfully",
		"merchant": merchant,
	})
}

// UpdateMerchant mutates merchant details. Gated on ownership or super-admin.
func UpdateMerchant(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid merchant ID"})
	}

	var merchant model.Merchant
	if result := database.GetDB().First(&merchant, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}

	if !policy.CanManageMerchant(database.GetDB(), principal, merchant.ID) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var req struct {
		Name    *string `json:"name"`
		LogoURL *string `json:"logo_url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.LogoURL != nil {
		updates["logo_url"] = *req.LogoURL
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if len(updates) > 0 {
		if err := database.GetDB().Model(&merchant).Updates(updates).Error; err != nil {
			log.Error("Failed to update merchant", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "merchant update failed"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Merchant updated successfully",
		"merchant": merchant,
	})
}

// DeleteMerchant soft-deletes a merchant. Gated on ownership or super-admin.
func DeleteMerchant(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid merchant ID"})
	}

	var merchant model.Merchant
	if result := database.GetDB().First(&merchant, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}

	if !policy.CanManageMerchant(database.GetDB(), principal, merchant.ID) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&merchant).Error; err != nil {
		log.Error("Failed to delete merchant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "merchant deletion failed"})
	}

	log.Info("Merchant deleted", zap.Uint("id", merchant.ID), zap.Uint("actor_id", principal.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Merchant deleted"})
}
