package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tastecircle/tastecircle/internal/middleware"
	"github.com/tastecircle/tastecircle/internal/model"
	"github.com/tastecircle/tastecircle/internal/policy"
	"github.com/tastecircle/tastecircle/internal/redemption"
	"github.com/tastecircle/tastecircle/internal/submission"
	"github.com/tastecircle/tastecircle/pkg/database"
	"github.com/tastecircle/tastecircle/pkg/logger"
	"github.com/tastecircle/tastecircle/prometheus"
	"go.uber.org/zap"
)

// CreateCoupon creates a live coupon directly, bypassing the submission
// workflow. Admin-only route; the payload goes through the same draft
// validation as submissions.
func CreateCoupon(c echo.Context) error {
	log := logger.FromContext(c)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var req struct {
		GroupID    uint `json:"group_id"`
		MerchantID uint `json:"merchant_id"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.GroupID == 0 || req.MerchantID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "group_id and merchant_id are required"})
	}

	draft, err := submission.ParseDraft(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var group model.FoodieGroup
	if result := database.GetDB().First(&group, req.GroupID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "group not found"})
	}
	var merchant model.Merchant
	if result := database.GetDB().First(&merchant, req.MerchantID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}

	coupon := draft.ToCoupon(group.ID, merchant.ID)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := database.GetDB().Create(&coupon).Error; err != nil {
		log.Error("Failed to create coupon", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "coupon creation failed"})
	}

	log.Info("Coupon created", zap.Uint("id", coupon.ID), zap.Uint("group_id", coupon.GroupID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Coupon created successfully",
		"coupon":  coupon,
	})
}

// UpdateCoupon mutates a coupon. Gated on the coupon-management predicate
// (merchant owner or super-admin).
func UpdateCoupon(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon ID"})
	}

	var coupon model.Coupon
	if result := database.GetDB().First(&coupon, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
	}

	if !policy.CanManageCoupon(database.GetDB(), principal, coupon.ID) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var req struct {
		Title         *string `json:"title"`
		Description   *string `json:"description"`
		DiscountValue *int    `json:"discount_value"`
		Locked        *bool   `json:"locked"`
		ExpiresAt     *string `json:"expires_at"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.DiscountValue != nil {
		updates["discount_value"] = *req.DiscountValue
	}
	if req.Locked != nil {
		updates["locked"] = *req.Locked
	}
	if req.ExpiresAt != nil {
		expires, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "expires_at must be an RFC 3339 timestamp"})
		}
		updates["expires_at"] = expires
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if len(updates) > 0 {
		if err := database.GetDB().Model(&coupon).Updates(updates).Error; err != nil {
			log.Error("Failed to update coupon", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "coupon update failed"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Coupon updated successfully",
		"coupon":  coupon,
	})
}

// DeleteCoupon soft-deletes a coupon, preserving redemption history.
func DeleteCoupon(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon ID"})
	}

	var coupon model.Coupon
	if result := database.GetDB().First(&coupon, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
	}

	if !policy.CanManageCoupon(database.GetDB(), principal, coupon.ID) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&coupon).Error; err != nil {
		log.Error("Failed to delete coupon", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "coupon deletion failed"})
	}

	log.Info("Coupon deleted", zap.Uint("id", coupon.ID), zap.Uint("actor_id", principal.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Coupon deleted"})
}

// RedeemCoupon records a redemption for the principal. Entitlement denial is
// signaled with the machine-readable LOCKED code so clients can prompt for
// purchase rather than showing a generic forbidden.
func RedeemCoupon(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon ID"})
	}

	var req struct {
		Location string `json:"location"`
	}
	// Body is optional on redeem.
	_ = c.Bind(&req)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	result, err := redemption.Redeem(database.GetDB(), principal, uint(id), req.Location)
	if err != nil {
		switch {
		case errors.Is(err, redemption.ErrCouponNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
		case errors.Is(err, redemption.ErrNotYetValid):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "coupon is not yet valid"})
		case errors.Is(err, redemption.ErrExpired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "coupon has expired"})
		case errors.Is(err, redemption.ErrLocked):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "LOCKED"})
		case errors.Is(err, redemption.ErrAlreadyRedeemed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "coupon already redeemed"})
		default:
			log.Error("Redemption failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redemption failed"})
		}
	}

	log.Info("Coupon redeemed",
		zap.Uint("coupon_id", uint(id)),
		zap.Uint("user_id", principal.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Coupon redeemed",
		"redemption": result,
	})
}
