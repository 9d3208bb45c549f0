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

// ListGroups returns all non-archived groups. Public listing by design.
func ListGroups(c echo.Context) error {
	var groups []model.FoodieGroup
	defer prometheus.TrackDBOperation("query")(time.Now())
	if err := database.GetDB().Where("archived = ?", false).Order("name").Find(&groups).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list groups"})
	}
	return c.JSON(http.StatusOK, groups)
}

// GetGroup returns a single group by id.
func GetGroup(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid group ID"})
	}

	var group model.FoodieGroup
	if result := database.GetDB().First(&group, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "group not found"})
	}
	return c.JSON(http.StatusOK, group)
}

// ListGroupCoupons returns a group's coupons. Locked coupons appear in the
// listing; the entitlement check only gates redemption.
func ListGroupCoupons(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid group ID"})
	}

	var group model.FoodieGroup
	if result := database.GetDB().First(&group, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "group not found"})
	}

	var coupons []model.Coupon
	if err := database.GetDB().Where("group_id = ?", group.ID).Order("id").Find(&coupons).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list coupons"})
	}
	return c.JSON(http.StatusOK, coupons)
}

// CreateGroup creates a new regional group. Admin only (route-gated).
func CreateGroup(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Slug        string `json:"slug"`
		Name        string `json:"name"`
		Description string `json:"description"`
		City        string `json:"city"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Slug == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slug and name are required"})
	}

	group := model.FoodieGroup{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		City:        req.City,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&group); result.Error != nil {
		log.Error("Failed to create group", zap.Error(result.Error))
		return c.JSON(http.StatusConflict, echo.Map{"error": "slug already exists"})
	}

	log.Info("Group created", zap.String("slug", group.Slug), zap.Uint("id", group.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Group created successfully",
		"group":   group,
	})
}

// UpdateGroup mutates group metadata. Gated on the group-management
// predicate: super-admin or a group admin of exactly this group.
func UpdateGroup(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid group ID"})
	}

	var group model.FoodieGroup
	if result := database.GetDB().First(&group, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "group not found"})
	}

	if !policy.CanManageGroup(database.GetDB(), principal, group.ID) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		City        *string `json:"city"`
		Archived    *bool   `json:"archived"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.Archived != nil {
		updates["archived"] = *req.Archived
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if len(updates) > 0 {
		if err := database.GetDB().Model(&group).Updates(updates).Error; err != nil {
			log.Error("Failed to update group", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "group update failed"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Group updated successfully",
		"group":   group,
	})
}

// ListMyPurchases returns the principal's purchases across groups.
func ListMyPurchases(c echo.Context) error {
	principal := middleware.Principal(c)

	var purchases []model.Purchase
	if err := database.GetDB().Where("user_id = ?", principal.ID).Order("id DESC").Find(&purchases).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list purchases"})
	}
	return c.JSON(http.StatusOK, purchases)
}

// RegisterCheckout pre-creates a pending purchase for a checkout session the
// client just opened with the provider. The unique constraint on the session
// id prevents duplicate purchase rows for one session.
func RegisterCheckout(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	var req struct {
		GroupID           uint   `json:"group_id"`
		CheckoutSessionID string `json:"checkout_session_id"`
		AmountCents       int    `json:"amount_cents"`
		Currency          string `json:"currency"`
		PriceSnapshot     string `json:"price_snapshot"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.GroupID == 0 || req.CheckoutSessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "group_id and checkout_session_id are required"})
	}

	var group model.FoodieGroup
	if result := database.GetDB().First(&group, req.GroupID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "group not found"})
	}

	purchase := model.Purchase{
		UserID:            principal.ID,
		GroupID:           group.ID,
		Provider:          model.ProviderStripe,
		CheckoutSessionID: &req.CheckoutSessionID,
		AmountCents:       req.AmountCents,
		Currency:          req.Currency,
		Status:            model.PurchaseStatusPending,
		PriceSnapshot:     req.PriceSnapshot,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := database.GetDB().Create(&purchase).Error; err != nil {
		log.Warn("Failed to register checkout", zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": "checkout session already registered"})
	}

	prometheus.RecordPurchaseTransition(model.PurchaseStatusPending)
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Checkout registered",
		"purchase": purchase,
	})
}
