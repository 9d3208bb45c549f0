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
	"github.com/tastecircle/tastecircle/internal/submission"
	"github.com/tastecircle/tastecircle/pkg/database"
	"github.com/tastecircle/tastecircle/pkg/logger"
	"github.com/tastecircle/tastecircle/prometheus"
	"go.uber.org/zap"
)

var notifier submission.Notifier

// SetNotifier wires the decision-notification channel. Called once at startup.
func SetNotifier(n submission.Notifier) {
	notifier = n
}

// CreateCouponSubmission accepts a coupon proposal for review. The actor must
// be an admin or the owner of the named merchant; a merchant owner can never
// submit on behalf of a merchant they do not own. The draft payload is
// validated at intake so approval never sees malformed data.
func CreateCouponSubmission(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

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

	var group model.FoodieGroup
	if result := database.GetDB().First(&group, req.GroupID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "group not found"})
	}
	var merchant model.Merchant
	if result := database.GetDB().First(&merchant, req.MerchantID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}

	if !policy.IsAdmin(principal) && !policy.CanManageMerchant(database.GetDB(), principal, merchant.ID) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	if _, err := submission.ParseDraft(body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	sub := model.CouponSubmission{
		GroupID:     group.ID,
		MerchantID:  merchant.ID,
		SubmitterID: principal.ID,
		State:       model.SubmissionStatePending,
		Payload:     string(body),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := database.GetDB().Create(&sub).Error; err != nil {
		log.Error("Failed to create coupon submission", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "submission failed"})
	}

	prometheus.RecordSubmissionOperation("create")
	log.Info("Coupon submission created",
		zap.Uint("id", sub.ID),
		zap.Uint("group_id", sub.GroupID),
		zap.Uint("merchant_id", sub.MerchantID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Submission created",
		"submission": sub,
	})
}

// ListCouponSubmissions lists submissions for review, optionally filtered by
// group. Gated on platform admin or group admin of the filtered group.
func ListCouponSubmissions(c echo.Context) error {
	principal := middleware.Principal(c)

	query := database.GetDB().Order("id DESC")
	if groupParam := c.QueryParam("group_id"); groupParam != "" {
		groupID, err := strconv.ParseUint(groupParam, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid group_id"})
		}
		if !policy.IsAdmin(principal) && !policy.CanManageGroup(database.GetDB(), principal, uint(groupID)) {
			prometheus.RecordAuthError("forbidden")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		}
		query = query.Where("group_id = ?", groupID)
	} else if !policy.IsAdmin(principal) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var subs []model.CouponSubmission
	if err := query.Find(&subs).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list submissions"})
	}
	return c.JSON(http.StatusOK, subs)
}

// ApproveCouponSubmission promotes a pending submission to a live coupon.
// Gated on platform admin or group admin of the submission's group.
func ApproveCouponSubmission(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid submission ID"})
	}

	var sub model.CouponSubmission
	if result := database.GetDB().First(&sub, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
	}

	if !policy.IsAdmin(principal) && !policy.CanManageGroup(database.GetDB(), principal, sub.GroupID) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	coupon, err := submission.ApproveCoupon(database.GetDB(), sub.ID, notifier)
	if err != nil {
		switch {
		case errors.Is(err, submission.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
		case errors.Is(err, submission.ErrAlreadyDecided):
			return c.JSON(http.StatusConflict, echo.Map{"error": "submission is no longer pending"})
		default:
			log.Error("Failed to approve submission", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "approval failed"})
		}
	}

	log.Info("Submission approved",
		zap.Uint("submission_id", sub.ID),
		zap.Uint("coupon_id", coupon.ID),
		zap.Uint("actor_id", principal.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Submission approved",
		"coupon":  coupon,
	})
}

// RejectCouponSubmission marks a pending submission rejected with an optional
// reason. Same gate as approval.
func RejectCouponSubmission(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid submission ID"})
	}

	var sub model.CouponSubmission
	if result := database.GetDB().First(&sub, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
	}

	if !policy.IsAdmin(principal) && !policy.CanManageGroup(database.GetDB(), principal, sub.GroupID) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var req struct {
		Message string `json:"message"`
	}
	_ = c.Bind(&req)

	defer prometheus.TrackDBOperation("update")(time.Now())
	rejected, err := submission.RejectCoupon(database.GetDB(), sub.ID, req.Message, notifier)
	if err != nil {
		switch {
		case errors.Is(err, submission.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
		case errors.Is(err, submission.ErrAlreadyDecided):
			return c.JSON(http.StatusConflict, echo.Map{"error": "submission is no longer pending"})
		default:
			log.Error("Failed to reject submission", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rejection failed"})
		}
	}

	log.Info("Submission rejected",
		zap.Uint("submission_id", rejected.ID),
		zap.Uint("actor_id", principal.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Submission rejected",
		"submission": rejected,
	})
}

// CreateEventSubmission accepts a group event proposal. When a merchant is
// named the actor must own it or be an admin; merchant-less community events
// only need authentication.
func CreateEventSubmission(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var req struct {
		GroupID    uint   `json:"group_id"`
		MerchantID *uint  `json:"merchant_id"`
		Title      string `json:"title"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.GroupID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "group_id is required"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}

	var group model.FoodieGroup
	if result := database.GetDB().First(&group, req.GroupID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "group not found"})
	}

	if req.MerchantID != nil {
		var merchant model.Merchant
		if result := database.GetDB().First(&merchant, *req.MerchantID); result.Error != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
		}
		if !policy.IsAdmin(principal) && !policy.CanManageMerchant(database.GetDB(), principal, merchant.ID) {
			prometheus.RecordAuthError("forbidden")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
		}
	}

	sub := model.EventSubmission{
		GroupID:     group.ID,
		MerchantID:  req.MerchantID,
		SubmitterID: principal.ID,
		State:       model.SubmissionStatePending,
		Payload:     string(body),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := database.GetDB().Create(&sub).Error; err != nil {
		log.Error("Failed to create event submission", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "submission failed"})
	}

	prometheus.RecordSubmissionOperation("create")
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Submission created",
		"submission": sub,
	})
}

// ApproveEventSubmission marks a pending event submission approved.
func ApproveEventSubmission(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid submission ID"})
	}

	var sub model.EventSubmission
	if result := database.GetDB().First(&sub, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
	}

	if !policy.IsAdmin(principal) && !policy.CanManageGroup(database.GetDB(), principal, sub.GroupID) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	approved, err := submission.ApproveEvent(database.GetDB(), sub.ID, notifier)
	if err != nil {
		switch {
		case errors.Is(err, submission.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
		case errors.Is(err, submission.ErrAlreadyDecided):
			return c.JSON(http.StatusConflict, echo.Map{"error": "submission is no longer pending"})
		default:
			log.Error("Failed to approve event submission", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "approval failed"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Submission approved",
		"submission": approved,
	})
}

// RejectEventSubmission marks a pending event submission rejected.
func RejectEventSubmission(c echo.Context) error {
	log := logger.FromContext(c)
	principal := middleware.Principal(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid submission ID"})
	}

	var sub model.EventSubmission
	if result := database.GetDB().First(&sub, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
	}

	if !policy.IsAdmin(principal) && !policy.CanManageGroup(database.GetDB(), principal, sub.GroupID) {
		prometheus.RecordAuthError("forbidden")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden"})
	}

	var req struct {
		Message string `json:"message"`
	}
	_ = c.Bind(&req)

	rejected, err := submission.RejectEvent(database.GetDB(), sub.ID, req.Message, notifier)
	if err != nil {
		switch {
		case errors.Is(err, submission.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "submission not found"})
		case errors.Is(err, submission.ErrAlreadyDecided):
			return c.JSON(http.StatusConflict, echo.Map{"error": "submission is no longer pending"})
		default:
			log.Error("Failed to reject event submission", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rejection failed"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Submission rejected",
		"submission": rejected,
	})
}
