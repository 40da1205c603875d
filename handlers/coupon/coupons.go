package coupon

import (
	"errors"
	"strconv"
	"time"

	"github.com/edusouq/payments-api/model"
	"github.com/edusouq/payments-api/services"
	"github.com/edusouq/payments-api/utils/middleware"
	"github.com/edusouq/payments-api/utils/response"
	"github.com/edusouq/payments-api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponHandler handles coupon validation and admin management
type CouponHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	coupons   *services.CouponService
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(db *gorm.DB, coupons *services.CouponService) *CouponHandler {
	return &CouponHandler{
		db:        db,
		validator: validation.NewValidator(),
		coupons:   coupons,
	}
}

// ValidateRequest represents the request body for validating a coupon
type ValidateRequest struct {
	Code     string `json:"code" validate:"required,min=2,max=50"`
	CourseID uint   `json:"course_id" validate:"required,min=1"`
}

// Validate handles POST /api/v1/coupons/validate. An unusable coupon is a
// normal answer, not an HTTP error, and validation never consumes a use.
func (h *CouponHandler) Validate(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == 0 {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var course model.Course
	if err := h.db.First(&course, req.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to load course")
	}

	coupon, err := h.coupons.FindByCode(c.Context(), req.Code)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return response.InternalServerError(c, "Failed to look up coupon")
	}

	priorUses := 0
	if coupon != nil {
		priorUses, err = h.coupons.CompletedUses(c.Context(), coupon.ID, userID)
		if err != nil {
			return response.InternalServerError(c, "Failed to look up coupon usage")
		}
	}

	eval := services.EvaluateCoupon(coupon, course.Price, priorUses)

	data := fiber.Map{
		"is_valid":     eval.IsValid,
		"discount":     eval.Discount.InexactFloat64(),
		"final_amount": eval.FinalAmount.InexactFloat64(),
	}
	if !eval.IsValid {
		data["error"] = eval.Error
	}

	return response.Success(c, data)
}

// CreateCouponRequest represents the admin request body for creating a coupon
type CreateCouponRequest struct {
	Code           string  `json:"code" validate:"required,min=2,max=50"`
	Type           string  `json:"type" validate:"required,oneof=percentage fixed"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	MaxUses        *int    `json:"max_uses" validate:"omitempty,min=1"`
	MaxUsesPerUser int     `json:"max_uses_per_user" validate:"omitempty,min=1"`
	StartDate      *string `json:"start_date"` // RFC3339; defaults to now
	EndDate        *string `json:"end_date"`   // RFC3339; nil = no expiry
}

// CreateCoupon handles POST /api/v1/admin/coupons
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req CreateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	coupon := model.Coupon{
		Code:           services.NormalizeCode(req.Code),
		Type:           req.Type,
		Amount:         decimal.NewFromFloat(req.Amount),
		MaxUses:        req.MaxUses,
		MaxUsesPerUser: req.MaxUsesPerUser,
		StartDate:      time.Now(),
		IsActive:       true,
	}
	if coupon.MaxUsesPerUser == 0 {
		coupon.MaxUsesPerUser = 1
	}

	if req.StartDate != nil {
		start, err := time.Parse(time.RFC3339, *req.StartDate)
		if err != nil {
			return response.BadRequest(c, "Invalid start_date, expected RFC3339")
		}
		coupon.StartDate = start
	}
	if req.EndDate != nil {
		end, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			return response.BadRequest(c, "Invalid end_date, expected RFC3339")
		}
		if end.Before(coupon.StartDate) {
			return response.BadRequest(c, "end_date must be after start_date")
		}
		coupon.EndDate = &end
	}

	if err := h.db.Create(&coupon).Error; err != nil {
		return response.InternalServerError(c, "Failed to create coupon")
	}

	return response.Created(c, coupon)
}

// ListCoupons handles GET /api/v1/admin/coupons
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	query := h.db.Model(&model.Coupon{})
	if active := c.Query("is_active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count coupons")
	}

	pagination := response.CalculatePagination(page, limit, total)
	offset := (pagination.CurrentPage - 1) * pagination.PerPage

	var coupons []model.Coupon
	if err := query.Order("created_at DESC").
		Limit(pagination.PerPage).
		Offset(offset).
		Find(&coupons).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch coupons")
	}

	return response.Paginated(c, coupons, pagination)
}

// UpdateCouponRequest represents the admin request body for updating a coupon
type UpdateCouponRequest struct {
	IsActive *bool   `json:"is_active"`
	MaxUses  *int    `json:"max_uses" validate:"omitempty,min=1"`
	EndDate  *string `json:"end_date"`
}

// UpdateCoupon handles PATCH /api/v1/admin/coupons/:id. Code, type and
// amount are immutable once issued; retire the coupon and create a new
// one instead.
func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	id := c.Params("id")

	var coupon model.Coupon
	if err := h.db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Coupon not found")
		}
		return response.InternalServerError(c, "Failed to load coupon")
	}

	var req UpdateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	updates := map[string]interface{}{}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.MaxUses != nil {
		if *req.MaxUses < coupon.UsedCount {
			return response.BadRequest(c, "max_uses cannot be below the current usage count")
		}
		updates["max_uses"] = *req.MaxUses
	}
	if req.EndDate != nil {
		end, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			return response.BadRequest(c, "Invalid end_date, expected RFC3339")
		}
		updates["end_date"] = end
	}

	if len(updates) == 0 {
		return response.BadRequest(c, "No updatable fields provided")
	}

	if err := h.db.Model(&coupon).Updates(updates).Error; err != nil {
		return response.InternalServerError(c, "Failed to update coupon")
	}

	return response.Success(c, coupon)
}
