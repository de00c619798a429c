package controllers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/ManuelReschke/MealFox/app/models"
	"github.com/ManuelReschke/MealFox/app/repository"
	"github.com/ManuelReschke/MealFox/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MealPlanController stores and serves saved meal plans. Routes are gated by
// the entitlement middleware.
type MealPlanController struct {
	plans repository.MealPlanRepository
}

func NewMealPlanController(plans repository.MealPlanRepository) *MealPlanController {
	return &MealPlanController{plans: plans}
}

type saveMealPlanRequest struct {
	Title        string          `json:"title"`
	MealPlanData json.RawMessage `json:"mealPlanData"`
	Preferences  json.RawMessage `json:"preferences"`
}

type mealPlanResponse struct {
	*models.MealPlan
	MealPlanData json.RawMessage `json:"mealPlanData"`
	Preferences  json.RawMessage `json:"preferences,omitempty"`
}

func toMealPlanResponse(p *models.MealPlan) mealPlanResponse {
	resp := mealPlanResponse{MealPlan: p, MealPlanData: json.RawMessage(p.PlanJSON)}
	if p.PreferencesJSON != "" {
		resp.Preferences = json.RawMessage(p.PreferencesJSON)
	}
	return resp
}

// HandleList returns the user's saved plans.
func (mc *MealPlanController) HandleList(c *fiber.Ctx) error {
	plans, err := mc.plans.ListByUser(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Msg("list meal plans failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Error"})
	}

	out := make([]mealPlanResponse, 0, len(plans))
	for i := range plans {
		out = append(out, toMealPlanResponse(&plans[i]))
	}
	return c.JSON(fiber.Map{"mealPlans": out})
}

// HandleCreate saves a plan.
func (mc *MealPlanController) HandleCreate(c *fiber.Ctx) error {
	var req saveMealPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body."})
	}
	if len(req.MealPlanData) == 0 || !json.Valid(req.MealPlanData) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Meal plan data is required."})
	}

	plan := &models.MealPlan{
		UserID:   usercontext.GetUserID(c),
		Title:    strings.TrimSpace(req.Title),
		PlanJSON: string(req.MealPlanData),
	}
	if len(req.Preferences) > 0 && json.Valid(req.Preferences) {
		plan.PreferencesJSON = string(req.Preferences)
	}
	if err := plan.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title and meal plan data are required."})
	}

	if err := mc.plans.Create(c.UserContext(), plan); err != nil {
		log.Error().Err(err).Str("user_id", plan.UserID).Msg("save meal plan failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Error"})
	}
	return c.Status(fiber.StatusCreated).JSON(toMealPlanResponse(plan))
}

// HandleGet returns one plan owned by the user.
func (mc *MealPlanController) HandleGet(c *fiber.Ctx) error {
	plan, status, msg := mc.ownedPlan(c)
	if plan == nil {
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
	return c.JSON(toMealPlanResponse(plan))
}

// HandleDelete removes one plan owned by the user.
func (mc *MealPlanController) HandleDelete(c *fiber.Ctx) error {
	plan, status, msg := mc.ownedPlan(c)
	if plan == nil {
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
	if err := mc.plans.Delete(c.UserContext(), plan.ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error().Err(err).Str("meal_plan_id", plan.ID).Msg("delete meal plan failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Error"})
	}
	return c.JSON(fiber.Map{"message": "Meal plan deleted successfully."})
}

// ownedPlan loads the plan named in the path. On failure the plan is nil and
// the status and message describe the response.
func (mc *MealPlanController) ownedPlan(c *fiber.Ctx) (*models.MealPlan, int, string) {
	plan, err := mc.plans.GetByID(c.UserContext(), c.Params("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.StatusNotFound, "No meal plan found."
	}
	if err != nil {
		log.Error().Err(err).Str("meal_plan_id", c.Params("id")).Msg("load meal plan failed")
		return nil, fiber.StatusInternalServerError, "Internal Error"
	}
	if !plan.OwnedBy(usercontext.GetUserID(c)) {
		return nil, fiber.StatusForbidden, "Unauthorized"
	}
	return plan, fiber.StatusOK, ""
}
