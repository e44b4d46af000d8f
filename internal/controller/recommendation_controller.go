package controller

import (
	"errors"
	"strings"

	"ai-budtender-be/internal/dto"
	"ai-budtender-be/internal/pkg/serverutils"
	"ai-budtender-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRecommendationController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	RefreshTaxonomy(ctx *fiber.Ctx) error
}

type recommendationController struct {
	service service.IRecommendationService
}

func NewRecommendationController(service service.IRecommendationService) IRecommendationController {
	return &recommendationController{service: service}
}

func (c *recommendationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/recommend/v1")
	h.Post("chat", c.Chat)
	h.Get("session/:id", c.GetSession)
	h.Delete("session/:id", c.DeleteSession)
	h.Post("taxonomy/refresh", c.RefreshTaxonomy)
}

func (c *recommendationController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.Message = strings.TrimSpace(req.Message)
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	if req.SessionID == "" {
		req.SessionID = ctx.Get("X-Session-ID")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Chat(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	ctx.Set("X-Session-ID", res.SessionID)
	return ctx.JSON(serverutils.SuccessResponse("Success get recommendation", res))
}

func (c *recommendationController) GetSession(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetSession(ctx.UserContext(), id)
	if errors.Is(err, service.ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *recommendationController) DeleteSession(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteSession(ctx.UserContext(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete session", nil))
}

func (c *recommendationController) RefreshTaxonomy(ctx *fiber.Ctx) error {
	res, err := c.service.RefreshTaxonomy(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success refresh taxonomy", res))
}

// sessionID accepts generated uuids and client-chosen ids alike, as long as they are key-safe.
func sessionID(ctx *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(ctx.Params("id"))
	if _, err := uuid.Parse(id); err == nil {
		return id, nil
	}
	if id == "" || len(id) > 128 || strings.ContainsAny(id, " :/*?") {
		return "", fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}
	return id, nil
}
