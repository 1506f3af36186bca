package party

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		p, err := svc.CurrentParty(c.Context(), userID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(p)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name required")
		}
		p, err := svc.Create(c.Context(), userID(c), req)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	r.Post("/join", authMiddleware, func(c *fiber.Ctx) error {
		var req JoinRequest
		if err := c.BodyParser(&req); err != nil || req.InviteCode == "" {
			return fiber.NewError(fiber.StatusBadRequest, "invite_code required")
		}
		p, err := svc.Join(c.Context(), userID(c), req)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(p)
	})

	r.Post("/leave", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Leave(c.Context(), userID(c)); err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Patch("/", authMiddleware, func(c *fiber.Ctx) error {
		var req PatchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.PartyID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "party_id required")
		}
		p, err := svc.Patch(c.Context(), userID(c), req)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(p)
	})

	r.Post("/heartbeat", authMiddleware, func(c *fiber.Ctx) error {
		var req HeartbeatRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := svc.Heartbeat(c.Context(), userID(c), req); err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotLeader), errors.Is(err, ErrInvalidInviteCode):
		return fiber.StatusForbidden
	case errors.Is(err, ErrPartyFull), errors.Is(err, ErrAlreadyInParty):
		return fiber.StatusConflict
	case errors.Is(err, ErrNotInParty):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
