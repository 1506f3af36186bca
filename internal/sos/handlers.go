package sos

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		signals, err := svc.ListActive(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if signals == nil {
			signals = []Signal{}
		}
		return c.JSON(signals)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req RaiseRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		sig, err := svc.Raise(c.Context(), userID(c), req)
		if errors.Is(err, ErrInvalidType) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(sig)
	})

	r.Post("/:id/resolve", authMiddleware, func(c *fiber.Ctx) error {
		sig, err := svc.Resolve(c.Context(), userID(c), c.Params("id"))
		switch {
		case errors.Is(err, ErrNotOwner):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(sig)
	})
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
